package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/core"
	"github.com/mikey/forward-unwrap/internal/utils"
)

type fakeCompleter struct {
	resp openai.ChatCompletionResponse
	err  error
	req  openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.req = req
	return f.resp, f.err
}

func reply(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		ID: "chatcmpl-1",
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}
}

func newClient(f *fakeCompleter) *OpenAIClient {
	return NewOpenAIClient(f, "gpt-4", 300, 0.1, 0.9, 200, zap.NewNop(), utils.NewTextProcessor(nil))
}

func TestReviewChain(t *testing.T) {
	f := &fakeCompleter{resp: reply(`{"depth": 1, "original_from": "orig@x.com", "original_subject": "Topic", "explanation": "single forward"}`)}

	review, err := newClient(f).ReviewChain(context.Background(), &core.Result{ID: "r1", FullBody: "Comment\n\nFrom: orig@x.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, review.Depth)
	assert.Equal(t, "orig@x.com", review.OriginalFrom)
	assert.Equal(t, "gpt-4", review.ModelUsed)

	assert.Equal(t, "gpt-4", f.req.Model)
	require.Len(t, f.req.Messages, 2)
	assert.Contains(t, f.req.Messages[1].Content, "From: orig@x.com")
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, f.req.ResponseFormat.Type)
}

func TestReviewChainNoChoices(t *testing.T) {
	_, err := newClient(&fakeCompleter{}).ReviewChain(context.Background(), &core.Result{})
	assert.EqualError(t, err, "empty response from OpenAI")
}

func TestReviewChainUnparseable(t *testing.T) {
	_, err := newClient(&fakeCompleter{resp: reply("no idea")}).ReviewChain(context.Background(), &core.Result{})
	assert.Error(t, err)
}

func TestReviewChainAPIError(t *testing.T) {
	_, err := newClient(&fakeCompleter{err: errors.New("rate limited")}).ReviewChain(context.Background(), &core.Result{})
	assert.ErrorContains(t, err, "rate limited")
}
