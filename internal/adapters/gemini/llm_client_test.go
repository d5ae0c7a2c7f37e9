package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/core"
	"github.com/mikey/forward-unwrap/internal/utils"
)

type fakeGenerator struct {
	resp   *genai.GenerateContentResponse
	err    error
	prompt string
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	if len(parts) > 0 {
		if text, ok := parts[0].(genai.Text); ok {
			f.prompt = string(text)
		}
	}
	return f.resp, f.err
}

func textResponse(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func TestReviewChain(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(genai.Text(`{"depth": 3, "original_from": "a@x.com",`), genai.Text(` "original_subject": "Hi", "explanation": "three levels"}`))}
	client := newWithGenerator(gen, "gemini-pro", 100, zap.NewNop(), utils.NewTextProcessor(nil))

	review, err := client.ReviewChain(context.Background(), &core.Result{ID: "r1", FullBody: "Forwarded body"})
	require.NoError(t, err)
	assert.Equal(t, 3, review.Depth)
	assert.Equal(t, "Hi", review.OriginalSubject)
	assert.Equal(t, "gemini-pro", review.ModelUsed)
	assert.Contains(t, gen.prompt, "Forwarded body")
	assert.NoError(t, client.Close())
}

func TestReviewChainEmptyResponse(t *testing.T) {
	client := newWithGenerator(&fakeGenerator{resp: &genai.GenerateContentResponse{}}, "gemini-pro", 100, zap.NewNop(), utils.NewTextProcessor(nil))

	_, err := client.ReviewChain(context.Background(), &core.Result{})
	assert.EqualError(t, err, "empty response from Gemini")
}

func TestReviewChainError(t *testing.T) {
	client := newWithGenerator(&fakeGenerator{err: errors.New("quota")}, "gemini-pro", 100, zap.NewNop(), utils.NewTextProcessor(nil))

	_, err := client.ReviewChain(context.Background(), &core.Result{})
	assert.ErrorContains(t, err, "quota")
}
