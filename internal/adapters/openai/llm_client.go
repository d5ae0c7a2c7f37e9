package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/core"
	"github.com/mikey/forward-unwrap/internal/utils"
)

// ChatCompleter is the chat completion call the reviewer depends on
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient implements core.ChainReviewer using OpenAI chat completions
type OpenAIClient struct {
	client        ChatCompleter
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodyChars  int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewOpenAIClient creates a new OpenAI reviewer
func NewOpenAIClient(
	client ChatCompleter,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodyChars int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	return &OpenAIClient{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodyChars:  maxBodyChars,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// ReviewChain asks the model for an independent estimate of the chain
func (c *OpenAIClient) ReviewChain(ctx context.Context, result *core.Result) (*core.ChainReview, error) {
	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You analyse forwarded email chains. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: c.textProcessor.ReviewPrompt(result, c.maxBodyChars),
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	parsed, err := c.textProcessor.ParseReview(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	review := parsed.ToChainReview(c.modelName)
	review.ReviewedAt = time.Now()
	c.logger.Debug("OpenAI review complete",
		zap.String("id", result.ID),
		zap.String("processing_id", resp.ID),
		zap.Int("depth", review.Depth))
	return review, nil
}
