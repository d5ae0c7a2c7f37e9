package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/mikey/forward-unwrap/internal/core"
	"github.com/mikey/forward-unwrap/internal/utils"
)

// Generator is the content generation call the reviewer depends on
type Generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiClient implements core.ChainReviewer using Google Gemini
type GeminiClient struct {
	client        *genai.Client
	model         Generator
	modelName     string
	maxBodyChars  int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewGeminiClient creates a new Gemini reviewer
func NewGeminiClient(
	ctx context.Context,
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodyChars int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.ResponseMIMEType = "application/json"

	c := newWithGenerator(model, modelName, maxBodyChars, logger, textProcessor)
	c.client = client
	return c, nil
}

func newWithGenerator(model Generator, modelName string, maxBodyChars int, logger *zap.Logger, tp *utils.TextProcessor) *GeminiClient {
	return &GeminiClient{
		model:         model,
		modelName:     modelName,
		maxBodyChars:  maxBodyChars,
		logger:        logger,
		textProcessor: tp,
	}
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// ReviewChain asks the model for an independent estimate of the chain
func (c *GeminiClient) ReviewChain(ctx context.Context, result *core.Result) (*core.ChainReview, error) {
	prompt := c.textProcessor.ReviewPrompt(result, c.maxBodyChars)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	parsed, err := c.textProcessor.ParseReview(sb.String())
	if err != nil {
		return nil, err
	}

	review := parsed.ToChainReview(c.modelName)
	review.ReviewedAt = time.Now()
	c.logger.Debug("Gemini review complete",
		zap.String("id", result.ID),
		zap.Int("depth", review.Depth))
	return review, nil
}
