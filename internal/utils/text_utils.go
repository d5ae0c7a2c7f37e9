package utils

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/core"
)

const truncationMarker = "\n[... Content truncated due to size limits ...]"

const reviewPromptFormat = `You are auditing an email that may contain a chain of forwarded or replied messages.
Count how many times the message was forwarded or replied to, and identify the original (innermost) message.
Respond with a JSON object containing:
- depth: integer (number of forward/reply levels above the original message, 0 if none)
- original_from: string (email address of the original sender, empty if unknown)
- original_subject: string (subject of the original message, empty if unknown)
- explanation: string (one or two sentences on how you located the original message)

Outer subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`

// ReviewResponse is the JSON object a reviewer model answers with
type ReviewResponse struct {
	Depth           int    `json:"depth"`
	OriginalFrom    string `json:"original_from"`
	OriginalSubject string `json:"original_subject"`
	Explanation     string `json:"explanation"`
}

// TextProcessor prepares message text for external models and reads their replies
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextProcessor{
		logger: logger,
	}
}

// TruncateText cuts text to at most maxSize bytes on a rune boundary
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]
	for len(truncated) > 0 && !utf8.ValidString(truncated) {
		truncated = truncated[:len(truncated)-1]
	}

	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated + truncationMarker
}

// SanitizeUTF8 drops invalid UTF-8 bytes
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	sanitized := strings.ToValidUTF8(text, "")
	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(sanitized)))
	return sanitized
}

// ProcessText truncates and sanitizes text in one operation
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	return tp.SanitizeUTF8(tp.TruncateText(text, maxSize))
}

// ReviewPrompt renders the chain review prompt for result
func (tp *TextProcessor) ReviewPrompt(result *core.Result, maxBody int) string {
	subject := ""
	if n := len(result.History); n > 0 {
		subject = result.History[n-1].Subject
	}
	if subject == "" {
		subject = "(none)"
	}
	return fmt.Sprintf(reviewPromptFormat, subject, tp.ProcessText(result.FullBody, maxBody))
}

// ParseReview reads a ReviewResponse from a model reply, tolerating prose
// or code fences around the JSON object.
func (tp *TextProcessor) ParseReview(reply string) (*ReviewResponse, error) {
	var resp ReviewResponse
	err := json.Unmarshal([]byte(strings.TrimSpace(reply)), &resp)
	if err == nil {
		return &resp, nil
	}

	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("failed to extract JSON from model response: %w", err)
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse model response as JSON: %w", err)
	}
	return &resp, nil
}

// ToChainReview converts a parsed reply into the core review type
func (r *ReviewResponse) ToChainReview(model string) *core.ChainReview {
	depth := r.Depth
	if depth < 0 {
		depth = 0
	}
	return &core.ChainReview{
		Depth:           depth,
		OriginalFrom:    strings.TrimSpace(r.OriginalFrom),
		OriginalSubject: strings.TrimSpace(r.OriginalSubject),
		Explanation:     strings.TrimSpace(r.Explanation),
		ModelUsed:       model,
	}
}
