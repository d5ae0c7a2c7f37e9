package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/core"
)

func TestTruncateTextKeepsRunes(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "short", tp.TruncateText("short", 10))
	assert.Equal(t, "anything", tp.TruncateText("anything", 0))

	got := tp.TruncateText("héllo", 2)
	assert.Equal(t, "h"+truncationMarker, got)
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(nil)
	assert.Equal(t, "ab", tp.SanitizeUTF8("a\xffb"))
	assert.Equal(t, "é", tp.SanitizeUTF8("é"))
}

func TestParseReview(t *testing.T) {
	tp := NewTextProcessor(nil)

	tests := []struct {
		name  string
		reply string
	}{
		{"bare", `{"depth": 2, "original_from": "a@x.com", "original_subject": "Hi", "explanation": "two separators"}`},
		{"fenced", "```json\n{\"depth\": 2, \"original_from\": \"a@x.com\", \"original_subject\": \"Hi\", \"explanation\": \"two separators\"}\n```"},
		{"prose", `Sure. {"depth": 2, "original_from": "a@x.com", "original_subject": "Hi", "explanation": "two separators"} Hope that helps.`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tp.ParseReview(tt.reply)
			require.NoError(t, err)
			assert.Equal(t, &ReviewResponse{Depth: 2, OriginalFrom: "a@x.com", OriginalSubject: "Hi", Explanation: "two separators"}, resp)
		})
	}
}

func TestParseReviewRejectsProse(t *testing.T) {
	_, err := NewTextProcessor(nil).ParseReview("I could not find any forwarded content.")
	assert.Error(t, err)
}

func TestReviewPrompt(t *testing.T) {
	tp := NewTextProcessor(nil)
	result := &core.Result{
		FullBody: strings.Repeat("x", 50),
		History: []core.HistoryEntry{
			{Subject: "Inner"},
			{Subject: "Fwd: Inner"},
		},
	}

	prompt := tp.ReviewPrompt(result, 10)
	assert.Contains(t, prompt, "Outer subject: Fwd: Inner")
	assert.Contains(t, prompt, strings.Repeat("x", 10)+truncationMarker)
	assert.NotContains(t, prompt, strings.Repeat("x", 11))
}

func TestToChainReviewClampsDepth(t *testing.T) {
	review := (&ReviewResponse{Depth: -1, OriginalFrom: " a@x.com "}).ToChainReview("model")
	assert.Equal(t, 0, review.Depth)
	assert.Equal(t, "a@x.com", review.OriginalFrom)
	assert.Equal(t, "model", review.ModelUsed)
}
