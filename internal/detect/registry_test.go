package detect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/core"
)

type stubDetector struct {
	name     string
	priority int
	detect   func(text string) core.DetectionResult
}

func (s *stubDetector) Name() string                            { return s.name }
func (s *stubDetector) Priority() int                           { return s.priority }
func (s *stubDetector) Detect(text string) core.DetectionResult { return s.detect(text) }

func fixedMatch(message, from string) func(string) core.DetectionResult {
	return func(string) core.DetectionResult {
		return core.DetectionResult{
			Found:      true,
			Message:    message,
			Email:      &core.ForwardedEmail{From: core.Address{Address: from}, Body: "body"},
			Confidence: core.ConfidenceHigh,
		}
	}
}

func TestRegistryOrdersByPriority(t *testing.T) {
	r := NewRegistry(zap.NewNop(), &stubDetector{name: "custom", priority: -45, detect: fixedMatch("", "x@example.com")})

	assert.Equal(t, []string{
		"outlook_empty_header",
		"outlook_reverse_fr",
		"custom",
		"new_outlook",
		"outlook_fr",
		"reply",
		"generic",
	}, r.Names())
}

func TestRegistryEarliestOffsetWins(t *testing.T) {
	late := &stubDetector{name: "late", priority: -100, detect: fixedMatch("a long preceding message", "late@example.com")}
	early := &stubDetector{name: "early", priority: 50, detect: fixedMatch("short", "early@example.com")}
	r := NewRegistry(zap.NewNop(), late, early)

	res := r.Detect("irrelevant")
	require.True(t, res.Found)
	assert.Equal(t, "early", res.Detector)
}

func TestRegistryTieGoesToLowerPriority(t *testing.T) {
	high := &stubDetector{name: "high-prio", priority: -5, detect: fixedMatch("", "a@example.com")}
	low := &stubDetector{name: "low-prio", priority: 5, detect: fixedMatch("", "b@example.com")}
	r := NewRegistry(zap.NewNop(), low, high)

	res := r.Detect("SAME-MATCH\n\nSome content")
	require.True(t, res.Found)
	assert.Equal(t, "high-prio", res.Detector)
	assert.Equal(t, "a@example.com", res.Email.From.Address)
}

func TestRegistryDiscardsMatchesWithoutSender(t *testing.T) {
	noSender := &stubDetector{name: "no-sender", priority: -100, detect: fixedMatch("", "  ")}
	r := NewRegistry(zap.NewNop(), noSender)

	res := r.Detect("plain text without any forward")
	assert.False(t, res.Found)
	assert.Equal(t, core.ConfidenceLow, res.Confidence)
}

func TestRegistryRecoversFromPanickingDetector(t *testing.T) {
	boom := &stubDetector{name: "boom", priority: -100, detect: func(string) core.DetectionResult { panic("bad regex state") }}
	r := NewRegistry(zap.NewNop(), boom)

	var res core.DetectionResult
	require.NotPanics(t, func() {
		res = r.Detect("Hi\n\n---------- Forwarded message ---------\nFrom: a@example.com\nSubject: s\n\nbody")
	})
	require.True(t, res.Found)
	assert.Equal(t, "new_outlook", res.Detector)
}

func TestRegistryPicksSpecificVariants(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		detector string
	}{
		{
			"reversed french beats canonical on tie",
			"Envoyé : mercredi 29 janvier 2026 10:00\nDe : Alice <alice@example.com>\nÀ : Bob <bob@example.com>\nObjet : Test Reverse\n\nHello Bob!",
			"outlook_reverse_fr",
		},
		{
			"empty date block",
			"________________________________\nDe: Alice M.\nEnvoyé: \nÀ: Bob M. <bob@example.com>\nObjet: RE: Test\n\nHello Bob!",
			"outlook_empty_header",
		},
		{
			"plain header block",
			"---------- Forwarded message ---------\nFrom: Alice <alice@example.com>\nDate: Wed, 29 Jan 2026 10:00:00 +0100\nSubject: Test Forward\nTo: Bob <bob@example.com>\n\nHello Bob!",
			"new_outlook",
		},
		{
			"reply",
			"Sure.\n\nOn Mon, Jan 1, 2023 at 10:00 AM, User A <a@example.com> wrote:\n> Hey",
			"reply",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewRegistry(zap.NewNop()).Detect(tt.text)
			require.True(t, res.Found)
			assert.Equal(t, tt.detector, res.Detector)
		})
	}
}

func TestRegistryCustomDetectorShadowsBuiltins(t *testing.T) {
	magic := &stubDetector{
		name:     "magic",
		priority: -100,
		detect: func(text string) core.DetectionResult {
			const marker = "----*MAGIC-FORWARD-START*----"
			i := strings.Index(text, marker)
			if i < 0 {
				return core.NoDetection()
			}
			return core.DetectionResult{
				Found:      true,
				Message:    strings.TrimSpace(text[:i]),
				Email:      &core.ForwardedEmail{From: core.Address{Address: "wizard@magic.com"}, Body: "magic body"},
				Confidence: core.ConfidenceHigh,
			}
		},
	}
	text := "Hello standard world.\n\n----*MAGIC-FORWARD-START*----\nFrom: wizard@magic.com\nDate: 2026-01-28T12:00:00.000Z\nSubject: Magic Subject\n\nmagic body"

	res := NewRegistry(zap.NewNop(), magic).Detect(text)
	require.True(t, res.Found)
	assert.Equal(t, "magic", res.Detector)
	assert.Equal(t, "Hello standard world.", res.Message)
}
