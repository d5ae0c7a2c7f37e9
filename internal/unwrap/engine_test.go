package unwrap

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/core"
	"github.com/mikey/forward-unwrap/internal/detect"
)

func newEngine(custom ...core.Detector) *Engine {
	return NewEngine(detect.NewRegistry(zap.NewNop(), custom...), zap.NewNop())
}

const twoLevelChain = "Comment A\n\n" +
	"---------- Forwarded message ---------\n" +
	"From: <inter@x.com>\n" +
	"Date: Wed, 29 Jan 2026 10:00:00 +0100\n" +
	"Subject: Fwd: Topic\n" +
	"To: <user@x.com>\n\n" +
	"Comment B\n\n" +
	"---------- Forwarded message ---------\n" +
	"From: Original Sender <orig@x.com>\n" +
	"Date: Tue, 28 Jan 2026 09:00:00 +0100\n" +
	"Subject: Topic\n\n" +
	"Content"

func TestUnwrapTwoLevels(t *testing.T) {
	out := newEngine().Unwrap(Seed{Text: twoLevelChain})

	require.Len(t, out.History, 3)
	assert.Equal(t, 2, out.Diagnostics.Depth)
	assert.Equal(t, "new_outlook", out.Diagnostics.Method)
	assert.True(t, out.Diagnostics.ParsedOK)
	assert.Empty(t, out.Diagnostics.Warnings)

	deepest := out.History[0]
	require.NotNil(t, deepest.From)
	assert.Equal(t, "orig@x.com", deepest.From.Address)
	assert.Equal(t, "Original Sender", deepest.From.Name)
	assert.Equal(t, "Content", deepest.Text)
	assert.Equal(t, "2026-01-28T08:00:00.000Z", deepest.DateISO)
	assert.Equal(t, 2, deepest.Depth)
	assert.True(t, deepest.HasFlag(core.FlagLevelDeepest))
	assert.True(t, deepest.HasFlag("method:new_outlook"))

	middle := out.History[1]
	assert.Equal(t, "Comment B", middle.Text)
	assert.Equal(t, "inter@x.com", middle.From.Address)
	assert.Equal(t, "user@x.com", middle.To.Address)

	root := out.History[2]
	assert.Equal(t, "Comment A", root.Text)
	assert.Equal(t, 0, root.Depth)
	assert.Equal(t, []string{core.FlagLevelRoot, core.FlagTrustMediumInline}, root.Flags)
}

func TestUnwrapWithoutForward(t *testing.T) {
	out := newEngine().Unwrap(Seed{Text: "Just a note.  \r\nNothing forwarded here.\n"})

	require.Len(t, out.History, 1)
	assert.Equal(t, "Just a note.\nNothing forwarded here.", out.History[0].Text)
	assert.Equal(t, core.Diagnostics{
		Method:   "fallback",
		Depth:    0,
		ParsedOK: false,
		Warnings: []string{core.WarningNoForwardedBody},
	}, out.Diagnostics)
}

func TestUnwrapSilentForward(t *testing.T) {
	text := "---------- Forwarded message ---------\nFrom: Alice <alice@example.com>\nDate: Wed, 29 Jan 2026 10:00:00 +0100\nSubject: Test Forward\nTo: Bob <bob@example.com>\n\nHello Bob!"

	out := newEngine().Unwrap(Seed{Text: text})
	require.Len(t, out.History, 2)

	root := out.History[1]
	assert.Equal(t, "", root.Text)
	assert.True(t, root.HasFlag(core.FlagSilentForward))

	deepest := out.History[0]
	assert.Equal(t, &core.Address{Name: "Bob", Address: "bob@example.com"}, deepest.To)
	assert.False(t, deepest.HasFlag(core.FlagSilentForward))
}

func TestUnwrapEmptyForwardedBody(t *testing.T) {
	text := "See below\n\n---------- Forwarded message ---------\nFrom: Alice <alice@example.com>\nSubject: Nothing inside\n"

	out := newEngine().Unwrap(Seed{Text: text})
	require.Len(t, out.History, 2)
	assert.True(t, out.History[0].HasFlag(core.FlagSilentForward))
	assert.Equal(t, "See below", out.History[1].Text)
}

func TestUnwrapUnparseableDate(t *testing.T) {
	text := "Hi\n\nFrom: a@example.com\nDate: someday soon\nSubject: x\n\nBody"

	out := newEngine().Unwrap(Seed{Text: text})
	require.Len(t, out.History, 2)
	assert.True(t, out.History[0].HasFlag(core.FlagDateUnparseable))
	assert.Equal(t, "", out.History[0].DateISO)
	assert.Equal(t, "someday soon", out.History[0].DateRaw)
	assert.Equal(t, []string{`Could not normalize date: "someday soon"`}, out.Diagnostics.Warnings)
	assert.True(t, out.Diagnostics.ParsedOK)
}

func TestUnwrapStopsAtMaxDepth(t *testing.T) {
	body := "Deepest"
	for i := 19; i >= 0; i-- {
		body = fmt.Sprintf("Level %d\n\n---------- Forwarded message ---------\nFrom: l%d@example.com\nSubject: L%d\n\n%s", i, i, i, body)
	}

	out := newEngine().Unwrap(Seed{Text: body})
	require.Len(t, out.History, MaxRecursiveDepth+1)
	assert.Equal(t, MaxRecursiveDepth, out.Diagnostics.Depth)

	deepest := out.History[0]
	assert.True(t, deepest.HasFlag(core.FlagLevelDeepest))
	assert.Equal(t, "l14@example.com", deepest.From.Address)
	assert.True(t, strings.HasPrefix(deepest.Text, "Level 15"))
}

func TestUnwrapContinuesSeededHistory(t *testing.T) {
	seed := Seed{
		Text:  "Intro\n\nFrom: a@x.com\nSubject: s\n\nbody",
		Depth: 1,
		History: []core.HistoryEntry{
			{Depth: 0, Flags: []string{core.FlagTrustHighMIME}, Text: "outer"},
			{Depth: 1, Flags: []string{core.FlagTrustHighMIME}, Text: "full attached message"},
		},
	}

	out := newEngine().Unwrap(seed)
	require.Len(t, out.History, 3)
	assert.Equal(t, 1, out.Diagnostics.Depth)
	assert.Equal(t, 2, out.History[0].Depth)
	assert.Equal(t, "Intro", out.History[1].Text)
	assert.Equal(t, "outer", out.History[2].Text)
	assert.Equal(t, []string{core.FlagTrustHighMIME}, seed.History[1].Flags)
}

func TestUnwrapInlineAttachments(t *testing.T) {
	text := "Look <notes.txt>\n\nFrom: a@x.com\nSubject: s\n\nSee <invoice.pdf> and <invoice.pdf>"

	out := newEngine().Unwrap(Seed{Text: text})
	require.Len(t, out.History, 2)
	assert.Equal(t, []core.Attachment{{Filename: "invoice.pdf", ContentType: "application/pdf"}}, out.History[0].Attachments)
	assert.Equal(t, []core.Attachment{{Filename: "notes.txt", ContentType: "text/plain"}}, out.History[1].Attachments)
}

type magicDetector struct{}

func (magicDetector) Name() string  { return "magic" }
func (magicDetector) Priority() int { return -100 }
func (magicDetector) Detect(text string) core.DetectionResult {
	const marker = "----*MAGIC-FORWARD-START*----"
	i := strings.Index(text, marker)
	if i < 0 {
		return core.NoDetection()
	}
	rest := text[i+len(marker):]
	parts := strings.SplitN(rest, "\n\n", 2)
	body := ""
	if len(parts) == 2 {
		body = parts[1]
	}
	return core.DetectionResult{
		Found:      true,
		Email:      &core.ForwardedEmail{From: core.Address{Address: "wizard@magic.com"}, Subject: "Magic Subject", Body: body},
		Message:    strings.TrimSpace(text[:i]),
		Confidence: core.ConfidenceHigh,
	}
}

func TestUnwrapWithCustomDetector(t *testing.T) {
	text := "\nTop level root message.\n\n----*MAGIC-FORWARD-START*----\nFrom: wizard@magic.com\nDate: 2026-01-28T12:00:00.000Z\nSubject: Magic Subject\n\nIntermediate level message found by magic.\n\n________________________________\nFrom: deepest@test.com\nSent: Mon, 26 Jan 2026 15:00:00 +0000\nSubject: Deepest\n\nDeepest message body.\n"

	out := newEngine(magicDetector{}).Unwrap(Seed{Text: text})
	require.Len(t, out.History, 3)
	assert.Equal(t, 2, out.Diagnostics.Depth)
	assert.Equal(t, "new_outlook", out.Diagnostics.Method)
	assert.Equal(t, "deepest@test.com", out.History[0].From.Address)
	assert.Equal(t, "Deepest message body.", out.History[0].Text)
	assert.True(t, out.History[1].HasFlag("method:magic"))
	assert.Equal(t, "Intermediate level message found by magic.", out.History[1].Text)
	assert.Equal(t, "Top level root message.", out.History[2].Text)
}
