// Package unwrap peels forwarded levels off a text body one detection at a time.
package unwrap

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/core"
	"github.com/mikey/forward-unwrap/internal/detect"
	"github.com/mikey/forward-unwrap/internal/normalize"
)

// MaxRecursiveDepth is the hard ceiling on unwrapped levels
const MaxRecursiveDepth = 15

// Seed is the state handed over by the MIME layer
type Seed struct {
	Text    string
	Depth   int
	History []core.HistoryEntry
}

// Outcome is the unwrapped chain, deepest level first
type Outcome struct {
	History     []core.HistoryEntry
	Diagnostics core.Diagnostics
}

// Engine runs the registry against the working text until no forward remains
type Engine struct {
	registry *detect.Registry
	logger   *zap.Logger
	maxDepth int
}

// NewEngine creates an engine over the given registry
func NewEngine(registry *detect.Registry, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		registry: registry,
		logger:   logger,
		maxDepth: MaxRecursiveDepth,
	}
}

// WithMaxDepth caps the absolute depth the engine unwraps to
func (e *Engine) WithMaxDepth(depth int) *Engine {
	if depth > 0 {
		e.maxDepth = depth
	}
	return e
}

// chain is the shallow-to-deep log of levels built during one Unwrap call
type chain struct {
	entries []core.HistoryEntry
}

func (c *chain) last() *core.HistoryEntry {
	return &c.entries[len(c.entries)-1]
}

// finalize writes the exclusive text of the current deepest level
func (c *chain) finalize(text string, silentIfEmpty bool) {
	entry := c.last()
	entry.Text = normalize.CleanText(text)
	if silentIfEmpty && entry.Text == "" {
		entry.AddFlag(core.FlagSilentForward)
	}
	entry.AddAttachments(normalize.InlineAttachments(entry.Text))
}

func (c *chain) append(entry core.HistoryEntry) {
	c.entries = append(c.entries, entry)
}

// Unwrap detects forwarded levels in seed.Text, extending seed.History
func (e *Engine) Unwrap(seed Seed) Outcome {
	text := strings.TrimSpace(normalize.Normalize(seed.Text))
	startDepth := seed.Depth
	depth := startDepth

	c := &chain{entries: append([]core.HistoryEntry(nil), seed.History...)}
	for i := range c.entries {
		c.entries[i].Flags = append([]string(nil), c.entries[i].Flags...)
		c.entries[i].Attachments = append([]core.Attachment(nil), c.entries[i].Attachments...)
	}
	if len(c.entries) == 0 {
		c.append(core.HistoryEntry{
			Depth: depth,
			Flags: []string{core.FlagLevelRoot, core.FlagTrustMediumInline},
		})
	}

	var diag core.Diagnostics
	for depth < e.maxDepth {
		res := e.registry.Detect(text)
		if !res.Found || res.Email == nil {
			c.finalize(text, false)
			break
		}

		c.finalize(res.Message, true)
		c.append(e.levelFromDetection(res, depth+1, &diag))

		e.logger.Debug("Unwrapped forward level",
			zap.String("detector", res.Detector),
			zap.Int("depth", depth+1))

		text = strings.TrimSpace(res.Email.Body)
		depth++
		if depth >= e.maxDepth {
			c.finalize(text, false)
		}
	}

	if depth > startDepth {
		deepest := c.last()
		deepest.AddFlag(core.FlagLevelDeepest)
		method, ok := deepest.Method()
		if !ok {
			method = "inline"
		}
		diag.Method = method
		diag.Depth = depth - startDepth
		diag.ParsedOK = true
	} else {
		diag.Method = "fallback"
		diag.Depth = 0
		diag.ParsedOK = false
		diag.AddWarning(core.WarningNoForwardedBody)
	}
	if diag.Warnings == nil {
		diag.Warnings = []string{}
	}

	return Outcome{History: reverse(c.entries), Diagnostics: diag}
}

func (e *Engine) levelFromDetection(res core.DetectionResult, depth int, diag *core.Diagnostics) core.HistoryEntry {
	email := res.Email
	detector := res.Detector
	if detector == "" {
		detector = "unknown"
	}

	entry := core.HistoryEntry{
		From:    normalize.Address(&email.From),
		To:      normalize.Address(email.To),
		Subject: strings.TrimSpace(email.Subject),
		DateRaw: strings.TrimSpace(email.Date),
		Depth:   depth,
		Flags:   []string{core.FlagMethodPrefix + detector, core.FlagTrustMediumInline},
	}
	if normalize.CleanText(email.Body) == "" {
		entry.AddFlag(core.FlagSilentForward)
	}
	if entry.DateRaw != "" {
		if iso, ok := normalize.DateISO(entry.DateRaw); ok {
			entry.DateISO = iso
		} else {
			entry.AddFlag(core.FlagDateUnparseable)
			diag.AddWarning(fmt.Sprintf("Could not normalize date: \"%s\"", entry.DateRaw))
		}
	}
	return entry
}

func reverse(entries []core.HistoryEntry) []core.HistoryEntry {
	out := make([]core.HistoryEntry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out
}
