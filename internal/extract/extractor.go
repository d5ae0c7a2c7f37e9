// Package extract is the caller-facing entry point: it races MIME decoding
// against a deadline, hands the decoded layer to the inline engine and
// assembles the final result.
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/core"
	"github.com/mikey/forward-unwrap/internal/detect"
	"github.com/mikey/forward-unwrap/internal/mime"
	"github.com/mikey/forward-unwrap/internal/normalize"
	"github.com/mikey/forward-unwrap/internal/scoring"
	"github.com/mikey/forward-unwrap/internal/unwrap"
)

const (
	DefaultMaxDepth = unwrap.MaxRecursiveDepth
	DefaultTimeout  = 10 * time.Second
)

// Extractor implements core.Extractor
type Extractor struct {
	decoder  *mime.Decoder
	logger   *zap.Logger
	defaults core.Options
}

// NewExtractor creates an extractor; zero fields in defaults fall back to
// DefaultMaxDepth and DefaultTimeout.
func NewExtractor(logger *zap.Logger, defaults core.Options) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaults.MaxDepth <= 0 {
		defaults.MaxDepth = DefaultMaxDepth
	}
	if defaults.Timeout <= 0 {
		defaults.Timeout = DefaultTimeout
	}
	return &Extractor{
		decoder:  mime.NewDecoder(logger),
		logger:   logger,
		defaults: defaults,
	}
}

func (x *Extractor) resolve(opts core.Options) core.Options {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = x.defaults.MaxDepth
	}
	if opts.Timeout <= 0 {
		opts.Timeout = x.defaults.Timeout
	}
	if !opts.SkipMIMELayer {
		opts.SkipMIMELayer = x.defaults.SkipMIMELayer
	}
	if len(opts.CustomDetectors) == 0 {
		opts.CustomDetectors = x.defaults.CustomDetectors
	}
	return opts
}

// Extract unwraps raw into its deepest level. It never fails: unexpected
// errors produce a fallback result carrying a "Fatal error" warning.
func (x *Extractor) Extract(ctx context.Context, raw []byte, opts core.Options) (result *core.Result) {
	opts = x.resolve(opts)

	defer func() {
		if r := recover(); r != nil {
			x.logger.Error("Extraction panicked", zap.Any("panic", r))
			result = Fallback(raw, fmt.Sprint(r))
		}
	}()

	var warnings []string
	layer := &mime.Layer{RawBody: string(raw)}
	if !opts.SkipMIMELayer {
		decoded, err := x.decode(ctx, raw, opts)
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			x.logger.Warn("MIME decoding timed out, treating input as plain text",
				zap.Duration("timeout", opts.Timeout))
			warnings = append(warnings, fmt.Sprintf("MIME decoding timed out after %s; treating input as plain text", opts.Timeout))
		case err != nil:
			x.logger.Error("MIME decoding failed", zap.Error(err))
			return Fallback(raw, err.Error())
		default:
			layer = decoded
		}
	}

	registry := detect.NewRegistry(x.logger, opts.CustomDetectors...)
	engine := unwrap.NewEngine(registry, x.logger).WithMaxDepth(opts.MaxDepth)
	out := engine.Unwrap(unwrap.Seed{
		Text:    layer.RawBody,
		Depth:   layer.Depth,
		History: layer.History,
	})

	result = assemble(layer, out, warnings)
	x.logger.Debug("Extraction complete",
		zap.String("id", result.ID),
		zap.String("method", result.Diagnostics.Method),
		zap.Int("depth", result.Diagnostics.Depth),
		zap.Int("confidence", result.Confidence.Score))
	return result
}

type decodeOutcome struct {
	layer *mime.Layer
	err   error
}

// decode runs the MIME decoder under opts.Timeout
func (x *Extractor) decode(ctx context.Context, raw []byte, opts core.Options) (*mime.Layer, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	done := make(chan decodeOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- decodeOutcome{err: fmt.Errorf("%v", r)}
			}
		}()
		layer, err := x.decoder.Decode(ctx, raw, opts.MaxDepth)
		done <- decodeOutcome{layer: layer, err: err}
	}()

	select {
	case o := <-done:
		return o.layer, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func assemble(layer *mime.Layer, out unwrap.Outcome, warnings []string) *core.Result {
	deepest := out.History[0]
	meta := layer.Metadata
	if meta == nil {
		meta = &mime.Metadata{}
	}

	from := deepest.From
	if from == nil {
		from = meta.From
	}
	from = normalize.Address(from)

	to := deepest.To
	if to == nil {
		to = meta.To
	}

	subject := deepest.Subject
	if subject == "" {
		subject = meta.Subject
	}

	dateRaw, dateISO := deepest.DateRaw, deepest.DateISO
	if dateRaw == "" && meta.Date != "" {
		dateRaw = meta.Date
		dateISO, _ = normalize.DateISO(meta.Date)
	}

	attachments := core.MergeAttachments(
		append([]core.Attachment{}, layer.LastAttachments...),
		deepest.Attachments,
	)

	diag := core.Diagnostics{Method: out.Diagnostics.Method}
	for _, w := range warnings {
		diag.AddWarning(w)
	}
	for _, w := range out.Diagnostics.Warnings {
		if w == core.WarningNoForwardedBody && layer.IsRFC822 {
			continue
		}
		diag.AddWarning(w)
	}
	if diag.Method == "fallback" && layer.IsRFC822 {
		diag.Method = "rfc822"
	}
	diag.Depth = layer.Depth + out.Diagnostics.Depth
	diag.ParsedOK = from != nil && (subject != "" || len(out.History) > 1)
	if diag.Warnings == nil {
		diag.Warnings = []string{}
	}

	fullBody := normalize.CleanText(layer.RawBody)
	confidence := scoring.Calculate(fullBody, diag.Depth)

	return &core.Result{
		ID:          uuid.NewString(),
		From:        from,
		To:          normalize.Address(to),
		Subject:     subject,
		DateRaw:     dateRaw,
		DateISO:     dateISO,
		Text:        normalize.CleanText(deepest.Text),
		FullBody:    fullBody,
		Attachments: attachments,
		History:     out.History,
		Diagnostics: diag,
		Confidence:  &confidence,
	}
}

// Fallback builds the result returned when extraction could not complete
func Fallback(raw []byte, message string) *core.Result {
	text := normalize.CleanText(normalize.Normalize(string(raw)))
	confidence := scoring.Calculate(text, 0)
	return &core.Result{
		ID:          uuid.NewString(),
		Text:        text,
		FullBody:    text,
		Attachments: []core.Attachment{},
		History:     []core.HistoryEntry{},
		Diagnostics: core.Diagnostics{
			Method:   "fallback",
			Depth:    0,
			ParsedOK: false,
			Warnings: []string{"Fatal error: " + message},
		},
		Confidence: &confidence,
	}
}
