package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/core"
	"github.com/mikey/forward-unwrap/internal/ports"
)

// CliFilter prints unwrapped results for messages read by the CLI
type CliFilter struct {
	service    *core.ForwardService
	logger     *zap.Logger
	out        io.Writer
	opts       core.Options
	jsonOutput bool
	verbose    bool
}

// NewCliFilter creates a new CLI filter
func NewCliFilter(service *core.ForwardService, logger *zap.Logger, out io.Writer, opts core.Options, jsonOutput, verbose bool) *CliFilter {
	return &CliFilter{
		service:    service,
		logger:     logger,
		out:        out,
		opts:       opts,
		jsonOutput: jsonOutput,
		verbose:    verbose,
	}
}

// ProcessMessage unwraps one message and prints the result
func (f *CliFilter) ProcessMessage(ctx context.Context, raw []byte) (*core.Result, error) {
	startTime := time.Now()
	result, err := f.service.Process(ctx, raw, f.opts)
	if err != nil {
		f.logger.Error("Failed to unwrap message", zap.Error(err))
		return nil, err
	}
	f.logger.Debug("Unwrapped message",
		zap.String("id", result.ID),
		zap.Duration("duration", time.Since(startTime)))

	if f.jsonOutput {
		enc := json.NewEncoder(f.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return nil, fmt.Errorf("failed to encode result: %w", err)
		}
		return result, nil
	}

	f.printSummary(result)
	return result, nil
}

// Run processes every message of a source, stopping at the first failure
func (f *CliFilter) Run(ctx context.Context, source ports.MessageSource) (int, error) {
	count := 0
	err := source.Each(ctx, func(id string, raw []byte) error {
		f.logger.Debug("Processing message", zap.String("message", id))
		if !f.jsonOutput {
			fmt.Fprintf(f.out, "\n### %s\n", id)
		}
		if _, err := f.ProcessMessage(ctx, raw); err != nil {
			return fmt.Errorf("message %s: %w", id, err)
		}
		count++
		return nil
	})
	return count, err
}

func (f *CliFilter) printSummary(result *core.Result) {
	w := f.out
	fmt.Fprintf(w, "\n=== Original Message ===\n")
	fmt.Fprintf(w, "From: %s\n", addressOrNone(result.From))
	fmt.Fprintf(w, "To: %s\n", addressOrNone(result.To))
	fmt.Fprintf(w, "Subject: %s\n", result.Subject)
	if result.DateISO != "" {
		fmt.Fprintf(w, "Date: %s\n", result.DateISO)
	} else if result.DateRaw != "" {
		fmt.Fprintf(w, "Date: %s (unparsed)\n", result.DateRaw)
	}
	if len(result.Attachments) > 0 {
		names := make([]string, 0, len(result.Attachments))
		for _, a := range result.Attachments {
			names = append(names, a.Filename)
		}
		fmt.Fprintf(w, "Attachments: %s\n", strings.Join(names, ", "))
	}

	fmt.Fprintf(w, "\n=== Diagnostics ===\n")
	fmt.Fprintf(w, "Method: %s\n", result.Diagnostics.Method)
	fmt.Fprintf(w, "Depth: %d\n", result.Diagnostics.Depth)
	fmt.Fprintf(w, "Parsed: %t\n", result.Diagnostics.ParsedOK)
	if result.Confidence != nil {
		fmt.Fprintf(w, "Confidence: %d (%s)\n", result.Confidence.Score, result.Confidence.Description)
		if f.verbose {
			for _, reason := range result.Confidence.Reasons {
				fmt.Fprintf(w, "  - %s\n", reason)
			}
		}
	}
	for _, warning := range result.Diagnostics.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
	if result.Review != nil {
		fmt.Fprintf(w, "Review (%s): depth %d, from %s\n", result.Review.ModelUsed, result.Review.Depth, result.Review.OriginalFrom)
	}

	fmt.Fprintf(w, "\n=== Text ===\n%s\n", result.Text)

	if f.verbose {
		fmt.Fprintf(w, "\n=== History (deepest first) ===\n")
		for _, entry := range result.History {
			fmt.Fprintf(w, "[%d] %s | %s | %s\n", entry.Depth, addressOrNone(entry.From), entry.Subject, strings.Join(entry.Flags, ","))
		}
	}
}

func addressOrNone(a *core.Address) string {
	if a == nil || a.IsEmpty() {
		return "(none)"
	}
	return a.String()
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
