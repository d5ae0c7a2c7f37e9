// Package detect holds the forward-header detectors and the registry that
// arbitrates between them.
package detect

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/core"
)

// Registry runs every detector and keeps the match that starts earliest
type Registry struct {
	detectors []core.Detector
	logger    *zap.Logger
}

// BuiltinDetectors returns a fresh set of the shipped detectors
func BuiltinDetectors() []core.Detector {
	return []core.Detector{
		NewOutlookEmptyHeaderDetector(),
		NewOutlookReverseFRDetector(),
		NewPlainHeaderDetector(),
		NewOutlookFRDetector(),
		NewReplyDetector(),
		NewGenericDetector(),
	}
}

// NewRegistry creates a registry with the built-in detectors plus custom ones
func NewRegistry(logger *zap.Logger, custom ...core.Detector) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{logger: logger}
	for _, d := range BuiltinDetectors() {
		r.Register(d)
	}
	for _, d := range custom {
		r.Register(d)
	}
	return r
}

// Register adds a detector and keeps the collection ordered by priority.
// Detectors sharing a priority keep registration order.
func (r *Registry) Register(d core.Detector) {
	if d == nil {
		return
	}
	r.detectors = append(r.detectors, d)
	sort.SliceStable(r.detectors, func(i, j int) bool {
		return r.detectors[i].Priority() < r.detectors[j].Priority()
	})
}

// Names lists detector names in evaluation order
func (r *Registry) Names() []string {
	names := make([]string, len(r.detectors))
	for i, d := range r.detectors {
		names[i] = d.Name()
	}
	return names
}

// Detect returns the valid match with the shortest preceding message.
// Equal offsets go to the detector evaluated first.
func (r *Registry) Detect(text string) core.DetectionResult {
	best := core.NoDetection()
	bestLen := -1

	for _, d := range r.detectors {
		res := r.safeDetect(d, text)
		if !res.HasSender() {
			continue
		}
		if bestLen < 0 || len(res.Message) < bestLen {
			res.Detector = d.Name()
			best = res
			bestLen = len(res.Message)
		}
	}
	return best
}

func (r *Registry) safeDetect(d core.Detector, text string) (res core.DetectionResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("Detector panicked",
				zap.String("detector", d.Name()),
				zap.String("panic", fmt.Sprint(rec)))
			res = core.NoDetection()
		}
	}()
	return d.Detect(text)
}
