package detect

import (
	"strings"

	"github.com/mikey/forward-unwrap/internal/core"
	"github.com/mikey/forward-unwrap/internal/normalize"
)

// OutlookReverseFRDetector reads French Outlook blocks where Envoyé precedes De
type OutlookReverseFRDetector struct{}

// NewOutlookReverseFRDetector creates the reversed French Outlook detector
func NewOutlookReverseFRDetector() *OutlookReverseFRDetector {
	return &OutlookReverseFRDetector{}
}

// Name implements core.Detector
func (d *OutlookReverseFRDetector) Name() string { return "outlook_reverse_fr" }

// Priority implements core.Detector
func (d *OutlookReverseFRDetector) Priority() int { return -45 }

// Detect implements core.Detector
func (d *OutlookReverseFRDetector) Detect(text string) core.DetectionResult {
	lines := splitLines(text)

	sent, ok := findFirst(lines, frSentRe, 0)
	if !ok {
		return core.NoDetection()
	}

	w := openWindow(lines, sent.index, 0)
	from, hasFrom := w.find(frFromRe)
	if !hasFrom {
		return core.NoDetection()
	}
	to, hasTo := w.find(frToRe)
	subject, hasSubject := w.find(frSubjectRe)

	var span headerSpan
	span.add(sent, true)
	span.add(from, true)
	span.add(to, hasTo)
	span.add(subject, hasSubject)

	email := &core.ForwardedEmail{
		From: addressFromParts(splitNameAddress(from.value())),
		Date: sent.value(),
		Body: bodyAfter(lines, span.last, normalize.IsQuoted(sent.line)),
	}
	if hasSubject {
		email.Subject = subject.value()
	}
	if hasTo {
		if v := to.value(); v != "" {
			email.To = &core.Address{Address: v}
		}
	}

	message := ""
	if span.first > 0 {
		message = strings.TrimSpace(strings.Join(lines[:span.first], "\n"))
	}

	return core.DetectionResult{
		Found:      true,
		Email:      email,
		Message:    message,
		Confidence: core.ConfidenceHigh,
	}
}
