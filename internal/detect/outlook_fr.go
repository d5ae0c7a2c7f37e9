package detect

import (
	"regexp"

	"github.com/mikey/forward-unwrap/internal/core"
	"github.com/mikey/forward-unwrap/internal/normalize"
)

var (
	frFromRe    = headerPattern("De")
	frSubjectRe = headerPattern("Objet")
	frSentRe    = regexp.MustCompile(`(?i)^[ \t]*(?:>[ \t]*)*[*_]*Envoy(?:é|=E9|e)?[*_]*[ \t]*:`)
	frDateRe    = headerPattern("Date")
	frToRe      = regexp.MustCompile(`(?i)^[ \t]*(?:>[ \t]*)*[*_]*(?:À|A|=C0)[*_]*[ \t]*:`)
)

// OutlookFRDetector reads French Outlook blocks (De, Envoyé, À, Objet) in any order
type OutlookFRDetector struct{}

// NewOutlookFRDetector creates the French Outlook detector
func NewOutlookFRDetector() *OutlookFRDetector {
	return &OutlookFRDetector{}
}

// Name implements core.Detector
func (d *OutlookFRDetector) Name() string { return "outlook_fr" }

// Priority implements core.Detector
func (d *OutlookFRDetector) Priority() int { return -30 }

// Detect implements core.Detector
func (d *OutlookFRDetector) Detect(text string) core.DetectionResult {
	lines := splitLines(text)

	anchor := -1
	for i, line := range lines {
		if frFromRe.MatchString(line) || frSubjectRe.MatchString(line) {
			anchor = i
			break
		}
	}
	if anchor < 0 {
		return core.NoDetection()
	}

	w := openWindow(lines, anchor, windowLead)
	from, hasFrom := w.find(frFromRe)
	subject, hasSubject := w.find(frSubjectRe)
	if !hasFrom || !hasSubject {
		return core.NoDetection()
	}
	sent, hasSent := w.find(frSentRe)
	date, hasDate := w.find(frDateRe)
	to, hasTo := w.find(frToRe)

	var span headerSpan
	span.add(from, true)
	span.add(subject, true)
	span.add(sent, hasSent)
	span.add(date, hasDate)
	span.add(to, hasTo)

	email := &core.ForwardedEmail{
		From:    addressFromParts(splitNameAddress(from.value())),
		Subject: subject.value(),
		Body:    bodyAfter(lines, span.last, normalize.IsQuoted(lines[span.first])),
	}
	switch {
	case hasSent:
		email.Date = sent.value()
	case hasDate:
		email.Date = date.value()
	}
	if hasTo {
		if v := to.value(); v != "" {
			email.To = &core.Address{Address: v}
		}
	}

	return core.DetectionResult{
		Found:      true,
		Email:      email,
		Message:    precedingMessage(lines, span.first),
		Confidence: core.ConfidenceHigh,
	}
}
