package detect

import (
	"regexp"
	"strings"

	"github.com/mikey/forward-unwrap/internal/core"
)

// emptyHeaderRe matches a whole French Outlook block in one pass. The Envoyé
// value may be empty and accented letters may still be quoted-printable encoded.
var emptyHeaderRe = regexp.MustCompile(`(?im)^(?:_{30,}[ \t]*\n)?[ \t]*De[ \t]*:[ \t]*([^\n]+)\nEnvoy(?:é|e|=E9)[ \t]*(?:=[ \t]*E9[ \t]*)?:[ \t]*([^\n]*)\n(?:À|A|=C0)[ \t]*:[ \t]*([^\n]+)\nObjet[ \t]*:[ \t]*([^\n]+)`)

// OutlookEmptyHeaderDetector reads French Outlook blocks whose date field is empty
type OutlookEmptyHeaderDetector struct{}

// NewOutlookEmptyHeaderDetector creates the empty-date French Outlook detector
func NewOutlookEmptyHeaderDetector() *OutlookEmptyHeaderDetector {
	return &OutlookEmptyHeaderDetector{}
}

// Name implements core.Detector
func (d *OutlookEmptyHeaderDetector) Name() string { return "outlook_empty_header" }

// Priority implements core.Detector
func (d *OutlookEmptyHeaderDetector) Priority() int { return -50 }

// Detect implements core.Detector
func (d *OutlookEmptyHeaderDetector) Detect(text string) core.DetectionResult {
	loc := emptyHeaderRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return core.NoDetection()
	}
	group := func(n int) string {
		if loc[2*n] < 0 {
			return ""
		}
		return strings.TrimSpace(text[loc[2*n]:loc[2*n+1]])
	}

	lines := splitLines(text)
	first := strings.Count(text[:loc[0]], "\n")
	last := strings.Count(text[:loc[1]], "\n")

	email := &core.ForwardedEmail{
		From:    addressFromParts(splitNameAddress(group(1))),
		Date:    group(2),
		Subject: group(4),
		Body:    bodyAfter(lines, last, false),
	}
	if to := group(3); to != "" {
		email.To = &core.Address{Address: to}
	}

	return core.DetectionResult{
		Found:      true,
		Email:      email,
		Message:    precedingMessage(lines, first),
		Confidence: core.ConfidenceHigh,
	}
}
