package detect

import (
	"regexp"
	"strings"

	"github.com/mikey/forward-unwrap/internal/core"
	"github.com/mikey/forward-unwrap/internal/normalize"
)

const attributionMaxLines = 3

var (
	attributionStartRe = regexp.MustCompile(`(?i)^[ \t]*(?:On|Le|Am|El|Il|Op|Em|Den|W dniu|Dne)\s`)
	attributionRe      = regexp.MustCompile(`(?i)^[ \t]*(?:On|Le|Am|El|Il|Op|Em|Den|W dniu|Dne)\s+(.+?)\s*:[ \t]*$`)
	attributionVerbRe  = regexp.MustCompile(`(?i)\s(?:wrote|a écrit|schrieb|escribió|ha scritto|schreef|escreveu|skrev|napisał|napsal)(?:\s|$)`)
	attributionTimeRe  = regexp.MustCompile(`\d{1,2}:\d{2}(?::\d{2})?(?:\s*[AaPp]\.?[Mm]\.?)?\b`)
	attributionAddrRe  = regexp.MustCompile(`[<\[](?:mailto:)?([^<>\[\]\s]+@[^<>\[\]\s]+)[>\]]|([^\s<>\[\]"',;()]+@[^\s<>\[\]"',;()]+\.[^\s<>\[\]"',;()]+)`)
)

// ReplyDetector reads quoted replies introduced by an "On <date>, <sender> wrote:" line
type ReplyDetector struct{}

// NewReplyDetector creates the reply-style detector
func NewReplyDetector() *ReplyDetector {
	return &ReplyDetector{}
}

// Name implements core.Detector
func (d *ReplyDetector) Name() string { return "reply" }

// Priority implements core.Detector
func (d *ReplyDetector) Priority() int { return -10 }

// Detect implements core.Detector
func (d *ReplyDetector) Detect(text string) core.DetectionResult {
	lines := splitLines(text)

	for i := range lines {
		if !attributionStartRe.MatchString(lines[i]) {
			continue
		}
		inner, last, ok := readAttribution(lines, i)
		if !ok {
			continue
		}
		from, date, ok := splitAttribution(inner)
		if !ok {
			continue
		}
		body, ok := quotedBlock(lines, last+1)
		if !ok {
			continue
		}
		return core.DetectionResult{
			Found: true,
			Email: &core.ForwardedEmail{
				From: from,
				Date: date,
				Body: body,
			},
			Message:    precedingMessage(lines, i),
			Confidence: core.ConfidenceMedium,
		}
	}
	return core.NoDetection()
}

// readAttribution joins up to attributionMaxLines lines since clients wrap long
// attribution lines.
func readAttribution(lines []string, start int) (string, int, bool) {
	joined := ""
	for j := start; j < len(lines) && j < start+attributionMaxLines; j++ {
		if j > start && isBlank(lines[j]) {
			break
		}
		joined = strings.TrimSpace(joined + " " + strings.TrimSpace(lines[j]))
		m := attributionRe.FindStringSubmatch(joined)
		if m != nil && attributionVerbRe.MatchString(m[1]+" ") {
			return attributionVerbRe.ReplaceAllString(m[1]+" ", ", "), j, true
		}
	}
	return "", 0, false
}

// splitAttribution separates "<date>, <name> <addr>" into a sender and a date
func splitAttribution(inner string) (core.Address, string, bool) {
	loc := attributionAddrRe.FindStringSubmatchIndex(inner)
	if loc == nil {
		return core.Address{}, "", false
	}
	addr := ""
	if loc[2] >= 0 {
		addr = inner[loc[2]:loc[3]]
	} else {
		addr = inner[loc[4]:loc[5]]
	}

	before := strings.TrimSpace(inner[:loc[0]])
	date, name := splitDateName(before)
	if !strings.ContainsAny(date, "0123456789") {
		date, name = "", before
	}
	name = strings.Trim(name, `"' `)
	date = strings.TrimSuffix(strings.TrimSpace(date), ",")
	return core.Address{Name: name, Address: addr}, date, true
}

// splitDateName cuts after the last time of day ("... at 10:00 AM John Doe" has
// no comma before the name), falling back to the last comma.
func splitDateName(before string) (string, string) {
	if times := attributionTimeRe.FindAllStringIndex(before, -1); len(times) > 0 {
		end := times[len(times)-1][1]
		return strings.TrimSpace(before[:end]), strings.TrimLeft(before[end:], ",. \t")
	}
	if i := strings.LastIndex(before, ","); i >= 0 {
		return strings.TrimSpace(before[:i]), strings.TrimSpace(before[i+1:])
	}
	return before, ""
}

// quotedBlock collects the quoted lines starting at from, with one level removed
func quotedBlock(lines []string, from int) (string, bool) {
	var block []string
	quoted := false
	for i := from; i < len(lines); i++ {
		line := lines[i]
		if normalize.IsQuoted(line) {
			quoted = true
			block = append(block, line)
			continue
		}
		if strings.TrimSpace(line) == "" {
			block = append(block, line)
			continue
		}
		break
	}
	if !quoted {
		return "", false
	}
	return strings.TrimSpace(normalize.StripQuotes(strings.Join(block, "\n"))), true
}
