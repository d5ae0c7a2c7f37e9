package detect

import (
	"regexp"
	"strings"

	"github.com/mikey/forward-unwrap/internal/core"
	"github.com/mikey/forward-unwrap/internal/normalize"
)

const (
	// windowSize bounds how many lines a header block may span
	windowSize = 15
	// windowLead is how many lines before the anchor the window opens
	windowLead = 2
	// messageLookback bounds the backward walk for the preceding message
	messageLookback = 5
)

var (
	separatorLineRe = regexp.MustCompile(`^-{2,}.*-{2,}$|^_{3,}$`)
	nameAddressRe   = regexp.MustCompile(`^(.+?)(?:\s*[<\[](.+?)[>\]])?\s*$`)
	colonValueRe    = regexp.MustCompile(`^[^:]*:[*_]*\s*(.*)$`)
)

// headerPattern builds a line-start matcher for any of the given labels.
// Labels may be decorated with markdown bold or underline markers and the
// line may carry > quote markers.
func headerPattern(labels ...string) *regexp.Regexp {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = regexp.QuoteMeta(l)
	}
	return regexp.MustCompile(`(?i)^[ \t]*(?:>[ \t]*)*[*_]*(?:` + strings.Join(quoted, "|") + `)[*_]*[ \t]*:`)
}

// headerLine is a header found at a given line index
type headerLine struct {
	index int
	line  string
}

func (h headerLine) value() string {
	if m := colonValueRe.FindStringSubmatch(h.line); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// window is a bounded run of lines around an anchor header
type window struct {
	lines []string
	start int
	end   int
}

// openWindow starts windowLead lines before anchor and stops after windowSize
// lines or at the first blank line after the anchor.
func openWindow(lines []string, anchor, lead int) window {
	start := anchor - lead
	if start < 0 {
		start = 0
	}
	end := start + windowSize
	if end > len(lines) {
		end = len(lines)
	}
	for i := anchor + 1; i < end; i++ {
		if isBlank(lines[i]) {
			end = i
			break
		}
	}
	return window{lines: lines, start: start, end: end}
}

// find returns the first line in the window matching re
func (w window) find(re *regexp.Regexp) (headerLine, bool) {
	for i := w.start; i < w.end; i++ {
		if re.MatchString(w.lines[i]) {
			return headerLine{index: i, line: w.lines[i]}, true
		}
	}
	return headerLine{}, false
}

// findFirst returns the first line in lines[from:] matching re
func findFirst(lines []string, re *regexp.Regexp, from int) (headerLine, bool) {
	for i := from; i < len(lines); i++ {
		if re.MatchString(lines[i]) {
			return headerLine{index: i, line: lines[i]}, true
		}
	}
	return headerLine{}, false
}

// headerSpan tracks the first and last line of the headers found
type headerSpan struct {
	first, last int
	set         bool
}

func (s *headerSpan) add(h headerLine, ok bool) {
	if !ok {
		return
	}
	if !s.set {
		s.first, s.last, s.set = h.index, h.index, true
		return
	}
	if h.index < s.first {
		s.first = h.index
	}
	if h.index > s.last {
		s.last = h.index
	}
}

// bodyAfter returns the content after the header block, unquoted when the block was quoted
func bodyAfter(lines []string, last int, quoted bool) string {
	body := normalize.ExtractBody(lines, last)
	if quoted {
		body = strings.TrimSpace(normalize.StripQuotes(body))
	}
	return body
}

// precedingMessage walks back from the first header line over blank lines and
// a separator rule and returns whatever content sits above it.
func precedingMessage(lines []string, first int) string {
	end := first
	for k := 1; k <= messageLookback && first-k >= 0; k++ {
		line := strings.TrimSpace(lines[first-k])
		if separatorLineRe.MatchString(line) {
			end = first - k
			break
		}
		if line == "" {
			continue
		}
		break
	}
	if end <= 0 {
		return ""
	}
	return strings.TrimSpace(strings.Join(lines[:end], "\n"))
}

// splitNameAddress reads `Name <addr>` or `Name [addr]` from a header value
func splitNameAddress(value string) (name, email string) {
	m := nameAddressRe.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return "", ""
	}
	name = strings.TrimSpace(strings.Trim(strings.TrimSpace(m[1]), `"'`))
	email = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(m[2]), "mailto:"))
	return name, email
}

// addressFromParts builds the from of a header-based match. Without an @ the
// name doubles as the address so the registry still treats the match as usable.
func addressFromParts(name, email string) core.Address {
	if strings.Contains(email, "@") {
		if name == email {
			name = ""
		}
		return core.Address{Name: name, Address: email}
	}
	if email == "" && strings.Contains(name, "@") {
		return core.Address{Address: name}
	}
	return core.Address{Name: name, Address: name}
}

func splitLines(text string) []string {
	return strings.Split(text, "\n")
}

func isBlank(line string) bool {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), ">")) == ""
}
