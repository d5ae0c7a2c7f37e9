package normalize

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

var (
	trailingBlankRe = regexp.MustCompile(`(?m)[ \t]+$`)
	quotePrefixRe   = regexp.MustCompile(`^[ \t]*>[ \t]?`)
	blankRunRe      = regexp.MustCompile(`\n{3,}`)
)

// Newlines converts CRLF and lone CR line endings to LF
func Newlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// Normalize prepares text for detection: LF line endings, plain spaces, NFC
func Normalize(text string) string {
	text = Newlines(text)
	text = strings.ReplaceAll(text, "\u00a0", " ")
	return norm.NFC.String(text)
}

// CleanText trims trailing blanks on every line and the text as a whole
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = Newlines(text)
	text = trailingBlankRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// IsQuoted reports whether a line starts with a > quote marker
func IsQuoted(line string) bool {
	return quotePrefixRe.MatchString(line)
}

// StripQuotes removes one level of > quoting from every line
func StripQuotes(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = quotePrefixRe.ReplaceAllString(line, "")
	}
	return strings.Join(lines, "\n")
}

// ExtractBody returns the lines after lastHeader joined and trimmed
func ExtractBody(lines []string, lastHeader int) string {
	if lastHeader+1 >= len(lines) {
		return ""
	}
	return strings.TrimSpace(strings.Join(lines[lastHeader+1:], "\n"))
}

// HTMLToText renders an HTML part as plain text
func HTMLToText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return CleanText(html)
	}

	doc.Find("head, script, style, noscript").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, blockquote, h1, h2, h3, h4, h5, h6").AppendHtml("\n\n")
	doc.Find("div, tr, li, table").AppendHtml("\n")

	text := doc.Text()
	text = trailingBlankRe.ReplaceAllString(Newlines(text), "")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return CleanText(text)
}
