// Package scoring audits a detected forward depth against evidence left in the raw body.
package scoring

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mikey/forward-unwrap/internal/core"
)

const contextWindow = 150

var fromKeywords = []string{
	"From", "Od", "Fra", "Von", "De", "Lähettäjä", "Šalje", "Feladó", "Da", "Van", "Expeditorul",
	"Отправитель", "Från", "Kimden", "Від кого", "Saatja", "De la", "Gönderen", "От", "Від",
	"Mittente", "Nadawca", "送信元",
}

var otherKeywords = []string{
	"To", "Komu", "Til", "An", "Para", "Vastaanottaja", "À", "Prima", "Címzett", "A", "Aan", "Do",
	"Destinatarul", "Кому", "Pre", "Till", "Kime", "Pour", "Adresat", "送信先",
	"Cc", "CC", "Kopie", "Kopio", "Másolat", "Kopi", "Dw", "Копия", "Kopia", "Bilgi", "Копія",
	"Másolatot kap", "Kópia", "Copie à",
	"Reply-To", "Odgovori na", "Odpověď na", "Svar til", "Antwoord aan", "Vastaus", "Répondre à",
	"Antwort an", "Válaszcím", "Rispondi a", "Odpowiedź-do", "Responder A", "Responder a",
	"Răspuns către", "Ответ-Кому", "Odpovedať-Pre", "Svara till", "Yanıt Adresi", "Кому відповісти",
}

var trailingKeywords = []string{
	"wrote", "escribió", "a écrit", "kirjoitti", "ezt írta", "ha scritto", "geschreven", "skrev",
	"napisał", "escreveu", "написал", "napísal", "följande", "tarihinde şunu yazdı", "napsal",
}

var (
	headerRe     = buildKeywordRegex(append(append([]string{}, fromKeywords...), otherKeywords...), false)
	fromRe       = buildKeywordRegex(fromKeywords, true)
	trailingRe   = regexp.MustCompile(`(?i)^\s*[\*\_\>]*\s*(?:` + alternation(trailingKeywords) + `)\s*:?`)
	bracketMail  = regexp.MustCompile(`<[\s]*([^\s<>@]+@[^\s<>@]+)[\s]*>`)
	quoteRunRe   = regexp.MustCompile(`^(?:\s*>)+`)
	blockSplitRe = regexp.MustCompile(`\n\s*\n`)
)

// alternation quotes keywords, drops duplicates and puts longer ones first
func alternation(keywords []string) string {
	seen := make(map[string]bool, len(keywords))
	unique := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if !seen[k] {
			seen[k] = true
			unique = append(unique, k)
		}
	}
	sort.SliceStable(unique, func(i, j int) bool {
		return utf8.RuneCountInString(unique[i]) > utf8.RuneCountInString(unique[j])
	})
	quoted := make([]string, len(unique))
	for i, k := range unique {
		quoted[i] = regexp.QuoteMeta(k)
	}
	return strings.Join(quoted, "|")
}

// buildKeywordRegex matches a header label ending the text. The strict form
// requires the label's value to run to the end, optionally wrapping once.
func buildKeywordRegex(keywords []string, strict bool) *regexp.Regexp {
	const prefix = `[\*\_\>]*\s*`
	const suffix = `\s*[\*\_]*\s*`
	label := `(?:` + prefix + `(?:` + alternation(keywords) + `)` + suffix + `)`
	if strict {
		return regexp.MustCompile(`(?i)` + label + `\s*:\s*(?:[^:\n]*\n\s*)?[^:\n]*$`)
	}
	return regexp.MustCompile(`(?i)` + label + `\s*:`)
}

// Calculate scores how plausible depth is for body
func Calculate(body string, depth int) core.ConfidenceResult {
	if depth <= 0 {
		return core.ConfidenceResult{
			Score:       100,
			Description: "N/A (No depth detected)",
			Signals:     map[string]int{},
			Reasons:     []string{"No depth detected"},
		}
	}

	body = strings.ReplaceAll(body, "\r\n", "\n")
	quoteDepth := maxQuoteDepth(body)

	matches := bracketMail.FindAllStringIndex(body, -1)
	emailCount := len(matches)
	ratio := float64(emailCount) / float64(depth)

	explained, senders := 0, 0
	for _, m := range matches {
		before := lastRunes(body[:m[0]], contextWindow)
		after := firstRunes(body[m[1]:], contextWindow)

		blocks := blockSplitRe.Split(before, -1)
		if headerRe.MatchString(blocks[len(blocks)-1]) {
			explained++
		}
		if fromRe.MatchString(before) || trailingRe.MatchString(after) {
			senders++
		}
	}

	res := core.ConfidenceResult{
		Ratio:       ratio,
		EmailCount:  emailCount,
		SenderCount: senders,
		QuoteDepth:  quoteDepth,
		Signals:     map[string]int{},
	}
	score := 100

	switch {
	case emailCount == 0:
		score -= 100
		res.Signals["penalty_ghost"] = -100
		res.Reasons = append(res.Reasons, "Ghost Forward: 0 emails found in the body")
	case ratio < 0.5:
		score -= 100
		res.Signals["penalty_inconsistent"] = -100
		res.Reasons = append(res.Reasons, fmt.Sprintf("Inconsistent Density: Ratio %.2f is too low for %d levels", ratio, depth))
	case ratio <= 1.5:
		score -= 50
		res.Signals["adjustment_partial"] = -50
		res.Reasons = append(res.Reasons, fmt.Sprintf("Partial Chain: Ratio %.2f suggests ~1 email per detected level", ratio))
	case ratio > 2.4:
		score -= 75
		res.Signals["adjustment_high_density"] = -75
		res.Reasons = append(res.Reasons, fmt.Sprintf("High Density: Ratio %.2f is above the expected ~2 emails per level", ratio))

		share := float64(explained) / float64(emailCount)
		pct := int(math.Round(share * 100))
		if share >= 0.6 {
			score += 75
			res.Signals["bonus_validated_density"] = 75
			res.Reasons = append(res.Reasons, fmt.Sprintf("Validated Density: %d%% of emails are preceded by headers", pct))
		} else {
			res.Reasons = append(res.Reasons, fmt.Sprintf("Unvalidated Density: Suspect, only %d%% of emails are preceded by headers", pct))
		}
	default:
		res.Reasons = append(res.Reasons, fmt.Sprintf("Standard Density: Ratio %.2f is optimal (~2 emails per level)", ratio))
	}

	if senders > depth {
		score -= 75
		res.Signals["penalty_sender_mismatch"] = -75
		res.Reasons = append(res.Reasons, fmt.Sprintf("Sender Mismatch: Found %d senders but only %d forward levels", senders, depth))
	}
	if quoteDepth > depth {
		score -= 75
		res.Signals["penalty_quote_mismatch"] = -75
		res.Reasons = append(res.Reasons, fmt.Sprintf("Quote Mismatch: Quote depth %d exceeds %d forward levels", quoteDepth, depth))
	}

	res.Score = clamp(score)
	res.Description = band(res.Score) + strings.Join(res.Reasons, "; ")
	return res
}

func maxQuoteDepth(body string) int {
	deepest := 0
	for _, line := range strings.Split(body, "\n") {
		if run := quoteRunRe.FindString(line); run != "" {
			if n := strings.Count(run, ">"); n > deepest {
				deepest = n
			}
		}
	}
	return deepest
}

func band(score int) string {
	switch {
	case score == 100:
		return "High Confidence: "
	case score >= 50:
		return "Medium Confidence: "
	default:
		return "Low Confidence: "
	}
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// lastRunes returns the trailing n characters of s
func lastRunes(s string, n int) string {
	i := len(s)
	for ; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return s[i:]
}

// firstRunes returns the leading n characters of s
func firstRunes(s string, n int) string {
	i := 0
	for ; n > 0 && i < len(s); n-- {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s[:i]
}
