// Package forwardparser reads forwarded messages introduced by a client separator
// line such as "---------- Forwarded message ---------" followed by a header block.
package forwardparser

import (
	"regexp"
	"strings"

	"github.com/emersion/go-message/mail"
)

// Mailbox is a parsed header address
type Mailbox struct {
	Name    string
	Address string
}

// Email is the forwarded message found after a separator
type Email struct {
	From    Mailbox
	To      []Mailbox
	Cc      []Mailbox
	Subject string
	Date    string
	Body    string
}

// Result is the outcome of Read
type Result struct {
	Forwarded bool
	Message   string
	Email     Email
}

const quotePrefix = `^[ \t]*(?:>[ \t]*)*`

var separatorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)` + quotePrefix + `-{2,}[ \t]*(?:Forwarded message|Original Message|Message transféré|Message d'origine|Message original|Weitergeleitete Nachricht|Ursprüngliche Nachricht|Mensaje reenviado|Mensaje original|Messaggio inoltrato|Messaggio originale|Doorgestuurd bericht|Oorspronkelijk bericht|Mensagem encaminhada|Mensagem original|Videresendt meddelelse|Oprindelig meddelelse|Videresendt melding|Opprinnelig melding|Vidarebefordrat meddelande|Ursprungligt meddelande|Välitetty viesti|Alkuperäinen viesti|Przekazana wiadomość|Oryginalna wiadomość|Přeposlaná zpráva|Původní zpráva|Továbbított levél|Eredeti üzenet|Пересылаемое сообщение|Исходное сообщение|İletilen ileti|Orijinal ileti)[ \t]*-*[ \t]*$`),
	regexp.MustCompile(`(?i)` + quotePrefix + `(?:Begin forwarded message|Début du message réexpédié|Anfang der weitergeleiteten Nachricht|Inicio del mensaje reenviado|Inizio messaggio inoltrato|Início da mensagem reencaminhada|Begin doorgestuurd bericht)[ \t]*:[ \t]*$`),
	regexp.MustCompile(quotePrefix + `_{20,}[ \t]*$`),
}

type field int

const (
	fieldNone field = iota
	fieldFrom
	fieldTo
	fieldCc
	fieldSubject
	fieldDate
)

var headerLabels = map[field][]string{
	fieldFrom:    {"From", "De", "Von", "Da", "Van", "Från", "Fra", "Od", "Kimden", "Lähettäjä", "Feladó", "От", "Від"},
	fieldTo:      {"To", "À", "A", "An", "Para", "Aan", "Til", "Till", "Do", "Komu", "Címzett", "Кому", "Vastaanottaja", "Kime", "Per"},
	fieldCc:      {"Cc", "CC", "Kopie", "Copie à", "Copia", "Kopio", "Kopi", "Másolat", "Копия", "Bilgi", "Dw"},
	fieldSubject: {"Subject", "Objet", "Betreff", "Oggetto", "Asunto", "Assunto", "Onderwerp", "Emne", "Ämne", "Aihe", "Temat", "Předmět", "Predmet", "Tárgy", "Тема", "Konu"},
	fieldDate:    {"Date", "Sent", "Envoyé", "Gesendet", "Datum", "Fecha", "Enviado", "Data", "Inviato", "Verzonden", "Sendt", "Skickat", "Lähetetty", "Dátum", "Tarih", "Дата", "Отправлено"},
}

var headerPatterns = buildHeaderPatterns()

func buildHeaderPatterns() map[field]*regexp.Regexp {
	out := make(map[field]*regexp.Regexp, len(headerLabels))
	for f, labels := range headerLabels {
		quoted := make([]string, len(labels))
		for i, l := range labels {
			quoted[i] = regexp.QuoteMeta(l)
		}
		out[f] = regexp.MustCompile(`(?i)` + quotePrefix + `[*_]*(?:` + strings.Join(quoted, "|") + `)[*_]*[ \t]*:[ \t]*(.*)$`)
	}
	return out
}

var (
	angleAddrRe = regexp.MustCompile(`^(.*?)\s*[<\[](?:mailto:)?([^<>\[\]\s]+@[^<>\[\]\s]+)[>\]]\s*$`)
	bareAddrRe  = regexp.MustCompile(`[^\s<>\[\]"']+@[^\s<>\[\]"']+`)
)

// Read looks for the first forwarded message in text
func Read(text string) Result {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	sep, quoted := findSeparator(lines)
	if sep < 0 {
		return Result{}
	}

	i := sep + 1
	for i < len(lines) && isBlank(lines[i]) {
		i++
	}

	var email Email
	var last field
	lastHeader := -1
	for ; i < len(lines); i++ {
		line := lines[i]
		if isBlank(line) {
			break
		}
		f, value := matchHeader(line)
		if f == fieldNone {
			if last != fieldNone && isContinuation(line) {
				appendValue(&email, last, strings.TrimSpace(stripQuote(line)))
				lastHeader = i
				continue
			}
			break
		}
		setValue(&email, f, value)
		last = f
		lastHeader = i
	}

	if lastHeader < 0 || (email.From.Address == "" && email.From.Name == "") {
		return Result{}
	}

	body := ""
	if lastHeader+1 < len(lines) {
		body = strings.Join(lines[lastHeader+1:], "\n")
	}
	if quoted {
		body = unquote(body)
	}

	email.Body = strings.TrimSpace(body)
	return Result{
		Forwarded: true,
		Message:   strings.TrimSpace(strings.Join(lines[:sep], "\n")),
		Email:     email,
	}
}

// ParseMailbox splits a header value into name and address
func ParseMailbox(value string) Mailbox {
	value = strings.TrimSpace(value)
	if value == "" {
		return Mailbox{}
	}
	if addr, err := mail.ParseAddress(value); err == nil {
		return Mailbox{Name: addr.Name, Address: addr.Address}
	}
	if m := angleAddrRe.FindStringSubmatch(value); m != nil {
		name := strings.Trim(strings.TrimSpace(m[1]), `"'`)
		if strings.EqualFold(name, m[2]) {
			name = ""
		}
		return Mailbox{Name: name, Address: m[2]}
	}
	if m := bareAddrRe.FindString(value); m != "" {
		name := strings.TrimSpace(strings.Replace(value, m, "", 1))
		return Mailbox{Name: strings.Trim(name, `"' <>[]`), Address: m}
	}
	return Mailbox{Name: strings.Trim(value, `"'`)}
}

// ParseMailboxList splits a header value on commas and semicolons outside quotes and brackets
func ParseMailboxList(value string) []Mailbox {
	var out []Mailbox
	for _, part := range splitList(value) {
		if mb := ParseMailbox(part); mb.Address != "" || mb.Name != "" {
			out = append(out, mb)
		}
	}
	return out
}

func findSeparator(lines []string) (int, bool) {
	for i, line := range lines {
		for _, re := range separatorPatterns {
			if re.MatchString(line) {
				return i, strings.HasPrefix(strings.TrimLeft(line, " \t"), ">")
			}
		}
	}
	return -1, false
}

func matchHeader(line string) (field, string) {
	for _, f := range []field{fieldFrom, fieldTo, fieldCc, fieldSubject, fieldDate} {
		if m := headerPatterns[f].FindStringSubmatch(line); m != nil {
			return f, strings.TrimSpace(m[1])
		}
	}
	return fieldNone, ""
}

func setValue(e *Email, f field, value string) {
	switch f {
	case fieldFrom:
		if e.From.Address == "" && e.From.Name == "" {
			e.From = ParseMailbox(value)
		}
	case fieldTo:
		e.To = append(e.To, ParseMailboxList(value)...)
	case fieldCc:
		e.Cc = append(e.Cc, ParseMailboxList(value)...)
	case fieldSubject:
		if e.Subject == "" {
			e.Subject = value
		}
	case fieldDate:
		if e.Date == "" {
			e.Date = value
		}
	}
}

func appendValue(e *Email, f field, value string) {
	switch f {
	case fieldTo:
		e.To = append(e.To, ParseMailboxList(value)...)
	case fieldCc:
		e.Cc = append(e.Cc, ParseMailboxList(value)...)
	case fieldSubject:
		e.Subject = strings.TrimSpace(e.Subject + " " + value)
	case fieldDate:
		e.Date = strings.TrimSpace(e.Date + " " + value)
	}
}

func splitList(value string) []string {
	var parts []string
	var cur strings.Builder
	depth := 0
	inQuote := false
	for _, r := range value {
		switch {
		case r == '"':
			inQuote = !inQuote
		case !inQuote && (r == '<' || r == '['):
			depth++
		case !inQuote && (r == '>' || r == ']') && depth > 0:
			depth--
		case !inQuote && depth == 0 && (r == ',' || r == ';'):
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	parts = append(parts, cur.String())
	return parts
}

var quoteStripRe = regexp.MustCompile(`^[ \t]*>[ \t]?`)

func stripQuote(line string) string {
	return quoteStripRe.ReplaceAllString(line, "")
}

func isContinuation(line string) bool {
	rest := stripQuote(line)
	return rest != "" && (rest[0] == ' ' || rest[0] == '\t') && strings.TrimSpace(rest) != ""
}

func unquote(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = stripQuote(l)
	}
	return strings.Join(lines, "\n")
}

func isBlank(line string) bool {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), ">")) == ""
}
