package detect

import (
	"regexp"
	"strings"

	"github.com/mikey/forward-unwrap/internal/core"
	"github.com/mikey/forward-unwrap/internal/normalize"
)

var (
	plainFromRe    = headerPattern("From", "De", "Von", "Da", "Od", "Fra", "Kimden", "Van", "Från", "Lähettäjä", "Feladó", "От")
	plainDateRe    = headerPattern("Date", "Sent", "Envoyé", "Gesendet", "Inviato", "Enviado", "Data", "Sendt", "Lähetetty", "Skickat", "Datum", "Dátum", "Päivämäärä", "Tarih", "Дата")
	plainSubjectRe = headerPattern("Subject", "Objet", "Betreff", "Oggetto", "Assunto", "Asunto", "Emne", "Aihe", "Ämne", "Předmět", "Predmet", "Tárgy", "Temat", "Тема", "Konu", "Onderwerp")
	plainToRe      = headerPattern("To", "À", "A", "An", "Para", "Til", "Vastaanottaja", "Till", "Pro", "Za", "Címzett", "Do", "Кому", "Kime", "Aan")

	bracketedAddrRe = regexp.MustCompile(`[<\[](?:mailto:)?(.*?)[>\]]`)
	bracketsOnlyRe  = regexp.MustCompile(`[<\[].*?[>\]]`)
)

// PlainHeaderDetector reads the localized `From/Sent/To/Subject` block that
// Outlook, Gmail and most webmails emit below a forward separator.
type PlainHeaderDetector struct{}

// NewPlainHeaderDetector creates the localized plain-header detector
func NewPlainHeaderDetector() *PlainHeaderDetector {
	return &PlainHeaderDetector{}
}

// Name implements core.Detector
func (d *PlainHeaderDetector) Name() string { return "new_outlook" }

// Priority implements core.Detector
func (d *PlainHeaderDetector) Priority() int { return -40 }

// Detect implements core.Detector
func (d *PlainHeaderDetector) Detect(text string) core.DetectionResult {
	lines := splitLines(text)

	from, ok := findFirst(lines, plainFromRe, 0)
	if !ok {
		return core.NoDetection()
	}

	w := openWindow(lines, from.index, windowLead)
	subject, hasSubject := w.find(plainSubjectRe)
	if !hasSubject {
		return core.NoDetection()
	}
	date, hasDate := w.find(plainDateRe)
	to, hasTo := w.find(plainToRe)

	var span headerSpan
	span.add(from, true)
	span.add(subject, true)
	span.add(date, hasDate)
	span.add(to, hasTo)

	email := &core.ForwardedEmail{
		From:    plainAddress(from.value()),
		Subject: subject.value(),
		Body:    bodyAfter(lines, span.last, normalize.IsQuoted(from.line)),
	}
	if hasDate {
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
		Message:    precedingMessage(lines, from.index),
		Confidence: core.ConfidenceMedium,
	}
}

// plainAddress keeps a bracketed address when present, else an @-bearing value,
// and falls back to the display text alone.
func plainAddress(value string) core.Address {
	addr := ""
	if m := bracketedAddrRe.FindStringSubmatch(value); m != nil {
		addr = strings.TrimSpace(m[1])
	} else if strings.Contains(value, "@") {
		addr = value
	}
	name := strings.TrimSpace(bracketsOnlyRe.ReplaceAllString(value, ""))
	name = strings.TrimSpace(strings.NewReplacer(`"`, "", `'`, "").Replace(name))

	if addr == "" {
		return core.Address{Address: name}
	}
	if name == addr {
		name = ""
	}
	return core.Address{Name: name, Address: addr}
}
