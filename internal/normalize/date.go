package normalize

import (
	"net/mail"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ISOLayout matches the millisecond UTC form used in results
const ISOLayout = "2006-01-02T15:04:05.000Z"

var directLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC850,
	time.RFC3339Nano,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	time.ANSIC,
	time.UnixDate,
}

var strippedLayouts = []string{
	"2 Jan 2006 15:04",
	"2 Jan 2006 15:04:05",
	"2 Jan 2006 3:04 PM",
	"2 Jan 2006 3:04:05 PM",
	"Jan 2 2006 15:04",
	"Jan 2 2006 15:04:05",
	"Jan 2 2006 3:04 PM",
	"Jan 2 2006 3:04:05 PM",
	"2 Jan 2006",
	"Jan 2 2006",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

var weekdayTokens = map[string]bool{
	"lun": true, "mar": true, "mer": true, "jeu": true, "ven": true, "sam": true, "dim": true,
	"lundi": true, "mardi": true, "mercredi": true, "jeudi": true, "vendredi": true, "samedi": true, "dimanche": true,
	"mon": true, "tue": true, "wed": true, "thu": true, "fri": true, "sat": true, "sun": true,
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true, "friday": true, "saturday": true, "sunday": true,
}

var fillerTokens = map[string]bool{"à": true, "at": true, "le": true, "on": true}

var frenchMonths = map[string]string{
	"janv": "Jan", "janvier": "Jan",
	"févr": "Feb", "fevr": "Feb", "février": "Feb", "fevrier": "Feb",
	"mars": "Mar",
	"avr": "Apr", "avril": "Apr",
	"mai":  "May",
	"juin": "Jun",
	"juil": "Jul", "juillet": "Jul",
	"août": "Aug", "aout": "Aug",
	"sept": "Sep", "septembre": "Sep",
	"oct": "Oct", "octobre": "Oct",
	"nov": "Nov", "novembre": "Nov",
	"déc": "Dec", "dec": "Dec", "décembre": "Dec", "decembre": "Dec",
}

// minYear rejects parses that lost the year, such as "Jan 1" landing on year 0
const minYear = 1970

// fallbackParser is the free-form parser tried after the fixed layouts
var fallbackParser = func(s string) (time.Time, error) {
	return dateparse.ParseIn(s, time.UTC)
}

// Date parses a header date string with a staged fallback chain
func Date(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(Normalize(raw))
	if raw == "" {
		return time.Time{}, false
	}
	if t, ok := parseDirect(raw); ok {
		return t, true
	}
	if t, ok := parseFallback(raw); ok {
		return t, true
	}

	stripped := stripDateTokens(raw)
	if stripped == "" || stripped == raw {
		return time.Time{}, false
	}
	if t, ok := parseLayouts(stripped, strippedLayouts); ok {
		return t, true
	}
	if t, ok := parseDirect(stripped); ok {
		return t, true
	}
	return parseFallback(stripped)
}

// DateISO returns the ISO form of raw, or false when no stage could parse it
func DateISO(raw string) (string, bool) {
	t, ok := Date(raw)
	if !ok {
		return "", false
	}
	return t.UTC().Format(ISOLayout), true
}

func parseDirect(s string) (time.Time, bool) {
	if t, err := mail.ParseDate(s); err == nil && plausible(t) {
		return t, true
	}
	return parseLayouts(s, directLayouts)
}

func parseLayouts(s string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil && plausible(t) {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseFallback(s string) (t time.Time, ok bool) {
	defer func() {
		if recover() != nil {
			t, ok = time.Time{}, false
		}
	}()
	parsed, err := fallbackParser(s)
	if err != nil || !plausible(parsed) {
		return time.Time{}, false
	}
	return parsed, true
}

func plausible(t time.Time) bool {
	return t.Year() >= minYear
}

func stripDateTokens(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		key := strings.ToLower(strings.TrimSuffix(f, "."))
		if weekdayTokens[key] || fillerTokens[key] {
			continue
		}
		if month, ok := frenchMonths[key]; ok {
			kept = append(kept, month)
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}
