package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/forward-unwrap/internal/core"
)

func TestAddress(t *testing.T) {
	tests := []struct {
		name string
		in   *core.Address
		want *core.Address
	}{
		{"nil stays nil", nil, nil},
		{"empty collapses", &core.Address{Name: "  ", Address: ""}, nil},
		{"name and angle address", &core.Address{Address: "Bob <bob@example.com>"}, &core.Address{Name: "Bob", Address: "bob@example.com"}},
		{"quoted name", &core.Address{Address: `"Alice M." <alice@example.com>`}, &core.Address{Name: "Alice M.", Address: "alice@example.com"}},
		{"mailto suffix", &core.Address{Address: `"Name" <addr@example.com<mailto:addr@example.com>>`}, &core.Address{Name: "Name", Address: "addr@example.com"}},
		{"duplicate square bracket", &core.Address{Address: "john@example.com [john@example.com]"}, &core.Address{Address: "john@example.com"}},
		{"bare angle address", &core.Address{Address: "<inter@x.com>"}, &core.Address{Address: "inter@x.com"}},
		{"email hidden in name", &core.Address{Name: "Contact contact@example.fr"}, &core.Address{Address: "contact@example.fr"}},
		{"markdown decoration", &core.Address{Name: "**Alice**", Address: "*alice@example.com*"}, &core.Address{Name: "Alice", Address: "alice@example.com"}},
		{"name only", &core.Address{Address: "Florian M."}, &core.Address{Address: "Florian M."}},
		{"name equal to address", &core.Address{Name: "bob@example.com", Address: "bob@example.com"}, &core.Address{Address: "bob@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Address(tt.in))
		})
	}
}

func TestAddressIsIdempotent(t *testing.T) {
	inputs := []core.Address{
		{Address: `"Name" <addr@example.com<mailto:addr@example.com>>`},
		{Name: "[*Bob*]", Address: "bob@example.com"},
		{Name: "> Alice", Address: "_alice@example.com_"},
		{Address: "jane@example.com [jane@example.com]"},
		{Name: "Someone someone@example.org"},
		{Address: "flo mez"},
	}

	for _, in := range inputs {
		in := in
		once := Address(&in)
		require.NotNil(t, once, "input %+v", in)
		twice := Address(once)
		assert.Equal(t, once, twice, "input %+v", in)
	}
}

func TestDateISO(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Wed, 29 Jan 2026 10:00:00 +0100", "2026-01-29T09:00:00.000Z"},
		{"2026-01-28T12:00:00.000Z", "2026-01-28T12:00:00.000Z"},
		{"lun. 10 févr. 2025 à 11:39", "2025-02-10T11:39:00.000Z"},
		{"mercredi 29 janvier 2026 10:00", "2026-01-29T10:00:00.000Z"},
		{"Mon, Jan 26, 2026 at 3:00 PM", "2026-01-26T15:00:00.000Z"},
		{"jeudi 14 août 2025 08:05", "2025-08-14T08:05:00.000Z"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := DateISO(tt.raw)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDateISORejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "   ", "soon-ish, maybe", "pas de date ici", "Jan 1", "Mon, Jan 1", "lun. 10 févr."} {
		_, ok := DateISO(raw)
		assert.False(t, ok, raw)
	}
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "line one\nline two", CleanText("  \r\nline one   \r\nline two\t\t\n\n"))
	assert.Equal(t, "", CleanText(""))
}

func TestNormalize(t *testing.T) {
	decomposed := "E\u0301nvoye\u0301\r\nnon\u00a0breaking"
	assert.Equal(t, "\u00c9nvoy\u00e9\nnon breaking", Normalize(decomposed))
}

func TestStripQuotes(t *testing.T) {
	in := "> first\n>second\n> > nested\nplain"
	assert.Equal(t, "first\nsecond\n> nested\nplain", StripQuotes(in))
	assert.True(t, IsQuoted("  > quoted"))
	assert.False(t, IsQuoted("not > quoted"))
}

func TestExtractBody(t *testing.T) {
	lines := []string{"From: a", "Subject: b", "", "body line", ""}
	assert.Equal(t, "body line", ExtractBody(lines, 1))
	assert.Equal(t, "", ExtractBody(lines, 4))
}

func TestHTMLToText(t *testing.T) {
	html := `<html><head><style>p{color:red}</style></head><body><p>Hello &amp; welcome</p><div>Line<br>break</div><script>alert(1)</script></body></html>`
	got := HTMLToText(html)
	assert.Contains(t, got, "Hello & welcome")
	assert.Contains(t, got, "Line\nbreak")
	assert.NotContains(t, got, "color:red")
	assert.NotContains(t, got, "alert")
}

func TestInlineAttachments(t *testing.T) {
	text := "See <report.pdf> and <photo.JPG>, again <report.pdf>, not <alice@example.com> nor <www.example.com>"
	atts := InlineAttachments(text)
	require.Len(t, atts, 2)
	assert.Equal(t, core.Attachment{Filename: "report.pdf", ContentType: "application/pdf"}, atts[0])
	assert.Equal(t, "image/jpeg", atts[1].ContentType)
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "example.com", Domain("Bob@Example.COM"))
	assert.Equal(t, "", Domain("nobody"))
}
