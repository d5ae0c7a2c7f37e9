package mime

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCharsetReader(t *testing.T) {
	tests := []struct {
		label string
		input string
		want  string
	}{
		{"utf-8", "café", "café"},
		{"", "plain", "plain"},
		{"ISO-8859-1", "caf\xe9", "café"},
		{"windows-1252", "\x93quoted\x94", "“quoted”"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			r, err := charsetReader(tt.label, strings.NewReader(tt.input))
			require.NoError(t, err)
			out, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestCharsetReaderUnknown(t *testing.T) {
	_, err := charsetReader("x-no-such-charset", strings.NewReader(""))
	assert.Error(t, err)
}

func TestDecodeLatin1Body(t *testing.T) {
	raw := crlf("From: a@example.com\nSubject: Menu\nContent-Type: text/plain; charset=iso-8859-1\n\nCaf\xe9 cr\xe8me\n")

	layer, err := NewDecoder(zap.NewNop()).Decode(context.Background(), raw, DefaultMaxDepth)
	require.NoError(t, err)
	assert.Equal(t, "Café crème", layer.RawBody)
}
