package mime

import (
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	"golang.org/x/text/encoding/ianaindex"
)

func init() {
	message.CharsetReader = charsetReader
}

// charsetReader tries the go-message table first, then the IANA registry
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "us-ascii", "utf-8", "utf8":
		return input, nil
	}

	if r, err := charset.Reader(label, input); err == nil {
		return r, nil
	}

	enc, _ := ianaindex.MIME.Encoding(label)
	if enc == nil {
		enc, _ = ianaindex.IANA.Encoding(label)
	}
	if enc == nil {
		return nil, fmt.Errorf("unhandled charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
