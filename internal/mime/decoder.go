// Package mime flattens a raw RFC 5322 message, descending into attached
// message/rfc822 parts, before inline unwrapping starts.
package mime

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/core"
	"github.com/mikey/forward-unwrap/internal/normalize"
)

// DefaultMaxDepth bounds how many attached messages are descended into
const DefaultMaxDepth = 5

const maxPartBytes = 25 << 20

// Metadata is the header summary of the deepest parsed message
type Metadata struct {
	From    *core.Address
	To      *core.Address
	Subject string
	Date    string
}

// Layer is what the MIME stage hands to the inline engine
type Layer struct {
	RawBody         string
	Depth           int
	LastAttachments []core.Attachment
	IsRFC822        bool
	History         []core.HistoryEntry
	Metadata        *Metadata
}

// Decoder parses MIME structure with go-message
type Decoder struct {
	logger *zap.Logger
}

// NewDecoder creates a new MIME decoder
func NewDecoder(logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{logger: logger}
}

// parsedMessage is one decoded level
type parsedMessage struct {
	header      mail.Header
	text        string
	attachments []core.Attachment
	nested      [][]byte
}

// Decode walks nested message/rfc822 attachments up to maxDepth levels.
// Input that does not parse as a message is returned as plain text.
func (d *Decoder) Decode(ctx context.Context, raw []byte, maxDepth int) (*Layer, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	layer := &Layer{}
	current := raw
	for layer.Depth < maxDepth {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msg, ok := d.parse(current)
		if !ok {
			break
		}
		entry := historyEntry(msg, layer.Depth)
		layer.History = append(layer.History, entry)

		if len(msg.nested) > 0 {
			current = msg.nested[len(msg.nested)-1]
			layer.Depth++
			layer.IsRFC822 = true
			layer.LastAttachments = nil
			d.logger.Debug("Descending into attached message", zap.Int("depth", layer.Depth))
			continue
		}

		layer.RawBody = msg.text
		if layer.RawBody == "" {
			layer.RawBody = string(current)
		}
		layer.LastAttachments = msg.attachments
		layer.Metadata = &Metadata{
			From:    entry.From,
			To:      entry.To,
			Subject: entry.Subject,
			Date:    entry.DateRaw,
		}
		return layer, nil
	}

	layer.RawBody = string(current)
	return layer, nil
}

func (d *Decoder) parse(raw []byte) (*parsedMessage, bool) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		d.logger.Debug("Input is not a MIME message", zap.Error(err))
		return nil, false
	}
	if mr == nil || !looksLikeMessage(mr.Header) {
		return nil, false
	}
	defer mr.Close()

	msg := &parsedMessage{header: mr.Header}
	var plain, html string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			d.logger.Debug("Failed to read MIME part", zap.Error(err))
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			mediaType, _, _ := h.ContentType()
			body, readErr := readPart(part.Body)
			if readErr != nil {
				continue
			}
			switch {
			case isRFC822(mediaType):
				msg.nested = append(msg.nested, body)
			case strings.HasPrefix(mediaType, "text/html"):
				if html == "" {
					html = string(body)
				}
			case mediaType == "" || strings.HasPrefix(mediaType, "text/plain"):
				if plain == "" {
					plain = string(body)
				}
			}
		case *mail.AttachmentHeader:
			mediaType, _, _ := h.ContentType()
			body, readErr := readPart(part.Body)
			if readErr != nil {
				continue
			}
			if isRFC822(mediaType) {
				msg.nested = append(msg.nested, body)
				continue
			}
			filename, _ := h.Filename()
			if filename == "" {
				filename = "attachment"
			}
			if mediaType == "" {
				mediaType = "application/octet-stream"
			}
			msg.attachments = append(msg.attachments, core.Attachment{
				Filename:    filename,
				ContentType: mediaType,
				Size:        len(body),
			})
		}
	}

	switch {
	case strings.TrimSpace(plain) != "":
		msg.text = normalize.CleanText(plain)
	case html != "":
		msg.text = normalize.HTMLToText(html)
	}
	return msg, true
}

func historyEntry(msg *parsedMessage, depth int) core.HistoryEntry {
	h := msg.header
	entry := core.HistoryEntry{
		From:        headerAddress(h, "From"),
		To:          headerAddress(h, "To"),
		Text:        msg.text,
		Depth:       depth,
		Flags:       []string{core.FlagTrustHighMIME},
		Attachments: msg.attachments,
	}
	if subject, err := h.Subject(); err == nil {
		entry.Subject = strings.TrimSpace(subject)
	} else {
		entry.Subject = strings.TrimSpace(h.Get("Subject"))
	}
	entry.DateRaw = strings.TrimSpace(h.Get("Date"))
	if entry.DateRaw != "" {
		if iso, ok := normalize.DateISO(entry.DateRaw); ok {
			entry.DateISO = iso
		}
	}
	return entry
}

func headerAddress(h mail.Header, key string) *core.Address {
	if list, err := h.AddressList(key); err == nil && len(list) > 0 {
		return normalize.Address(&core.Address{Name: list[0].Name, Address: list[0].Address})
	}
	return normalize.AddressString(h.Get(key))
}

func looksLikeMessage(h mail.Header) bool {
	for _, key := range []string{"From", "To", "Subject", "Date", "Content-Type", "Message-Id", "Mime-Version"} {
		if h.Get(key) != "" {
			return true
		}
	}
	return false
}

func isRFC822(mediaType string) bool {
	return strings.EqualFold(mediaType, "message/rfc822")
}

func readPart(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	return io.ReadAll(io.LimitReader(r, maxPartBytes))
}
