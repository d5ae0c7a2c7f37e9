package filter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/mail"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/config"
	"github.com/mikey/forward-unwrap/internal/core"
)

// PostfixFilter implements a Postfix content filter that annotates
// forwarded mail with the unwrapped original sender and subject
type PostfixFilter struct {
	service  *core.ForwardService
	logger   *zap.Logger
	settings config.ServerConfig
	opts     core.Options
	server   *smtp.Server
}

// NewPostfixFilter creates a new Postfix content filter
func NewPostfixFilter(
	service *core.ForwardService,
	logger *zap.Logger,
	settings config.ServerConfig,
	opts core.Options,
) *PostfixFilter {
	if settings.HeaderPrefix == "" {
		settings.HeaderPrefix = "X-Forward-"
	}
	return &PostfixFilter{
		service:  service,
		logger:   logger,
		settings: settings,
		opts:     opts,
	}
}

// Start starts the SMTP listener in the background
func (f *PostfixFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})

	f.server.Addr = f.settings.ListenAddress
	f.server.Domain = "localhost"
	f.server.ReadTimeout = f.settings.ReadTimeout
	f.server.WriteTimeout = f.settings.WriteTimeout
	f.server.MaxMessageBytes = f.settings.MaxMessageBytes
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true

	f.logger.Info("Postfix filter starting",
		zap.String("address", f.settings.ListenAddress),
		zap.Bool("relay_enabled", f.settings.RelayEnabled))

	go func() {
		if err := f.server.ListenAndServe(); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the Postfix filter service
func (f *PostfixFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessMessage unwraps a raw message without relaying it
func (f *PostfixFilter) ProcessMessage(ctx context.Context, raw []byte) (*core.Result, error) {
	return f.service.Process(ctx, raw, f.opts)
}

// processTimeout leaves room for a reviewer call after extraction
func (f *PostfixFilter) processTimeout() time.Duration {
	timeout := f.opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return timeout + 20*time.Second
}

// annotate returns raw with the prefixed result headers in front and any
// incoming headers carrying the same prefix removed
func annotate(raw []byte, prefix string, result *core.Result, processErr error) []byte {
	var out bytes.Buffer

	if processErr != nil {
		writeHeader(&out, prefix+"Error", processErr.Error())
	} else if result != nil {
		writeHeader(&out, prefix+"Depth", strconv.Itoa(result.Diagnostics.Depth))
		writeHeader(&out, prefix+"Method", result.Diagnostics.Method)
		if result.Confidence != nil {
			writeHeader(&out, prefix+"Confidence", strconv.Itoa(result.Confidence.Score))
		}
		if result.From != nil && result.From.Address != "" {
			addr := &mail.Address{Name: result.From.Name, Address: result.From.Address}
			writeHeader(&out, prefix+"Original-From", addr.String())
		}
		if result.Subject != "" {
			writeHeader(&out, prefix+"Original-Subject", mime.QEncoding.Encode("utf-8", result.Subject))
		}
		if result.DateISO != "" {
			writeHeader(&out, prefix+"Original-Date", result.DateISO)
		}
		if result.Review != nil {
			writeHeader(&out, prefix+"Review-Depth", strconv.Itoa(result.Review.Depth))
		}
	}

	out.Write(stripPrefixed(raw, prefix))
	return out.Bytes()
}

func writeHeader(w io.Writer, name, value string) {
	value = strings.Join(strings.Fields(value), " ")
	fmt.Fprintf(w, "%s: %s\r\n", name, value)
}

// stripPrefixed drops header fields, continuation lines included, whose
// name starts with prefix. The body is left untouched.
func stripPrefixed(raw []byte, prefix string) []byte {
	end, sep := bytes.Index(raw, []byte("\r\n\r\n")), 2
	if lf := bytes.Index(raw, []byte("\n\n")); lf != -1 && (end == -1 || lf < end) {
		end, sep = lf, 1
	}
	if end == -1 {
		return raw
	}

	head, body := raw[:end+sep], raw[end+sep:]
	lowerPrefix := strings.ToLower(prefix)

	var out bytes.Buffer
	dropping := false
	for _, line := range bytes.SplitAfter(head, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if !dropping {
				out.Write(line)
			}
			continue
		}
		dropping = strings.HasPrefix(strings.ToLower(string(line)), lowerPrefix)
		if !dropping {
			out.Write(line)
		}
	}
	out.Write(body)
	return out.Bytes()
}

// relay sends the processed email back to Postfix on the configured port
func (f *PostfixFilter) relay(sender string, recipients []string, emailData []byte) error {
	addr := net.JoinHostPort(f.settings.RelayHost, strconv.Itoa(f.settings.RelayPort))

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to Postfix: %w", err)
	}

	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
		} else {
			recipientOK = true
		}
	}

	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}

	if _, err := wc.Write(emailData); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}

	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		// the message was already accepted
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}

	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *PostfixFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *PostfixFilter
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data unwraps the message, annotates it and relays it
func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.filter.processTimeout())
	defer cancel()

	raw = stripPrefixed(raw, s.filter.settings.HeaderPrefix)
	result, processErr := s.filter.ProcessMessage(ctx, raw)
	if processErr != nil {
		// annotated with the error and delivered anyway
		s.filter.logger.Error("Failed to unwrap message",
			zap.Error(processErr),
			zap.String("sender", s.sender))
	}

	annotated := annotate(raw, s.filter.settings.HeaderPrefix, result, processErr)

	if s.filter.settings.RelayEnabled {
		if err := s.filter.relay(s.sender, s.recipients, annotated); err != nil {
			s.filter.logger.Error("Failed to send email back to Postfix",
				zap.Error(err),
				zap.String("sender", s.sender))
			return err
		}
	} else {
		s.filter.logger.Warn("Relay disabled, annotated message dropped", zap.String("sender", s.sender))
	}

	if result != nil {
		fields := []zap.Field{
			zap.String("id", result.ID),
			zap.String("sender", s.sender),
			zap.Int("depth", result.Diagnostics.Depth),
			zap.String("method", result.Diagnostics.Method),
		}
		if result.Confidence != nil {
			fields = append(fields, zap.Int("confidence", result.Confidence.Score))
		}
		s.filter.logger.Info("Processed email", fields...)
	}

	return nil
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
