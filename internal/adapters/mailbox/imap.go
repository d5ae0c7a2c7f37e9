package mailbox

import (
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/config"
	"github.com/mikey/forward-unwrap/internal/ports"
)

// IMAPSource fetches recent messages from an IMAP mailbox without
// marking them as seen
type IMAPSource struct {
	cfg    config.IMAPConfig
	logger *zap.Logger
	client *imapclient.Client
	now    func() time.Time
}

// NewIMAPSource creates an IMAP source; the connection is opened on first use
func NewIMAPSource(cfg config.IMAPConfig, logger *zap.Logger) (*IMAPSource, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("imap.address is required")
	}
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	return &IMAPSource{cfg: cfg, logger: logger, now: time.Now}, nil
}

func (s *IMAPSource) connect() error {
	if s.client != nil {
		return nil
	}

	var client *imapclient.Client
	var err error
	if s.cfg.TLS {
		client, err = imapclient.DialTLS(s.cfg.Address, nil)
	} else {
		client, err = imapclient.DialStartTLS(s.cfg.Address, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP %s: %w", s.cfg.Address, err)
	}

	if err := client.Login(s.cfg.Username, s.cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return fmt.Errorf("IMAP authentication failed for %s: %w", s.cfg.Username, err)
	}

	s.client = client
	s.logger.Debug("Connected to IMAP server", zap.String("address", s.cfg.Address))
	return nil
}

// criteria selects messages received in the last SinceDays days
func (s *IMAPSource) criteria() *imap.SearchCriteria {
	if s.cfg.SinceDays <= 0 {
		return &imap.SearchCriteria{}
	}
	return &imap.SearchCriteria{Since: s.now().AddDate(0, 0, -s.cfg.SinceDays)}
}

// Each fetches the full body of every matching message
func (s *IMAPSource) Each(ctx context.Context, fn ports.MessageFunc) error {
	if err := s.connect(); err != nil {
		return err
	}

	if _, err := s.client.Select(s.cfg.Mailbox, nil).Wait(); err != nil {
		return fmt.Errorf("failed to select %s: %w", s.cfg.Mailbox, err)
	}

	searchData, err := s.client.UIDSearch(s.criteria(), nil).Wait()
	if err != nil {
		return fmt.Errorf("failed to search messages: %w", err)
	}

	uids := searchData.AllUIDs()
	s.logger.Info("Fetching messages",
		zap.String("mailbox", s.cfg.Mailbox),
		zap.Int("count", len(uids)))
	if len(uids) == 0 {
		return nil
	}

	section := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := s.client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	})
	defer fetchCmd.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			s.logger.Warn("Failed to collect message", zap.Error(err))
			continue
		}

		raw := buf.FindBodySection(section)
		if raw == nil {
			s.logger.Warn("Message has no body section", zap.Uint32("uid", uint32(buf.UID)))
			continue
		}

		if err := fn(fmt.Sprintf("%s/uid:%d", s.cfg.Mailbox, buf.UID), raw); err != nil {
			return err
		}
	}

	if err := fetchCmd.Close(); err != nil {
		return fmt.Errorf("failed to fetch messages: %w", err)
	}
	return nil
}

// Close logs out and closes the connection
func (s *IMAPSource) Close() error {
	if s.client == nil {
		return nil
	}
	err := s.client.Logout().Wait()
	s.client = nil
	if err != nil {
		return fmt.Errorf("failed to log out of IMAP: %w", err)
	}
	return nil
}
