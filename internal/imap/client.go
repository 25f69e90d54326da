// Package imap implements the mailbox protocol client: session lifecycle
// (dial, login, select, logout) and bounded most-recent-N message fetching,
// plus decoding of raw RFC 822 payloads into normalized records.
package imap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sort"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/mailpilot/backend/internal/models"
)

// ErrAuthenticationFailed marks a login rejected by the server. It is a
// user-actionable error (wrong credentials), distinct from transport
// failures which may be transient.
var ErrAuthenticationFailed = errors.New("authentication failed")

// dialTimeout bounds the TCP/TLS handshake.
const dialTimeout = 10 * time.Second

// Session is one authenticated connection to an IMAP server. A session is
// acquired with Dial, used for a single sync or fetch, and must be released
// with Close on all exit paths.
type Session struct {
	c *client.Client
}

// Dial connects to the IMAP server.
// useTLS: true for production, false for tests against plain-TCP servers.
func Dial(host string, port int, useTLS bool) (*Session, error) {
	dialer := &net.Dialer{Timeout: dialTimeout}
	addr := fmt.Sprintf("%s:%d", host, port)

	var c *client.Client
	var err error
	if useTLS {
		c, err = client.DialWithDialerTLS(dialer, addr, nil)
	} else {
		c, err = client.DialWithDialer(dialer, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	return &Session{c: c}, nil
}

// Login authenticates the session. A rejection after a successful dial is
// treated as bad credentials and wrapped in ErrAuthenticationFailed; the
// server's reason is preserved, the password is not.
func (s *Session) Login(email, password string) error {
	if err := s.c.Login(email, password); err != nil {
		return fmt.Errorf("%w for %s: %v", ErrAuthenticationFailed, email, err)
	}
	return nil
}

// SelectInbox selects the INBOX folder read-write.
func (s *Session) SelectInbox() error {
	if _, err := s.c.Select("INBOX", false); err != nil {
		return fmt.Errorf("failed to select INBOX: %w", err)
	}
	return nil
}

// TestConnection verifies credentials by logging in and selecting INBOX.
func (s *Session) TestConnection(email, password string) error {
	if err := s.Login(email, password); err != nil {
		return err
	}
	return s.SelectInbox()
}

// Close logs out the session. Best-effort: release must succeed even when
// the connection is already broken, so errors are swallowed.
func (s *Session) Close() {
	if s == nil || s.c == nil {
		return
	}
	_ = s.c.Logout()
}

// ListUIDs returns all message UIDs in the selected folder, ascending.
// UIDs are assigned in arrival order but are not necessarily contiguous.
func (s *Session) ListUIDs() ([]uint32, error) {
	uids, err := s.c.UidSearch(imap.NewSearchCriteria())
	if err != nil {
		return nil, fmt.Errorf("failed to search mailbox: %w", err)
	}

	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids, nil
}

// FetchRaw fetches the full RFC 822 payload of one message by UID.
// Returns nil bytes (no error) when the server has no data for the UID.
func (s *Session) FetchRaw(uid uint32) ([]byte, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchUid}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- s.c.UidFetch(seqSet, items, messages)
	}()

	msg := <-messages

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch UID %d: %w", uid, err)
	}

	if msg == nil {
		return nil, nil
	}

	body := msg.GetBody(section)
	if body == nil {
		return nil, nil
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read UID %d body: %w", uid, err)
	}

	return raw, nil
}

// FetchLatest fetches and decodes the most recent messages in the selected
// folder, newest first, at most limit of them. Transport errors abort the
// whole fetch; a message that is missing on the server or fails to decode is
// logged and skipped. The context is honored between network round-trips.
func (s *Session) FetchLatest(ctx context.Context, limit int) ([]*models.FetchedMessage, error) {
	uids, err := s.ListUIDs()
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	results := make([]*models.FetchedMessage, 0, len(uids))
	for i := len(uids) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		uid := uids[i]
		raw, err := s.FetchRaw(uid)
		if err != nil {
			return nil, err
		}
		if raw == nil {
			log.Printf("IMAP: UID %d returned no data, skipping", uid)
			continue
		}

		fetched, err := Decode(raw, uid)
		if err != nil {
			log.Printf("IMAP: failed to decode UID %d, skipping: %v", uid, err)
			continue
		}
		results = append(results, fetched)
	}

	return results, nil
}

// FetchBody fetches one message and returns its full body text, untruncated.
func (s *Session) FetchBody(uid uint32) (string, error) {
	raw, err := s.FetchRaw(uid)
	if err != nil {
		return "", err
	}
	if raw == nil {
		return "", fmt.Errorf("message UID %d not found", uid)
	}
	return DecodeBodyText(raw)
}
