// Package syncer reconciles an IMAP mailbox into the database: one bounded
// pass per call, idempotent against re-fetched messages, committed in a
// single transaction per account.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mailpilot/backend/internal/classify"
	"github.com/mailpilot/backend/internal/crypto"
	"github.com/mailpilot/backend/internal/db"
	"github.com/mailpilot/backend/internal/imap"
	"github.com/mailpilot/backend/internal/models"
)

// ErrSyncInProgress is returned when a sync pass for the same account is
// already running. Distinct accounts sync in parallel.
var ErrSyncInProgress = errors.New("sync already in progress for this account")

// Service runs sync passes and on-demand IMAP lookups for stored accounts.
type Service struct {
	pool      *pgxpool.Pool
	encryptor *crypto.Encryptor

	mu     sync.Mutex
	active map[int64]bool
}

// NewService creates a sync service over the given pool and secret vault.
func NewService(pool *pgxpool.Pool, encryptor *crypto.Encryptor) *Service {
	return &Service{
		pool:      pool,
		encryptor: encryptor,
		active:    make(map[int64]bool),
	}
}

// acquire marks an account as syncing. Reports false when a pass for the
// same account is already running.
func (s *Service) acquire(accountID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[accountID] {
		return false
	}
	s.active[accountID] = true
	return true
}

func (s *Service) release(accountID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, accountID)
}

// Sync runs one sync pass for an account: fetch the most recent maxMessages
// from INBOX, resolve each into a thread, classify, and store. All writes
// happen in one transaction; a connection or fetch failure aborts the pass
// with zero writes. A second pass over an unchanged mailbox creates nothing.
func (s *Service) Sync(ctx context.Context, accountID int64, maxMessages int) (*models.SyncResult, error) {
	if !s.acquire(accountID) {
		return nil, fmt.Errorf("%w (account %d)", ErrSyncInProgress, accountID)
	}
	defer s.release(accountID)

	account, err := db.GetAccount(ctx, s.pool, accountID)
	if err != nil {
		return nil, err
	}

	session, err := s.openSession(account)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	fetched, err := session.FetchLatest(ctx, maxMessages)
	if err != nil {
		return nil, fmt.Errorf("fetch failed for %s: %w", account.Email, err)
	}

	// Oldest first, so a thread's classification and subject settle on its
	// newest message no matter how many passes run. Undated messages sort
	// before dated ones; UID breaks ties.
	sort.SliceStable(fetched, func(i, j int) bool {
		di, dj := fetched[i].Date, fetched[j].Date
		switch {
		case di == nil && dj == nil:
			return fetched[i].UID < fetched[j].UID
		case di == nil:
			return true
		case dj == nil:
			return false
		case di.Equal(*dj):
			return fetched[i].UID < fetched[j].UID
		default:
			return di.Before(*dj)
		}
	})

	result := &models.SyncResult{Fetched: len(fetched)}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin sync transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, f := range fetched {
		key := classify.ThreadKey(f.InReplyTo, f.References, f.Subject, f.From)

		thread, created, err := db.GetOrCreateThread(ctx, tx, accountID, key, f.Subject)
		if err != nil {
			return nil, err
		}
		if created {
			result.ThreadsCreated++
		}

		newsletter := classify.IsNewsletter(f.ListUnsubscribe, f.Snippet)
		category := classify.Category(f.Subject, f.Snippet, newsletter)
		score, reason := classify.Priority(f.Subject, f.Snippet, newsletter)

		if err := db.UpdateThreadClassification(ctx, tx, thread.ID, category, score, reason, newsletter); err != nil {
			return nil, err
		}

		if f.Date != nil {
			if err := db.AdvanceThreadActivity(ctx, tx, thread.ID, *f.Date, f.Subject); err != nil {
				return nil, err
			}
		}

		inserted, err := db.InsertMessage(ctx, tx, &models.Message{
			ThreadID:        thread.ID,
			IMAPUID:         int64(f.UID),
			MessageID:       f.MessageID,
			InReplyTo:       f.InReplyTo,
			References:      f.References,
			FromAddr:        f.From,
			ToAddr:          f.To,
			Subject:         f.Subject,
			Date:            f.Date,
			ListUnsubscribe: f.ListUnsubscribe,
			Snippet:         f.Snippet,
		})
		if err != nil {
			return nil, err
		}
		if inserted {
			result.MessagesCreated++
		}

		if newsletter && f.From != "" {
			if err := db.EnsureSubscription(ctx, tx, accountID, f.From, f.ListUnsubscribe); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit sync transaction: %w", err)
	}

	log.Printf("Sync: account %d fetched=%d threads_new=%d messages_new=%d",
		accountID, result.Fetched, result.ThreadsCreated, result.MessagesCreated)

	return result, nil
}

// FetchMessageBody fetches the full body text of a stored message from the
// IMAP server on demand. Snippets are stored; bodies are not.
func (s *Service) FetchMessageBody(ctx context.Context, messageID int64) (string, error) {
	message, err := db.GetMessage(ctx, s.pool, messageID)
	if err != nil {
		return "", err
	}
	thread, err := db.GetThread(ctx, s.pool, message.ThreadID)
	if err != nil {
		return "", err
	}
	account, err := db.GetAccount(ctx, s.pool, thread.AccountID)
	if err != nil {
		return "", err
	}

	session, err := s.openSession(account)
	if err != nil {
		return "", err
	}
	defer session.Close()

	body, err := session.FetchBody(uint32(message.IMAPUID))
	if err != nil {
		return "", fmt.Errorf("failed to fetch body for message %d: %w", messageID, err)
	}
	return body, nil
}

// TestConnection verifies a stored account's credentials by logging in and
// selecting INBOX.
func (s *Service) TestConnection(ctx context.Context, accountID int64) error {
	account, err := db.GetAccount(ctx, s.pool, accountID)
	if err != nil {
		return err
	}

	password, err := s.encryptor.Decrypt(account.PasswordEnc)
	if err != nil {
		return fmt.Errorf("failed to decrypt credentials for %s: %w", account.Email, err)
	}

	session, err := imap.Dial(account.IMAPHost, account.IMAPPort, account.IMAPTLS)
	if err != nil {
		return err
	}
	defer session.Close()

	return session.TestConnection(account.Email, password)
}

// openSession dials, authenticates and selects INBOX for an account.
func (s *Service) openSession(account *models.Account) (*imap.Session, error) {
	password, err := s.encryptor.Decrypt(account.PasswordEnc)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials for %s: %w", account.Email, err)
	}

	session, err := imap.Dial(account.IMAPHost, account.IMAPPort, account.IMAPTLS)
	if err != nil {
		return nil, err
	}

	if err := session.Login(account.Email, password); err != nil {
		session.Close()
		return nil, err
	}
	if err := session.SelectInbox(); err != nil {
		session.Close()
		return nil, err
	}
	return session, nil
}
