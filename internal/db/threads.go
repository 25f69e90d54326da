package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mailpilot/backend/internal/models"
)

// ErrThreadNotFound is returned when a requested thread does not exist.
var ErrThreadNotFound = errors.New("thread not found")

const threadColumns = `id, account_id, thread_key, subject, last_message_at, category, priority_score, priority_reason, is_newsletter`

// GetOrCreateThread finds the thread for (account, thread key) or creates
// it. The boolean reports whether a new row was created. A concurrent
// creator losing the insert race falls through to the fetch, so callers
// always get the surviving row.
func GetOrCreateThread(ctx context.Context, q Querier, accountID int64, threadKey, subject string) (*models.Thread, bool, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO threads (account_id, thread_key, subject)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, thread_key) DO NOTHING
		RETURNING `+threadColumns,
		accountID, threadKey, subject)

	thread, err := scanThread(row)
	if err == nil {
		return thread, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create thread: %w", err)
	}

	thread, err = GetThreadByKey(ctx, q, accountID, threadKey)
	if err != nil {
		return nil, false, err
	}
	return thread, false, nil
}

// GetThreadByKey returns a thread by its key within an account.
func GetThreadByKey(ctx context.Context, q Querier, accountID int64, threadKey string) (*models.Thread, error) {
	row := q.QueryRow(ctx, `
		SELECT `+threadColumns+`
		FROM threads
		WHERE account_id = $1 AND thread_key = $2
	`, accountID, threadKey)

	thread, err := scanThread(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}

	return thread, nil
}

// GetThread returns a thread by its database ID.
func GetThread(ctx context.Context, q Querier, threadID int64) (*models.Thread, error) {
	row := q.QueryRow(ctx, `SELECT `+threadColumns+` FROM threads WHERE id = $1`, threadID)

	thread, err := scanThread(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread by ID: %w", err)
	}

	return thread, nil
}

// UpdateThreadClassification overwrites the classification fields of a
// thread.
func UpdateThreadClassification(ctx context.Context, q Querier, threadID int64, category string, priorityScore int, priorityReason string, isNewsletter bool) error {
	_, err := q.Exec(ctx, `
		UPDATE threads
		SET category = $2, priority_score = $3, priority_reason = $4, is_newsletter = $5
		WHERE id = $1
	`, threadID, category, priorityScore, priorityReason, isNewsletter)

	if err != nil {
		return fmt.Errorf("failed to update thread classification: %w", err)
	}

	return nil
}

// AdvanceThreadActivity moves last_message_at forward to messageDate if it
// is newer than the stored value; the subject is replaced at the same time
// unless the incoming subject is empty. Older messages never regress either
// field.
func AdvanceThreadActivity(ctx context.Context, q Querier, threadID int64, messageDate time.Time, subject string) error {
	_, err := q.Exec(ctx, `
		UPDATE threads
		SET last_message_at = $2,
		    subject = CASE WHEN $3 <> '' THEN $3 ELSE subject END
		WHERE id = $1
		  AND (last_message_at IS NULL OR last_message_at < $2)
	`, threadID, messageDate, subject)

	if err != nil {
		return fmt.Errorf("failed to advance thread activity: %w", err)
	}

	return nil
}

// ListThreads returns the threads of an account for display: highest
// priority first, most recent activity breaking ties, never-active threads
// last.
func ListThreads(ctx context.Context, q Querier, accountID int64, limit int) ([]*models.Thread, error) {
	rows, err := q.Query(ctx, `
		SELECT `+threadColumns+`
		FROM threads
		WHERE account_id = $1
		ORDER BY priority_score DESC, last_message_at DESC NULLS LAST
		LIMIT $2
	`, accountID, limit)

	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	var threads []*models.Thread
	for rows.Next() {
		thread, err := scanThread(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		threads = append(threads, thread)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating threads: %w", err)
	}

	return threads, nil
}

func scanThread(row pgx.Row) (*models.Thread, error) {
	var thread models.Thread
	err := row.Scan(
		&thread.ID,
		&thread.AccountID,
		&thread.ThreadKey,
		&thread.Subject,
		&thread.LastMessageAt,
		&thread.Category,
		&thread.PriorityScore,
		&thread.PriorityReason,
		&thread.IsNewsletter,
	)
	if err != nil {
		return nil, err
	}
	return &thread, nil
}
