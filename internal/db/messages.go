package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mailpilot/backend/internal/models"
)

// ErrMessageNotFound is returned when a requested message does not exist.
var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `id, thread_id, imap_uid, message_id, in_reply_to, "references", from_addr, to_addr, subject, date, list_unsubscribe, snippet`

// InsertMessage inserts a message unless its (thread, imap_uid) pair already
// exists. The boolean reports whether a row was inserted; an existing row is
// left untouched, so a re-fetched UID can never overwrite stored data.
func InsertMessage(ctx context.Context, q Querier, message *models.Message) (bool, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO messages (thread_id, imap_uid, message_id, in_reply_to, "references", from_addr, to_addr, subject, date, list_unsubscribe, snippet)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (thread_id, imap_uid) DO NOTHING
		RETURNING id
	`,
		message.ThreadID,
		message.IMAPUID,
		message.MessageID,
		message.InReplyTo,
		message.References,
		message.FromAddr,
		message.ToAddr,
		message.Subject,
		message.Date,
		message.ListUnsubscribe,
		message.Snippet,
	)

	err := row.Scan(&message.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert message: %w", err)
	}

	return true, nil
}

// GetMessage returns a message by its database ID.
func GetMessage(ctx context.Context, q Querier, messageID int64) (*models.Message, error) {
	row := q.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, messageID)

	message, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return message, nil
}

// ListMessages returns all messages of a thread for display, newest first,
// undated messages last.
func ListMessages(ctx context.Context, q Querier, threadID int64) ([]*models.Message, error) {
	rows, err := q.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE thread_id = $1
		ORDER BY date DESC NULLS LAST
	`, threadID)

	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var message models.Message
	err := row.Scan(
		&message.ID,
		&message.ThreadID,
		&message.IMAPUID,
		&message.MessageID,
		&message.InReplyTo,
		&message.References,
		&message.FromAddr,
		&message.ToAddr,
		&message.Subject,
		&message.Date,
		&message.ListUnsubscribe,
		&message.Snippet,
	)
	if err != nil {
		return nil, err
	}
	return &message, nil
}
