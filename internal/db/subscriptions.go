package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mailpilot/backend/internal/models"
)

// ErrSubscriptionNotFound is returned when a requested subscription does not
// exist.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// EnsureSubscription records a newsletter sender for an account. Idempotent:
// a sender already on file is left as is, including its original
// List-Unsubscribe value.
func EnsureSubscription(ctx context.Context, q Querier, accountID int64, sender, listUnsubscribe string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO subscriptions (account_id, sender, list_unsubscribe)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, sender) DO NOTHING
	`, accountID, sender, listUnsubscribe)

	if err != nil {
		return fmt.Errorf("failed to ensure subscription: %w", err)
	}

	return nil
}

// GetSubscription returns a subscription by its database ID.
func GetSubscription(ctx context.Context, q Querier, subscriptionID int64) (*models.Subscription, error) {
	var sub models.Subscription
	err := q.QueryRow(ctx, `
		SELECT id, account_id, sender, list_unsubscribe, created_at
		FROM subscriptions
		WHERE id = $1
	`, subscriptionID).Scan(&sub.ID, &sub.AccountID, &sub.Sender, &sub.ListUnsubscribe, &sub.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

// ListSubscriptions returns all newsletter subscriptions of an account.
func ListSubscriptions(ctx context.Context, q Querier, accountID int64) ([]*models.Subscription, error) {
	rows, err := q.Query(ctx, `
		SELECT id, account_id, sender, list_unsubscribe, created_at
		FROM subscriptions
		WHERE account_id = $1
		ORDER BY id
	`, accountID)

	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*models.Subscription
	for rows.Next() {
		var sub models.Subscription
		if err := rows.Scan(&sub.ID, &sub.AccountID, &sub.Sender, &sub.ListUnsubscribe, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, &sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscriptions: %w", err)
	}

	return subs, nil
}
