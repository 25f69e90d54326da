package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mailpilot/backend/internal/models"
)

// ErrAccountNotFound is returned when a requested account does not exist.
var ErrAccountNotFound = errors.New("account not found")

// ErrDuplicateAccount is returned when registering an email that already has
// an account.
var ErrDuplicateAccount = errors.New("account already exists")

const accountColumns = `id, email, imap_host, imap_port, imap_tls, smtp_host, smtp_port, smtp_tls, password_enc, created_at`

// CreateAccount inserts a new account and fills in its ID and creation time.
func CreateAccount(ctx context.Context, q Querier, account *models.Account) error {
	err := q.QueryRow(ctx, `
		INSERT INTO accounts (email, imap_host, imap_port, imap_tls, smtp_host, smtp_port, smtp_tls, password_enc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`,
		account.Email,
		account.IMAPHost,
		account.IMAPPort,
		account.IMAPTLS,
		account.SMTPHost,
		account.SMTPPort,
		account.SMTPTLS,
		account.PasswordEnc,
	).Scan(&account.ID, &account.CreatedAt)

	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateAccount, account.Email)
	}
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetAccount returns an account by ID.
func GetAccount(ctx context.Context, q Querier, accountID int64) (*models.Account, error) {
	row := q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accountID)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// ListAccounts returns all accounts, newest first.
func ListAccounts(ctx context.Context, q Querier) ([]*models.Account, error) {
	rows, err := q.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// DeleteAccount removes an account; threads, messages and subscriptions go
// with it via cascade.
func DeleteAccount(ctx context.Context, q Querier, accountID int64) error {
	tag, err := q.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.IMAPHost,
		&account.IMAPPort,
		&account.IMAPTLS,
		&account.SMTPHost,
		&account.SMTPPort,
		&account.SMTPTLS,
		&account.PasswordEnc,
		&account.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}
