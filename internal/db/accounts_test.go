package db

import (
	"context"
	"errors"
	"testing"

	"github.com/mailpilot/backend/internal/models"
	"github.com/mailpilot/backend/internal/testutil"
)

func newTestAccount(email string) *models.Account {
	return &models.Account{
		Email:       email,
		IMAPHost:    "imap.example.com",
		IMAPPort:    993,
		IMAPTLS:     true,
		SMTPHost:    "smtp.example.com",
		SMTPPort:    587,
		SMTPTLS:     true,
		PasswordEnc: []byte("encrypted-secret"),
	}
}

func TestCreateAndGetAccount(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()

	t.Run("creates and retrieves account", func(t *testing.T) {
		account := newTestAccount("alice@example.com")

		if err := CreateAccount(ctx, pool, account); err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}
		if account.ID == 0 {
			t.Error("Expected account ID to be set")
		}
		if account.CreatedAt.IsZero() {
			t.Error("Expected CreatedAt to be set")
		}

		retrieved, err := GetAccount(ctx, pool, account.ID)
		if err != nil {
			t.Fatalf("GetAccount failed: %v", err)
		}
		if retrieved.Email != "alice@example.com" {
			t.Errorf("Expected email alice@example.com, got %s", retrieved.Email)
		}
		if retrieved.IMAPHost != "imap.example.com" {
			t.Errorf("Expected IMAP host imap.example.com, got %s", retrieved.IMAPHost)
		}
		if string(retrieved.PasswordEnc) != "encrypted-secret" {
			t.Error("Expected encrypted password to round-trip")
		}
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		first := newTestAccount("bob@example.com")
		if err := CreateAccount(ctx, pool, first); err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}

		second := newTestAccount("bob@example.com")
		err := CreateAccount(ctx, pool, second)
		if !errors.Is(err, ErrDuplicateAccount) {
			t.Errorf("Expected ErrDuplicateAccount, got %v", err)
		}
	})

	t.Run("returns error for non-existent account", func(t *testing.T) {
		_, err := GetAccount(ctx, pool, 999999)
		if !errors.Is(err, ErrAccountNotFound) {
			t.Errorf("Expected ErrAccountNotFound, got %v", err)
		}
	})
}

func TestListAccounts(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()

	emails := []string{"first@example.com", "second@example.com", "third@example.com"}
	for _, email := range emails {
		if err := CreateAccount(ctx, pool, newTestAccount(email)); err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}
	}

	accounts, err := ListAccounts(ctx, pool)
	if err != nil {
		t.Fatalf("ListAccounts failed: %v", err)
	}
	if len(accounts) != 3 {
		t.Fatalf("Expected 3 accounts, got %d", len(accounts))
	}

	// Newest first.
	if accounts[0].Email != "third@example.com" {
		t.Errorf("Expected third@example.com first, got %s", accounts[0].Email)
	}
	if accounts[2].Email != "first@example.com" {
		t.Errorf("Expected first@example.com last, got %s", accounts[2].Email)
	}
}

func TestDeleteAccount(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()

	t.Run("deletes account and cascades", func(t *testing.T) {
		account := newTestAccount("gone@example.com")
		if err := CreateAccount(ctx, pool, account); err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}

		thread, _, err := GetOrCreateThread(ctx, pool, account.ID, "key-1", "Subject")
		if err != nil {
			t.Fatalf("GetOrCreateThread failed: %v", err)
		}

		if err := DeleteAccount(ctx, pool, account.ID); err != nil {
			t.Fatalf("DeleteAccount failed: %v", err)
		}

		_, err = GetAccount(ctx, pool, account.ID)
		if !errors.Is(err, ErrAccountNotFound) {
			t.Errorf("Expected ErrAccountNotFound after delete, got %v", err)
		}

		_, err = GetThread(ctx, pool, thread.ID)
		if !errors.Is(err, ErrThreadNotFound) {
			t.Errorf("Expected thread to be cascade-deleted, got %v", err)
		}
	})

	t.Run("returns error for non-existent account", func(t *testing.T) {
		err := DeleteAccount(ctx, pool, 999999)
		if !errors.Is(err, ErrAccountNotFound) {
			t.Errorf("Expected ErrAccountNotFound, got %v", err)
		}
	})
}
