package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mailpilot/backend/internal/crypto"
	"github.com/mailpilot/backend/internal/db"
	"github.com/mailpilot/backend/internal/imap"
	"github.com/mailpilot/backend/internal/models"
)

// AccountsHandler handles account registration and listing.
type AccountsHandler struct {
	pool      *pgxpool.Pool
	encryptor *crypto.Encryptor
}

// NewAccountsHandler creates a new AccountsHandler instance.
func NewAccountsHandler(pool *pgxpool.Pool, encryptor *crypto.Encryptor) *AccountsHandler {
	return &AccountsHandler{pool: pool, encryptor: encryptor}
}

// Register creates an account. The password is encrypted before it touches
// the database; a duplicate email is a 409.
func (h *AccountsHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.AccountCreateRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}

	if req.Email == "" || req.Password == "" || req.IMAPHost == "" {
		http.Error(w, "email, password and imap_host are required", http.StatusBadRequest)
		return
	}

	passwordEnc, err := h.encryptor.Encrypt(req.Password)
	if err != nil {
		log.Printf("AccountsHandler: Failed to encrypt password: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	account := &models.Account{
		Email:       req.Email,
		IMAPHost:    req.IMAPHost,
		IMAPPort:    defaultPort(req.IMAPPort, 993),
		IMAPTLS:     defaultBool(req.IMAPTLS, true),
		SMTPHost:    req.SMTPHost,
		SMTPPort:    defaultPort(req.SMTPPort, 587),
		SMTPTLS:     defaultBool(req.SMTPTLS, true),
		PasswordEnc: passwordEnc,
	}

	if err := db.CreateAccount(r.Context(), h.pool, account); err != nil {
		if errors.Is(err, db.ErrDuplicateAccount) {
			http.Error(w, "Account already exists", http.StatusConflict)
			return
		}
		log.Printf("AccountsHandler: Failed to create account: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	WriteJSONResponseStatus(w, http.StatusCreated, account)
}

// List returns all registered accounts, newest first.
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := db.ListAccounts(r.Context(), h.pool)
	if err != nil {
		log.Printf("AccountsHandler: Failed to list accounts: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if accounts == nil {
		accounts = []*models.Account{}
	}

	WriteJSONResponse(w, accounts)
}

// Delete removes an account and everything synced under it.
func (h *AccountsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	accountID, ok := PathID(w, r)
	if !ok {
		return
	}

	if err := db.DeleteAccount(r.Context(), h.pool, accountID); err != nil {
		if errors.Is(err, db.ErrAccountNotFound) {
			http.Error(w, "Account not found", http.StatusNotFound)
			return
		}
		log.Printf("AccountsHandler: Failed to delete account: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// TestConnection checks IMAP credentials before an account exists, so the
// frontend can validate a form. Bad credentials are a 401, an unreachable
// server a 502.
func (h *AccountsHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var req models.TestConnectionRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" || req.IMAPHost == "" {
		http.Error(w, "email, password and imap_host are required", http.StatusBadRequest)
		return
	}

	session, err := imap.Dial(req.IMAPHost, defaultPort(req.IMAPPort, 993), defaultBool(req.IMAPTLS, true))
	if err != nil {
		log.Printf("AccountsHandler: Connection test dial failed: %v", err)
		http.Error(w, "Could not reach IMAP server", http.StatusBadGateway)
		return
	}
	defer session.Close()

	if err := session.TestConnection(req.Email, req.Password); err != nil {
		if errors.Is(err, imap.ErrAuthenticationFailed) {
			http.Error(w, "Authentication failed", http.StatusUnauthorized)
			return
		}
		log.Printf("AccountsHandler: Connection test failed: %v", err)
		http.Error(w, "Could not reach IMAP server", http.StatusBadGateway)
		return
	}

	WriteJSONResponse(w, map[string]string{"status": "ok"})
}

func defaultPort(port, fallback int) int {
	if port > 0 {
		return port
	}
	return fallback
}

func defaultBool(v *bool, fallback bool) bool {
	if v != nil {
		return *v
	}
	return fallback
}
