package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mailpilot/backend/internal/crypto"
	"github.com/mailpilot/backend/internal/db"
	"github.com/mailpilot/backend/internal/models"
	"github.com/mailpilot/backend/internal/smtp"
)

// SendHandler sends outbound mail through an account's SMTP server.
type SendHandler struct {
	pool      *pgxpool.Pool
	encryptor *crypto.Encryptor
}

// NewSendHandler creates a new SendHandler instance.
func NewSendHandler(pool *pgxpool.Pool, encryptor *crypto.Encryptor) *SendHandler {
	return &SendHandler{pool: pool, encryptor: encryptor}
}

// Send composes and delivers one plain text message from the account's
// address. 400 when the account has no SMTP host configured.
func (h *SendHandler) Send(w http.ResponseWriter, r *http.Request) {
	accountID, ok := PathID(w, r)
	if !ok {
		return
	}

	var req models.SendRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}
	if req.To == "" {
		http.Error(w, "to is required", http.StatusBadRequest)
		return
	}

	account, err := db.GetAccount(r.Context(), h.pool, accountID)
	if err != nil {
		if errors.Is(err, db.ErrAccountNotFound) {
			http.Error(w, "Account not found", http.StatusNotFound)
			return
		}
		log.Printf("SendHandler: Failed to get account: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	password, err := h.encryptor.Decrypt(account.PasswordEnc)
	if err != nil {
		log.Printf("SendHandler: Failed to decrypt credentials for %s: %v", account.Email, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	wire, err := smtp.Compose(account.Email, req.To, req.Subject, req.Body)
	if err != nil {
		log.Printf("SendHandler: Failed to compose message: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	cfg := smtp.SendConfig{
		Host:     account.SMTPHost,
		Port:     account.SMTPPort,
		UseTLS:   account.SMTPTLS,
		Email:    account.Email,
		Password: password,
	}

	if err := smtp.Send(r.Context(), cfg, account.Email, req.To, wire); err != nil {
		if errors.Is(err, smtp.ErrNoSMTPConfig) {
			http.Error(w, "Account has no SMTP configuration", http.StatusBadRequest)
			return
		}
		log.Printf("SendHandler: Failed to send for %s: %v", account.Email, err)
		http.Error(w, "Mail server error", http.StatusBadGateway)
		return
	}

	WriteJSONResponse(w, map[string]string{"status": "sent"})
}
