package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mailpilot/backend/internal/db"
	"github.com/mailpilot/backend/internal/imap"
	"github.com/mailpilot/backend/internal/models"
	"github.com/mailpilot/backend/internal/syncer"
)

// ThreadsHandler serves the synced inbox: thread lists, per-thread message
// lists, and on-demand full bodies.
type ThreadsHandler struct {
	pool    *pgxpool.Pool
	service *syncer.Service
}

// NewThreadsHandler creates a new ThreadsHandler instance.
func NewThreadsHandler(pool *pgxpool.Pool, service *syncer.Service) *ThreadsHandler {
	return &ThreadsHandler{pool: pool, service: service}
}

// ListThreads returns an account's threads, highest priority first.
func (h *ThreadsHandler) ListThreads(w http.ResponseWriter, r *http.Request) {
	accountID, ok := PathID(w, r)
	if !ok {
		return
	}

	if _, err := db.GetAccount(r.Context(), h.pool, accountID); err != nil {
		if errors.Is(err, db.ErrAccountNotFound) {
			http.Error(w, "Account not found", http.StatusNotFound)
			return
		}
		log.Printf("ThreadsHandler: Failed to get account: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	limit := QueryLimit(r, 100)
	threads, err := db.ListThreads(r.Context(), h.pool, accountID, limit)
	if err != nil {
		log.Printf("ThreadsHandler: Failed to list threads: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if threads == nil {
		threads = []*models.Thread{}
	}

	WriteJSONResponse(w, threads)
}

// ListMessages returns the messages of a thread, newest first.
func (h *ThreadsHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	threadID, ok := PathID(w, r)
	if !ok {
		return
	}

	if _, err := db.GetThread(r.Context(), h.pool, threadID); err != nil {
		if errors.Is(err, db.ErrThreadNotFound) {
			http.Error(w, "Thread not found", http.StatusNotFound)
			return
		}
		log.Printf("ThreadsHandler: Failed to get thread: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	messages, err := db.ListMessages(r.Context(), h.pool, threadID)
	if err != nil {
		log.Printf("ThreadsHandler: Failed to list messages: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}

	WriteJSONResponse(w, messages)
}

// GetMessageBody fetches the full body of a message from the IMAP server.
// Only the snippet is stored, so this hits the mail server live.
func (h *ThreadsHandler) GetMessageBody(w http.ResponseWriter, r *http.Request) {
	messageID, ok := PathID(w, r)
	if !ok {
		return
	}

	body, err := h.service.FetchMessageBody(r.Context(), messageID)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrMessageNotFound):
			http.Error(w, "Message not found", http.StatusNotFound)
		case errors.Is(err, imap.ErrAuthenticationFailed):
			http.Error(w, "Authentication failed", http.StatusUnauthorized)
		default:
			log.Printf("ThreadsHandler: Failed to fetch body for message %d: %v", messageID, err)
			http.Error(w, "Mail server error", http.StatusBadGateway)
		}
		return
	}

	WriteJSONResponse(w, models.MessageBodyResponse{Body: body})
}
