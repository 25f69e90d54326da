package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/mailpilot/backend/internal/db"
	"github.com/mailpilot/backend/internal/imap"
	"github.com/mailpilot/backend/internal/models"
	"github.com/mailpilot/backend/internal/syncer"
)

// SyncHandler triggers sync passes and credential checks for stored
// accounts.
type SyncHandler struct {
	service      *syncer.Service
	defaultLimit int
	timeout      time.Duration
}

// NewSyncHandler creates a new SyncHandler instance.
func NewSyncHandler(service *syncer.Service, defaultLimit int, timeout time.Duration) *SyncHandler {
	return &SyncHandler{
		service:      service,
		defaultLimit: defaultLimit,
		timeout:      timeout,
	}
}

// Sync runs one bounded sync pass for an account. 401 on bad stored
// credentials, 404 unknown account, 409 when a pass is already running,
// 502 when the mail server cannot be reached.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	accountID, ok := PathID(w, r)
	if !ok {
		return
	}

	req := models.SyncRequest{Limit: h.defaultLimit}
	if r.Body != nil && r.ContentLength != 0 {
		if !DecodeJSONBody(w, r, &req) {
			return
		}
	}
	if req.Limit <= 0 {
		req.Limit = h.defaultLimit
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := h.service.Sync(ctx, accountID, req.Limit)
	if err != nil {
		h.writeSyncError(w, accountID, err)
		return
	}

	WriteJSONResponse(w, result)
}

// TestStoredConnection verifies the stored credentials of an account.
func (h *SyncHandler) TestStoredConnection(w http.ResponseWriter, r *http.Request) {
	accountID, ok := PathID(w, r)
	if !ok {
		return
	}

	if err := h.service.TestConnection(r.Context(), accountID); err != nil {
		h.writeSyncError(w, accountID, err)
		return
	}

	WriteJSONResponse(w, map[string]string{"status": "ok"})
}

func (h *SyncHandler) writeSyncError(w http.ResponseWriter, accountID int64, err error) {
	switch {
	case errors.Is(err, db.ErrAccountNotFound):
		http.Error(w, "Account not found", http.StatusNotFound)
	case errors.Is(err, imap.ErrAuthenticationFailed):
		http.Error(w, "Authentication failed", http.StatusUnauthorized)
	case errors.Is(err, syncer.ErrSyncInProgress):
		http.Error(w, "Sync already in progress", http.StatusConflict)
	default:
		log.Printf("SyncHandler: account %d: %v", accountID, err)
		http.Error(w, "Mail server error", http.StatusBadGateway)
	}
}
