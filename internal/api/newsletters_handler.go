package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mailpilot/backend/internal/classify"
	"github.com/mailpilot/backend/internal/db"
	"github.com/mailpilot/backend/internal/models"
)

// NewslettersHandler serves the newsletter senders observed during sync and
// their unsubscribe options.
type NewslettersHandler struct {
	pool *pgxpool.Pool
}

// NewNewslettersHandler creates a new NewslettersHandler instance.
func NewNewslettersHandler(pool *pgxpool.Pool) *NewslettersHandler {
	return &NewslettersHandler{pool: pool}
}

// List returns the newsletter subscriptions of an account.
func (h *NewslettersHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID, ok := PathID(w, r)
	if !ok {
		return
	}

	if _, err := db.GetAccount(r.Context(), h.pool, accountID); err != nil {
		if errors.Is(err, db.ErrAccountNotFound) {
			http.Error(w, "Account not found", http.StatusNotFound)
			return
		}
		log.Printf("NewslettersHandler: Failed to get account: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	subs, err := db.ListSubscriptions(r.Context(), h.pool, accountID)
	if err != nil {
		log.Printf("NewslettersHandler: Failed to list subscriptions: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if subs == nil {
		subs = []*models.Subscription{}
	}

	WriteJSONResponse(w, subs)
}

// UnsubscribeOptions parses a subscription's List-Unsubscribe header into
// actionable mailto and URL targets.
func (h *NewslettersHandler) UnsubscribeOptions(w http.ResponseWriter, r *http.Request) {
	subscriptionID, ok := PathID(w, r)
	if !ok {
		return
	}

	sub, err := db.GetSubscription(r.Context(), h.pool, subscriptionID)
	if err != nil {
		if errors.Is(err, db.ErrSubscriptionNotFound) {
			http.Error(w, "Subscription not found", http.StatusNotFound)
			return
		}
		log.Printf("NewslettersHandler: Failed to get subscription: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	links := classify.ParseListUnsubscribe(sub.ListUnsubscribe)
	options := models.UnsubscribeOptions{
		Mailto: links.Mailto,
		URLs:   links.URLs,
	}
	if options.Mailto == nil {
		options.Mailto = []string{}
	}
	if options.URLs == nil {
		options.URLs = []string{}
	}

	WriteJSONResponse(w, options)
}
