package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/mailpilot/backend/internal/db"
	"github.com/mailpilot/backend/internal/models"
	"github.com/mailpilot/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewslettersEndpoints(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	encryptor := testutil.GetTestEncryptor(t)
	handler := NewNewslettersHandler(pool)

	passwordEnc, err := encryptor.Encrypt("pw")
	require.NoError(t, err)
	account := &models.Account{
		Email:       "reader@example.com",
		IMAPHost:    "imap.example.com",
		PasswordEnc: passwordEnc,
	}
	require.NoError(t, db.CreateAccount(ctx, pool, account))

	require.NoError(t, db.EnsureSubscription(ctx, pool, account.ID, "news@daily.example.com",
		"<mailto:unsub@daily.example.com>, <https://daily.example.com/unsub>"))

	t.Run("lists subscriptions", func(t *testing.T) {
		idStr := strconv.FormatInt(account.ID, 10)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/"+idStr+"/newsletters", nil)
		req.SetPathValue("id", idStr)
		rr := httptest.NewRecorder()

		handler.List(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var subs []*models.Subscription
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &subs))
		require.Len(t, subs, 1)
		assert.Equal(t, "news@daily.example.com", subs[0].Sender)
	})

	t.Run("unknown account returns 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/999999/newsletters", nil)
		req.SetPathValue("id", "999999")
		rr := httptest.NewRecorder()

		handler.List(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("parses unsubscribe options", func(t *testing.T) {
		subs, err := db.ListSubscriptions(ctx, pool, account.ID)
		require.NoError(t, err)
		require.Len(t, subs, 1)

		idStr := strconv.FormatInt(subs[0].ID, 10)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/newsletters/"+idStr+"/unsubscribe", nil)
		req.SetPathValue("id", idStr)
		rr := httptest.NewRecorder()

		handler.UnsubscribeOptions(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var options models.UnsubscribeOptions
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &options))
		assert.Equal(t, []string{"mailto:unsub@daily.example.com"}, options.Mailto)
		assert.Equal(t, []string{"https://daily.example.com/unsub"}, options.URLs)
	})

	t.Run("unknown subscription returns 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/newsletters/999999/unsubscribe", nil)
		req.SetPathValue("id", "999999")
		rr := httptest.NewRecorder()

		handler.UnsubscribeOptions(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
