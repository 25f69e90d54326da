package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mailpilot/backend/internal/db"
	"github.com/mailpilot/backend/internal/models"
	"github.com/mailpilot/backend/internal/syncer"
	"github.com/mailpilot/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeIMAPAccount stores an account pointing at the test IMAP server.
func storeIMAPAccount(t *testing.T, pool *pgxpool.Pool, srv *testutil.TestIMAPServer) *models.Account {
	t.Helper()

	encryptor := testutil.GetTestEncryptor(t)
	passwordEnc, err := encryptor.Encrypt(srv.Password())
	require.NoError(t, err)

	account := &models.Account{
		Email:       srv.Username(),
		IMAPHost:    srv.Host,
		IMAPPort:    srv.Port,
		PasswordEnc: passwordEnc,
	}
	require.NoError(t, db.CreateAccount(context.Background(), pool, account))
	return account
}

func postSync(t *testing.T, handler *SyncHandler, accountID int64, body string) *httptest.ResponseRecorder {
	t.Helper()

	idStr := strconv.FormatInt(accountID, 10)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/"+idStr+"/sync", strings.NewReader(body))
	req.SetPathValue("id", idStr)
	rr := httptest.NewRecorder()
	handler.Sync(rr, req)
	return rr
}

func TestSyncEndpoint(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	srv := testutil.NewTestIMAPServer(t)
	defer srv.Close()
	srv.ClearINBOX(t)

	service := syncer.NewService(pool, testutil.GetTestEncryptor(t))
	handler := NewSyncHandler(service, 50, time.Minute)
	account := storeIMAPAccount(t, pool, srv)

	srv.AddMessage(t, "<s1@example.com>", "Hello", "friend@example.com", "username@example.com", "Hi there.", time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC))

	t.Run("sync returns counts", func(t *testing.T) {
		rr := postSync(t, handler, account.ID, `{"limit":10}`)
		require.Equal(t, http.StatusOK, rr.Code)

		var result models.SyncResult
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
		assert.Equal(t, 1, result.Fetched)
		assert.Equal(t, 1, result.ThreadsCreated)
		assert.Equal(t, 1, result.MessagesCreated)
	})

	t.Run("empty body uses the default limit", func(t *testing.T) {
		rr := postSync(t, handler, account.ID, "")
		require.Equal(t, http.StatusOK, rr.Code)

		var result models.SyncResult
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
		assert.Equal(t, 0, result.MessagesCreated)
	})

	t.Run("unknown account returns 404", func(t *testing.T) {
		rr := postSync(t, handler, 999999, `{"limit":10}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("stored connection test succeeds", func(t *testing.T) {
		idStr := strconv.FormatInt(account.ID, 10)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/"+idStr+"/test", nil)
		req.SetPathValue("id", idStr)
		rr := httptest.NewRecorder()

		handler.TestStoredConnection(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestSyncEndpointAuthFailure(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	srv := testutil.NewTestIMAPServer(t)
	defer srv.Close()

	encryptor := testutil.GetTestEncryptor(t)
	passwordEnc, err := encryptor.Encrypt("wrong-password")
	require.NoError(t, err)

	account := &models.Account{
		Email:       srv.Username(),
		IMAPHost:    srv.Host,
		IMAPPort:    srv.Port,
		PasswordEnc: passwordEnc,
	}
	require.NoError(t, db.CreateAccount(context.Background(), pool, account))

	service := syncer.NewService(pool, encryptor)
	handler := NewSyncHandler(service, 50, time.Minute)

	rr := postSync(t, handler, account.ID, `{"limit":10}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSyncEndpointUnreachableServer(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	encryptor := testutil.GetTestEncryptor(t)
	passwordEnc, err := encryptor.Encrypt("pw")
	require.NoError(t, err)

	account := &models.Account{
		Email:       "nobody@example.com",
		IMAPHost:    "127.0.0.1",
		IMAPPort:    1, // nothing listens here
		PasswordEnc: passwordEnc,
	}
	require.NoError(t, db.CreateAccount(context.Background(), pool, account))

	service := syncer.NewService(pool, encryptor)
	handler := NewSyncHandler(service, 50, time.Minute)

	rr := postSync(t, handler, account.ID, `{"limit":10}`)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}
