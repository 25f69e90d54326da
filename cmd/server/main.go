package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mailpilot/backend/internal/api"
	"github.com/mailpilot/backend/internal/config"
	"github.com/mailpilot/backend/internal/crypto"
	"github.com/mailpilot/backend/internal/db"
	"github.com/mailpilot/backend/internal/syncer"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewConnection(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.CloseConnection(pool)

	log.Printf("Successfully connected to database")

	server := NewServer(cfg, pool)

	address := ":" + cfg.Port
	log.Printf("MailPilot backend server starting on %s (environment: %s)", address, cfg.Environment)

	if err := http.ListenAndServe(address, server); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// NewServer creates and returns a new HTTP handler for the MailPilot API
// server.
func NewServer(cfg *config.Config, dbPool *pgxpool.Pool) http.Handler {
	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKeyBase64)
	if err != nil {
		log.Fatalf("Failed to create encryptor: %v", err)
	}

	syncService := syncer.NewService(dbPool, encryptor)
	syncTimeout := time.Duration(cfg.SyncTimeoutSeconds) * time.Second

	accountsHandler := api.NewAccountsHandler(dbPool, encryptor)
	syncHandler := api.NewSyncHandler(syncService, cfg.SyncDefaultLimit, syncTimeout)
	threadsHandler := api.NewThreadsHandler(dbPool, syncService)
	sendHandler := api.NewSendHandler(dbPool, encryptor)
	newslettersHandler := api.NewNewslettersHandler(dbPool)

	mux := http.NewServeMux()

	mux.HandleFunc("/", handleRoot)
	mux.HandleFunc("GET /health", handleHealth)

	mux.HandleFunc("POST /api/v1/accounts", accountsHandler.Register)
	mux.HandleFunc("GET /api/v1/accounts", accountsHandler.List)
	mux.HandleFunc("POST /api/v1/accounts/test", accountsHandler.TestConnection)
	mux.HandleFunc("DELETE /api/v1/accounts/{id}", accountsHandler.Delete)

	mux.HandleFunc("POST /api/v1/accounts/{id}/test", syncHandler.TestStoredConnection)
	mux.HandleFunc("POST /api/v1/accounts/{id}/sync", syncHandler.Sync)
	mux.HandleFunc("POST /api/v1/accounts/{id}/send", sendHandler.Send)

	mux.HandleFunc("GET /api/v1/accounts/{id}/threads", threadsHandler.ListThreads)
	mux.HandleFunc("GET /api/v1/threads/{id}/messages", threadsHandler.ListMessages)
	mux.HandleFunc("GET /api/v1/messages/{id}/body", threadsHandler.GetMessageBody)

	mux.HandleFunc("GET /api/v1/accounts/{id}/newsletters", newslettersHandler.List)
	mux.HandleFunc("GET /api/v1/newsletters/{id}/unsubscribe", newslettersHandler.UnsubscribeOptions)

	return mux
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "MailPilot API is running")
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"status":"ok"}`)
}
