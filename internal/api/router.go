package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/homeledger/homeledger/internal/api/handlers"
	"github.com/homeledger/homeledger/internal/api/middleware"
	"github.com/homeledger/homeledger/internal/buildinfo"
)

// NewRouter wires the reconciliation endpoints behind the middleware chain.
func NewRouter(svc handlers.Reconciler, jwtSecret []byte, log zerolog.Logger) http.Handler {
	transactionsHandler := handlers.NewTransactionsHandler(svc, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/transactions", method(http.MethodGet, transactionsHandler.ListTransactions))
	mux.HandleFunc("/api/transactions/sync", method(http.MethodPost, transactionsHandler.Sync))
	mux.HandleFunc("/api/transactions/bulletproof-sync", method(http.MethodPost, transactionsHandler.BulletproofSync))
	mux.HandleFunc("/api/transactions/cleanup-duplicates", method(http.MethodPost, transactionsHandler.CleanupDuplicates))

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"version": buildinfo.Version,
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.Auth(jwtSecret, "/health")(mux),
			),
		),
	)
}

func method(m string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != m {
			w.Header().Set("Allow", m)
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	}
}
