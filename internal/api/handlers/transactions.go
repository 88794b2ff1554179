package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/homeledger/homeledger/internal/api/middleware"
	"github.com/homeledger/homeledger/internal/logger"
	"github.com/homeledger/homeledger/internal/model"
	"github.com/homeledger/homeledger/internal/reconcile"
)

// maxBodyBytes bounds a statement upload.
const maxBodyBytes = 10 << 20

// Reconciler is the part of reconcile.Service the handlers use.
type Reconciler interface {
	Synchronize(ctx context.Context, userID string, req reconcile.SyncRequest) (reconcile.SyncResponse, error)
	BulletproofSync(ctx context.Context, userID string, req reconcile.BulletproofRequest) (reconcile.BulletproofResponse, error)
	CleanupDuplicates(ctx context.Context, userID string) (reconcile.CleanupResponse, error)
	ListTransactions(ctx context.Context, userID string, q reconcile.ListQuery) ([]model.Transaction, error)
}

// TransactionsHandler handles transaction reconciliation endpoints.
type TransactionsHandler struct {
	svc Reconciler
	log zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(svc Reconciler, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{svc: svc, log: log}
}

// Sync handles POST /api/transactions/sync
func (h *TransactionsHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req reconcile.SyncRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.svc.Synchronize(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		h.fail(w, r, err, "Failed to sync transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// BulletproofSync handles POST /api/transactions/bulletproof-sync
func (h *TransactionsHandler) BulletproofSync(w http.ResponseWriter, r *http.Request) {
	var req reconcile.BulletproofRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.svc.BulletproofSync(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		h.fail(w, r, err, "Failed to sync transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// CleanupDuplicates handles POST /api/transactions/cleanup-duplicates
func (h *TransactionsHandler) CleanupDuplicates(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.CleanupDuplicates(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		h.fail(w, r, err, "Failed to clean up duplicates")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	txns, err := h.svc.ListTransactions(r.Context(), middleware.UserID(r.Context()), reconcile.ListQuery{
		AccountID: q.Get("account_id"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	})
	if err != nil {
		h.fail(w, r, err, "Failed to list transactions")
		return
	}

	views := make([]TransactionView, len(txns))
	for i, t := range txns {
		views[i] = newTransactionView(t)
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"transactions": views,
		"count":        len(views),
	})
}

// fail maps validation errors to 400 and everything else to 500.
func (h *TransactionsHandler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var ve *reconcile.ValidationError
	if errors.As(err, &ve) {
		middleware.WriteError(w, http.StatusBadRequest, ve.Error())
		return
	}
	if errors.Is(err, reconcile.ErrInvalidBatch) {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	log := logger.FromContext(r.Context())
	if log.GetLevel() == zerolog.Disabled {
		log = h.log
	}
	log.Error().Err(err).Str("path", r.URL.Path).Msg(msg)

	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		msg = fmt.Sprintf("%s (request %s)", msg, id)
	}
	middleware.WriteError(w, http.StatusInternalServerError, msg)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// TransactionView is the JSON shape of a stored transaction.
type TransactionView struct {
	ID                  string           `json:"id"`
	AccountID           string           `json:"accountId"`
	Date                string           `json:"date"`
	Description         string           `json:"description"`
	Amount              decimal.Decimal  `json:"amount"`
	Balance             *decimal.Decimal `json:"balance,omitempty"`
	Type                string           `json:"type,omitempty"`
	CategoryID          *string          `json:"categoryId"`
	SubcategoryID       *string          `json:"subcategoryId"`
	UserDescription     string           `json:"userDescription"`
	Status              model.Status     `json:"status"`
	LinkedTransactionID *string          `json:"linkedTransactionId"`
	SavingsGoalID       *string          `json:"savingsGoalId"`
	BudgetItemID        *string          `json:"budgetItemId"`
	AmountOverride      *decimal.Decimal `json:"amountOverride"`
	ManuallyChanged     bool             `json:"manuallyChanged"`
	CreatedAt           time.Time        `json:"createdAt"`
	Fingerprint         string           `json:"fingerprint"`
}

func newTransactionView(t model.Transaction) TransactionView {
	return TransactionView{
		ID:                  t.ID,
		AccountID:           t.AccountID,
		Date:                t.PostedAt.Format(model.DateFormat),
		Description:         t.Description,
		Amount:              t.Amount,
		Balance:             t.Balance,
		Type:                t.Type,
		CategoryID:          t.CategoryID,
		SubcategoryID:       t.SubcategoryID,
		UserDescription:     t.UserDescription,
		Status:              t.Status,
		LinkedTransactionID: t.LinkedTransactionID,
		SavingsGoalID:       t.SavingsGoalID,
		BudgetItemID:        t.BudgetItemID,
		AmountOverride:      t.AmountOverride,
		ManuallyChanged:     t.ManuallyChanged,
		CreatedAt:           t.CreatedAt,
		Fingerprint:         t.Fingerprint(),
	}
}
