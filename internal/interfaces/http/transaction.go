package http

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"trackify/internal/domain/recurring"
	"trackify/internal/domain/transaction"
)

// TransactionHandler exposes the ledger read-only. Entries are written by the
// schedule engine.
type TransactionHandler struct {
	transactionRepo transaction.Repository
}

func NewTransactionHandler(transactionRepo transaction.Repository) *TransactionHandler {
	return &TransactionHandler{transactionRepo: transactionRepo}
}

type TransactionResponse struct {
	ID                  string  `json:"id"`
	CategoryID          string  `json:"categoryId"`
	Type                string  `json:"type"`
	Amount              string  `json:"amount"`
	Description         string  `json:"description"`
	TransactionDate     string  `json:"transactionDate"`
	RecurringTemplateID *string `json:"recurringTemplateId"`
	CreatedAt           string  `json:"createdAt"`
}

// HandleListTransactions handles GET /api/transactions/?limit=&offset=
func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	limit := 50
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 500 {
			limit = parsedLimit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsedOffset, err := strconv.Atoi(offsetStr); err == nil && parsedOffset >= 0 {
			offset = parsedOffset
		}
	}

	transactions, err := h.transactionRepo.ListByUserID(r.Context(), userID, limit, offset)
	if err != nil {
		log.Printf("Error listing transactions for user %d: %v", userID, err)
		http.Error(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}

	items := make([]TransactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		items = append(items, toTransactionResponse(tx))
	}

	writeJSON(w, http.StatusOK, items)
}

// HandleGetTransaction handles GET /api/transactions/{id}
func (h *TransactionHandler) HandleGetTransaction(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	transactionID := r.PathValue("id")
	if transactionID == "" {
		http.Error(w, "Transaction ID is required", http.StatusBadRequest)
		return
	}

	tx, err := h.transactionRepo.GetByID(r.Context(), transactionID)
	if err != nil {
		log.Printf("Error getting transaction %s: %v", transactionID, err)
		http.Error(w, "Failed to get transaction", http.StatusInternalServerError)
		return
	}
	// Another user's entry is reported as missing.
	if tx == nil || tx.UserID != userID {
		http.Error(w, "Transaction not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func toTransactionResponse(tx *transaction.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:                  tx.ID,
		CategoryID:          tx.CategoryID,
		Type:                tx.Type,
		Amount:              tx.Amount.StringFixed(2),
		Description:         tx.Description,
		TransactionDate:     recurring.FormatDate(tx.TransactionDate),
		RecurringTemplateID: tx.RecurringTemplateID,
		CreatedAt:           tx.CreatedAt.Format(time.RFC3339),
	}
}
