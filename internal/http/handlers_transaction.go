package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"easybudget/internal/core"
	"easybudget/internal/storage"
)

// transactionRequest is the JSON body for creating or updating a
// transaction. Amount is a signed decimal string ("-12.50"); clients
// that already work in cents may send amount_cents instead.
type transactionRequest struct {
	Date        string `json:"date"`
	Amount      string `json:"amount,omitempty"`
	AmountCents *int64 `json:"amount_cents,omitempty"`
	Note        string `json:"note,omitempty"`
}

type transactionResponse struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Note        string `json:"note,omitempty"`
	RuleID      *int64 `json:"rule_id,omitempty"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Date:        t.Date.ISO(),
		AmountCents: t.Amount.Cents,
		Amount:      t.Amount.String(),
		Note:        t.Note,
		RuleID:      t.RuleID,
	}
}

// handleListTransactions lists transactions for a single day (?date=)
// or an inclusive range (?from=&to=).
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var items []core.Transaction

	switch {
	case strings.TrimSpace(q.Get("date")) != "":
		date, err := core.ParseDate(q.Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		items, err = s.ledger.TransactionsOn(r.Context(), date)
		if err != nil {
			slog.ErrorContext(r.Context(), "List transactions error", "error", err, "date", date.ISO())
			writeError(w, http.StatusInternalServerError, "failed to list transactions")
			return
		}

	case strings.TrimSpace(q.Get("from")) != "" && strings.TrimSpace(q.Get("to")) != "":
		from, errFrom := core.ParseDate(q.Get("from"))
		to, errTo := core.ParseDate(q.Get("to"))
		if errFrom != nil || errTo != nil {
			writeError(w, http.StatusBadRequest, "from and to must be YYYY-MM-DD")
			return
		}
		if to.Before(from) {
			writeError(w, http.StatusBadRequest, "to must not precede from")
			return
		}
		var err error
		items, err = s.ledger.TransactionsInRange(r.Context(), from, to)
		if err != nil {
			slog.ErrorContext(r.Context(), "List transactions error", "error", err, "from", from.ISO(), "to", to.ISO())
			writeError(w, http.StatusInternalServerError, "failed to list transactions")
			return
		}

	default:
		writeError(w, http.StatusBadRequest, "provide date=YYYY-MM-DD or from= and to=")
		return
	}

	resp := make([]transactionResponse, 0, len(items))
	for _, t := range items {
		resp = append(resp, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "date must be YYYY-MM-DD")
		return
	}
	amount, err := parseAmount(req.Amount, req.AmountCents)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "amount must be a non-zero signed decimal")
		return
	}

	txn := core.Transaction{
		Date:   date,
		Amount: amount,
		Note:   sanitizeInput(req.Note),
	}
	id, err := s.ledger.AddTransaction(r.Context(), txn)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Create transaction error", "error", err, "date", date.ISO())
		writeError(w, http.StatusInternalServerError, "failed to save transaction")
		return
	}
	txn.ID = id

	s.invalidateCalendars()
	writeJSON(w, http.StatusCreated, toTransactionResponse(txn))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "date must be YYYY-MM-DD")
		return
	}
	amount, err := parseAmount(req.Amount, req.AmountCents)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "amount must be a non-zero signed decimal")
		return
	}

	if err := s.ledger.UpdateTransaction(r.Context(), id, date, amount, sanitizeInput(req.Note)); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			writeError(w, http.StatusNotFound, "transaction not found")
		case errors.Is(err, storage.ErrDuplicateOccurrence):
			writeError(w, http.StatusConflict, err.Error())
		case isValidationError(err):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			slog.ErrorContext(r.Context(), "Update transaction error", "error", err, "transaction_id", id)
			writeError(w, http.StatusInternalServerError, "failed to update transaction")
		}
		return
	}

	s.invalidateCalendars()
	txn, err := s.ledger.GetTransaction(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]int64{"id": id})
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(txn))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		slog.ErrorContext(r.Context(), "Delete transaction error", "error", err, "transaction_id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete transaction")
		return
	}

	s.invalidateCalendars()
	w.WriteHeader(http.StatusNoContent)
}

// isValidationError reports whether the error comes from domain
// validation rather than storage.
func isValidationError(err error) bool {
	return errors.Is(err, core.ErrInvalidDate) ||
		errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrInvalidInterval) ||
		errors.Is(err, core.ErrInvalidUnit) ||
		errors.Is(err, core.ErrNoteTooLong)
}
