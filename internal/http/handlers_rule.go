package http

import (
	"errors"
	"log/slog"
	"net/http"

	"easybudget/internal/core"
	"easybudget/internal/storage"
)

// ruleRequest is the JSON body for creating a recurrence rule.
type ruleRequest struct {
	StartDate   string `json:"start_date"`
	Amount      string `json:"amount,omitempty"`
	AmountCents *int64 `json:"amount_cents,omitempty"`
	Note        string `json:"note,omitempty"`
	EveryN      int    `json:"every_n"`
	Unit        string `json:"unit"`
}

type ruleResponse struct {
	ID            int64  `json:"id"`
	StartDate     string `json:"start_date"`
	AmountCents   int64  `json:"amount_cents"`
	Amount        string `json:"amount"`
	Note          string `json:"note,omitempty"`
	EveryN        int    `json:"every_n"`
	Unit          string `json:"unit"`
	LastGenerated string `json:"last_generated,omitempty"`
}

func toRuleResponse(rule core.RecurrenceRule) ruleResponse {
	resp := ruleResponse{
		ID:          rule.ID,
		StartDate:   rule.StartDate.ISO(),
		AmountCents: rule.Amount.Cents,
		Amount:      rule.Amount.String(),
		Note:        rule.Note,
		EveryN:      rule.EveryN,
		Unit:        string(rule.Unit),
	}
	if !rule.LastGenerated.IsZero() {
		resp.LastGenerated = rule.LastGenerated.ISO()
	}
	return resp
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.ledger.Rules(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List rules error", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list rules")
		return
	}

	resp := make([]ruleResponse, 0, len(rules))
	for _, rule := range rules {
		resp = append(resp, toRuleResponse(rule))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start, err := core.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "start_date must be YYYY-MM-DD")
		return
	}
	amount, err := parseAmount(req.Amount, req.AmountCents)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "amount must be a non-zero signed decimal")
		return
	}

	rule := core.RecurrenceRule{
		StartDate: start,
		Amount:    amount,
		Note:      sanitizeInput(req.Note),
		EveryN:    req.EveryN,
		Unit:      core.IntervalUnit(req.Unit),
	}
	if err := rule.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	cctx, cancel := context7s(r)
	defer cancel()
	id, created, err := s.ledger.AddRule(cctx, rule)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create rule error", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save rule")
		return
	}
	rule.ID = id

	s.invalidateCalendars()
	resp := struct {
		ruleResponse
		OccurrencesCreated int `json:"occurrences_created"`
	}{toRuleResponse(rule), created}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	if err := s.ledger.DeleteSeries(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		slog.ErrorContext(r.Context(), "Delete rule error", "error", err, "rule_id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete rule")
		return
	}

	s.invalidateCalendars()
	w.WriteHeader(http.StatusNoContent)
}
