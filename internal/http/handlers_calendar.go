package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"easybudget/internal/core"
	"easybudget/internal/ledger"
)

// calendarResponse is the JSON shape of a rendered month.
type calendarResponse struct {
	Year         int            `json:"year"`
	Month        int            `json:"month"`
	OpeningCents int64          `json:"opening_cents"`
	ClosingCents int64          `json:"closing_cents"`
	Cells        []cellResponse `json:"cells"`
}

// cellResponse is one grid slot. Blank cells pad the Monday-first grid
// so the 1st lands under its weekday.
type cellResponse struct {
	Blank       bool   `json:"blank"`
	Date        string `json:"date,omitempty"`
	Day         int    `json:"day,omitempty"`
	NetCents    int64  `json:"net_cents,omitempty"`
	EndingCents int64  `json:"ending_cents,omitempty"`
}

func toCalendarResponse(cal ledger.MonthCalendar) calendarResponse {
	resp := calendarResponse{
		Year:         cal.Year,
		Month:        cal.Month,
		OpeningCents: cal.OpeningCents,
		ClosingCents: cal.ClosingCents(),
		Cells:        make([]cellResponse, 0, len(cal.Cells)),
	}
	for _, c := range cal.Cells {
		if c.Blank {
			resp.Cells = append(resp.Cells, cellResponse{Blank: true})
			continue
		}
		resp.Cells = append(resp.Cells, cellResponse{
			Date:        c.Balance.Date.ISO(),
			Day:         c.Balance.Date.Day(),
			NetCents:    c.Balance.NetCents,
			EndingCents: c.Balance.EndingCents,
		})
	}
	return resp
}

// handleCalendar serves the month view with running daily balances.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	if month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}
	if year < 1 || year > 9999 {
		writeError(w, http.StatusBadRequest, "year out of range")
		return
	}

	key := strconv.Itoa(year) + "-" + strconv.Itoa(month)
	if cal, found := s.calendarCache.Get(key); found {
		slog.DebugContext(r.Context(), "Calendar cache hit", "year", year, "month", month)
		writeJSON(w, http.StatusOK, toCalendarResponse(cal))
		return
	}

	cctx, cancel := context7s(r)
	defer cancel()
	cal, err := s.ledger.MonthCalendar(cctx, year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Month calendar error", "error", err, "year", year, "month", month)
		writeError(w, http.StatusInternalServerError, "failed to compute calendar")
		return
	}

	s.calendarCache.Set(key, cal)
	writeJSON(w, http.StatusOK, toCalendarResponse(cal))
}

// handleBalance returns the ending balance on a given day
// (default: today).
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	date := core.DateOf(time.Now())
	if v := strings.TrimSpace(r.URL.Query().Get("date")); v != "" {
		parsed, err := core.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	balance, err := s.ledger.BalanceOn(r.Context(), date)
	if err != nil {
		slog.ErrorContext(r.Context(), "Balance query error", "error", err, "date", date.ISO())
		writeError(w, http.StatusInternalServerError, "failed to compute balance")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":          date.ISO(),
		"balance_cents": balance.Cents,
		"balance":       balance.String(),
	})
}
