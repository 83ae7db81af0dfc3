package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"easybudget/internal/core"
	"easybudget/internal/ledger"
	"easybudget/internal/storage"
)

// fakeLedger is an in-memory Ledger for handler tests.
type fakeLedger struct {
	nextID int64
	txns   map[int64]core.Transaction
	rules  map[int64]core.RecurrenceRule
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		nextID: 1,
		txns:   make(map[int64]core.Transaction),
		rules:  make(map[int64]core.RecurrenceRule),
	}
}

func (f *fakeLedger) AddTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	id := f.nextID
	f.nextID++
	t.ID = id
	f.txns[id] = t
	return id, nil
}

func (f *fakeLedger) UpdateTransaction(ctx context.Context, id int64, date core.Date, amount core.Money, note string) error {
	t, ok := f.txns[id]
	if !ok {
		return storage.ErrNotFound
	}
	t.Date, t.Amount, t.Note = date, amount, note
	f.txns[id] = t
	return nil
}

func (f *fakeLedger) DeleteTransaction(ctx context.Context, id int64) error {
	if _, ok := f.txns[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.txns, id)
	return nil
}

func (f *fakeLedger) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	t, ok := f.txns[id]
	if !ok {
		return core.Transaction{}, storage.ErrNotFound
	}
	return t, nil
}

func (f *fakeLedger) TransactionsOn(ctx context.Context, date core.Date) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, t := range f.txns {
		if t.Date.ISO() == date.ISO() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeLedger) TransactionsInRange(ctx context.Context, first, last core.Date) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, t := range f.txns {
		if !t.Date.Before(first) && !t.Date.After(last) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeLedger) AddRule(ctx context.Context, rule core.RecurrenceRule) (int64, int, error) {
	if err := rule.Validate(); err != nil {
		return 0, 0, err
	}
	id := f.nextID
	f.nextID++
	rule.ID = id
	f.rules[id] = rule
	return id, 3, nil
}

func (f *fakeLedger) Rules(ctx context.Context) ([]core.RecurrenceRule, error) {
	var out []core.RecurrenceRule
	for _, r := range f.rules {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeLedger) DeleteSeries(ctx context.Context, ruleID int64) error {
	if _, ok := f.rules[ruleID]; !ok {
		return storage.ErrNotFound
	}
	delete(f.rules, ruleID)
	return nil
}

func (f *fakeLedger) MonthCalendar(ctx context.Context, year, month int) (ledger.MonthCalendar, error) {
	totals := make(map[string]int64)
	for _, t := range f.txns {
		if t.Date.Year() == year && t.Date.Month() == month {
			totals[t.Date.ISO()] += t.Amount.Cents
		}
	}
	return ledger.BuildMonthCalendar(year, month, 0, totals), nil
}

func (f *fakeLedger) BalanceOn(ctx context.Context, date core.Date) (core.Money, error) {
	var cents int64
	for _, t := range f.txns {
		if !t.Date.After(date) {
			cents += t.Amount.Cents
		}
	}
	return core.Money{Cents: cents}, nil
}

func newTestServer(t *testing.T) (*Server, *fakeLedger) {
	t.Helper()
	fake := newFakeLedger()
	srv := NewServer(":0", fake, time.Minute)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv, fake
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestIndexAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "easybudget")

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doJSON(t, srv, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestCreateTransactionValidationAndSuccess(t *testing.T) {
	srv, _ := newTestServer(t)

	// Malformed JSON
	rr := doJSON(t, srv, http.MethodPost, "/api/transactions", "{nope")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	// Invalid amount
	rr = doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"date":"2024-03-01","amount":"abc"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	// Zero amount
	rr = doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"date":"2024-03-01","amount":"0.00"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	// Bad date
	rr = doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"date":"03/01/2024","amount":"-5.00"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	// Success
	rr = doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"date":"2024-03-01","amount":"-12.50","note":"groceries"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp transactionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, int64(-1250), resp.AmountCents)
	require.Equal(t, "2024-03-01", resp.Date)
	require.Equal(t, "groceries", resp.Note)
	require.NotZero(t, resp.ID)
}

func TestTransactionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"date":"2024-03-10","amount_cents":170000,"note":"salary"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created transactionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	// Listed on its day
	rr = doJSON(t, srv, http.MethodGet, "/api/transactions?date=2024-03-10", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var items []transactionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &items))
	require.Len(t, items, 1)

	// Listed in a covering range, absent from a disjoint one
	rr = doJSON(t, srv, http.MethodGet, "/api/transactions?from=2024-03-01&to=2024-03-31", "")
	require.Equal(t, http.StatusOK, rr.Code)
	items = nil
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &items))
	require.Len(t, items, 1)

	rr = doJSON(t, srv, http.MethodGet, "/api/transactions?from=2024-04-01&to=2024-04-30", "")
	require.Equal(t, http.StatusOK, rr.Code)
	items = nil
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &items))
	require.Len(t, items, 0)

	// Missing parameters rejected
	rr = doJSON(t, srv, http.MethodGet, "/api/transactions", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	// Update
	rr = doJSON(t, srv, http.MethodPut, "/api/transactions/1",
		`{"date":"2024-03-11","amount":"1650.00","note":"salary (adjusted)"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var updated transactionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	require.Equal(t, "2024-03-11", updated.Date)
	require.Equal(t, int64(165000), updated.AmountCents)

	// Delete
	rr = doJSON(t, srv, http.MethodDelete, "/api/transactions/1", "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	// Gone
	rr = doJSON(t, srv, http.MethodDelete, "/api/transactions/1", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRuleLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/rules",
		`{"start_date":"2024-01-31","amount":"1700.00","note":"salary","every_n":1,"unit":"month"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Contains(t, rr.Body.String(), "occurrences_created")

	// Invalid unit
	rr = doJSON(t, srv, http.MethodPost, "/api/rules",
		`{"start_date":"2024-01-31","amount":"1700.00","every_n":1,"unit":"fortnight"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	// Invalid interval
	rr = doJSON(t, srv, http.MethodPost, "/api/rules",
		`{"start_date":"2024-01-31","amount":"1700.00","every_n":0,"unit":"month"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/api/rules", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var rules []ruleResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rules))
	require.Len(t, rules, 1)

	rr = doJSON(t, srv, http.MethodDelete, "/api/rules/1", "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = doJSON(t, srv, http.MethodDelete, "/api/rules/1", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCalendarEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"date":"2024-09-15","amount":"-40.00","note":"dinner"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/api/calendar?year=2024&month=9", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var cal calendarResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cal))
	require.Equal(t, 2024, cal.Year)
	require.Equal(t, 9, cal.Month)
	// September 2024 starts on a Sunday: six leading blanks, 30 days,
	// padded to a multiple of 7.
	require.Len(t, cal.Cells, 42)
	for i := 0; i < 6; i++ {
		require.True(t, cal.Cells[i].Blank, "cell %d", i)
	}
	require.Equal(t, 1, cal.Cells[6].Day)
	require.Equal(t, int64(-4000), cal.ClosingCents)

	// Out-of-range month rejected
	rr = doJSON(t, srv, http.MethodGet, "/api/calendar?year=2024&month=13", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCalendarCachePurgedOnMutation(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/calendar?year=2024&month=9", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var before calendarResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &before))
	require.Equal(t, int64(0), before.ClosingCents)

	rr = doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"date":"2024-09-01","amount":"100.00"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	// The mutation purged the cached month, so the new entry shows up.
	rr = doJSON(t, srv, http.MethodGet, "/api/calendar?year=2024&month=9", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var after calendarResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &after))
	require.Equal(t, int64(10000), after.ClosingCents)
}

func TestBalanceEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"date":"2024-01-01","amount":"100.00"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"date":"2024-01-05","amount":"-30.00"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/api/balance?date=2024-01-04", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"balance_cents":10000`)

	rr = doJSON(t, srv, http.MethodGet, "/api/balance?date=2024-01-05", "")
	require.Contains(t, rr.Body.String(), `"balance_cents":7000`)

	rr = doJSON(t, srv, http.MethodGet, "/api/balance?date=bogus", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/rules", "")
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	require.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))
}
