package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/cache"
	"spendwise/internal/core"
	"spendwise/internal/metrics"
	"spendwise/internal/middleware/ratelimit"
	"spendwise/internal/services"
	"spendwise/internal/storage/memory"
)

var fixedNow = time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)

func fixedNowPeriod() core.Period { return core.DateOf(fixedNow).Period() }

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	store := memory.New()
	opts.Engine = services.NewEngine(services.Deps{Store: store})
	opts.Store = store
	if opts.Dashboards == nil {
		opts.Dashboards = cache.NewDashboards(16, time.Minute)
	}
	opts.Now = func() time.Time { return fixedNow }
	return NewServer(opts)
}

func do(t *testing.T, srv *Server, method, path string, owner int64, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if owner > 0 {
		req.Header.Set(HeaderOwnerID, strconv.FormatInt(owner, 10))
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func value(m any, path ...string) any {
	for _, p := range path {
		mm, ok := m.(map[string]any)
		if !ok {
			return nil
		}
		m = mm[p]
	}
	return m
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := do(t, srv, http.MethodGet, path, 0, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
	assert.Equal(t, "ready", decode(t, do(t, srv, http.MethodGet, "/readyz", 0, ""))["status"])
}

func TestOwnerHeaderRequired(t *testing.T) {
	srv := newTestServer(t, Options{})

	rec := do(t, srv, http.MethodGet, "/api/expenses", 0, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/expenses", nil)
	req.Header.Set(HeaderOwnerID, "abc")
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoutingErrors(t *testing.T) {
	srv := newTestServer(t, Options{})
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/unknown", 1, "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, srv, http.MethodPatch, "/api/expenses", 1, "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodDelete, "/api/expenses/abc", 1, "").Code)
}

func TestExpenseLifecycle(t *testing.T) {
	srv := newTestServer(t, Options{})

	rec := do(t, srv, http.MethodPost, "/api/expenses", 1,
		`{"amount":"12,50","category":"food","date":"2024-05-02","description":"Lunch"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.Equal(t, "12.50", value(created, "amount", "value"))
	assert.Equal(t, "Food", created["category_label"])
	id := int64(created["id"].(float64))
	path := "/api/expenses/" + strconv.FormatInt(id, 10)

	rec = do(t, srv, http.MethodGet, "/api/expenses?category=food&from=2024-05-01&to=2024-05-31", 1, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["expenses"], 1)

	rec = do(t, srv, http.MethodGet, "/api/expenses", 2, "")
	assert.Empty(t, decode(t, rec)["expenses"])

	update := `{"amount":20,"category":"travel","date":"2024-05-03","description":"Bus"}`
	assert.Equal(t, http.StatusForbidden, do(t, srv, http.MethodPut, path, 2, update).Code)
	rec = do(t, srv, http.MethodPut, path, 1, update)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "travel", decode(t, rec)["category"])

	assert.Equal(t, http.StatusForbidden, do(t, srv, http.MethodDelete, path, 2, "").Code)
	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, path, 1, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, path, 1, "").Code)
}

func TestCreateExpenseErrors(t *testing.T) {
	srv := newTestServer(t, Options{})

	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantField string
	}{
		{"zero amount", `{"amount":"0","category":"food","date":"2024-05-02","description":"x"}`, http.StatusUnprocessableEntity, "amount"},
		{"bad date", `{"amount":"5","category":"food","date":"02/05/2024","description":"x"}`, http.StatusUnprocessableEntity, "date"},
		{"unknown category", `{"amount":"5","category":"gadgets","date":"2024-05-02","description":"x"}`, http.StatusUnprocessableEntity, "category"},
		{"malformed json", `{"amount":`, http.StatusBadRequest, ""},
		{"unknown field", `{"amount":"5","owner":7}`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/expenses", 1, tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			body := decode(t, rec)
			assert.NotEmpty(t, body["error"])
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, body["field"])
			}
		})
	}
}

func TestBudgetPatchReportsSkippedFields(t *testing.T) {
	srv := newTestServer(t, Options{})

	rec := do(t, srv, http.MethodPost, "/api/budgets", 1, `{"category":"food","amount":"200"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := int64(decode(t, rec)["id"].(float64))
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/expenses", 1,
		`{"amount":"50","category":"food","date":"2024-05-02","description":"Groceries"}`).Code)

	path := "/api/budgets/" + strconv.FormatInt(id, 10)
	rec = do(t, srv, http.MethodPatch, path, 1, `{"amount":"abc","rollover":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)

	skipped := body["skipped"].([]any)
	require.Len(t, skipped, 1)
	assert.Equal(t, "amount", value(skipped[0], "field"))
	assert.Equal(t, true, value(body, "budget", "rollover"))
	assert.Equal(t, "200.00", value(body, "budget", "amount", "value"))
	assert.Equal(t, "50.00", value(body, "budget", "spent", "value"))
	assert.Equal(t, "25.00", value(body, "budget", "percent", "value"))

	rec = do(t, srv, http.MethodGet, "/api/budgets?date=2024-06-01", 1, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)
	assert.Equal(t, "2024-06", list["period"])
	assert.Equal(t, "0.00", value(list["budgets"].([]any)[0], "spent", "value"))

	assert.Equal(t, http.StatusForbidden, do(t, srv, http.MethodDelete, path, 2, "").Code)
	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, path, 1, "").Code)
}

func TestCloseMonth(t *testing.T) {
	srv := newTestServer(t, Options{})
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/budgets", 1, `{"category":"food","amount":"100","rollover":true}`).Code)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/budgets", 1, `{"category":"travel","amount":"100"}`).Code)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/expenses", 1,
		`{"amount":"40","category":"food","date":"2024-05-10","description":"Market"}`).Code)

	rec := do(t, srv, http.MethodPost, "/api/months/close?date=2024-05-31", 1, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "2024-05", body["period"])
	assert.Equal(t, float64(1), body["checked"])
	rolled := body["rolled"].([]any)
	require.Len(t, rolled, 1)
	assert.Equal(t, "60.00", value(rolled[0], "unused", "value"))

	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodPost, "/api/months/close?date=2024-13-01", 1, "").Code)
}

func TestRecurringEndpoints(t *testing.T) {
	srv := newTestServer(t, Options{})

	rec := do(t, srv, http.MethodPost, "/api/recurring", 1, `{"amount":"9.99","category":"subscription","day_of_month":20}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.Equal(t, true, created["active"])
	id := strconv.FormatInt(int64(created["id"].(float64)), 10)

	rec = do(t, srv, http.MethodPost, "/api/recurring/run", 1, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(1), decode(t, rec)["created"])
	rec = do(t, srv, http.MethodPost, "/api/recurring/run", 1, "")
	assert.Equal(t, float64(0), decode(t, rec)["created"])

	rec = do(t, srv, http.MethodPatch, "/api/recurring/"+id, 1, `{"day_of_month":31,"active":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Len(t, body["skipped"], 1)
	assert.Equal(t, float64(20), value(body, "recurring", "day_of_month"))
	assert.Equal(t, false, value(body, "recurring", "active"))
	assert.Equal(t, "2024-05-20", value(body, "recurring", "last_run"))

	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodPost, "/api/recurring", 1,
		`{"amount":"5","category":"subscription","day_of_month":29}`).Code)
	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/api/recurring/"+id, 1, "").Code)
}

func TestGoalContributions(t *testing.T) {
	srv := newTestServer(t, Options{})

	rec := do(t, srv, http.MethodPost, "/api/goals", 1, `{"name":"Laptop","target_amount":1000}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	path := "/api/goals/" + strconv.FormatInt(int64(decode(t, rec)["id"].(float64)), 10)

	rec = do(t, srv, http.MethodPost, path+"/contributions", 1, `{"amount":250,"source_category":"savings"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "25.00", value(decode(t, rec), "percent", "value"))

	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodPost, path+"/contributions", 1, `{"amount":"0"}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodPost, path+"/contributions", 1, `{"amount":"5","source_category":"fun"}`).Code)
	assert.Equal(t, http.StatusForbidden, do(t, srv, http.MethodPost, path+"/contributions", 2, `{"amount":"5"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPost, "/api/goals/999/contributions", 1, `{"amount":"5"}`).Code)

	rec = do(t, srv, http.MethodPatch, path, 1, `{"name":"New laptop","target_amount":"-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "New laptop", value(body, "goal", "name"))
	assert.Len(t, body["skipped"], 1)

	rec = do(t, srv, http.MethodGet, "/api/goals", 1, "")
	assert.Len(t, decode(t, rec)["goals"], 1)
	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, path, 1, "").Code)
}

func TestDashboardCacheInvalidatedOnWrite(t *testing.T) {
	dashboards := cache.NewDashboards(16, time.Hour)
	srv := newTestServer(t, Options{Dashboards: dashboards})

	rec := do(t, srv, http.MethodGet, "/api/dashboard", 1, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "2024-05", body["period"])
	assert.Equal(t, "0.00", value(body, "total_spent", "value"))
	_, cached := dashboards.Get(1, fixedNowPeriod())
	assert.True(t, cached)

	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/expenses", 1,
		`{"amount":"30","category":"food","date":"2024-05-02","description":"Dinner"}`).Code)
	_, cached = dashboards.Get(1, fixedNowPeriod())
	assert.False(t, cached)

	rec = do(t, srv, http.MethodGet, "/api/dashboard?date=2024-05-31", 1, "")
	body = decode(t, rec)
	assert.Equal(t, "30.00", value(body, "total_spent", "value"))
	assert.Len(t, body["category_breakdown"], 1)
}

func TestDisplayContextHeaders(t *testing.T) {
	srv := newTestServer(t, Options{})
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/expenses", 1,
		`{"amount":"1234.5","category":"food","date":"2024-05-02","description":"Party"}`).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set(HeaderOwnerID, "1")
	req.Header.Set(HeaderCurrency, "usd")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "USD", body["currency"])
	assert.True(t, strings.HasSuffix(value(body, "total_spent", "display").(string), "1,234.50"))

	req = httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set(HeaderOwnerID, "1")
	req.Header.Set(HeaderCurrency, "dollars")
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRateLimitAndMetrics(t *testing.T) {
	reg := metrics.New()
	srv := newTestServer(t, Options{
		Metrics: reg,
		Limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 60, Burst: 1}),
	})

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/goals", 1, "").Code)
	rec := do(t, srv, http.MethodGet, "/api/goals", 1, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/healthz", 0, "").Code, "health is not rate limited")

	rec = do(t, srv, http.MethodGet, "/metrics", 0, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `spendwise_http_requests_total{code="429",method="GET"} 1`)
}

func TestSecurityHeadersApplied(t *testing.T) {
	srv := newTestServer(t, Options{})
	rec := do(t, srv, http.MethodGet, "/healthz", 0, "")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
