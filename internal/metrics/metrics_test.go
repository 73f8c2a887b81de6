package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilRegistryIsNoop(t *testing.T) {
	var r *Registry
	r.ObserveOperation("x", time.Now(), nil)
	r.AddMaterialized(3)
	r.AddRollovers(1)
	r.IncContribution("wants")
	r.IncHTTPRequest("GET", 200)
	r.IncPublished("expense.created", errors.New("down"))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCountersAndHandler(t *testing.T) {
	r := New()
	r.AddMaterialized(2)
	r.AddMaterialized(0)
	r.IncContribution("savings")
	r.ObserveOperation("close_month", time.Now(), nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.materialized))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.contributions.WithLabelValues("savings")))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "spendwise_recurring_materialized_total 2"))
	assert.True(t, strings.Contains(body, `spendwise_operation_duration_seconds_count{operation="close_month",result="ok"} 1`))
}
