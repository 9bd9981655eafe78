package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/base2-shop/api/internal/metrics"
)

func TestCounters(t *testing.T) {
	m := metrics.New()
	m.OrdersCreated.Inc()
	m.StatusChanges.WithLabelValues("order", "ready").Inc()
	m.TxRollbacks.WithLabelValues("create_order").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatusChanges.WithLabelValues("order", "ready")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TxRollbacks.WithLabelValues("create_order")))
}

func TestObserveSubscribers(t *testing.T) {
	m := metrics.New()
	m.ObserveSubscribers("orders", func() int { return 3 })
	m.ObserveSubscribers("workorders", func() int { return 0 })

	expected := `
# HELP ws_subscribers WebSocket clients currently subscribed, by topic.
# TYPE ws_subscribers gauge
ws_subscribers{topic="orders"} 3
ws_subscribers{topic="workorders"} 0
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "ws_subscribers"))

	count, err := testutil.GatherAndCount(m.Registry(), "ws_subscribers")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/workorders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/workorders/42", nil))

	n, err := testutil.GatherAndCount(m.Registry(), "http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := metrics.New()
	m.WorkOrdersCreated.Inc()

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "work_orders_created_total 1"))
}
