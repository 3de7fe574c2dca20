package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "employeedir_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "employeedir_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	batchItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "employeedir_batch_items_total",
		Help: "Employee batch items processed, by operation and per-item status",
	}, []string{"operation", "status"})

	batchSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "employeedir_batch_size",
		Help:    "Number of employees per batch request",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
	}, []string{"operation"})

	listCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "employeedir_list_cache_lookups_total",
		Help: "Employee list cache lookups by result",
	}, []string{"result"})

	storeCircuitState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "employeedir_store_circuit_state",
		Help: "Document store circuit breaker state (0 closed, 1 open, 2 half-open)",
	})

	storeUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "employeedir_store_up",
		Help: "1 if the last document store probe succeeded",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveBatch records the size of a create or update batch
func ObserveBatch(operation string, size int) {
	batchSize.WithLabelValues(operation).Observe(float64(size))
}

// ObserveBatchItem counts one processed item with its HTTP-style status
func ObserveBatchItem(operation string, status int) {
	batchItems.WithLabelValues(operation, strconv.Itoa(status)).Inc()
}

// ObserveListCache records a cache hit or miss
func ObserveListCache(hit bool) {
	if hit {
		listCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	listCacheLookups.WithLabelValues("miss").Inc()
}

// SetStoreCircuitState exports the numeric circuit breaker state
func SetStoreCircuitState(state int) {
	storeCircuitState.Set(float64(state))
}

// SetStoreUp records the result of the latest store probe
func SetStoreUp(up bool) {
	if up {
		storeUp.Set(1)
		return
	}
	storeUp.Set(0)
}
