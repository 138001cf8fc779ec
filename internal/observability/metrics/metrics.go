package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Outcome string

const (
	Success                  Outcome       = "success"
	Error                    Outcome       = "error"
	MetricRequestTimeout     time.Duration = 5 * time.Second
	MetricRequestIdleTimeout time.Duration = 10 * time.Second
)

func (O Outcome) String() string {
	return string(O)
}

var defaultHistogramBucketsSeconds = []float64{0.1, 0.5, 1, 2.5, 5, 10, 30}

// Collectors are created eagerly so recording is safe before Init, which only
// registers them and starts the server.
var (
	once          sync.Once
	metricsRouter *chi.Mux

	// client requests are the ones sending to other service
	clientRequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "client_request_duration_seconds",
			Help:    "Histogram of outgoing client request durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"baseurl", "method", "path", "status"},
	)

	transferClientLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transfer_client_latency_seconds",
			Help:    "Histogram of transfer gateway client durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"method", "status"},
	)

	queueSendErrorCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_send_error_count",
			Help: "The total number of errors when publishing outbox events to the queue",
		},
	)

	jobDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Histogram of scheduled job and outbox relay durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"job", "outcome"},
	)

	jobLastSuccessGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run of each job",
		},
		[]string{"job"},
	)

	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_operation_duration_seconds",
			Help:    "Ledger operation duration in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"operation", "status", "retry"},
	)

	payoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payouts_total",
			Help: "Number of payouts that reached a given status",
		},
		[]string{"status"},
	)

	stuckPayoutsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stuck_processing_payouts_count",
			Help: "Number of payouts in processing for longer than the alert age",
		},
	)

	dailyWithdrawnGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "daily_withdrawn_units",
			Help: "Value withdrawn in the current daily window, in whole asset units",
		},
		[]string{"pool"},
	)

	poolTVLGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pool_tvl_units",
			Help: "Pool total value locked, in whole asset units",
		},
		[]string{"pool"},
	)

	circuitBreakerGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_active",
			Help: "1 when the pool circuit breaker is active",
		},
		[]string{"pool"},
	)

	outboxPendingGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbox_unpublished_events",
			Help: "Number of outbox events read but left unpublished in the last relay run",
		},
	)

	dbLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "db_latency_seconds",
			Help: "DB latency in seconds splitted by method and execution status",
		},
		[]string{"method", "status"},
	)
)

// Init initializes the metrics package.
func Init(metricsPort int) {
	once.Do(func() {
		initMetricsRouter(metricsPort)
		registerMetrics()
	})
}

// initMetricsRouter initializes the metrics router.
func initMetricsRouter(metricsPort int) {
	metricsRouter = chi.NewRouter()
	metricsRouter.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	metricsRouter.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	// Create a custom server with timeout settings
	metricsAddr := fmt.Sprintf(":%d", metricsPort)
	server := &http.Server{
		Addr:         metricsAddr,
		Handler:      metricsRouter,
		ReadTimeout:  MetricRequestTimeout,
		WriteTimeout: MetricRequestTimeout,
		IdleTimeout:  MetricRequestIdleTimeout,
	}

	// Start the server in a separate goroutine
	go func() {
		log.Printf("Starting metrics server on %s", metricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msgf("Error starting metrics server on %s", metricsAddr)
		}
	}()
}

// registerMetrics registers the Prometheus metrics.
func registerMetrics() {
	prometheus.MustRegister(
		clientRequestDurationHistogram,
		transferClientLatency,
		queueSendErrorCounter,
		jobDurationHistogram,
		jobLastSuccessGauge,
		operationDuration,
		payoutsTotal,
		stuckPayoutsGauge,
		dailyWithdrawnGauge,
		poolTVLGauge,
		circuitBreakerGauge,
		outboxPendingGauge,
		dbLatency,
	)
}

func RecordTransferClientLatency(d time.Duration, method string, failure bool) {
	status := Success
	if failure {
		status = Error
	}

	transferClientLatency.WithLabelValues(method, status.String()).Observe(d.Seconds())
}

func RecordDbLatency(d time.Duration, method string, failure bool) {
	status := Success
	if failure {
		status = Error
	}

	dbLatency.WithLabelValues(method, status.String()).Observe(d.Seconds())
}

func RecordOperationDuration(d time.Duration, operation string, retry int, failure bool) {
	status := Success
	if failure {
		status = Error
	}

	retryStr := strconv.Itoa(retry)

	operationDuration.WithLabelValues(operation, status.String(), retryStr).Observe(d.Seconds())
}

func IncPayoutStatus(status string) {
	payoutsTotal.WithLabelValues(status).Inc()
}

func RecordStuckPayoutsCount(count int) {
	stuckPayoutsGauge.Set(float64(count))
}

func RecordDailyWithdrawn(pool string, units float64) {
	dailyWithdrawnGauge.WithLabelValues(pool).Set(units)
}

func RecordPoolTVL(pool string, units float64) {
	poolTVLGauge.WithLabelValues(pool).Set(units)
}

func RecordCircuitBreaker(pool string, active bool) {
	v := 0.0
	if active {
		v = 1
	}
	circuitBreakerGauge.WithLabelValues(pool).Set(v)
}

func RecordOutboxUnpublished(count int) {
	outboxPendingGauge.Set(float64(count))
}

// StartClientRequestDurationTimer starts a timer to measure outgoing client request duration.
func StartClientRequestDurationTimer(baseUrl, method, path string) func(statusCode int) {
	startTime := time.Now()
	return func(statusCode int) {
		duration := time.Since(startTime).Seconds()
		clientRequestDurationHistogram.WithLabelValues(
			baseUrl,
			method,
			path,
			fmt.Sprintf("%d", statusCode),
		).Observe(duration)
	}
}

func RecordQueueSendError() {
	queueSendErrorCounter.Inc()
}
