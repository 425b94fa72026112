package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/prism-backend/internal/platform/envutil"
	"github.com/yungbote/prism-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	analysisRequests *CounterVec
	analysisLatency  *HistogramVec
	caseEvents       *CounterVec
	rfiSends         *CounterVec
	casesByStatus    *GaugeVec
	openByUrgency    *GaugeVec

	dbStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current returns the process metrics, or nil when disabled. Every method is
// safe to call on a nil *Metrics.
func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	return envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("prism_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"prism_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGauge("prism_api_inflight_requests", "In-flight API requests."),

		analysisRequests: NewCounterVec("prism_analysis_requests_total", "Analysis gateway calls by result.", []string{"result"}),
		analysisLatency: NewHistogramVec(
			"prism_analysis_duration_seconds",
			"Analysis gateway latency in seconds by result.",
			[]string{"result"},
			[]float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		),
		caseEvents:    NewCounterVec("prism_case_events_total", "Committed case lifecycle events by type.", []string{"type"}),
		rfiSends:      NewCounterVec("prism_rfi_sends_total", "Requests for information by result.", []string{"result"}),
		casesByStatus: NewGaugeVec("prism_cases", "Cases by status at the last SLA tick.", []string{"status"}),
		openByUrgency: NewGaugeVec("prism_open_cases_by_urgency", "Open cases by SLA urgency at the last tick.", []string{"urgency"}),

		dbStats:   NewGaugeVec("prism_db_pool", "database/sql pool statistics.", []string{"stat"}),
		redisUp:   NewGauge("prism_redis_up", "1 when the last Redis ping succeeded."),
		redisPing: NewGauge("prism_redis_ping_seconds", "Latency of the last Redis ping."),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, pw := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.analysisRequests, m.analysisLatency, m.caseEvents, m.rfiSends,
		m.casesByStatus, m.openByUrgency,
		m.dbStats, m.redisUp, m.redisPing,
	} {
		if err := pw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveAnalysis records one gateway call. result is "ok" or an error kind.
func (m *Metrics) ObserveAnalysis(result string, dur time.Duration) {
	if m == nil {
		return
	}
	if result == "" {
		result = "ok"
	}
	m.analysisRequests.Inc(result)
	m.analysisLatency.Observe(dur.Seconds(), result)
}

func (m *Metrics) IncCaseEvent(eventType string) {
	if m == nil {
		return
	}
	m.caseEvents.Inc(eventType)
}

func (m *Metrics) IncRFISend(result string) {
	if m == nil {
		return
	}
	m.rfiSends.Inc(result)
}

// SetCaseGauges replaces the per-status and per-urgency gauges.
func (m *Metrics) SetCaseGauges(byStatus map[string]int, byUrgency map[string]int) {
	if m == nil {
		return
	}
	for k, v := range byStatus {
		m.casesByStatus.Set(float64(v), k)
	}
	for k, v := range byUrgency {
		m.openByUrgency.Set(float64(v), k)
	}
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
				m.dbStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	interval := scrapeInterval()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = rdb.Close()
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
