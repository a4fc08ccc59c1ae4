package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/SmartChainFlow/internal/domain"
	"github.com/shaiso/SmartChainFlow/internal/engine"
)

const metricsNamespace = "smartchainflow"

// Metrics — Prometheus метрики выполнения цепочек.
//
// Metrics использует собственный реестр, а не глобальный: CLI живёт
// один run, и метрики сбрасываются в textfile или отдаются по /metrics.
// Реализует scheduler.Observer и orchestrator.RunRecorder.
type Metrics struct {
	registry *prometheus.Registry

	stepsTotal      *prometheus.CounterVec
	stepDuration    *prometheus.HistogramVec
	stepsRunning    prometheus.Gauge
	runsTotal       *prometheus.CounterVec
	lastRunDuration prometheus.Gauge
	lastRunSuccess  prometheus.Gauge
}

// NewMetrics создаёт метрики в новом реестре.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		stepsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "steps_total",
			Help:      "Steps reaching a terminal state, by state.",
		}, []string{"state"}),
		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of executed steps, by final state.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"state"}),
		stepsRunning: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "steps_running",
			Help:      "Steps currently running.",
		}),
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Finished chain runs, by status.",
		}, []string{"status"}),
		lastRunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the last finished run.",
		}),
		lastRunSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_success",
			Help:      "1 if the last run finished with SUCCESS, 0 otherwise.",
		}),
	}
}

// StepStarted увеличивает счётчик выполняющихся шагов.
func (m *Metrics) StepStarted(*engine.Step, time.Time) {
	m.stepsRunning.Inc()
}

// StepFinished учитывает терминальное состояние шага.
func (m *Metrics) StepFinished(o domain.Outcome) {
	state := string(o.State)
	m.stepsTotal.WithLabelValues(state).Inc()

	if o.Attempted() {
		m.stepsRunning.Dec()
		m.stepDuration.WithLabelValues(state).Observe(o.Duration().Seconds())
	}
}

// RecordRun учитывает итог run.
func (m *Metrics) RecordRun(_ context.Context, r *domain.RunResult) error {
	m.runsTotal.WithLabelValues(string(r.Status)).Inc()
	m.lastRunDuration.Set(r.Duration().Seconds())
	if r.Status == domain.RunStatusSuccess {
		m.lastRunSuccess.Set(1)
	} else {
		m.lastRunSuccess.Set(0)
	}
	return nil
}

// WriteTextfile записывает метрики в файл формата node-exporter textfile.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Handler возвращает HTTP handler для /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve отдаёт /metrics и /healthz на addr, пока не отменён ctx.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	startTime := time.Now()

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}()

	logger.Info("metrics server listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
