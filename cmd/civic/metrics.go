package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/abelbrown/civic/internal/model"
)

type entityCounter interface {
	All() []model.Entity
}

// newMetricsRouter serves reg on /metrics and a liveness probe on /healthz.
func newMetricsRouter(reg *prometheus.Registry, entities entityCounter, runID string) http.Handler {
	root := mux.NewRouter()
	root.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})).Methods("GET")
	root.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":   "ok",
			"run":      runID,
			"entities": len(entities.All()),
		})
	}).Methods("GET")
	return root
}

// serveMetrics serves h on addr until the returned func is called. An empty
// addr disables it.
func serveMetrics(addr string, h http.Handler, logger *zap.Logger) func() {
	if addr == "" {
		return func() {}
	}

	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server", zap.Error(err))
		}
	}()
	logger.Info("metrics listening", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// logMetrics writes the final counter values to the diagnostic log.
func logMetrics(reg *prometheus.Registry, logger *zap.Logger) {
	families, err := reg.Gather()
	if err != nil {
		logger.Warn("gather metrics", zap.Error(err))
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fields := []zap.Field{zap.String("metric", mf.GetName()), zap.Float64("value", m.GetCounter().GetValue())}
			for _, lp := range m.GetLabel() {
				fields = append(fields, zap.String(lp.GetName(), lp.GetValue()))
			}
			logger.Info("metric", fields...)
		}
	}
}
