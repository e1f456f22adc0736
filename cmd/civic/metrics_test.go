package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/abelbrown/civic/internal/model"
	"github.com/abelbrown/civic/internal/research"
)

type fixedEntities []model.Entity

func (f fixedEntities) All() []model.Entity { return f }

func TestMetricsRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	research.NewMetrics(reg)
	srv := httptest.NewServer(newMetricsRouter(reg, fixedEntities{{ID: "1"}, {ID: "2"}}, "run-1"))
	defer srv.Close()

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("healthz", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()

		var body struct {
			Status   string `json:"status"`
			Run      string `json:"run"`
			Entities int    `json:"entities"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, "run-1", body.Run)
		assert.Equal(t, 2, body.Entities)
	})

	t.Run("wrong method", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/metrics", "text/plain", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestServeMetricsDisabled(t *testing.T) {
	stop := serveMetrics("", http.NotFoundHandler(), zap.NewNop())
	stop()
}

func TestLogMetricsDoesNotPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	research.NewMetrics(reg)
	logMetrics(reg, zap.NewNop())
}
