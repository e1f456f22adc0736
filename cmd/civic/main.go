package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/abelbrown/civic/internal/api"
	"github.com/abelbrown/civic/internal/config"
	"github.com/abelbrown/civic/internal/coord"
	"github.com/abelbrown/civic/internal/entities"
	"github.com/abelbrown/civic/internal/history"
	"github.com/abelbrown/civic/internal/logging"
	"github.com/abelbrown/civic/internal/otel"
	"github.com/abelbrown/civic/internal/research"
	"github.com/abelbrown/civic/internal/selection"
	"github.com/abelbrown/civic/internal/store"
	"github.com/abelbrown/civic/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "civic: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	logger, closeLog, err := logging.New(logging.Options{Path: cfg.LogPath(), Level: cfg.Log.Level})
	if err != nil {
		return err
	}
	defer closeLog()

	// Event log: JSONL to file, ring buffer for the debug overlay
	eventFile, err := os.OpenFile(cfg.EventsPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer eventFile.Close()
	events := otel.NewLogger(eventFile)
	defer func() {
		if n := events.Close(); n > 0 {
			logger.Warn("events dropped", zap.Uint64("count", n), zap.String("run", events.RunID()))
		}
	}()
	ring := otel.NewRingBuffer(512)
	events.SetRingBuffer(ring)

	events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindStartup, Comp: "main", Msg: cfg.API.BaseURL})
	logger.Info("starting", zap.String("api", cfg.API.BaseURL), zap.String("run", events.RunID()), zap.Bool("guest", cfg.API.Token == ""))

	// Open store
	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return err
	}
	defer st.Close()

	recent := history.New(st)
	if err := recent.Load(); err != nil {
		logger.Warn("load search history", zap.Error(err))
	}

	client := api.New(cfg.API.BaseURL,
		api.WithTimeout(cfg.Timeout()),
		api.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst),
		api.WithLogger(logger.Named("api")),
	)

	snapshot := entities.New(client.Entities(), logger.Named("entities"))

	reg := prometheus.NewRegistry()
	orch := research.New(research.Deps{
		Sessions: client.Sessions(),
		Reports:  client.Reports(),
		Entities: snapshot,
		Log:      logger.Named("research"),
		Events:   events,
		Metrics:  research.NewMetrics(reg),
	})
	defer orch.Close()

	sel := selection.New()
	if m, ok := selection.ParseMode(cfg.UI.Mode); ok {
		sel.SetMode(m)
	}

	app := ui.NewApp(ui.Deps{
		Entities:  snapshot,
		Research:  orch,
		Selection: sel,
		History:   recent,
		Events:    events,
		Ring:      ring,
		Token:     cfg.API.Token,
		Role:      cfg.UI.DefaultRole,
		Limit:     cfg.UI.ResultLimit,
	})
	defer app.Close()

	stopMetrics := serveMetrics(cfg.Metrics.Addr, newMetricsRouter(reg, snapshot, events.RunID()), logger)
	defer stopMetrics()

	// Create program
	program := tea.NewProgram(app, tea.WithAltScreen())

	// Background refresh
	coordinator := coord.New(snapshot, coord.Options{
		EntityInterval:  cfg.RefreshInterval(),
		SessionInterval: cfg.RefreshInterval(),
		MaxRetries:      cfg.Refresh.MaxRetries,
		FetchTimeout:    cfg.Timeout(),
	}, logger.Named("coord"), events)
	coordinator.Start(ctx, program)

	// Run UI (blocks until quit)
	_, runErr := program.Run()

	// Graceful shutdown
	cancel()
	coordinator.Wait()
	events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindShutdown, Comp: "main"})
	logMetrics(reg, logger)

	if runErr != nil {
		return fmt.Errorf("run program: %w", runErr)
	}
	return nil
}
