package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/live-subtitle/backend/internal/api"
	"github.com/live-subtitle/backend/internal/api/handlers"
	"github.com/live-subtitle/backend/internal/capture"
	"github.com/live-subtitle/backend/internal/db"
	"github.com/live-subtitle/backend/internal/job"
	"github.com/live-subtitle/backend/internal/notify"
	"github.com/live-subtitle/backend/internal/pages"
	"github.com/live-subtitle/backend/internal/timer"
	"github.com/live-subtitle/backend/internal/transcribe"
	"github.com/live-subtitle/backend/internal/translate"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataPath, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	database, err := db.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer database.Close()

	geminiModel := func() string {
		if m := database.GetSetting(handlers.GeminiModelKey, ""); m != "" {
			return m
		}
		return cfg.GeminiModel
	}
	translator := translate.NewService(cfg.TranslateOptions(geminiModel))

	hub := pages.NewHub()
	coord := capture.NewCoordinator(hub, translator, database, database.LoadCaptureSettings(cmd.Context()))
	hub.OnTabClosed(coord.TabClosed)

	queue := job.NewQueue(database.DB(), database)
	if cfg.OpenAIKey != "" {
		queue.RegisterHandler(job.JobTranscribe, transcribe.NewWhisper(cfg.OpenAIKey, cfg.MediaPath).HandleJob)
		log.Printf("[transcribe] registered OpenAI Whisper handler")
	}

	// Poll a remote backend when one is configured, else this relay's queue.
	var (
		statusClient job.StatusClient = queue
		store        notify.Store     = database.NotificationStore()
	)
	if cfg.BackendURL != "" {
		statusClient = job.NewHTTPStatusClient(cfg.BackendURL)
		store = notify.NewStoreClient(cfg.BackendURL)
		log.Printf("[monitor] polling backend at %s", cfg.BackendURL)
	}
	bus := notify.NewBus(store)
	bus.Subscribe(func(n notify.Notification) {
		log.Printf("[notify] %s: %s: %s", n.Kind, n.Title, n.Message)
	})
	monitor := job.NewMonitor(statusClient, bus, timer.Real{}, cfg.Poll)

	if _, err := bus.FetchPersisted(cmd.Context()); err != nil {
		log.Printf("[notify] WARNING: %v", err)
	}

	router := api.NewRouter(api.Services{
		Config:      cfg,
		DB:          database,
		Hub:         hub,
		Coordinator: coord,
		Queue:       queue,
		Monitor:     monitor,
		Bus:         bus,
		Engine:      translator.Engine(),
	})
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Starting server on %s", srv.Addr)
		log.Printf("Media path: %s", cfg.MediaPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		coord.Suspend(shutdownCtx)
		monitor.Close()
		hub.Close()
		queue.Stop()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
