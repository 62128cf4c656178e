package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/live-subtitle/backend/internal/api/handlers"
	"github.com/live-subtitle/backend/internal/api/middleware"
	"github.com/live-subtitle/backend/internal/capture"
	"github.com/live-subtitle/backend/internal/config"
	"github.com/live-subtitle/backend/internal/db"
	"github.com/live-subtitle/backend/internal/job"
	"github.com/live-subtitle/backend/internal/notify"
	"github.com/live-subtitle/backend/internal/pages"
)

const maxMessageSize = 1 << 20

// Services are the components the HTTP surface routes to
type Services struct {
	Config      *config.Config
	DB          *db.Database
	Hub         *pages.Hub
	Coordinator *capture.Coordinator
	Queue       *job.Queue
	Monitor     *job.Monitor
	Bus         *notify.Bus
	Engine      string
}

func NewRouter(s Services) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(middleware.CORSHandler(s.Config.CORSOrigins)))

	handle := pages.HandlerFunc(s.Coordinator.Handle)

	// Handlers
	healthHandler := handlers.NewHealthHandler(s.DB)
	runtimeHandler := handlers.NewRuntimeHandler(handle)
	tabsHandler := handlers.NewTabsHandler(s.Hub, handle)
	jobHandler := handlers.NewJobHandler(s.Queue, s.Monitor)
	monitorHandler := handlers.NewMonitorHandler(s.Monitor)
	notificationsHandler := handlers.NewNotificationsHandler(s.DB, s.Bus)
	settingsHandler := handlers.NewSettingsHandler(s.Coordinator, s.DB, s.Engine, s.Config.GeminiModel)
	geminiHandler := handlers.NewGeminiModelsHandler(s.Config.GeminiKey)

	enqueueLimiter := middleware.NewRateLimiter(30, time.Minute)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)

		// Long-lived tab connections
		r.Get("/tabs", tabsHandler.ListTabs)
		r.Get("/tabs/{tabID}/directives", tabsHandler.Directives)
		r.Post("/tabs/{tabID}/port", tabsHandler.Port)
		r.Post("/tabs/{tabID}/activate", tabsHandler.Activate)

		r.Group(func(r chi.Router) {
			r.Use(middleware.MaxBodySize(maxMessageSize))

			r.Post("/runtime/message", runtimeHandler.Message)

			// Jobs
			r.Get("/jobs", jobHandler.ListJobs)
			r.With(enqueueLimiter.Handler).Post("/jobs", jobHandler.Enqueue)
			r.Get("/jobs/monitored", monitorHandler.Active)
			r.Get("/jobs/{id}", jobHandler.GetJob)
			r.Delete("/jobs/{id}", jobHandler.CancelJob)
			r.Post("/jobs/{id}/retry", jobHandler.RetryJob)
			r.Get("/jobs/{id}/status", jobHandler.Status)
			r.Post("/jobs/{id}/watch", monitorHandler.Watch)
			r.Delete("/jobs/{id}/watch", monitorHandler.Unwatch)

			// Notifications
			r.Get("/notifications", notificationsHandler.List)
			r.Post("/notifications/mark-read", notificationsHandler.MarkRead)
			r.Get("/notifications/feed", notificationsHandler.Feed)
			r.Post("/notifications/feed/refresh", notificationsHandler.RefreshFeed)
			r.Post("/notifications/feed/mark-read", notificationsHandler.MarkFeedRead)

			// Settings
			r.Get("/settings", settingsHandler.GetSettings)
			r.Put("/settings", settingsHandler.UpdateSettings)
			r.Put("/settings/translation", settingsHandler.UpdateTranslation)
			r.Get("/translate/gemini-models", geminiHandler.ListModels)
		})
	})

	return r
}
