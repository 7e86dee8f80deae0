package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"attendtrack/backend/internal/assistant"
	"attendtrack/backend/internal/cache"
	"attendtrack/backend/internal/gateway/handlers"
	"attendtrack/backend/internal/gateway/util"
	"attendtrack/backend/internal/identity"
	"attendtrack/backend/internal/notify"
	"attendtrack/backend/internal/records"
	"attendtrack/backend/internal/shared"
	"attendtrack/backend/internal/teacher"
)

// Deps are the constructed services the router binds handlers to.
type Deps struct {
	Config    *shared.AppConfig
	Verifier  identity.Verifier
	Teachers  *teacher.Service
	Records   *records.Service
	Notify    *notify.Client
	Assistant *assistant.Client
	Cache     *cache.SummaryCache
	// HealthCheck pings the persistence backend; nil means always healthy.
	HealthCheck func(ctx context.Context) error
}

// SetupRoutes configures the chi router, middleware and route handlers.
func SetupRoutes(deps *Deps) *chi.Mux {
	r := chi.NewRouter()

	// 1. Global Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(MetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Hub-Signature-256"},
		AllowCredentials: deps.Config.CORS.AllowCredentials,
		MaxAge:           deps.Config.CORS.MaxAge,
	}))

	// 2. Initialize Handlers
	teacherHandler := &handlers.TeacherHandler{Teachers: deps.Teachers, Cache: deps.Cache}
	recordsHandler := &handlers.RecordsHandler{Records: deps.Records, Cache: deps.Cache}
	reportsHandler := &handlers.ReportsHandler{Records: deps.Records, Cache: deps.Cache}
	notifyHandler := &handlers.NotifyHandler{Client: deps.Notify, Records: deps.Records, WebhookSecret: deps.Config.WhatsApp.WebhookSecret}
	assistantHandler := &handlers.AssistantHandler{Client: deps.Assistant}

	notifyLimiter := NewTokenBucket(deps.Config.RateLimitPerMin, deps.Config.RateLimitPerMin)

	// 3. Define Routes
	r.Get("/healthz", healthHandler(deps.HealthCheck, deps.Cache))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {

		// --- Public Routes ---
		r.Post("/webhooks/whatsapp", notifyHandler.Webhook)

		// --- Protected Routes (Require Valid Token) ---
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(deps.Verifier))

			r.Post("/auth/sync", teacherHandler.Sync)
			r.Get("/profile", teacherHandler.GetProfile)

			r.Post("/subjects", teacherHandler.CreateSubject)
			r.Get("/subjects", teacherHandler.ListSubjects)

			r.Route("/queue", func(r chi.Router) {
				r.Get("/", teacherHandler.GetQueue)
				r.Post("/", teacherHandler.Enqueue)
				r.Delete("/{id}", teacherHandler.Dequeue)
				r.Post("/{id}/attendance", teacherHandler.SubmitAttendance)
			})

			r.Route("/records", func(r chi.Router) {
				r.Get("/", recordsHandler.ListByDimensions)
				r.Get("/{id}", recordsHandler.GetRecord)
				r.Patch("/{id}", recordsHandler.UpdateRecord)
			})

			r.Get("/reports/summary", reportsHandler.GetSummary)

			r.Group(func(r chi.Router) {
				r.Use(notifyLimiter.Middleware)
				r.Post("/notify/send", notifyHandler.Send)
				r.Post("/notify/bulk", notifyHandler.SendBulk)
				r.Post("/notify/attendance", notifyHandler.AttendanceNotices)
			})

			r.Post("/assistant/ask", assistantHandler.Ask)
		})
	})

	return r
}

// healthHandler reports overall health. The store being down fails the check;
// the summary cache is advisory, so its state is reported but never fails it.
func healthHandler(check func(ctx context.Context) error, summaries *cache.SummaryCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if check != nil {
			if err := check(ctx); err != nil {
				util.WriteJSONError(w, http.StatusServiceUnavailable, "store unreachable")
				return
			}
		}

		cacheStatus := "disabled"
		if summaries != nil {
			cacheStatus = "unreachable"
			if summaries.Healthy(ctx) {
				cacheStatus = "ok"
			}
		}
		util.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "summary_cache": cacheStatus})
	}
}
