package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/medbook-ai/booking-assistant/internal/chat"
	"github.com/medbook-ai/booking-assistant/internal/http/handlers"
	httpmiddleware "github.com/medbook-ai/booking-assistant/internal/http/middleware"
	"github.com/medbook-ai/booking-assistant/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger        *logging.Logger
	ChatHandler   *chat.Handler
	AdminAuth     *handlers.AdminAuthHandler
	AdminBookings *handlers.AdminBookingsHandler
	Knowledge     *handlers.KnowledgeHandler

	AdminJWTSecret     string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Chat rate limiting, keyed by conversation id or client IP.
	ChatRatePerSecond float64
	ChatRateBurst     int
}

// Login throttling: a burst of five tries, refilling one every twelve
// seconds.
const (
	loginRatePerSecond = 5.0 / 60
	loginBurst         = 5
)

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/healthz", healthz)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		if cfg.ChatHandler != nil {
			public.Route("/chat", func(c chi.Router) {
				if cfg.ChatRatePerSecond > 0 {
					c.Use(httpmiddleware.RateLimit(cfg.ChatRatePerSecond, cfg.ChatRateBurst))
				}
				c.Get("/ws", cfg.ChatHandler.HandleWebSocket)
				c.Post("/start", cfg.ChatHandler.HandleStart)
				c.Post("/message", cfg.ChatHandler.HandleMessage)
				c.Get("/history", cfg.ChatHandler.HandleHistory)
			})
			public.Get("/widget.js", cfg.ChatHandler.HandleWidgetJS)
		}

		if cfg.AdminAuth != nil {
			// Five attempts per minute per IP against the shared password.
			public.With(httpmiddleware.LoginRateLimit(loginRatePerSecond, loginBurst)).
				Post("/admin/login", cfg.AdminAuth.Login)
		}
	})

	// Admin routes protected by JWT
	if cfg.AdminJWTSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminJWTSecret, cfg.Logger))

			if cfg.AdminBookings != nil {
				admin.Get("/bookings", cfg.AdminBookings.ListBookings)
				admin.Get("/bookings/stats", cfg.AdminBookings.Stats)
				admin.Get("/bookings/export", cfg.AdminBookings.ExportCSV)
				admin.Get("/bookings/{bookingID}", cfg.AdminBookings.GetBooking)
				admin.Patch("/bookings/{bookingID}/status", cfg.AdminBookings.UpdateStatus)
			}
			if cfg.Knowledge != nil {
				admin.Get("/knowledge/documents", cfg.Knowledge.ListDocuments)
				admin.Post("/knowledge/documents", cfg.Knowledge.IngestDocument)
			}
		})
	}

	return r
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
