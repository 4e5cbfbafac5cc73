package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/yegors/preflight/internal/auth"
	"github.com/yegors/preflight/internal/config"
	"github.com/yegors/preflight/pkg/logger"
)

// Router wires handlers, auth and static files together
type Router struct {
	handler  *Handler
	verifier *auth.Verifier
	ws       http.HandlerFunc
	static   http.Handler
	config   *config.Config
	logger   *logger.Logger
}

// NewRouter creates the API router. ws serves /ws and may be nil.
func NewRouter(handler *Handler, verifier *auth.Verifier, ws http.HandlerFunc, cfg *config.Config, log *logger.Logger) *Router {
	r := &Router{
		handler:  handler,
		verifier: verifier,
		ws:       ws,
		config:   cfg,
		logger:   log.Named("router"),
	}
	if cfg.Server.StaticFilesDir != "" {
		r.static = NewStaticFileHandler(cfg.Server.StaticFilesDir, log)
	}
	return r
}

// Routes returns the HTTP handler
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(rt.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(rt.config.Server.CORSAllowedOrigins))
	r.Use(rt.verifier.Middleware)

	h := rt.handler
	r.Get("/api/health", h.GetHealth)
	r.Get("/api/auth/config", h.GetAuthConfig)
	r.Get("/api/airports/search", h.SearchAirports)
	r.Get("/api/airports/{code}", h.GetAirport)
	r.Post("/analyze-route", h.PostBriefing)

	r.Group(func(r chi.Router) {
		r.Use(auth.Required)

		r.Get("/api/auth/session", h.GetSession)

		r.Route("/api/flights", func(r chi.Router) {
			r.Get("/", h.ListFlights)
			r.Post("/", h.CreateFlight)
			r.Get("/{id}", h.GetFlight)
			r.Delete("/{id}", h.DeleteFlight)
			r.Get("/{id}/briefing", h.GetFlightBriefing)
		})

		r.Post("/api/briefing", h.PostBriefing)
		r.Get("/api/fatigue", h.GetFatigue)
		r.Get("/api/notifications", h.GetNotifications)
		r.Delete("/api/notifications/{id}", h.DismissNotification)
	})

	if rt.ws != nil {
		r.Get("/ws", rt.ws)
	}
	if rt.static != nil {
		r.Handle("/*", rt.static)
	}
	return r
}

func (rt *Router) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if !strings.HasPrefix(r.URL.Path, "/api") && r.URL.Path != "/analyze-route" {
			return
		}
		rt.logger.Debug("Request served",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", ww.Status()),
			logger.Int("bytes", ww.BytesWritten()),
			logger.Duration("duration", time.Since(start)),
			logger.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// corsMiddleware answers preflight requests and tags responses for allowed origins; "*" allows any
func corsMiddleware(allowed []string) func(http.Handler) http.Handler {
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		origins[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (origins["*"] || origins[origin]) {
				hdr := w.Header()
				hdr.Set("Access-Control-Allow-Origin", origin)
				hdr.Set("Access-Control-Allow-Credentials", "true")
				hdr.Add("Vary", "Origin")
				if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
					hdr.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
					hdr.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
					hdr.Set("Access-Control-Max-Age", strconv.Itoa(600))
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
