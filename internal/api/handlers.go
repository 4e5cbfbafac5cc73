package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/yegors/preflight/internal/airports"
	"github.com/yegors/preflight/internal/auth"
	"github.com/yegors/preflight/internal/briefing"
	"github.com/yegors/preflight/internal/config"
	"github.com/yegors/preflight/internal/notify"
	"github.com/yegors/preflight/internal/storage/sqlite"
	"github.com/yegors/preflight/pkg/logger"
)

const maxSearchLimit = 50

// FlightStore persists saved flights
type FlightStore interface {
	Create(ctx context.Context, flight *sqlite.Flight) error
	ListByUser(ctx context.Context, userID string) ([]*sqlite.Flight, error)
	Get(ctx context.Context, userID, id string) (*sqlite.Flight, error)
	Delete(ctx context.Context, userID, id string) error
}

// Briefer computes briefings
type Briefer interface {
	Analyze(ctx context.Context, codes []string) (*briefing.Briefing, error)
	ForFlight(ctx context.Context, flight briefing.RouteSource) (*briefing.Briefing, error)
}

// AirportDirectory answers airport lookups
type AirportDirectory interface {
	Lookup(code string) (*airports.Airport, error)
	Search(query string, limit int) []*airports.Airport
	Validate(codes []string) []string
	Count() int
}

// Notifier queues toasts for users
type Notifier interface {
	Push(userID, level, message string) notify.Toast
	Active(userID string) []notify.Toast
	Dismiss(userID, id string) error
}

// Handler contains the API handlers
type Handler struct {
	flights  FlightStore
	briefer  Briefer
	airports AirportDirectory
	notifier Notifier
	schemas  *schemas
	config   *config.Config
	logger   *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(flights FlightStore, briefer Briefer, directory AirportDirectory, notifier Notifier, cfg *config.Config, log *logger.Logger) (*Handler, error) {
	s, err := newSchemas(cfg.Briefing.MaxWaypoints)
	if err != nil {
		return nil, err
	}
	return &Handler{
		flights:  flights,
		briefer:  briefer,
		airports: directory,
		notifier: notifier,
		schemas:  s,
		config:   cfg,
		logger:   log.Named("api-handler"),
	}, nil
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeError maps domain errors to status codes
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var unknown *briefing.UnknownAirportError
	switch {
	case errors.As(err, &unknown):
		WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error":   err.Error(),
			"unknown": unknown.Codes,
		})
		return
	case errors.Is(err, briefing.ErrTooFewAirports):
		status = http.StatusBadRequest
	case errors.Is(err, sqlite.ErrNotFound), errors.Is(err, notify.ErrNotFound), errors.Is(err, airports.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, briefing.ErrWeatherUnavailable):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Error(err))
	}
	WriteJSON(w, status, map[string]string{"error": err.Error()})
}

func currentUser(r *http.Request) auth.User {
	u, _ := auth.UserFrom(r.Context())
	return u
}

// GetHealth reports the service status and which integrations are configured
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"weather_configured": h.config.Weather.APIBaseURL != "",
		"ai_configured":      h.config.AIConfigured(),
		"ai_provider":        h.config.AI.Provider,
		"auth_disabled":      h.config.Auth.Disabled,
		"airports":           h.airports.Count(),
		"fetch_metar":        h.config.Weather.FetchMETAR,
		"fetch_taf":          h.config.Weather.FetchTAF,
		"fetch_notams":       h.config.Weather.FetchNOTAMs,
		"fetch_pireps":       h.config.Weather.FetchPIREPs,
	})
}

// GetAuthConfig returns the public settings the browser auth client needs
func (h *Handler) GetAuthConfig(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"supabase_url":      h.config.Auth.SupabaseURL,
		"supabase_anon_key": h.config.Auth.SupabaseAnonKey,
		"auth_disabled":     h.config.Auth.Disabled,
	})
}

// GetSession returns the authenticated user
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"user": currentUser(r)})
}

// SearchAirports implements search-as-you-type
func (h *Handler) SearchAirports(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	limit := h.config.Airports.SearchDefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxSearchLimit)
	}

	results := []*airports.Airport{}
	if query != "" {
		results = h.airports.Search(query, limit)
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"query":    query,
		"airports": results,
	})
}

// GetAirport returns one airport by ICAO or IATA code
func (h *Handler) GetAirport(w http.ResponseWriter, r *http.Request) {
	a, err := h.airports.Lookup(chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, a)
}

// GetNotifications returns the caller's active toasts
func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"notifications": h.notifier.Active(currentUser(r).ID),
	})
}

// DismissNotification removes one toast
func (h *Handler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	if err := h.notifier.Dismiss(currentUser(r).ID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
