package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/xeipuuv/gojsonschema"
	"github.com/yegors/preflight/internal/auth"
	"github.com/yegors/preflight/internal/briefing"
	"github.com/yegors/preflight/internal/fatigue"
	"github.com/yegors/preflight/internal/notify"
	"github.com/yegors/preflight/internal/storage/sqlite"
	"github.com/yegors/preflight/internal/templating"
	"github.com/yegors/preflight/pkg/logger"
)

const maxBodyBytes = 64 << 10

type createFlightRequest struct {
	Departure string     `json:"departure"`
	Arrival   string     `json:"arrival"`
	Waypoints []string   `json:"waypoints"`
	PlannedAt *time.Time `json:"planned_at"`
	Notes     string     `json:"notes"`
}

type briefingRequest struct {
	Airports []string `json:"airports"`
}

// readValidated reads the body and checks it against the schema, answering 400 on failure
func readValidated(w http.ResponseWriter, r *http.Request, schema *gojsonschema.Schema, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read request body"})
		return false
	}
	if errs := validate(schema, body); len(errs) > 0 {
		WriteJSON(w, http.StatusBadRequest, map[string][]string{"errors": errs})
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return false
	}
	return true
}

// ListFlights returns the caller's flights, newest first
func (h *Handler) ListFlights(w http.ResponseWriter, r *http.Request) {
	flights, err := h.flights.ListByUser(r.Context(), currentUser(r).ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"flights": flights})
}

// CreateFlight saves a new flight for the caller
func (h *Handler) CreateFlight(w http.ResponseWriter, r *http.Request) {
	var req createFlightRequest
	if !readValidated(w, r, h.schemas.flight, &req) {
		return
	}

	codes := briefing.NormalizeCodes(append(append([]string{req.Departure}, req.Waypoints...), req.Arrival))
	if unknown := h.airports.Validate(codes); len(unknown) > 0 {
		h.writeError(w, r, &briefing.UnknownAirportError{Codes: unknown})
		return
	}
	for i, c := range codes {
		a, err := h.airports.Lookup(c)
		if err != nil {
			h.writeError(w, r, &briefing.UnknownAirportError{Codes: []string{c}})
			return
		}
		codes[i] = a.ICAO
	}

	user := currentUser(r)
	flight := &sqlite.Flight{
		UserID:    user.ID,
		Departure: codes[0],
		Arrival:   codes[len(codes)-1],
		Waypoints: codes[1 : len(codes)-1],
		PlannedAt: req.PlannedAt,
		Notes:     req.Notes,
	}
	if err := h.flights.Create(r.Context(), flight); err != nil {
		h.notifier.Push(user.ID, notify.LevelError, "Failed to save flight")
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("Flight saved",
		logger.String("user_id", user.ID),
		logger.String("flight_id", flight.ID),
		logger.Strings("airports", flight.Airports()))
	h.notifier.Push(user.ID, notify.LevelSuccess,
		fmt.Sprintf("Flight %s saved", templating.FormatRoute(flight.Airports())))
	WriteJSON(w, http.StatusCreated, flight)
}

// GetFlight returns one of the caller's flights
func (h *Handler) GetFlight(w http.ResponseWriter, r *http.Request) {
	flight, err := h.flights.Get(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, flight)
}

// DeleteFlight removes one of the caller's flights
func (h *Handler) DeleteFlight(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if err := h.flights.Delete(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.notifier.Push(user.ID, notify.LevelInfo, "Flight deleted")
	w.WriteHeader(http.StatusNoContent)
}

// GetFlightBriefing briefs one of the caller's saved flights
func (h *Handler) GetFlightBriefing(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	flight, err := h.flights.Get(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	b, err := h.briefer.ForFlight(r.Context(), flight)
	if err != nil {
		h.notifier.Push(user.ID, notify.LevelError, "Briefing failed: "+err.Error())
		h.writeError(w, r, err)
		return
	}
	h.notifyBriefing(user.ID, b)
	WriteJSON(w, http.StatusOK, b)
}

// PostBriefing briefs an ad-hoc route
func (h *Handler) PostBriefing(w http.ResponseWriter, r *http.Request) {
	var req briefingRequest
	if !readValidated(w, r, h.schemas.briefing, &req) {
		return
	}

	b, err := h.briefer.Analyze(r.Context(), req.Airports)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if user, ok := auth.UserFrom(r.Context()); ok {
		h.notifyBriefing(user.ID, b)
	}
	WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) notifyBriefing(userID string, b *briefing.Briefing) {
	level := notify.LevelSuccess
	msg := fmt.Sprintf("Briefing ready for %s", templating.FormatRoute(b.Airports))
	switch {
	case len(b.Hazards) > 0:
		level = notify.LevelWarning
		msg = fmt.Sprintf("%s, %d hazard(s)", msg, len(b.Hazards))
	case len(b.FetchErrors) > 0:
		level = notify.LevelWarning
		msg += ", some weather unavailable"
	}
	h.notifier.Push(userID, level, msg)
}

// GetFatigue rates duty fatigue across the caller's planned flights
func (h *Handler) GetFatigue(w http.ResponseWriter, r *http.Request) {
	flights, err := h.flights.ListByUser(r.Context(), currentUser(r).ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	in := make([]fatigue.Flight, len(flights))
	for i, f := range flights {
		in[i] = fatigue.Flight{ID: f.ID, Departure: f.Departure, Arrival: f.Arrival, PlannedAt: f.PlannedAt}
	}
	WriteJSON(w, http.StatusOK, fatigue.Assess(in))
}
