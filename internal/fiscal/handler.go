package fiscal

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/facturly/facturly/internal/platform/httpx"
)

var errorMappings = []httpx.Mapping{
	{Err: ErrUserNotFound, Status: http.StatusNotFound, Title: "User Not Found"},
	{Err: ErrNotMicroEntrepreneur, Status: http.StatusUnprocessableEntity, Title: "Not A Micro-Entrepreneur"},
	{Err: ErrMissingActivityType, Status: http.StatusUnprocessableEntity, Title: "Missing Activity Type"},
	{Err: ErrMissingFrequency, Status: http.StatusUnprocessableEntity, Title: "Missing Declaration Frequency"},
	{Err: ErrInvalidPeriod, Status: http.StatusUnprocessableEntity, Title: "Invalid Period"},
	{Err: ErrUnknownActivityType, Status: http.StatusUnprocessableEntity, Title: "Unknown Activity Type"},
	{Err: ErrNoRateSchedule, Status: http.StatusNotFound, Title: "No Rate Schedule"},
}

// Handler exposes fiscal summaries and rates.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers fiscal routes under the caller's prefix.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/users/{id}/fiscal-summary", h.summary)
	r.Get("/fiscal/rates", h.rates)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "User Not Found", "malformed user id")
		return
	}
	period, err := ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		h.fail(w, err)
		return
	}
	summary, err := h.service.ComputeSummary(r.Context(), userID, period)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

type ratesResponse struct {
	At    string                 `json:"at"`
	Rates map[ActivityType]Rates `json:"rates"`
}

func (h *Handler) rates(w http.ResponseWriter, r *http.Request) {
	at := h.service.now().UTC()
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			httpx.RespondError(w, errors.Join(httpx.ErrValidation, err))
			return
		}
		at = parsed
	}
	activities := []ActivityType{ActivityCommercant, ActivityPrestataire, ActivityLiberal}
	if raw := r.URL.Query().Get("type"); raw != "" {
		activity, err := ParseActivityType(raw)
		if err != nil {
			h.fail(w, err)
			return
		}
		activities = []ActivityType{activity}
	}
	resp := ratesResponse{At: at.Format(time.DateOnly), Rates: make(map[ActivityType]Rates, len(activities))}
	for _, activity := range activities {
		rates, err := h.service.RatesFor(activity, at)
		if err != nil {
			h.fail(w, err)
			return
		}
		resp.Rates[activity] = rates
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.Err) {
			httpx.RespondError(w, err, errorMappings...)
			return
		}
	}
	h.logger.Error("fiscal request failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}
