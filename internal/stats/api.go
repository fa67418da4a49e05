package stats

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/angola-gov/vigilancia/internal/shared/errors"
)

// Handler provides HTTP handlers for epidemiological statistics
type Handler struct {
	svc *Service
}

// NewHandler creates a new stats handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes registers the statistics routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/dashboard", h.Dashboard)
	r.Get("/by-disease", h.ByDisease)
	r.Get("/by-province", h.ByProvince)
	r.Get("/by-status", h.ByStatus)
	r.Get("/by-gender", h.ByGender)
	r.Get("/by-age", h.ByAgeGroup)
	r.Get("/timeline", h.Timeline)
	r.Get("/geographic", h.Geographic)

	return r
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.svc.Dashboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (h *Handler) ByDisease(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.ByDisease(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": counts})
}

func (h *Handler) ByProvince(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.ByProvince(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": counts})
}

func (h *Handler) ByStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.ByStatus(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": counts})
}

func (h *Handler) ByGender(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.ByGender(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": counts})
}

func (h *Handler) ByAgeGroup(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.ByAgeGroup(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": counts})
}

func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, errors.BadRequest("days must be an integer"))
			return
		}
		days = parsed
	}

	points, err := h.svc.Timeline(r.Context(), days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": points})
}

func (h *Handler) Geographic(w http.ResponseWriter, r *http.Request) {
	points, err := h.svc.Geographic(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": points})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
