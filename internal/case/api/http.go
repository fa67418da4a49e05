package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/angola-gov/vigilancia/internal/case/domain"
	"github.com/angola-gov/vigilancia/internal/case/service"
	"github.com/angola-gov/vigilancia/internal/shared/auth"
	"github.com/angola-gov/vigilancia/internal/shared/errors"
)

// Handler provides HTTP handlers for the case module
type Handler struct {
	svc *service.Service
}

// NewHandler creates a new case handler
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes registers the authenticated case routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListCases)
	r.Post("/", h.CreateCase)

	r.Route("/{caseID}", func(r chi.Router) {
		r.Get("/", h.GetCase)
		r.Put("/", h.UpdateCase)
		r.Delete("/", h.DeleteCase)
	})

	return r
}

func parseFilter(r *http.Request) domain.ListFilter {
	q := r.URL.Query()

	filter := domain.ListFilter{
		Province: q.Get("province"),
		Search:   q.Get("search"),
	}

	if v := q.Get("disease_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.DiseaseID = &id
		}
	}
	if v := q.Get("status"); v != "" {
		status := domain.CaseStatus(v)
		filter.Status = &status
	}
	if v := q.Get("start_date"); v != "" {
		if d, err := domain.ParseDate(v); err == nil {
			filter.StartDate = &d
		}
	}
	if v := q.Get("end_date"); v != "" {
		if d, err := domain.ParseDate(v); err == nil {
			filter.EndDate = &d
		}
	}
	if v := q.Get("page"); v != "" {
		if page, err := strconv.Atoi(v); err == nil {
			filter.Page = page
		}
	}
	if v := q.Get("per_page"); v != "" {
		if perPage, err := strconv.Atoi(v); err == nil {
			filter.PerPage = perPage
		}
	}

	return filter
}

func (h *Handler) ListCases(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.List(r.Context(), parseFilter(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) GetCase(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "caseID"), 10, 64)
	if err != nil {
		writeError(w, errors.BadRequest("invalid case ID"))
		return
	}

	details, err := h.svc.GetWithDetails(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *Handler) CreateCase(w http.ResponseWriter, r *http.Request) {
	var in domain.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	user := auth.GetUser(r.Context())
	if user == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	c, err := h.svc.Create(r.Context(), *user, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) UpdateCase(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "caseID"), 10, 64)
	if err != nil {
		writeError(w, errors.BadRequest("invalid case ID"))
		return
	}

	var in domain.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	user := auth.GetUser(r.Context())
	if user == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	c, err := h.svc.Update(r.Context(), *user, id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) DeleteCase(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "caseID"), 10, 64)
	if err != nil {
		writeError(w, errors.BadRequest("invalid case ID"))
		return
	}

	user := auth.GetUser(r.Context())
	if user == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	if err := h.svc.Delete(r.Context(), *user, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "case deleted"})
}

// PublicVerify resolves a patient code without authentication.
func (h *Handler) PublicVerify(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		writeError(w, errors.BadRequest("missing patient code"))
		return
	}

	result, err := h.svc.PublicVerify(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
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
