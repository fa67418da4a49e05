package alert

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/angola-gov/vigilancia/internal/audit"
	"github.com/angola-gov/vigilancia/internal/shared/auth"
	"github.com/angola-gov/vigilancia/internal/shared/errors"
)

// Handler provides HTTP handlers for public health alerts
type Handler struct {
	repo     *Repository
	recorder *audit.Recorder
}

// NewHandler creates a new alert handler
func NewHandler(repo *Repository, recorder *audit.Recorder) *Handler {
	return &Handler{repo: repo, recorder: recorder}
}

// AdminRoutes registers the alert management routes.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListAll)
	r.Post("/", h.Create)
	r.Put("/{alertID}", h.Update)
	r.Delete("/{alertID}", h.Delete)

	return r
}

// ListActive returns the public alert board.
func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.repo.ListActive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": alerts})
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.repo.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": alerts})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if violations := in.Validate(); len(violations) > 0 {
		writeError(w, errors.Validation("alert data is invalid", violations))
		return
	}

	user := auth.GetUser(r.Context())
	if user == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	a := New(in, user.ID)
	if err := h.repo.Create(r.Context(), a); err != nil {
		writeError(w, err)
		return
	}

	h.record(r, "alert.created", a)
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "alertID"), 10, 64)
	if err != nil {
		writeError(w, errors.BadRequest("invalid alert ID"))
		return
	}

	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if violations := in.Validate(); len(violations) > 0 {
		writeError(w, errors.Validation("alert data is invalid", violations))
		return
	}

	a, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	a.ApplyInput(in)
	if err := h.repo.Update(r.Context(), a); err != nil {
		writeError(w, err)
		return
	}

	h.record(r, "alert.updated", a)
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "alertID"), 10, 64)
	if err != nil {
		writeError(w, errors.BadRequest("invalid alert ID"))
		return
	}

	a, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	h.record(r, "alert.deleted", a)
	writeJSON(w, http.StatusOK, map[string]string{"message": "alert deleted"})
}

func (h *Handler) record(r *http.Request, action string, a *Alert) {
	user := auth.GetUser(r.Context())
	if user == nil {
		return
	}
	h.recorder.Record(audit.Entry{
		Action:     action,
		ActorID:    user.ID,
		ActorEmail: user.Email,
		ActorRole:  user.Role,
		Resource:   "alert",
		ResourceID: fmt.Sprintf("%d", a.ID),
		Fields: map[string]interface{}{
			"severity": a.Severity,
		},
	})
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
