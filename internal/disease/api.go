package disease

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/angola-gov/vigilancia/internal/audit"
	"github.com/angola-gov/vigilancia/internal/shared/auth"
	"github.com/angola-gov/vigilancia/internal/shared/errors"
)

// Handler provides HTTP handlers for the disease catalogue
type Handler struct {
	repo     *Repository
	recorder *audit.Recorder
}

// NewHandler creates a new disease handler
func NewHandler(repo *Repository, recorder *audit.Recorder) *Handler {
	return &Handler{repo: repo, recorder: recorder}
}

// AdminRoutes registers the catalogue management routes.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListAll)
	r.Post("/", h.Create)
	r.Put("/{diseaseID}", h.Update)
	r.Delete("/{diseaseID}", h.Delete)

	return r
}

// ListActive returns the active catalogue for unauthenticated consumers.
func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	diseases, err := h.repo.ListActive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": diseases})
}

// Show returns one catalogue entry.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "diseaseID"), 10, 64)
	if err != nil {
		writeError(w, errors.BadRequest("invalid disease ID"))
		return
	}

	d, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	diseases, err := h.repo.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": diseases})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if violations := in.Validate(); len(violations) > 0 {
		writeError(w, errors.Validation("disease data is invalid", violations))
		return
	}

	d := New(in)
	if err := h.repo.Create(r.Context(), d); err != nil {
		writeError(w, err)
		return
	}

	h.record(r, "disease.created", d)
	writeJSON(w, http.StatusCreated, d)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "diseaseID"), 10, 64)
	if err != nil {
		writeError(w, errors.BadRequest("invalid disease ID"))
		return
	}

	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if violations := in.Validate(); len(violations) > 0 {
		writeError(w, errors.Validation("disease data is invalid", violations))
		return
	}

	d, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	d.ApplyInput(in)
	if err := h.repo.Update(r.Context(), d); err != nil {
		writeError(w, err)
		return
	}

	h.record(r, "disease.updated", d)
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "diseaseID"), 10, 64)
	if err != nil {
		writeError(w, errors.BadRequest("invalid disease ID"))
		return
	}

	d, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	h.record(r, "disease.deleted", d)
	writeJSON(w, http.StatusOK, map[string]string{"message": "disease deleted"})
}

func (h *Handler) record(r *http.Request, action string, d *Disease) {
	user := auth.GetUser(r.Context())
	if user == nil {
		return
	}
	h.recorder.Record(audit.Entry{
		Action:     action,
		ActorID:    user.ID,
		ActorEmail: user.Email,
		ActorRole:  user.Role,
		Resource:   "disease",
		ResourceID: d.Code,
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
