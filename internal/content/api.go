package content

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/angola-gov/vigilancia/internal/audit"
	"github.com/angola-gov/vigilancia/internal/shared/auth"
	"github.com/angola-gov/vigilancia/internal/shared/errors"
)

// Handler provides HTTP handlers for educational content
type Handler struct {
	repo     *Repository
	recorder *audit.Recorder
}

// NewHandler creates a new content handler
func NewHandler(repo *Repository, recorder *audit.Recorder) *Handler {
	return &Handler{repo: repo, recorder: recorder}
}

// AdminRoutes registers the content management routes.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListAll)
	r.Post("/", h.Create)
	r.Put("/{contentID}", h.Update)
	r.Delete("/{contentID}", h.Delete)

	return r
}

// PublicRoutes registers the unauthenticated reading routes.
func (h *Handler) PublicRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListPublished)
	r.Get("/{slug}", h.ShowBySlug)

	return r
}

func (h *Handler) ListPublished(w http.ResponseWriter, r *http.Request) {
	contentType := ContentType(r.URL.Query().Get("type"))
	if contentType != "" && !ValidType(contentType) {
		writeError(w, errors.BadRequest("unknown content type"))
		return
	}

	entries, err := h.repo.ListPublished(r.Context(), contentType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": entries})
}

func (h *Handler) ShowBySlug(w http.ResponseWriter, r *http.Request) {
	c, err := h.repo.FindPublishedBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	entries, err := h.repo.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": entries})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if violations := in.Validate(); len(violations) > 0 {
		writeError(w, errors.Validation("content data is invalid", violations))
		return
	}

	user := auth.GetUser(r.Context())
	if user == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	c := New(in, user.ID)
	if err := h.repo.Create(r.Context(), c); err != nil {
		writeError(w, err)
		return
	}

	h.record(r, "content.created", c)
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "contentID"), 10, 64)
	if err != nil {
		writeError(w, errors.BadRequest("invalid content ID"))
		return
	}

	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if violations := in.Validate(); len(violations) > 0 {
		writeError(w, errors.Validation("content data is invalid", violations))
		return
	}

	c, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	c.ApplyInput(in)
	if err := h.repo.Update(r.Context(), c); err != nil {
		writeError(w, err)
		return
	}

	h.record(r, "content.updated", c)
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "contentID"), 10, 64)
	if err != nil {
		writeError(w, errors.BadRequest("invalid content ID"))
		return
	}

	c, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	h.record(r, "content.deleted", c)
	writeJSON(w, http.StatusOK, map[string]string{"message": "content deleted"})
}

func (h *Handler) record(r *http.Request, action string, c *Content) {
	user := auth.GetUser(r.Context())
	if user == nil {
		return
	}
	h.recorder.Record(audit.Entry{
		Action:     action,
		ActorID:    user.ID,
		ActorEmail: user.Email,
		ActorRole:  user.Role,
		Resource:   "content",
		ResourceID: c.Slug,
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
