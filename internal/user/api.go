package user

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

// Handler provides HTTP handlers for account administration
type Handler struct {
	repo     *Repository
	recorder *audit.Recorder
}

// NewHandler creates a new user handler
func NewHandler(repo *Repository, recorder *audit.Recorder) *Handler {
	return &Handler{repo: repo, recorder: recorder}
}

// AdminRoutes registers the account management routes.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Put("/{userID}/role", h.UpdateRole)
	r.Delete("/{userID}", h.Delete)

	return r
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.repo.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": users})
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, errors.BadRequest("invalid user ID"))
		return
	}

	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if !ValidRole(req.Role) {
		writeError(w, errors.Validation("role is invalid", map[string]string{
			"role": "role must be one of admin, health_professional, public",
		}))
		return
	}

	actor := auth.GetUser(r.Context())
	if actor != nil && actor.ID == id {
		writeError(w, errors.Conflict("administrators cannot change their own role"))
		return
	}

	if err := h.repo.UpdateRole(r.Context(), id, req.Role); err != nil {
		writeError(w, err)
		return
	}

	h.record(r, "user.role_changed", id, map[string]interface{}{"role": req.Role})
	writeJSON(w, http.StatusOK, map[string]string{"message": "role updated"})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, errors.BadRequest("invalid user ID"))
		return
	}

	actor := auth.GetUser(r.Context())
	if actor != nil && actor.ID == id {
		writeError(w, errors.Conflict("administrators cannot delete their own account"))
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	h.record(r, "user.deleted", id, nil)
	writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

func (h *Handler) record(r *http.Request, action string, targetID int64, fields map[string]interface{}) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		return
	}
	h.recorder.Record(audit.Entry{
		Action:     action,
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		ActorRole:  actor.Role,
		Resource:   "user",
		ResourceID: fmt.Sprintf("%d", targetID),
		Fields:     fields,
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
