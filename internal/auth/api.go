// Package auth exposes the registration and login endpoints.
package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/angola-gov/vigilancia/internal/audit"
	"github.com/angola-gov/vigilancia/internal/shared/auth"
	"github.com/angola-gov/vigilancia/internal/shared/config"
	"github.com/angola-gov/vigilancia/internal/shared/errors"
	"github.com/angola-gov/vigilancia/internal/user"
)

// Handler provides HTTP handlers for authentication
type Handler struct {
	cfg      config.AuthConfig
	users    *user.Repository
	recorder *audit.Recorder
}

// NewHandler creates a new auth handler
func NewHandler(cfg config.AuthConfig, users *user.Repository, recorder *audit.Recorder) *Handler {
	return &Handler{cfg: cfg, users: users, recorder: recorder}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	User      user.User `json:"user"`
}

// Register creates a public account and returns an access token.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in user.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if violations := in.Validate(); len(violations) > 0 {
		writeError(w, errors.Validation("registration data is invalid", violations))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, errors.Internal(err))
		return
	}

	u := &user.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         auth.RolePublic,
		Phone:        in.Phone,
		Institution:  in.Institution,
	}
	if err := h.users.Create(r.Context(), u); err != nil {
		writeError(w, err)
		return
	}

	h.recorder.Record(audit.Entry{
		Action:     "auth.registered",
		ActorID:    u.ID,
		ActorEmail: u.Email,
		ActorRole:  u.Role,
		Resource:   "user",
		ResourceID: u.Email,
	})

	h.issue(w, http.StatusCreated, u)
}

// Login verifies credentials and returns an access token. Unknown emails and
// wrong passwords produce the same response.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	u, err := h.users.FindByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, errors.Unauthorized("invalid credentials"))
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, errors.Unauthorized("invalid credentials"))
		return
	}

	h.recorder.Record(audit.Entry{
		Action:     "auth.logged_in",
		ActorID:    u.ID,
		ActorEmail: u.Email,
		ActorRole:  u.Role,
		Resource:   "user",
		ResourceID: u.Email,
	})

	h.issue(w, http.StatusOK, u)
}

// Me returns the authenticated account.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	u, err := h.users.FindByID(r.Context(), actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) issue(w http.ResponseWriter, status int, u *user.User) {
	now := time.Now()
	token, err := auth.IssueToken(h.cfg, u.AuthUser(), now)
	if err != nil {
		writeError(w, errors.Internal(err))
		return
	}

	writeJSON(w, status, tokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: now.Add(h.cfg.TokenTTL),
		User:      *u,
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
