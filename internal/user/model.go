package user

import (
	"strings"
	"time"

	"github.com/angola-gov/vigilancia/internal/shared/auth"
)

// User is one platform account. The password hash never serializes.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Phone        *string   `json:"phone,omitempty"`
	Institution  *string   `json:"institution,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ValidRole reports whether role is one of the platform roles.
func ValidRole(role string) bool {
	switch role {
	case auth.RoleAdmin, auth.RoleHealthProfessional, auth.RolePublic:
		return true
	}
	return false
}

// RegisterInput is the field set for self-registration. Accounts are always
// created with the public role; elevation is an admin operation.
type RegisterInput struct {
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	Phone       *string `json:"phone"`
	Institution *string `json:"institution"`
}

// Validate returns per-field violations, empty when the input is well formed.
func (in RegisterInput) Validate() map[string]string {
	violations := make(map[string]string)

	if strings.TrimSpace(in.Name) == "" {
		violations["name"] = "name is required"
	} else if len(in.Name) > 255 {
		violations["name"] = "name must be at most 255 characters"
	}
	email := strings.TrimSpace(in.Email)
	if email == "" {
		violations["email"] = "email is required"
	} else if len(email) > 255 || !strings.Contains(email, "@") {
		violations["email"] = "email must be a valid address"
	}
	if len(in.Password) < 8 {
		violations["password"] = "password must be at least 8 characters"
	}
	if in.Phone != nil && len(*in.Phone) > 50 {
		violations["phone"] = "phone must be at most 50 characters"
	}
	if in.Institution != nil && len(*in.Institution) > 255 {
		violations["institution"] = "institution must be at most 255 characters"
	}

	return violations
}

// AuthUser converts to the shared authenticated-actor shape.
func (u *User) AuthUser() auth.User {
	return auth.User{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
