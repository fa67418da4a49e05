package user

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRegisterInputValidate(t *testing.T) {
	valid := RegisterInput{Name: "Ana Sousa", Email: "ana@example.com", Password: "correct-horse"}
	if violations := valid.Validate(); len(violations) != 0 {
		t.Errorf("Expected valid input, got %v", violations)
	}

	tests := []struct {
		name  string
		input RegisterInput
		field string
	}{
		{"missing name", RegisterInput{Email: "a@b.c", Password: "12345678"}, "name"},
		{"missing email", RegisterInput{Name: "n", Password: "12345678"}, "email"},
		{"malformed email", RegisterInput{Name: "n", Email: "not-an-address", Password: "12345678"}, "email"},
		{"short password", RegisterInput{Name: "n", Email: "a@b.c", Password: "1234567"}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := tt.input.Validate()[tt.field]; !ok {
				t.Errorf("Expected violation for %q", tt.field)
			}
		})
	}
}

func TestValidRole(t *testing.T) {
	for _, role := range []string{"admin", "health_professional", "public"} {
		if !ValidRole(role) {
			t.Errorf("Expected %q to be valid", role)
		}
	}
	if ValidRole("superuser") {
		t.Error("Expected unknown role to be rejected")
	}
}

func TestUserJSONHidesPasswordHash(t *testing.T) {
	u := User{ID: 1, Name: "Ana", Email: "ana@example.com", PasswordHash: "$2a$10$hash", Role: "public"}

	raw, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if strings.Contains(string(raw), "$2a$10$hash") {
		t.Error("Expected password hash excluded from JSON")
	}
}
