package disease

import (
	"strings"
	"time"
)

// Disease is one trackable condition in the surveillance catalogue.
type Disease struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description *string   `json:"description,omitempty"`
	Symptoms    *string   `json:"symptoms,omitempty"`
	Prevention  *string   `json:"prevention,omitempty"`
	Treatment   *string   `json:"treatment,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Input is the field set for creating or replacing a disease.
type Input struct {
	Name        string  `json:"name"`
	Code        string  `json:"code"`
	Description *string `json:"description"`
	Symptoms    *string `json:"symptoms"`
	Prevention  *string `json:"prevention"`
	Treatment   *string `json:"treatment"`
	IsActive    *bool   `json:"is_active"`
}

// Validate returns per-field violations, empty when the input is well formed.
func (in Input) Validate() map[string]string {
	violations := make(map[string]string)

	if strings.TrimSpace(in.Name) == "" {
		violations["name"] = "name is required"
	} else if len(in.Name) > 255 {
		violations["name"] = "name must be at most 255 characters"
	}
	if strings.TrimSpace(in.Code) == "" {
		violations["code"] = "code is required"
	} else if len(in.Code) > 32 {
		violations["code"] = "code must be at most 32 characters"
	}

	return violations
}

// New builds a disease from validated input. Codes are stored uppercase.
func New(in Input) *Disease {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	now := time.Now()
	return &Disease{
		Name:        in.Name,
		Code:        strings.ToUpper(strings.TrimSpace(in.Code)),
		Description: in.Description,
		Symptoms:    in.Symptoms,
		Prevention:  in.Prevention,
		Treatment:   in.Treatment,
		IsActive:    active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ApplyInput replaces the mutable fields from validated input.
func (d *Disease) ApplyInput(in Input) {
	d.Name = in.Name
	d.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	d.Description = in.Description
	d.Symptoms = in.Symptoms
	d.Prevention = in.Prevention
	d.Treatment = in.Treatment
	if in.IsActive != nil {
		d.IsActive = *in.IsActive
	}
	d.UpdatedAt = time.Now()
}
