package models

import (
	"strings"
	"unicode/utf8"

	"claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
)

const maxNameLength = 100

// CreatePolicyRequest is the body of POST /policy/add.
type CreatePolicyRequest struct {
	Name     string         `json:"name"`
	Premium  *domain.Amount `json:"premium"`
	Coverage *domain.Amount `json:"coverage"`
	OwnerID  *domain.UserID `json:"ownerId,omitempty"`
}

func (r *CreatePolicyRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

func (r *CreatePolicyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if err := validateName(r.Name); err != nil {
		return err
	}
	if r.Premium == nil {
		return dErrors.New(dErrors.CodeValidation, "premium is required")
	}
	if r.Coverage == nil {
		return dErrors.New(dErrors.CodeValidation, "coverage is required")
	}
	if r.OwnerID != nil && r.OwnerID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "ownerId must be a positive id")
	}
	return nil
}

// Owner returns the requested owner, or the zero id for a catalog template.
func (r *CreatePolicyRequest) Owner() domain.UserID {
	if r.OwnerID == nil {
		return 0
	}
	return *r.OwnerID
}

// UpdatePolicyRequest is the body of PATCH /policy/{policyId}.
type UpdatePolicyRequest struct {
	Name     *string        `json:"name,omitempty"`
	Premium  *domain.Amount `json:"premium,omitempty"`
	Coverage *domain.Amount `json:"coverage,omitempty"`
}

func (r *UpdatePolicyRequest) Normalize() {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		r.Name = &name
	}
}

func (r *UpdatePolicyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Name == nil && r.Premium == nil && r.Coverage == nil {
		return dErrors.New(dErrors.CodeValidation, "at least one of name, premium, coverage is required")
	}
	if r.Name != nil {
		return validateName(*r.Name)
	}
	return nil
}

// Update maps the request onto a TermsUpdate.
func (r *UpdatePolicyRequest) Update() TermsUpdate {
	return TermsUpdate{Name: r.Name, Premium: r.Premium, Coverage: r.Coverage}
}

func validateName(name string) error {
	if name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 100 characters")
	}
	return nil
}
