package models

import (
	"strings"
	"unicode/utf8"

	"claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
)

const (
	maxDescriptionLength = 2000
	maxNoteLength        = 2000
	maxCommentLength     = 2000
)

// SubmitClaimRequest is the body of POST /claim/submit.
type SubmitClaimRequest struct {
	UserID      domain.UserID   `json:"userId"`
	PolicyID    domain.PolicyID `json:"policyId"`
	Description string          `json:"description"`
	Amount      *domain.Amount  `json:"amount,omitempty"`
}

func (r *SubmitClaimRequest) Normalize() {
	r.Description = strings.TrimSpace(r.Description)
}

func (r *SubmitClaimRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.UserID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "userId must be a positive id")
	}
	if r.PolicyID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "policyId must be a positive id")
	}
	return validateText("description", r.Description, maxDescriptionLength)
}

// TransitionRequest is the body of POST /claim/{claimId}/transition.
type TransitionRequest struct {
	RequestedStatus Status  `json:"requestedStatus"`
	Note            string  `json:"note,omitempty"`
	ExpectedStatus  *Status `json:"expectedStatus,omitempty"`
}

func (r *TransitionRequest) Normalize() {
	r.Note = strings.TrimSpace(r.Note)
}

func (r *TransitionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.RequestedStatus == "" {
		return dErrors.New(dErrors.CodeValidation, "requestedStatus is required")
	}
	if utf8.RuneCountInString(r.Note) > maxNoteLength {
		return dErrors.New(dErrors.CodeValidation, "note must be at most 2000 characters")
	}
	return nil
}

// CommentRequest is the body of POST /claim/{claimId}/comments.
type CommentRequest struct {
	Body string `json:"body"`
}

func (r *CommentRequest) Normalize() {
	r.Body = strings.TrimSpace(r.Body)
}

func (r *CommentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return validateText("body", r.Body, maxCommentLength)
}

func validateText(field, value string, limit int) error {
	if value == "" {
		return dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	if utf8.RuneCountInString(value) > limit {
		return dErrors.New(dErrors.CodeValidation, field+" is too long")
	}
	return nil
}
