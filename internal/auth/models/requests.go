package models

import (
	"strings"
	"unicode/utf8"

	dErrors "claimdesk/pkg/domain-errors"
	"claimdesk/pkg/email"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 64
	minPasswordLength = 8
	maxPasswordLength = 128
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *RegisterRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = email.Normalize(r.Email)
}

func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if err := ValidateUsername(r.Username); err != nil {
		return err
	}
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if !email.IsValid(r.Email) {
		return dErrors.New(dErrors.CodeValidation, "email must be a valid address")
	}
	return ValidatePassword(r.Password)
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

// Validate only checks presence; credential rules are not disclosed on login.
func (r *LoginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Username == "" {
		return dErrors.New(dErrors.CodeValidation, "username is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	if len(r.Username) > maxUsernameLength || len(r.Password) > maxPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "credentials too long")
	}
	return nil
}

// SetRoleRequest is the body of POST /admin/users/{userId}/role.
type SetRoleRequest struct {
	Role string `json:"role"`
}

func (r *SetRoleRequest) Normalize() {
	r.Role = strings.ToLower(strings.TrimSpace(r.Role))
}

func (r *SetRoleRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Role == "" {
		return dErrors.New(dErrors.CodeValidation, "role is required")
	}
	return nil
}

// ValidateUsername enforces 3-64 characters from [a-zA-Z0-9_.-].
func ValidateUsername(username string) error {
	if username == "" {
		return dErrors.New(dErrors.CodeValidation, "username is required")
	}
	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		return dErrors.New(dErrors.CodeValidation, "username must be 3-64 characters")
	}
	for _, c := range username {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '.', c == '-':
		default:
			return dErrors.New(dErrors.CodeValidation, "username may only contain letters, digits, '_', '.' and '-'")
		}
	}
	return nil
}

// ValidatePassword enforces 8-128 characters.
func ValidatePassword(password string) error {
	if password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	if n > maxPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be at most 128 characters")
	}
	return nil
}
