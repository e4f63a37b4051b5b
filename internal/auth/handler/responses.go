package handler

import (
	"claimdesk/internal/auth/models"
	"claimdesk/pkg/domain"
)

// RegisterResponse is returned by POST /auth/register.
type RegisterResponse struct {
	UserID domain.UserID `json:"userId"`
}

// LoginResponse is returned by POST /auth/login. ExpiresIn is in seconds.
type LoginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
	ExpiresIn int64  `json:"expiresIn"`
}

// UserResponse is the public projection of an account. The password hash never leaves the service.
type UserResponse struct {
	ID       domain.UserID `json:"id"`
	Username string        `json:"username"`
	Email    string        `json:"email"`
	Role     domain.Role   `json:"role"`
	Disabled bool          `json:"disabled,omitempty"`
}

func FromSession(s *models.Session) *LoginResponse {
	return &LoginResponse{
		Token:     s.Token,
		TokenType: s.TokenType,
		ExpiresIn: int64(s.ExpiresIn.Seconds()),
	}
}

func FromUser(u *models.User) *UserResponse {
	return &UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
		Disabled: u.IsDisabled(),
	}
}
