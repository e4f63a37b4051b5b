package models

import (
	"time"

	"claimdesk/pkg/domain"
)

// User is an account that can log in. PasswordHash never leaves the service layer.
type User struct {
	ID           domain.UserID
	Username     string
	Email        string
	PasswordHash string
	Role         domain.Role
	DisabledAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsDisabled reports whether an admin soft-disabled the account.
func (u *User) IsDisabled() bool {
	return u.DisabledAt != nil
}

// Principal projects the user into the identity carried by requests.
func (u *User) Principal() domain.Principal {
	return domain.Principal{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
		Disabled: u.IsDisabled(),
	}
}

// NewUser builds a policyholder account from already validated fields.
func NewUser(username, email, passwordHash string, now time.Time) *User {
	return &User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         domain.RolePolicyholder,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	TokenType string
	ExpiresAt time.Time
	ExpiresIn time.Duration
	User      *User
}
