package admin

import (
	"time"

	authmodels "claimdesk/internal/auth/models"
	"claimdesk/pkg/domain"
)

// UserResponse is the account view returned to administrators.
type UserResponse struct {
	ID         domain.UserID `json:"id"`
	Username   string        `json:"username"`
	Email      string        `json:"email"`
	Role       domain.Role   `json:"role"`
	Disabled   bool          `json:"disabled"`
	DisabledAt *time.Time    `json:"disabledAt,omitempty"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

func FromUser(u *authmodels.User) *UserResponse {
	return &UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role,
		Disabled:   u.IsDisabled(),
		DisabledAt: u.DisabledAt,
		UpdatedAt:  u.UpdatedAt,
	}
}
