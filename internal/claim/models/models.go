package models

import (
	"time"

	"github.com/google/uuid"

	"claimdesk/pkg/domain"
)

// Claim is a request for payment against a policy.
type Claim struct {
	ID          domain.ClaimID
	UserID      domain.UserID
	PolicyID    domain.PolicyID
	Description string
	Amount      *domain.Amount
	Status      Status
	ReopenCount int
	// Version increments on every status change and guards compare-and-set writes.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewClaim builds a Pending claim.
func NewClaim(userID domain.UserID, policyID domain.PolicyID, description string, amount *domain.Amount, now time.Time) *Claim {
	return &Claim{
		UserID:      userID,
		PolicyID:    policyID,
		Description: description,
		Amount:      amount,
		Status:      StatusPending,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Transition is one entry of a claim's append-only status history.
type Transition struct {
	ID         uuid.UUID
	ClaimID    domain.ClaimID
	From       Status
	To         Status
	ActorID    domain.UserID
	ActorRole  domain.Role
	Note       string
	OccurredAt time.Time
}

// Comment is a free-form reviewer or owner remark. Comments never change status.
type Comment struct {
	ID         uuid.UUID
	ClaimID    domain.ClaimID
	AuthorID   domain.UserID
	AuthorRole domain.Role
	Body       string
	CreatedAt  time.Time
}

// NewComment stamps a comment with a fresh id.
func NewComment(claimID domain.ClaimID, author domain.Principal, body string, now time.Time) *Comment {
	return &Comment{
		ID:         uuid.New(),
		ClaimID:    claimID,
		AuthorID:   author.ID,
		AuthorRole: author.Role,
		Body:       body,
		CreatedAt:  now,
	}
}

// Detail is a claim together with its history and comments.
type Detail struct {
	Claim       *Claim
	Transitions []*Transition
	Comments    []*Comment
}
