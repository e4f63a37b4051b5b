package handler

import (
	"time"

	"github.com/google/uuid"

	"claimdesk/internal/claim/models"
	"claimdesk/pkg/domain"
)

// SubmitResponse is returned by POST /claim/submit.
type SubmitResponse struct {
	ClaimID domain.ClaimID `json:"claimId"`
	Status  models.Status  `json:"status"`
}

// TransitionResponse is returned by POST /claim/{claimId}/transition.
type TransitionResponse struct {
	ID     domain.ClaimID `json:"id"`
	Status models.Status  `json:"status"`
}

// ClaimSummary is one row of a claim listing.
type ClaimSummary struct {
	ID          domain.ClaimID  `json:"id"`
	UserID      domain.UserID   `json:"userId"`
	PolicyID    domain.PolicyID `json:"policyId"`
	Status      models.Status   `json:"status"`
	Description string          `json:"description"`
	Amount      *domain.Amount  `json:"amount,omitempty"`
}

// ClaimDetail is the full view returned by GET /claim/{claimId}.
type ClaimDetail struct {
	ClaimSummary
	ReopenCount int                  `json:"reopenCount"`
	Version     int64                `json:"version"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
	History     []TransitionResource `json:"history"`
	Comments    []CommentResource    `json:"comments"`
}

type TransitionResource struct {
	ID         uuid.UUID     `json:"id"`
	From       models.Status `json:"from"`
	To         models.Status `json:"to"`
	ActorID    domain.UserID `json:"actorId"`
	ActorRole  domain.Role   `json:"actorRole"`
	Note       string        `json:"note,omitempty"`
	OccurredAt time.Time     `json:"occurredAt"`
}

type CommentResource struct {
	ID         uuid.UUID     `json:"id"`
	AuthorID   domain.UserID `json:"authorId"`
	AuthorRole domain.Role   `json:"authorRole"`
	Body       string        `json:"body"`
	CreatedAt  time.Time     `json:"createdAt"`
}

func FromClaim(c *models.Claim) ClaimSummary {
	return ClaimSummary{
		ID:          c.ID,
		UserID:      c.UserID,
		PolicyID:    c.PolicyID,
		Status:      c.Status,
		Description: c.Description,
		Amount:      c.Amount,
	}
}

func FromClaims(claims []*models.Claim) []ClaimSummary {
	out := make([]ClaimSummary, 0, len(claims))
	for _, c := range claims {
		out = append(out, FromClaim(c))
	}
	return out
}

func FromComment(c *models.Comment) *CommentResource {
	return &CommentResource{
		ID:         c.ID,
		AuthorID:   c.AuthorID,
		AuthorRole: c.AuthorRole,
		Body:       c.Body,
		CreatedAt:  c.CreatedAt,
	}
}

func FromDetail(d *models.Detail) *ClaimDetail {
	out := &ClaimDetail{
		ClaimSummary: FromClaim(d.Claim),
		ReopenCount:  d.Claim.ReopenCount,
		Version:      d.Claim.Version,
		CreatedAt:    d.Claim.CreatedAt,
		UpdatedAt:    d.Claim.UpdatedAt,
		History:      make([]TransitionResource, 0, len(d.Transitions)),
		Comments:     make([]CommentResource, 0, len(d.Comments)),
	}
	for _, t := range d.Transitions {
		out.History = append(out.History, TransitionResource{
			ID:         t.ID,
			From:       t.From,
			To:         t.To,
			ActorID:    t.ActorID,
			ActorRole:  t.ActorRole,
			Note:       t.Note,
			OccurredAt: t.OccurredAt,
		})
	}
	for _, c := range d.Comments {
		out.Comments = append(out.Comments, *FromComment(c))
	}
	return out
}
