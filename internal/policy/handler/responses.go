package handler

import (
	"claimdesk/internal/policy/models"
	"claimdesk/pkg/domain"
)

// CreateResponse is returned by POST /policy/add.
type CreateResponse struct {
	PolicyID domain.PolicyID `json:"policyId"`
}

// PolicyResponse is one catalog entry. ownerId is omitted for templates.
type PolicyResponse struct {
	ID       domain.PolicyID `json:"id"`
	Name     string          `json:"name"`
	Premium  domain.Amount   `json:"premium"`
	Coverage domain.Amount   `json:"coverage"`
	OwnerID  *domain.UserID  `json:"ownerId,omitempty"`
}

func FromPolicy(p *models.Policy) *PolicyResponse {
	resp := &PolicyResponse{
		ID:       p.ID,
		Name:     p.Name,
		Premium:  p.Premium,
		Coverage: p.Coverage,
	}
	if p.HasOwner() {
		owner := p.OwnerID
		resp.OwnerID = &owner
	}
	return resp
}

func FromPolicies(policies []*models.Policy) []*PolicyResponse {
	out := make([]*PolicyResponse, 0, len(policies))
	for _, p := range policies {
		out = append(out, FromPolicy(p))
	}
	return out
}
