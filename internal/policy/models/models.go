package models

import (
	"time"

	"claimdesk/pkg/domain"
)

// Policy is an insurance product. A policy without an owner is a catalog template
// any policyholder may claim against.
type Policy struct {
	ID        domain.PolicyID
	Name      string
	Premium   domain.Amount
	Coverage  domain.Amount
	OwnerID   domain.UserID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasOwner reports whether the policy is bound to one user.
func (p *Policy) HasOwner() bool {
	return !p.OwnerID.IsNil()
}

// Covers reports whether a claim by userID may reference this policy.
func (p *Policy) Covers(userID domain.UserID) bool {
	return !p.HasOwner() || p.OwnerID == userID
}

// NewPolicy builds a policy from validated fields.
func NewPolicy(name string, premium, coverage domain.Amount, owner domain.UserID, now time.Time) *Policy {
	return &Policy{
		Name:      name,
		Premium:   premium,
		Coverage:  coverage,
		OwnerID:   owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TermsUpdate is a partial change to a policy. Nil fields are left alone.
type TermsUpdate struct {
	Name     *string
	Premium  *domain.Amount
	Coverage *domain.Amount
}

// ChangesTerms reports whether applying u would alter premium or coverage of p.
// Renames never count.
func (u TermsUpdate) ChangesTerms(p *Policy) bool {
	return (u.Premium != nil && *u.Premium != p.Premium) ||
		(u.Coverage != nil && *u.Coverage != p.Coverage)
}

// Apply writes the set fields into p.
func (u TermsUpdate) Apply(p *Policy, now time.Time) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Premium != nil {
		p.Premium = *u.Premium
	}
	if u.Coverage != nil {
		p.Coverage = *u.Coverage
	}
	p.UpdatedAt = now
}
