// Package access decides whether a principal may perform an action on a target.
//
// The guard is pure: it reads only the principal and the target handed to it and
// never touches storage. Services fetch the target first, call Authorize, and only
// then write.
package access

import (
	"fmt"

	"claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
)

// Action names an operation subject to authorization.
type Action string

const (
	ActionSubmitClaim     Action = "submit"
	ActionViewClaim       Action = "view"
	ActionTransitionClaim Action = "transition"
	ActionCommentClaim    Action = "comment"
	ActionListClaims      Action = "listClaims"
	ActionReviewQueue     Action = "reviewQueue"
	ActionListPolicies    Action = "listPolicies"
	ActionCreatePolicy    Action = "createPolicy"
	ActionUpdatePolicy    Action = "updatePolicy"
	ActionManageUsers     Action = "manageUsers"
)

// Target describes the resource an action touches.
// OwnerID is the claim's user, or the user whose claims are being listed or filed.
type Target struct {
	OwnerID domain.UserID
}

// OwnedBy builds a target owned by id.
func OwnedBy(id domain.UserID) Target {
	return Target{OwnerID: id}
}

// rule reports whether p may act on t.
type rule func(p domain.Principal, t Target) bool

// Guard maps every action to its rule. Actions without a rule are denied.
type Guard struct {
	rules map[Action]rule
}

// NewGuard returns the guard with the claim desk rule set.
func NewGuard() *Guard {
	return &Guard{rules: map[Action]rule{
		ActionSubmitClaim:     canSubmit,
		ActionViewClaim:       ownerOrStaff,
		ActionCommentClaim:    ownerOrStaff,
		ActionListClaims:      ownerOrStaff,
		ActionTransitionClaim: ownerOrStaff,
		ActionReviewQueue:     staffOnly,
		ActionListPolicies:    anyone,
		ActionCreatePolicy:    adminOnly,
		ActionUpdatePolicy:    adminOnly,
		ActionManageUsers:     adminOnly,
	}}
}

// Authorize returns nil when allowed and a Forbidden error otherwise.
// Disabled and anonymous principals are denied everything.
func (g *Guard) Authorize(p domain.Principal, action Action, t Target) error {
	if p.IsZero() || p.Disabled || !p.Role.IsValid() {
		return forbidden(action)
	}
	r, ok := g.rules[action]
	if !ok || !r(p, t) {
		return forbidden(action)
	}
	return nil
}

func forbidden(action Action) error {
	return dErrors.New(dErrors.CodeForbidden, fmt.Sprintf("not allowed to %s", action))
}

// Policyholders file for themselves; admins may file on behalf of anyone.
// Adjusters review claims and never file them.
func canSubmit(p domain.Principal, t Target) bool {
	switch p.Role {
	case domain.RoleAdmin:
		return !t.OwnerID.IsNil()
	case domain.RolePolicyholder:
		return p.Owns(t.OwnerID)
	default:
		return false
	}
}

// Transition for policyholders is narrowed further by the lifecycle rules.
func ownerOrStaff(p domain.Principal, t Target) bool {
	return p.Role.IsStaff() || p.Owns(t.OwnerID)
}

func staffOnly(p domain.Principal, _ Target) bool {
	return p.Role.IsStaff()
}

func adminOnly(p domain.Principal, _ Target) bool {
	return p.Role == domain.RoleAdmin
}

func anyone(domain.Principal, Target) bool {
	return true
}
