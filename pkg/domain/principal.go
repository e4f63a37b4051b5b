package domain

// Principal is the authenticated identity behind a request.
// It is resolved from the access token and the user store on every request, so a role
// change or a soft-disable takes effect immediately.
type Principal struct {
	ID       UserID
	Username string
	Role     Role
	Disabled bool
}

// IsZero reports whether no principal was resolved.
func (p Principal) IsZero() bool {
	return p.ID.IsNil()
}

// Owns reports whether the principal is the given owner.
func (p Principal) Owns(owner UserID) bool {
	return !p.ID.IsNil() && p.ID == owner
}
