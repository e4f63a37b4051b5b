package user

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"claimdesk/internal/auth/models"
	"claimdesk/pkg/domain"
	"claimdesk/pkg/platform/sentinel"
)

// InMemoryUserStore keeps users in maps guarded by one RWMutex.
// Usernames are unique case-insensitively.
type InMemoryUserStore struct {
	mu         sync.RWMutex
	nextID     domain.UserID
	users      map[domain.UserID]*models.User
	byUsername map[string]domain.UserID
}

// New constructs an empty in-memory user store.
func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:      make(map[domain.UserID]*models.User),
		byUsername: make(map[string]domain.UserID),
	}
}

func usernameKey(username string) string {
	return strings.ToLower(username)
}

func live(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("user store: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

// Create assigns the next id and stores a copy of u.
func (s *InMemoryUserStore) Create(ctx context.Context, u *models.User) error {
	if err := live(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := usernameKey(u.Username)
	if _, taken := s.byUsername[key]; taken {
		return fmt.Errorf("username %q: %w", u.Username, sentinel.ErrConflict)
	}
	s.nextID++
	u.ID = s.nextID
	stored := *u
	s.users[u.ID] = &stored
	s.byUsername[key] = u.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(ctx context.Context, id domain.UserID) (*models.User, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyUser(u), nil
}

func (s *InMemoryUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[usernameKey(username)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyUser(s.users[id]), nil
}

// Exists reports whether id refers to a stored user.
func (s *InMemoryUserStore) Exists(ctx context.Context, id domain.UserID) (bool, error) {
	if err := live(ctx); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[id]
	return ok, nil
}

func (s *InMemoryUserStore) UpdateRole(ctx context.Context, id domain.UserID, role domain.Role, now time.Time) error {
	return s.mutate(ctx, id, func(u *models.User) {
		u.Role = role
		u.UpdatedAt = now
	})
}

// Disable soft-disables the account. Disabling twice keeps the first timestamp.
func (s *InMemoryUserStore) Disable(ctx context.Context, id domain.UserID, now time.Time) error {
	return s.mutate(ctx, id, func(u *models.User) {
		if u.DisabledAt == nil {
			at := now
			u.DisabledAt = &at
		}
		u.UpdatedAt = now
	})
}

// Enable clears a soft-disable.
func (s *InMemoryUserStore) Enable(ctx context.Context, id domain.UserID, now time.Time) error {
	return s.mutate(ctx, id, func(u *models.User) {
		u.DisabledAt = nil
		u.UpdatedAt = now
	})
}

// List returns copies of every user ordered by id.
func (s *InMemoryUserStore) List(ctx context.Context) ([]*models.User, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, copyUser(u))
	}
	slices.SortFunc(out, func(a, b *models.User) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *InMemoryUserStore) UpdatePasswordHash(ctx context.Context, id domain.UserID, hash string, now time.Time) error {
	return s.mutate(ctx, id, func(u *models.User) {
		u.PasswordHash = hash
		u.UpdatedAt = now
	})
}

func (s *InMemoryUserStore) mutate(ctx context.Context, id domain.UserID, fn func(*models.User)) error {
	if err := live(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	fn(u)
	return nil
}

func copyUser(u *models.User) *models.User {
	c := *u
	if u.DisabledAt != nil {
		at := *u.DisabledAt
		c.DisabledAt = &at
	}
	return &c
}
