package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserStore,TokenIssuer,RevocationList

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"claimdesk/internal/access"
	"claimdesk/internal/auth/lockout"
	"claimdesk/internal/auth/models"
	"claimdesk/internal/auth/password"
	jwttoken "claimdesk/internal/jwt_token"
	"claimdesk/internal/platform/metrics"
	"claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
	"claimdesk/pkg/platform/sentinel"
	"claimdesk/pkg/requestcontext"
)

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id domain.UserID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateRole(ctx context.Context, id domain.UserID, role domain.Role, now time.Time) error
	Disable(ctx context.Context, id domain.UserID, now time.Time) error
	Enable(ctx context.Context, id domain.UserID, now time.Time) error
	List(ctx context.Context) ([]*models.User, error)
	UpdatePasswordHash(ctx context.Context, id domain.UserID, hash string, now time.Time) error
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	GenerateAccessToken(userID domain.UserID, role domain.Role, expiresIn time.Duration) (*jwttoken.IssuedToken, error)
}

// RevocationList records logged-out token ids until they expire.
type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// TokenType is returned with every issued token.
const TokenType = "Bearer"

// Service owns registration, login, logout and account administration.
type Service struct {
	users    UserStore
	tokens   TokenIssuer
	trl      RevocationList
	hasher   *password.Hasher
	guard    *access.Guard
	tokenTTL time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	lockout  *lockout.Limiter

	// dummyHash is verified against when the username is unknown so a miss
	// costs the same as a wrong password.
	dummyOnce sync.Once
	dummyHash string
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithHasher overrides the password hasher (tests use cheap params).
func WithHasher(h *password.Hasher) Option {
	return func(s *Service) {
		s.hasher = h
	}
}

// WithLockout throttles repeated failed logins per username.
func WithLockout(l *lockout.Limiter) Option {
	return func(s *Service) {
		s.lockout = l
	}
}

// New constructs a Service.
func New(users UserStore, tokens TokenIssuer, trl RevocationList, guard *access.Guard, tokenTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		users:    users,
		tokens:   tokens,
		trl:      trl,
		guard:    guard,
		tokenTTL: tokenTTL,
		hasher:   password.NewHasher(password.DefaultParams),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a policyholder account.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	u := models.NewUser(req.Username, req.Email, hash, requestcontext.Now(ctx))
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeDuplicateKey, "username is already taken")
		}
		return nil, storeError(err, "failed to create user")
	}

	s.logger.InfoContext(ctx, "user registered",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", u.ID,
	)
	s.metrics.IncrementUsersRegistered()
	return u, nil
}

// Login verifies credentials and issues an access token.
// Unknown usernames, wrong passwords and disabled accounts are indistinguishable.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.Session, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.lockout.Check(ctx, req.Username); err != nil {
		s.metrics.IncrementLoginFailures()
		s.logger.WarnContext(ctx, "login refused while locked out",
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, err
	}

	u, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, storeError(err, "failed to load user")
		}
		_ = s.hasher.Verify(req.Password, s.dummy())
		return nil, s.loginFailed(ctx, req.Username, "unknown_username")
	}

	if err := s.hasher.Verify(req.Password, u.PasswordHash); err != nil {
		if !errors.Is(err, password.ErrMismatch) {
			s.logger.ErrorContext(ctx, "stored password hash unreadable",
				"request_id", requestcontext.RequestID(ctx),
				"user_id", u.ID,
				"error", err,
			)
		}
		return nil, s.loginFailed(ctx, req.Username, "password_mismatch", "user_id", u.ID)
	}
	if u.IsDisabled() {
		return nil, s.loginFailed(ctx, req.Username, "account_disabled", "user_id", u.ID)
	}

	s.lockout.Clear(ctx, req.Username)
	s.upgradeHash(ctx, u, req.Password)

	issued, err := s.tokens.GenerateAccessToken(u.ID, u.Role, s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	s.logger.InfoContext(ctx, "user logged in",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", u.ID,
	)
	return &models.Session{
		Token:     issued.Token,
		TokenType: TokenType,
		ExpiresAt: issued.ExpiresAt,
		ExpiresIn: s.tokenTTL,
		User:      u,
	}, nil
}

// upgradeHash rehashes legacy or weak hashes after a successful login. Failures are logged only.
func (s *Service) upgradeHash(ctx context.Context, u *models.User, plain string) {
	if !s.hasher.NeedsRehash(u.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(plain)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, u.ID, hash, requestcontext.Now(ctx))
	}
	if err != nil {
		s.logger.WarnContext(ctx, "failed to upgrade password hash",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", u.ID,
			"error", err,
		)
	}
}

func (s *Service) loginFailed(ctx context.Context, username, reason string, attrs ...any) error {
	s.lockout.RecordFailure(ctx, username)
	s.metrics.IncrementLoginFailures()
	s.logger.WarnContext(ctx, "login failed",
		append([]any{"request_id", requestcontext.RequestID(ctx), "reason", reason}, attrs...)...,
	)
	return dErrors.New(dErrors.CodeInvalidCredentials, "invalid username or password")
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("claimdesk-timing-equalizer")
	})
	return s.dummyHash
}

// Logout revokes the presented token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "token id required")
	}
	ttl := expiresAt.Sub(requestcontext.Now(ctx))
	if ttl <= 0 {
		return nil
	}
	if err := s.trl.RevokeToken(ctx, jti, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to revoke token")
	}
	s.logger.InfoContext(ctx, "token revoked",
		"request_id", requestcontext.RequestID(ctx),
		"jti", jti,
	)
	return nil
}

// IsTokenRevoked satisfies the auth middleware's revocation check.
func (s *Service) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return s.trl.IsRevoked(ctx, jti)
}

// LoadPrincipal resolves the current role and status of userID.
func (s *Service) LoadPrincipal(ctx context.Context, userID domain.UserID) (domain.Principal, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return domain.Principal{}, storeError(err, "failed to load user")
	}
	return u.Principal(), nil
}

// Me returns the account behind the principal.
func (s *Service) Me(ctx context.Context, p domain.Principal) (*models.User, error) {
	if p.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	u, err := s.users.FindByID(ctx, p.ID)
	if err != nil {
		return nil, storeError(err, "failed to load user")
	}
	return u, nil
}

// SetRole changes a user's role. Admins cannot demote themselves so the
// system always keeps at least the acting administrator.
func (s *Service) SetRole(ctx context.Context, actor domain.Principal, userID domain.UserID, raw string) (*models.User, error) {
	if err := s.guard.Authorize(actor, access.ActionManageUsers, access.Target{}); err != nil {
		return nil, err
	}
	role, err := domain.ParseRole(raw)
	if err != nil {
		return nil, err
	}
	if actor.ID == userID && role != domain.RoleAdmin {
		return nil, dErrors.New(dErrors.CodeValidation, "administrators cannot demote themselves")
	}
	if err := s.users.UpdateRole(ctx, userID, role, requestcontext.Now(ctx)); err != nil {
		return nil, storeError(err, "failed to update role")
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "failed to load user")
	}
	s.logger.InfoContext(ctx, "user role changed",
		"request_id", requestcontext.RequestID(ctx),
		"actor_id", actor.ID,
		"user_id", userID,
		"role", role,
	)
	return u, nil
}

// Disable soft-disables an account. Live tokens stop working on their next request.
func (s *Service) Disable(ctx context.Context, actor domain.Principal, userID domain.UserID) error {
	if err := s.guard.Authorize(actor, access.ActionManageUsers, access.Target{}); err != nil {
		return err
	}
	if actor.ID == userID {
		return dErrors.New(dErrors.CodeValidation, "administrators cannot disable themselves")
	}
	if err := s.users.Disable(ctx, userID, requestcontext.Now(ctx)); err != nil {
		return storeError(err, "failed to disable user")
	}
	s.logger.InfoContext(ctx, "user disabled",
		"request_id", requestcontext.RequestID(ctx),
		"actor_id", actor.ID,
		"user_id", userID,
	)
	return nil
}

// Enable lifts a soft-disable. The user logs in again to get a token.
func (s *Service) Enable(ctx context.Context, actor domain.Principal, userID domain.UserID) error {
	if err := s.guard.Authorize(actor, access.ActionManageUsers, access.Target{}); err != nil {
		return err
	}
	if err := s.users.Enable(ctx, userID, requestcontext.Now(ctx)); err != nil {
		return storeError(err, "failed to enable user")
	}
	s.logger.InfoContext(ctx, "user enabled",
		"request_id", requestcontext.RequestID(ctx),
		"actor_id", actor.ID,
		"user_id", userID,
	)
	return nil
}

// ListUsers returns every account ordered by id, disabled ones included.
func (s *Service) ListUsers(ctx context.Context, actor domain.Principal) ([]*models.User, error) {
	if err := s.guard.Authorize(actor, access.ActionManageUsers, access.Target{}); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, storeError(err, "failed to list users")
	}
	return users, nil
}

// storeError translates store sentinels into domain errors.
func storeError(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeStorageUnavailable, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
