// Package service implements the identity boundary: credential checks, token
// issue and revocation, and auth-state notifications for session-scoped
// machinery.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"workboard/internal/auth/credentials"
	"workboard/internal/auth/revocation"
	"workboard/internal/auth/token"
	"workboard/internal/domain"
	"workboard/internal/seed"
	"workboard/internal/store"
	id "workboard/pkg/domain"
	dErrors "workboard/pkg/domain-errors"
	"workboard/pkg/platform/sentinel"
	"workboard/pkg/requestcontext"
)

const (
	// DemoPassword unlocks the provisioned demo accounts.
	DemoPassword = "demo1234"

	defaultTokenTTL = 12 * time.Hour
)

// AuthState is the identity event fanned out to watchers. A zero UserID
// means signed out.
type AuthState struct {
	UserID    id.UserID
	SessionID id.SessionID
	Role      domain.Role
	SignedIn  bool
}

// SignInResult is what a successful authentication hands back to transport.
type SignInResult struct {
	Token     string
	ExpiresIn time.Duration
	User      domain.User
	SessionID id.SessionID
}

// Hooks run inside sign-in/sign-out, after the state change committed.
// Sign-in receives the request context so seeding and sync startup inherit
// the caller identity.
type Hooks struct {
	OnSignIn  func(ctx context.Context, state AuthState)
	OnSignOut func(ctx context.Context)
}

// Service is the identity provider.
type Service struct {
	users    store.Store
	creds    credentials.Store
	tokens   *token.Service
	revoked  revocation.List
	hooks    Hooks
	logger   *slog.Logger
	metrics  *Metrics
	tokenTTL time.Duration

	mu       sync.Mutex
	watchers []chan AuthState
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithHooks(h Hooks) Option {
	return func(s *Service) { s.hooks = h }
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

func New(users store.Store, creds credentials.Store, tokens *token.Service, revoked revocation.List, opts ...Option) *Service {
	s := &Service{
		users:    users,
		creds:    creds,
		tokens:   tokens,
		revoked:  revoked,
		logger:   slog.Default(),
		tokenTTL: defaultTokenTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// SignUp registers a credential and writes the roster document. When the
// document write races another writer the existing document wins.
func (s *Service) SignUp(ctx context.Context, name, email, password string, role domain.Role) (domain.User, error) {
	email = credentials.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, dErrors.New(dErrors.CodeValidation, "a valid email is required")
	}
	if len(password) < 8 {
		return domain.User{}, dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = profileNameFromEmail(email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	user := domain.User{
		ID:          id.NewUserID(),
		Name:        name,
		Email:       email,
		Role:        role,
		TodayStatus: "office",
		UpdatedAt:   requestcontext.Now(ctx),
	}

	cred := credentials.Credential{
		Email:        email,
		PasswordHash: hash,
		UserID:       user.ID,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.creds.Put(ctx, cred); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return domain.User{}, dErrors.New(dErrors.CodeConflict, "an account with this email already exists")
		}
		return domain.User{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store credential")
	}

	stored, err := s.ensureProfile(ctx, user)
	if err != nil {
		return domain.User{}, err
	}

	if s.metrics != nil {
		s.metrics.SignUps.Inc()
	}
	s.logger.InfoContext(ctx, "account registered",
		"user_id", stored.ID,
		"role", stored.Role,
		"request_id", requestcontext.RequestID(ctx),
	)
	return stored, nil
}

// SignIn verifies a credential and issues an access token. A missing roster
// document is replaced with a fallback profile rather than failing the
// sign-in.
func (s *Service) SignIn(ctx context.Context, email, password string) (SignInResult, error) {
	cred, err := s.creds.Get(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return SignInResult{}, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
		}
		return SignInResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load credential")
	}
	if err := bcrypt.CompareHashAndPassword(cred.PasswordHash, []byte(password)); err != nil {
		return SignInResult{}, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
	}

	user, err := s.loadOrProvisionProfile(ctx, cred)
	if err != nil {
		return SignInResult{}, err
	}

	sessionID := id.NewSessionID()
	signed, err := s.tokens.Generate(user.ID, sessionID, user.Role, s.tokenTTL)
	if err != nil {
		return SignInResult{}, err
	}

	state := AuthState{UserID: user.ID, SessionID: sessionID, Role: user.Role, SignedIn: true}
	s.notify(state)
	if s.hooks.OnSignIn != nil {
		hookCtx := requestcontext.WithUserID(ctx, user.ID)
		hookCtx = requestcontext.WithRole(hookCtx, string(user.Role))
		hookCtx = requestcontext.WithSessionID(hookCtx, sessionID)
		s.hooks.OnSignIn(hookCtx, state)
	}

	if s.metrics != nil {
		s.metrics.SignIns.Inc()
	}
	s.logger.InfoContext(ctx, "signed in",
		"user_id", user.ID,
		"session_id", sessionID,
		"role", user.Role,
		"request_id", requestcontext.RequestID(ctx),
	)
	return SignInResult{Token: signed, ExpiresIn: s.tokenTTL, User: user, SessionID: sessionID}, nil
}

// DemoSignIn signs in one of the provisioned demo accounts, creating its
// credential and roster document on first use.
func (s *Service) DemoSignIn(ctx context.Context, role domain.Role) (SignInResult, error) {
	baseline := seed.BaselineUsers()
	demo := baseline[1]
	if role == domain.RoleManager {
		demo = baseline[0]
	}

	if _, err := s.creds.Get(ctx, demo.Email); errors.Is(err, sentinel.ErrNotFound) {
		hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
		if err != nil {
			return SignInResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
		}
		putErr := s.creds.Put(ctx, credentials.Credential{
			Email:        demo.Email,
			PasswordHash: hash,
			UserID:       demo.ID,
			CreatedAt:    requestcontext.Now(ctx),
		})
		// A concurrent provision is fine; sign-in below settles it.
		if putErr != nil && !errors.Is(putErr, sentinel.ErrConflict) {
			return SignInResult{}, dErrors.Wrap(putErr, dErrors.CodeUnavailable, "failed to provision demo account")
		}
		demo.UpdatedAt = requestcontext.Now(ctx)
		if _, err := s.ensureProfile(ctx, demo); err != nil {
			return SignInResult{}, err
		}
	}

	return s.SignIn(ctx, demo.Email, DemoPassword)
}

// SignOut revokes the presented token and notifies watchers. Revocation
// keeps the jti until the token's own expiry.
func (s *Service) SignOut(ctx context.Context, tokenString string) error {
	claims, err := s.tokens.Validate(tokenString)
	if err != nil {
		return err
	}

	ttl := s.tokenTTL
	if claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
			ttl = remaining
		}
	}
	if err := s.revoked.Revoke(ctx, claims.ID, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to revoke token")
	}

	s.notify(AuthState{})
	if s.hooks.OnSignOut != nil {
		s.hooks.OnSignOut(ctx)
	}

	if s.metrics != nil {
		s.metrics.SignOuts.Inc()
	}
	s.logger.InfoContext(ctx, "signed out",
		"user_id", claims.UserID,
		"session_id", claims.SessionID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// Watch returns a channel of auth-state changes. The channel coalesces:
// a slow reader sees the latest state, not every intermediate one. It is
// closed when ctx is cancelled.
func (s *Service) Watch(ctx context.Context) <-chan AuthState {
	ch := make(chan AuthState, 1)
	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		for i, w := range s.watchers {
			if w == ch {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				close(ch)
				break
			}
		}
		s.mu.Unlock()
	}()
	return ch
}

func (s *Service) notify(state AuthState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- state:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- state:
			default:
			}
		}
	}
}

// ensureProfile inserts the roster document, keeping whatever document won a
// concurrent write.
func (s *Service) ensureProfile(ctx context.Context, user domain.User) (domain.User, error) {
	data, err := domain.EncodeUser(user)
	if err != nil {
		return domain.User{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode profile")
	}
	err = s.users.Insert(ctx, store.CollectionUsers, store.Document{ID: user.ID.String(), Data: data})
	if errors.Is(err, sentinel.ErrConflict) {
		doc, getErr := s.users.Get(ctx, store.CollectionUsers, user.ID.String())
		if getErr != nil {
			return domain.User{}, dErrors.Wrap(getErr, dErrors.CodeUnavailable, "failed to load profile")
		}
		existing, decErr := domain.DecodeUser(doc.ID, doc.Data)
		if decErr != nil {
			return user, nil
		}
		return existing, nil
	}
	if err != nil {
		return domain.User{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store profile")
	}
	return user, nil
}

func (s *Service) loadOrProvisionProfile(ctx context.Context, cred credentials.Credential) (domain.User, error) {
	doc, err := s.users.Get(ctx, store.CollectionUsers, cred.UserID.String())
	if err == nil {
		user, decErr := domain.DecodeUser(doc.ID, doc.Data)
		if decErr == nil {
			return user, nil
		}
		s.logger.WarnContext(ctx, "undecodable profile document, rebuilding fallback",
			"user_id", cred.UserID,
			"error", decErr,
		)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return domain.User{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load profile")
	}

	fallback := domain.User{
		ID:          cred.UserID,
		Name:        profileNameFromEmail(cred.Email),
		Email:       cred.Email,
		Role:        domain.RoleMember,
		TodayStatus: "office",
		UpdatedAt:   requestcontext.Now(ctx),
	}
	return s.ensureProfile(ctx, fallback)
}

func profileNameFromEmail(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
