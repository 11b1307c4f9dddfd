package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workboard/internal/auth/credentials"
	"workboard/internal/auth/revocation"
	"workboard/internal/auth/token"
	"workboard/internal/domain"
	"workboard/internal/seed"
	"workboard/internal/store"
	"workboard/internal/store/memory"
	dErrors "workboard/pkg/domain-errors"
	"workboard/pkg/requestcontext"
)

func newTestService(t *testing.T, opts ...Option) (*Service, *memory.Store, *revocation.MemoryList) {
	t.Helper()
	st := memory.New()
	revoked := revocation.NewMemoryList()
	tokens := token.NewService("test-signing-key", "workboard", "workboard-api")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]Option{WithLogger(logger)}, opts...)
	svc := New(st, credentials.NewMemoryStore(), tokens, revoked, opts...)
	return svc, st, revoked
}

func TestSignUpThenSignIn(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.SignUp(ctx, "Ada", "ada@example.com", "correct horse", domain.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, domain.RoleMember, user.Role)

	doc, err := st.Get(ctx, store.CollectionUsers, user.ID.String())
	require.NoError(t, err)
	stored, err := domain.DecodeUser(doc.ID, doc.Data)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", stored.Email)

	result, err := svc.SignIn(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, user.ID, result.User.ID)
	assert.False(t, result.SessionID.IsNil())
}

func TestSignUpDuplicateEmailConflicts(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "Ada", "ada@example.com", "correct horse", domain.RoleMember)
	require.NoError(t, err)

	_, err = svc.SignUp(ctx, "Imposter", "ADA@example.com", "other secret", domain.RoleMember)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "Ada", "ada@example.com", "correct horse", domain.RoleMember)
	require.NoError(t, err)

	_, err = svc.SignIn(ctx, "ada@example.com", "wrong")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = svc.SignIn(ctx, "nobody@example.com", "whatever")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestSignInProvisionsFallbackProfile(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.SignUp(ctx, "Ada", "ada@example.com", "correct horse", domain.RoleMember)
	require.NoError(t, err)
	require.NoError(t, st.Delete(ctx, store.CollectionUsers, user.ID.String()))

	result, err := svc.SignIn(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "ada", result.User.Name)
	assert.Equal(t, domain.RoleMember, result.User.Role)

	doc, err := st.Get(ctx, store.CollectionUsers, user.ID.String())
	require.NoError(t, err)
	rebuilt, err := domain.DecodeUser(doc.ID, doc.Data)
	require.NoError(t, err)
	assert.Equal(t, "office", rebuilt.TodayStatus)
}

func TestDemoSignInProvisionsOnFirstUse(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.DemoSignIn(ctx, domain.RoleManager)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, result.User.Role)
	assert.Equal(t, seed.BaselineUsers()[0].ID, result.User.ID)

	// Second demo sign-in reuses the provisioned account.
	again, err := svc.DemoSignIn(ctx, domain.RoleManager)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, again.User.ID)

	users, err := st.List(ctx, store.CollectionUsers)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestSignOutRevokesToken(t *testing.T) {
	svc, _, revoked := newTestService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "Ada", "ada@example.com", "correct horse", domain.RoleMember)
	require.NoError(t, err)
	result, err := svc.SignIn(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx, result.Token))

	claims, err := token.NewService("test-signing-key", "workboard", "workboard-api").Validate(result.Token)
	require.NoError(t, err)
	isRevoked, err := revoked.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, isRevoked)
}

func TestSignOutRejectsGarbageToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.SignOut(context.Background(), "not-a-token")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestWatchSeesSignInAndSignOut(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	states := svc.Watch(ctx)

	_, err := svc.SignUp(ctx, "Ada", "ada@example.com", "correct horse", domain.RoleMember)
	require.NoError(t, err)
	result, err := svc.SignIn(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)

	state := recvState(t, states)
	assert.True(t, state.SignedIn)
	assert.Equal(t, result.User.ID, state.UserID)
	assert.Equal(t, domain.RoleMember, state.Role)

	require.NoError(t, svc.SignOut(ctx, result.Token))
	state = recvState(t, states)
	assert.False(t, state.SignedIn)
	assert.True(t, state.UserID.IsNil())
}

func TestHooksRunWithCallerIdentity(t *testing.T) {
	var hookState AuthState
	var hookRole string
	signedOut := false
	hooks := Hooks{
		OnSignIn: func(ctx context.Context, state AuthState) {
			hookState = state
			hookRole = requestcontext.Role(ctx)
		},
		OnSignOut: func(context.Context) { signedOut = true },
	}
	svc, _, _ := newTestService(t, WithHooks(hooks))
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "Dana", "dana@example.com", "correct horse", domain.RoleManager)
	require.NoError(t, err)
	result, err := svc.SignIn(ctx, "dana@example.com", "correct horse")
	require.NoError(t, err)

	assert.Equal(t, result.User.ID, hookState.UserID)
	assert.Equal(t, string(domain.RoleManager), hookRole)

	require.NoError(t, svc.SignOut(ctx, result.Token))
	assert.True(t, signedOut)
}

func recvState(t *testing.T, ch <-chan AuthState) AuthState {
	t.Helper()
	select {
	case state := <-ch:
		return state
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for auth state")
		return AuthState{}
	}
}
