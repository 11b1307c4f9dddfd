package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"workboard/internal/assistant/service/mocks"
	"workboard/internal/domain"
	"workboard/internal/store"
	"workboard/internal/store/memory"
	id "workboard/pkg/domain"
	dErrors "workboard/pkg/domain-errors"
	"workboard/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Generator

var chatNow = time.Date(2026, time.August, 30, 9, 0, 0, 0, time.UTC)

type boardMirror struct {
	items      []domain.WorkItem
	users      []domain.User
	directives []domain.Directive
}

func (m boardMirror) WorkItems() []domain.WorkItem   { return m.items }
func (m boardMirror) Users() []domain.User           { return m.users }
func (m boardMirror) Directives() []domain.Directive { return m.directives }

func (m boardMirror) User(userID id.UserID) (domain.User, bool) {
	for _, u := range m.users {
		if u.ID == userID {
			return u, true
		}
	}
	return domain.User{}, false
}

func newTestService(t *testing.T, mirror Mirror) (*Service, *mocks.MockGenerator, *memory.Store) {
	t.Helper()
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)
	st := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(gen, mirror, st, WithLogger(logger)), gen, st
}

func chatCtx(userID id.UserID, role domain.Role) context.Context {
	ctx := requestcontext.WithUserID(context.Background(), userID)
	ctx = requestcontext.WithRole(ctx, string(role))
	return requestcontext.WithTime(ctx, chatNow)
}

func TestStrategyReplyBuildsBoardContext(t *testing.T) {
	manager := domain.User{ID: id.NewUserID(), Name: "Dana", Role: domain.RoleManager, TodayStatus: "office"}
	mirror := boardMirror{
		items: []domain.WorkItem{
			{Title: "Ship the rollout plan", ProjectName: "Atlas", Status: domain.StatusInProgress, DueDate: chatNow.AddDate(0, 0, 1)},
			{Title: "Archive old docs", ProjectName: "Atlas", Status: domain.StatusDone},
			{Title: "Quarterly budget", ProjectName: "Ops", Status: domain.StatusTodo, DueDate: chatNow.AddDate(0, 0, 20)},
		},
		users:      []domain.User{manager},
		directives: []domain.Directive{{Summary: "Blocked tasks lead every report."}},
	}
	svc, gen, _ := newTestService(t, mirror)

	var prompt string
	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p string) (string, error) {
			prompt = p
			return "Focus on the rollout plan.", nil
		})

	reply, err := svc.StrategyReply(chatCtx(manager.ID, domain.RoleManager), "what should we do today?")
	require.NoError(t, err)
	assert.False(t, reply.Advisory)
	assert.Equal(t, "Focus on the rollout plan.", reply.Text)

	assert.Contains(t, prompt, "3 tasks")
	assert.Contains(t, prompt, "1 todo, 1 in progress, 1 done")
	assert.Contains(t, prompt, "Atlas, Ops")
	assert.Contains(t, prompt, "Ship the rollout plan")
	assert.NotContains(t, strings.SplitAfter(prompt, "Deadlines within 3 days:")[1], "Quarterly budget")
	assert.Contains(t, prompt, "Blocked tasks lead every report.")
	assert.Contains(t, prompt, "Dana asks:")
}

func TestStrategyReplyClassifiesGeneratorFailures(t *testing.T) {
	userID := id.NewUserID()
	cases := []struct {
		name     string
		err      error
		advisory string
	}{
		{"credentials", dErrors.New(dErrors.CodeUnauthorized, "API key rejected"), AdvisoryBadCredentials},
		{"quota", dErrors.New(dErrors.CodeQuotaExceeded, "quota exceeded"), AdvisoryQuotaExceeded},
		{"network", dErrors.New(dErrors.CodeUnavailable, "connection refused"), AdvisoryNetwork},
		{"other", dErrors.New(dErrors.CodeInternal, "boom"), AdvisoryGeneric},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, gen, _ := newTestService(t, boardMirror{})
			gen.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("", tc.err)

			reply, err := svc.StrategyReply(chatCtx(userID, domain.RoleMember), "hello")
			require.NoError(t, err, "generator failures must stay advisory")
			assert.True(t, reply.Advisory)
			assert.Equal(t, tc.advisory, reply.Text)
		})
	}
}

func TestStrategyReplyRequiresAuthAndMessage(t *testing.T) {
	svc, _, _ := newTestService(t, boardMirror{})

	_, err := svc.StrategyReply(context.Background(), "hello")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = svc.StrategyReply(chatCtx(id.NewUserID(), domain.RoleMember), "   ")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestLearnDirectiveSummarizesAndStores(t *testing.T) {
	manager := domain.User{ID: id.NewUserID(), Name: "Dana", Role: domain.RoleManager}
	mirror := boardMirror{users: []domain.User{manager}}
	svc, gen, st := newTestService(t, mirror)

	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("Always stage releases on Fridays.\nExtra line to drop.", nil)

	directive, err := svc.LearnDirective(chatCtx(manager.ID, domain.RoleManager), "we should make sure releases are staged before the weekend")
	require.NoError(t, err)
	assert.Equal(t, "Always stage releases on Fridays.", directive.Summary)
	assert.Equal(t, "Dana", directive.CreatedByName)
	assert.Equal(t, chatNow, directive.CreatedAt)

	doc, err := st.Get(context.Background(), store.CollectionDirectives, directive.ID.String())
	require.NoError(t, err)
	stored, err := domain.DecodeDirective(doc.ID, doc.Data)
	require.NoError(t, err)
	assert.Equal(t, directive.Summary, stored.Summary)
}

func TestLearnDirectiveFallsBackOnGeneratorFailure(t *testing.T) {
	manager := domain.User{ID: id.NewUserID(), Name: "Dana", Role: domain.RoleManager}
	svc, gen, st := newTestService(t, boardMirror{users: []domain.User{manager}})

	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("", dErrors.New(dErrors.CodeUnavailable, "down"))

	directive, err := svc.LearnDirective(chatCtx(manager.ID, domain.RoleManager), "first line survives\nsecond line does not")
	require.NoError(t, err)
	assert.Equal(t, "first line survives", directive.Summary)

	_, err = st.Get(context.Background(), store.CollectionDirectives, directive.ID.String())
	require.NoError(t, err)
}

func TestLearnDirectiveIsManagerOnly(t *testing.T) {
	svc, _, _ := newTestService(t, boardMirror{})

	_, err := svc.LearnDirective(chatCtx(id.NewUserID(), domain.RoleMember), "nope")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = svc.LearnDirective(context.Background(), "nope")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
