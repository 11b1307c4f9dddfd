package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workboard/internal/domain"
	"workboard/internal/store"
	"workboard/internal/store/memory"
	id "workboard/pkg/domain"
	dErrors "workboard/pkg/domain-errors"
	"workboard/pkg/requestcontext"
)

var fixedNow = time.Date(2026, time.August, 30, 9, 0, 0, 0, time.UTC)

// fakeMirror satisfies Mirror with a static item set.
type fakeMirror struct {
	items   []domain.WorkItem
	weights domain.Weights
}

func (m *fakeMirror) WorkItems() []domain.WorkItem { return m.items }
func (m *fakeMirror) Weights() domain.Weights      { return m.weights }
func (m *fakeMirror) SetWeights(w domain.Weights)  { m.weights = w }

func authedCtx(userID id.UserID) context.Context {
	ctx := requestcontext.WithUserID(context.Background(), userID)
	return requestcontext.WithTime(ctx, fixedNow)
}

func TestCreateAppliesDefaults(t *testing.T) {
	st := memory.New()
	svc := New(st, &fakeMirror{})
	actor := id.NewUserID()

	item, err := svc.Create(authedCtx(actor), CreateInput{})
	require.NoError(t, err)

	assert.Equal(t, DefaultProject, item.ProjectName)
	assert.Equal(t, DefaultTitle, item.Title)
	assert.Equal(t, domain.TypeDevelopment, item.Type)
	assert.Equal(t, domain.StatusTodo, item.Status)
	assert.Equal(t, domain.LevelMed, item.Impact)
	assert.Equal(t, domain.LevelMed, item.Urgency)
	assert.Equal(t, domain.ApprovalNone, item.Approval)
	assert.Equal(t, actor, item.Requester)
	assert.Equal(t, []id.UserID{actor}, item.Assignees)
	assert.Equal(t, CreatedNote, item.UpdateNote)
	assert.True(t, item.StartDate.Equal(fixedNow))

	// The write actually landed.
	doc, err := st.Get(context.Background(), store.CollectionWorkItems, item.ID.String())
	require.NoError(t, err)
	assert.Contains(t, string(doc.Data), DefaultProject)
}

func TestCreateRequiresAuthentication(t *testing.T) {
	svc := New(memory.New(), &fakeMirror{})

	_, err := svc.Create(context.Background(), CreateInput{Title: "x"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestUpdateAppliesPartialPatch(t *testing.T) {
	st := memory.New()
	svc := New(st, &fakeMirror{})
	actor := id.NewUserID()
	ctx := authedCtx(actor)

	item, err := svc.Create(ctx, CreateInput{Title: "original", Description: "keep me"})
	require.NoError(t, err)

	newTitle := "renamed"
	newStatus := domain.StatusInProgress
	note := "moved to in progress"
	updated, err := svc.Update(ctx, item.ID, UpdatePatch{
		Title:      &newTitle,
		Status:     &newStatus,
		UpdateNote: &note,
	})
	require.NoError(t, err)

	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, domain.StatusInProgress, updated.Status)
	assert.Equal(t, note, updated.UpdateNote)
	assert.Equal(t, "keep me", updated.Description, "untouched field survives")
}

func TestUpdateUnknownItemIsNotFound(t *testing.T) {
	svc := New(memory.New(), &fakeMirror{})

	title := "x"
	_, err := svc.Update(authedCtx(id.NewUserID()), id.NewWorkItemID(), UpdatePatch{Title: &title})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestRankedExcludesDoneAndSortsByScore(t *testing.T) {
	mirror := &fakeMirror{items: []domain.WorkItem{
		{ID: id.NewWorkItemID(), Title: "low", Status: domain.StatusTodo, PriorityScore: 10},
		{ID: id.NewWorkItemID(), Title: "done", Status: domain.StatusDone, PriorityScore: 99},
		{ID: id.NewWorkItemID(), Title: "high", Status: domain.StatusInProgress, PriorityScore: 65},
	}}
	svc := New(memory.New(), mirror)

	ranked := svc.Ranked(context.Background())
	require.Len(t, ranked, 2)
	assert.Equal(t, "high", ranked[0].Title)
	assert.Equal(t, "low", ranked[1].Title)
}

func TestMineSortsByDueDateWithZeroLast(t *testing.T) {
	actor := id.NewUserID()
	other := id.NewUserID()
	mirror := &fakeMirror{items: []domain.WorkItem{
		{ID: id.NewWorkItemID(), Title: "no due", Assignees: []id.UserID{actor}},
		{ID: id.NewWorkItemID(), Title: "later", Assignees: []id.UserID{actor}, DueDate: fixedNow.AddDate(0, 0, 9)},
		{ID: id.NewWorkItemID(), Title: "soon", Assignees: []id.UserID{actor}, DueDate: fixedNow.AddDate(0, 0, 1)},
		{ID: id.NewWorkItemID(), Title: "not mine", Assignees: []id.UserID{other}, DueDate: fixedNow},
		{ID: id.NewWorkItemID(), Title: "finished", Assignees: []id.UserID{actor}, Status: domain.StatusDone},
	}}
	svc := New(memory.New(), mirror)

	mine := svc.Mine(authedCtx(actor))
	require.Len(t, mine, 3)
	assert.Equal(t, "soon", mine[0].Title)
	assert.Equal(t, "later", mine[1].Title)
	assert.Equal(t, "no due", mine[2].Title)
}

func TestByProjectGroupsAlphabetically(t *testing.T) {
	mirror := &fakeMirror{items: []domain.WorkItem{
		{ID: id.NewWorkItemID(), ProjectName: "Zeta", PriorityScore: 1},
		{ID: id.NewWorkItemID(), ProjectName: "Alpha", PriorityScore: 5},
		{ID: id.NewWorkItemID(), ProjectName: "Alpha", PriorityScore: 9},
	}}
	svc := New(memory.New(), mirror)

	groups := svc.ByProject(context.Background())
	require.Len(t, groups, 2)
	assert.Equal(t, "Alpha", groups[0].Project)
	assert.InDelta(t, 9.0, groups[0].Items[0].PriorityScore, 1e-9)
	assert.Equal(t, "Zeta", groups[1].Project)
}

func TestSetWeightsValidatesAndRescores(t *testing.T) {
	mirror := &fakeMirror{weights: domain.DefaultWeights()}
	svc := New(memory.New(), mirror)
	ctx := authedCtx(id.NewUserID())

	err := svc.SetWeights(ctx, domain.Weights{Impact: -1})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	require.NoError(t, svc.SetWeights(ctx, domain.Weights{Impact: 1, Urgency: 1, Deadline: 1}))
	assert.Equal(t, domain.Weights{Impact: 1, Urgency: 1, Deadline: 1}, svc.Weights(ctx))
}
