package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"workboard/internal/domain"
	"workboard/internal/store"
	"workboard/internal/workitem/metrics"
	id "workboard/pkg/domain"
	dErrors "workboard/pkg/domain-errors"
	"workboard/pkg/platform/sentinel"
	"workboard/pkg/requestcontext"
)

// Defaults applied when a creation request leaves fields blank, mirroring
// the board's quick-add behavior.
const (
	DefaultProject = "Unassigned Project"
	DefaultTitle   = "Untitled task"
	CreatedNote    = "Newly created"
)

// Mirror is the read model fed by the sync layer. Writes never touch it
// directly; the next push snapshot does.
type Mirror interface {
	WorkItems() []domain.WorkItem
	Weights() domain.Weights
	SetWeights(domain.Weights)
}

// Service owns work item writes and the board's read views.
type Service struct {
	store   store.Store
	mirror  Mirror
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(st store.Store, mirror Mirror, opts ...Option) *Service {
	s := &Service{store: st, mirror: mirror, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// CreateInput carries the fields a caller may set on creation. Everything
// else is defaulted.
type CreateInput struct {
	ProjectName string
	Title       string
	Description string
	Type        domain.WorkType
	Assignees   []id.UserID
	DueDate     string // wire date, already validated by the handler
	Impact      domain.Level
	Urgency     domain.Level
}

// Create writes a new work item with board defaults and returns the
// optimistic echo. The authoritative, scored version arrives with the next
// sync push.
func (s *Service) Create(ctx context.Context, input CreateInput) (domain.WorkItem, error) {
	actor := requestcontext.UserID(ctx)
	if actor.IsNil() {
		return domain.WorkItem{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	now := requestcontext.Now(ctx)
	item := domain.WorkItem{
		ID:          id.NewWorkItemID(),
		ProjectName: input.ProjectName,
		Title:       input.Title,
		Description: input.Description,
		Type:        input.Type,
		Assignees:   input.Assignees,
		Requester:   actor,
		StartDate:   now,
		Status:      domain.StatusTodo,
		Impact:      input.Impact,
		Urgency:     input.Urgency,
		Approval:    domain.ApprovalNone,
		UpdatedAt:   now,
		UpdateNote:  CreatedNote,
	}
	if item.ProjectName == "" {
		item.ProjectName = DefaultProject
	}
	if item.Title == "" {
		item.Title = DefaultTitle
	}
	if item.Type == "" {
		item.Type = domain.TypeDevelopment
	}
	if item.Impact == "" {
		item.Impact = domain.LevelMed
	}
	if item.Urgency == "" {
		item.Urgency = domain.LevelMed
	}
	if input.DueDate != "" {
		item.DueDate = mustParseDate(input.DueDate)
	}
	if len(item.Assignees) == 0 {
		item.Assignees = []id.UserID{actor}
	}

	data, err := domain.EncodeWorkItem(item)
	if err != nil {
		return domain.WorkItem{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode work item")
	}
	if err := s.store.Insert(ctx, store.CollectionWorkItems, store.Document{ID: item.ID.String(), Data: data}); err != nil {
		return domain.WorkItem{}, translateStoreErr(err, "failed to create work item")
	}

	s.logger.InfoContext(ctx, "work item created",
		"request_id", requestcontext.RequestID(ctx),
		"work_item_id", item.ID,
		"project", item.ProjectName,
	)
	if s.metrics != nil {
		s.metrics.ItemsCreated.Inc()
	}
	return item, nil
}

// UpdatePatch is a partial update; nil fields are left untouched.
type UpdatePatch struct {
	ProjectName *string
	Title       *string
	Description *string
	Type        *domain.WorkType
	Assignees   *[]id.UserID
	DueDate     *string
	Status      *domain.Status
	Impact      *domain.Level
	Urgency     *domain.Level
	UpdateNote  *string
}

// Update applies a partial patch to the stored document and stamps
// UpdatedAt. Like Create, it acks the write; the mirror catches up on push.
func (s *Service) Update(ctx context.Context, itemID id.WorkItemID, patch UpdatePatch) (domain.WorkItem, error) {
	actor := requestcontext.UserID(ctx)
	if actor.IsNil() {
		return domain.WorkItem{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	var updated domain.WorkItem
	err := s.store.UpdateTx(ctx, store.CollectionWorkItems, itemID.String(), func(current []byte) ([]byte, error) {
		item, err := domain.DecodeWorkItem(itemID.String(), current)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "stored work item is unreadable")
		}
		applyPatch(&item, patch)
		item.UpdatedAt = requestcontext.Now(ctx)
		updated = item
		return domain.EncodeWorkItem(item)
	})
	if err != nil {
		return domain.WorkItem{}, translateStoreErr(err, "failed to update work item")
	}

	s.logger.InfoContext(ctx, "work item updated",
		"request_id", requestcontext.RequestID(ctx),
		"work_item_id", itemID,
	)
	if s.metrics != nil {
		s.metrics.ItemsUpdated.Inc()
	}
	return updated, nil
}

// Get reads the authoritative stored document.
func (s *Service) Get(ctx context.Context, itemID id.WorkItemID) (domain.WorkItem, error) {
	doc, err := s.store.Get(ctx, store.CollectionWorkItems, itemID.String())
	if err != nil {
		return domain.WorkItem{}, translateStoreErr(err, "failed to load work item")
	}
	item, err := domain.DecodeWorkItem(doc.ID, doc.Data)
	if err != nil {
		return domain.WorkItem{}, dErrors.Wrap(err, dErrors.CodeInternal, "stored work item is unreadable")
	}
	return item, nil
}

// List returns the mirror's current scored view.
func (s *Service) List(ctx context.Context) []domain.WorkItem {
	return s.mirror.WorkItems()
}

// Ranked returns open items ordered by priority score, highest first. Ties
// break on the nearer due date, then ID for stability.
func (s *Service) Ranked(ctx context.Context) []domain.WorkItem {
	items := s.mirror.WorkItems()
	open := items[:0]
	for _, item := range items {
		if item.Status != domain.StatusDone {
			open = append(open, item)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		if open[i].PriorityScore != open[j].PriorityScore {
			return open[i].PriorityScore > open[j].PriorityScore
		}
		if !open[i].DueDate.Equal(open[j].DueDate) {
			return dueBefore(open[i].DueDate, open[j].DueDate)
		}
		return open[i].ID.String() < open[j].ID.String()
	})
	return open
}

// ProjectGroup is one project's items in the grouped board view.
type ProjectGroup struct {
	Project string
	Items   []domain.WorkItem
}

// ByProject groups the mirror by project name, projects sorted
// alphabetically, items by score within each group.
func (s *Service) ByProject(ctx context.Context) []ProjectGroup {
	byName := make(map[string][]domain.WorkItem)
	for _, item := range s.mirror.WorkItems() {
		byName[item.ProjectName] = append(byName[item.ProjectName], item)
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	groups := make([]ProjectGroup, 0, len(names))
	for _, name := range names {
		items := byName[name]
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].PriorityScore > items[j].PriorityScore
		})
		groups = append(groups, ProjectGroup{Project: name, Items: items})
	}
	return groups
}

// Mine returns the actor's assigned open items sorted by due date; items
// without a due date go last.
func (s *Service) Mine(ctx context.Context) []domain.WorkItem {
	actor := requestcontext.UserID(ctx)
	var mine []domain.WorkItem
	for _, item := range s.mirror.WorkItems() {
		if item.Status == domain.StatusDone {
			continue
		}
		for _, a := range item.Assignees {
			if a == actor {
				mine = append(mine, item)
				break
			}
		}
	}
	sort.SliceStable(mine, func(i, j int) bool {
		return dueBefore(mine[i].DueDate, mine[j].DueDate)
	})
	return mine
}

// Weights returns the session's current scoring weights.
func (s *Service) Weights(ctx context.Context) domain.Weights {
	return s.mirror.Weights()
}

// SetWeights replaces the session's scoring weights and rescores the
// mirror. The change is local to this process by design.
func (s *Service) SetWeights(ctx context.Context, w domain.Weights) error {
	if w.Impact < 0 || w.Urgency < 0 || w.Deadline < 0 {
		return dErrors.New(dErrors.CodeValidation, "weights must be non-negative")
	}
	s.mirror.SetWeights(w)
	if s.metrics != nil {
		s.metrics.WeightChanges.Inc()
	}
	s.logger.InfoContext(ctx, "scoring weights changed",
		"request_id", requestcontext.RequestID(ctx),
		"impact", w.Impact, "urgency", w.Urgency, "deadline", w.Deadline,
	)
	return nil
}

func applyPatch(item *domain.WorkItem, patch UpdatePatch) {
	if patch.ProjectName != nil {
		item.ProjectName = *patch.ProjectName
		if item.ProjectName == "" {
			item.ProjectName = DefaultProject
		}
	}
	if patch.Title != nil && *patch.Title != "" {
		item.Title = *patch.Title
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Type != nil {
		item.Type = *patch.Type
	}
	if patch.Assignees != nil {
		item.Assignees = *patch.Assignees
	}
	if patch.DueDate != nil {
		item.DueDate = mustParseDate(*patch.DueDate)
	}
	if patch.Status != nil {
		item.Status = *patch.Status
	}
	if patch.Impact != nil {
		item.Impact = *patch.Impact
	}
	if patch.Urgency != nil {
		item.Urgency = *patch.Urgency
	}
	if patch.UpdateNote != nil {
		item.UpdateNote = *patch.UpdateNote
	}
}

// mustParseDate is only fed handler-validated wire dates; anything else
// falls back to the zero time, which scoring treats as far future.
func mustParseDate(raw string) time.Time {
	t, err := time.Parse(domain.DateFormat, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

// dueBefore orders due dates ascending with zero (no due date) last.
func dueBefore(a, b time.Time) bool {
	if a.IsZero() {
		return false
	}
	if b.IsZero() {
		return true
	}
	return a.Before(b)
}

func translateStoreErr(err error, fallback string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "work item not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "work item already exists")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "document store unavailable")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, fallback)
	}
}
