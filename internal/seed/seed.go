// Package seed provisions the demo baseline: four roster members (one
// manager) and eight work items across three projects. Seeding is
// best-effort check-then-batch: concurrent managers may both pass the empty
// check, which is accepted and observable through the seed pass counter.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"workboard/internal/domain"
	"workboard/internal/store"
	id "workboard/pkg/domain"
	dErrors "workboard/pkg/domain-errors"
	"workboard/pkg/requestcontext"
)

var seedPasses = promauto.NewCounter(prometheus.CounterOpts{
	Name: "workboard_seed_passes_total",
	Help: "Total number of committed seed passes; duplicates indicate a seed race",
})

// Service writes the baseline data set.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Service.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{store: st, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// baselineUser pairs a stable seed slot with its roster profile. The slot
// keys the document ID so repeated passes land on the same documents.
type baselineUser struct {
	slot string
	user domain.User
}

// BaselineUsers returns the demo roster. IDs are derived deterministically
// from the slot name so top-up passes are idempotent per user.
func BaselineUsers() []domain.User {
	defs := []baselineUser{
		{"u1", domain.User{Name: "Dana Kim", Email: "manager1@demo.ai", Role: domain.RoleManager, TodayStatus: "office", ScheduledStatus: "leading the afternoon strategy review"}},
		{"u2", domain.User{Name: "Mika Lee", Email: "member1@demo.ai", Role: domain.RoleMember, TodayStatus: "remote", ScheduledStatus: "half day from 2pm"}},
		{"u3", domain.User{Name: "Jimin Park", Email: "jimin@demo.com", Role: domain.RoleMember, TodayStatus: "meeting", ScheduledStatus: "client visit downtown"}},
		{"u4", domain.User{Name: "Max Choi", Email: "dong@demo.com", Role: domain.RoleMember, TodayStatus: "on-site", ScheduledStatus: "heading home from the field"}},
	}
	users := make([]domain.User, 0, len(defs))
	for _, def := range defs {
		def.user.ID = SlotUserID(def.slot)
		users = append(users, def.user)
	}
	return users
}

// SlotUserID derives the stable user ID for a seed slot.
func SlotUserID(slot string) id.UserID {
	return id.UserID(uuid.NewSHA1(uuid.NameSpaceOID, []byte("workboard/seed/users/"+slot)))
}

type baselineTask struct {
	title   string
	project string
	typ     domain.WorkType
	status  domain.Status
	impact  domain.Level
	urgency domain.Level
}

var baselineTasks = []baselineTask{
	{"Design the infrastructure security protocol", "NextGen AI Platform", domain.TypeDevelopment, domain.StatusInProgress, domain.LevelHigh, domain.LevelHigh},
	{"Establish the global design guidelines", "Global UX Renewal", domain.TypeDesign, domain.StatusTodo, domain.LevelMed, domain.LevelMed},
	{"Optimize the core API endpoints", "NextGen AI Platform", domain.TypeDevelopment, domain.StatusInProgress, domain.LevelHigh, domain.LevelMed},
	{"Migrate the ERP database", "Internal ERP System", domain.TypeOperations, domain.StatusTodo, domain.LevelHigh, domain.LevelHigh},
	{"Analyze user experience feedback", "Global UX Renewal", domain.TypeResearch, domain.StatusDone, domain.LevelLow, domain.LevelLow},
	{"Draft the new service proposal", "NextGen AI Platform", domain.TypePlanning, domain.StatusTodo, domain.LevelMed, domain.LevelMed},
	{"Profile frontend performance", "NextGen AI Platform", domain.TypeDevelopment, domain.StatusInProgress, domain.LevelHigh, domain.LevelHigh},
	{"Script the deployment automation", "Internal ERP System", domain.TypeOperations, domain.StatusTodo, domain.LevelMed, domain.LevelLow},
}

const seededNote = "Initially assigned"

// EnsureSeed writes the baseline if it is missing. Manager-only. Work items
// are seeded only when the collection is empty; baseline users are inserted
// individually by stable identifier, never overwriting a present document.
// All writes of a pass go in one atomic batch.
func (s *Service) EnsureSeed(ctx context.Context) error {
	actor := requestcontext.UserID(ctx)
	if actor.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if requestcontext.Role(ctx) != string(domain.RoleManager) {
		return dErrors.New(dErrors.CodeForbidden, "only managers may seed the board")
	}

	items, err := s.store.List(ctx, store.CollectionWorkItems)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to inspect work items")
	}
	users, err := s.store.List(ctx, store.CollectionUsers)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to inspect roster")
	}

	baseline := BaselineUsers()
	var writes []store.Write

	if len(items) == 0 {
		itemWrites, err := s.workItemWrites(ctx, baseline)
		if err != nil {
			return err
		}
		writes = append(writes, itemWrites...)
	}
	userWrites, err := userWrites(baseline, users)
	if err != nil {
		return err
	}
	writes = append(writes, userWrites...)
	if len(writes) == 0 {
		return nil
	}

	if err := s.store.ApplyBatch(ctx, writes); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "seed batch failed")
	}
	seedPasses.Inc()
	s.logger.InfoContext(ctx, "baseline data seeded",
		"request_id", requestcontext.RequestID(ctx),
		"writes", len(writes),
		"seeded_by", actor,
	)
	return nil
}

func (s *Service) workItemWrites(ctx context.Context, baseline []domain.User) ([]store.Write, error) {
	now := requestcontext.Now(ctx)
	manager := baseline[0].ID

	writes := make([]store.Write, 0, len(baselineTasks))
	for i, task := range baselineTasks {
		item := domain.WorkItem{
			ID:          id.NewWorkItemID(),
			ProjectName: task.project,
			Title:       task.title,
			Description: fmt.Sprintf("Key task toward the goals of the %s project.", task.project),
			Type:        task.typ,
			Assignees:   []id.UserID{baseline[i%len(baseline)].ID},
			Requester:   manager,
			StartDate:   now,
			DueDate:     now.AddDate(0, 0, i+2),
			Status:      task.status,
			Impact:      task.impact,
			Urgency:     task.urgency,
			Approval:    domain.ApprovalNone,
			UpdatedAt:   now,
			UpdateNote:  seededNote,
		}
		data, err := domain.EncodeWorkItem(item)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode seed work item")
		}
		writes = append(writes, store.Write{
			Op:         store.OpPut,
			Collection: store.CollectionWorkItems,
			Doc:        store.Document{ID: item.ID.String(), Data: data},
		})
	}
	return writes, nil
}

// userWrites inserts only the baseline users whose stable ID is absent from
// the store. Present users keep their current documents; a top-up must never
// revert someone's attendance edits.
func userWrites(baseline []domain.User, existing []store.Document) ([]store.Write, error) {
	present := make(map[string]struct{}, len(existing))
	for _, doc := range existing {
		present[doc.ID] = struct{}{}
	}

	writes := make([]store.Write, 0, len(baseline))
	for _, u := range baseline {
		if _, ok := present[u.ID.String()]; ok {
			continue
		}
		data, err := domain.EncodeUser(u)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode seed user")
		}
		writes = append(writes, store.Write{
			Op:         store.OpPut,
			Collection: store.CollectionUsers,
			Doc:        store.Document{ID: u.ID.String(), Data: data},
		})
	}
	return writes, nil
}
