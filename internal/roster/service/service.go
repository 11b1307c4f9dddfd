package service

import (
	"context"
	"errors"
	"log/slog"

	"workboard/internal/domain"
	"workboard/internal/store"
	id "workboard/pkg/domain"
	dErrors "workboard/pkg/domain-errors"
	"workboard/pkg/platform/sentinel"
	"workboard/pkg/requestcontext"
)

// Mirror is the roster read model fed by the sync layer.
type Mirror interface {
	Users() []domain.User
	User(userID id.UserID) (domain.User, bool)
}

// Service owns roster reads and attendance writes.
type Service struct {
	store  store.Store
	mirror Mirror
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
func New(st store.Store, mirror Mirror, opts ...Option) *Service {
	s := &Service{store: st, mirror: mirror, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// List returns the mirror's current roster.
func (s *Service) List(ctx context.Context) []domain.User {
	return s.mirror.Users()
}

// Get reads the authoritative stored profile.
func (s *Service) Get(ctx context.Context, userID id.UserID) (domain.User, error) {
	doc, err := s.store.Get(ctx, store.CollectionUsers, userID.String())
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return domain.User{}, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return domain.User{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	u, err := domain.DecodeUser(doc.ID, doc.Data)
	if err != nil {
		return domain.User{}, dErrors.Wrap(err, dErrors.CodeInternal, "stored user is unreadable")
	}
	return u, nil
}

// AttendancePatch updates attendance fields; nil fields are left untouched.
type AttendancePatch struct {
	TodayStatus     *string
	ScheduledStatus *string
}

// UpdateAttendance writes a user's attendance. Anyone edits their own row;
// editing someone else's requires the Manager role.
func (s *Service) UpdateAttendance(ctx context.Context, userID id.UserID, patch AttendancePatch) (domain.User, error) {
	actor := requestcontext.UserID(ctx)
	if actor.IsNil() {
		return domain.User{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if actor != userID && requestcontext.Role(ctx) != string(domain.RoleManager) {
		return domain.User{}, dErrors.New(dErrors.CodeForbidden, "only managers may edit another member's attendance")
	}
	if patch.TodayStatus == nil && patch.ScheduledStatus == nil {
		return domain.User{}, dErrors.New(dErrors.CodeValidation, "nothing to update")
	}

	var updated domain.User
	err := s.store.UpdateTx(ctx, store.CollectionUsers, userID.String(), func(current []byte) ([]byte, error) {
		u, err := domain.DecodeUser(userID.String(), current)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "stored user is unreadable")
		}
		if patch.TodayStatus != nil {
			u.TodayStatus = *patch.TodayStatus
		}
		if patch.ScheduledStatus != nil {
			u.ScheduledStatus = *patch.ScheduledStatus
		}
		u.UpdatedAt = requestcontext.Now(ctx)
		updated = u
		return domain.EncodeUser(u)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return domain.User{}, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		var de *dErrors.Error
		if errors.As(err, &de) {
			return domain.User{}, err
		}
		return domain.User{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update attendance")
	}

	s.logger.InfoContext(ctx, "attendance updated",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID,
		"by", actor,
	)
	return updated, nil
}
