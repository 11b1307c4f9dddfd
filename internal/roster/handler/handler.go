package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"workboard/internal/domain"
	"workboard/internal/roster/service"
	id "workboard/pkg/domain"
	dErrors "workboard/pkg/domain-errors"
	"workboard/pkg/platform/httputil"
	"workboard/pkg/requestcontext"
)

// Service defines the roster operations the handler needs.
type Service interface {
	List(ctx context.Context) []domain.User
	Get(ctx context.Context, userID id.UserID) (domain.User, error)
	UpdateAttendance(ctx context.Context, userID id.UserID, patch service.AttendancePatch) (domain.User, error)
}

// Handler wires roster endpoints to the roster service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a roster handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts roster endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/roster", h.HandleList)
	r.Get("/roster/{id}", h.HandleGet)
	r.Patch("/roster/{id}/attendance", h.HandleUpdateAttendance)
}

// UserResponse is the API representation of a roster member.
type UserResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email,omitempty"`
	Role            string `json:"role"`
	TodayStatus     string `json:"today_status,omitempty"`
	ScheduledStatus string `json:"scheduled_status,omitempty"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}

// FromUser maps a domain user to its API shape.
func FromUser(u domain.User) UserResponse {
	resp := UserResponse{
		ID:              u.ID.String(),
		Name:            u.Name,
		Email:           u.Email,
		Role:            string(u.Role),
		TodayStatus:     u.TodayStatus,
		ScheduledStatus: u.ScheduledStatus,
	}
	if !u.UpdatedAt.IsZero() {
		resp.UpdatedAt = u.UpdatedAt.Format(time.RFC3339Nano)
	}
	return resp
}

// AttendanceRequest is the HTTP request body for PATCH /roster/{id}/attendance.
type AttendanceRequest struct {
	TodayStatus     *string `json:"today_status"`
	ScheduledStatus *string `json:"scheduled_status"`
}

// Validate validates the request.
func (r *AttendanceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.TodayStatus == nil && r.ScheduledStatus == nil {
		return dErrors.New(dErrors.CodeValidation, "today_status or scheduled_status is required")
	}
	if r.TodayStatus != nil && len(*r.TodayStatus) > 100 {
		return dErrors.New(dErrors.CodeValidation, "today_status is too long")
	}
	if r.ScheduledStatus != nil && len(*r.ScheduledStatus) > 200 {
		return dErrors.New(dErrors.CodeValidation, "scheduled_status is too long")
	}
	return nil
}

// HandleList handles GET /roster requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	users := h.service.List(r.Context())
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, FromUser(u))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /roster/{id} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	u, err := h.service.Get(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromUser(u))
}

// HandleUpdateAttendance handles PATCH /roster/{id}/attendance requests.
func (h *Handler) HandleUpdateAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[*AttendanceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	u, err := h.service.UpdateAttendance(ctx, userID, service.AttendancePatch{
		TodayStatus:     req.TodayStatus,
		ScheduledStatus: req.ScheduledStatus,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "attendance update rejected",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromUser(u))
}
