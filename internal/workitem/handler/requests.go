package handler

import (
	"strings"
	"time"

	"workboard/internal/domain"
	"workboard/internal/workitem/service"
	id "workboard/pkg/domain"
	dErrors "workboard/pkg/domain-errors"
	strutil "workboard/pkg/platform/strings"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 4000
	maxProjectLen     = 120
	maxNoteLen        = 500
	maxAssignees      = 20
)

// CreateWorkItemRequest is the HTTP request body for POST /workitems.
type CreateWorkItemRequest struct {
	ProjectName string   `json:"project_name"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Assignees   []string `json:"assignees"`
	DueDate     string   `json:"due_date"`
	Impact      string   `json:"impact"`
	Urgency     string   `json:"urgency"`

	// Parsed values (populated by Validate)
	parsed service.CreateInput
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateWorkItemRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Title = strings.TrimSpace(r.Title)
	r.ProjectName = strings.TrimSpace(r.ProjectName)
	if len(r.Title) > maxTitleLen {
		return dErrors.New(dErrors.CodeValidation, "title is too long")
	}
	if len(r.ProjectName) > maxProjectLen {
		return dErrors.New(dErrors.CodeValidation, "project_name is too long")
	}
	if len(r.Description) > maxDescriptionLen {
		return dErrors.New(dErrors.CodeValidation, "description is too long")
	}
	if len(r.Assignees) > maxAssignees {
		return dErrors.New(dErrors.CodeValidation, "too many assignees")
	}

	workType, err := parseWorkType(r.Type)
	if err != nil {
		return err
	}
	impact, err := parseLevel(r.Impact, "impact")
	if err != nil {
		return err
	}
	urgency, err := parseLevel(r.Urgency, "urgency")
	if err != nil {
		return err
	}
	if err := validateDate(r.DueDate, "due_date"); err != nil {
		return err
	}
	assignees, err := parseAssignees(r.Assignees)
	if err != nil {
		return err
	}

	r.parsed = service.CreateInput{
		ProjectName: r.ProjectName,
		Title:       r.Title,
		Description: r.Description,
		Type:        workType,
		Assignees:   assignees,
		DueDate:     r.DueDate,
		Impact:      impact,
		Urgency:     urgency,
	}
	return nil
}

// Parsed returns the validated creation input.
func (r *CreateWorkItemRequest) Parsed() service.CreateInput {
	return r.parsed
}

// UpdateWorkItemRequest is the HTTP request body for PATCH /workitems/{id}.
// Absent fields are left untouched.
type UpdateWorkItemRequest struct {
	ProjectName *string   `json:"project_name"`
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Type        *string   `json:"type"`
	Assignees   *[]string `json:"assignees"`
	DueDate     *string   `json:"due_date"`
	Status      *string   `json:"status"`
	Impact      *string   `json:"impact"`
	Urgency     *string   `json:"urgency"`
	UpdateNote  *string   `json:"last_update_note"`

	parsed service.UpdatePatch
}

// Validate validates and parses the request.
func (r *UpdateWorkItemRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	patch := service.UpdatePatch{
		ProjectName: r.ProjectName,
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate,
		UpdateNote:  r.UpdateNote,
	}
	if r.Title != nil && len(*r.Title) > maxTitleLen {
		return dErrors.New(dErrors.CodeValidation, "title is too long")
	}
	if r.Description != nil && len(*r.Description) > maxDescriptionLen {
		return dErrors.New(dErrors.CodeValidation, "description is too long")
	}
	if r.UpdateNote != nil && len(*r.UpdateNote) > maxNoteLen {
		return dErrors.New(dErrors.CodeValidation, "last_update_note is too long")
	}
	if r.Type != nil {
		workType, err := parseWorkType(*r.Type)
		if err != nil {
			return err
		}
		patch.Type = &workType
	}
	if r.Status != nil {
		status, err := parseStatus(*r.Status)
		if err != nil {
			return err
		}
		patch.Status = &status
	}
	if r.Impact != nil {
		level, err := parseLevel(*r.Impact, "impact")
		if err != nil {
			return err
		}
		patch.Impact = &level
	}
	if r.Urgency != nil {
		level, err := parseLevel(*r.Urgency, "urgency")
		if err != nil {
			return err
		}
		patch.Urgency = &level
	}
	if r.DueDate != nil {
		if err := validateDate(*r.DueDate, "due_date"); err != nil {
			return err
		}
	}
	if r.Assignees != nil {
		if len(*r.Assignees) > maxAssignees {
			return dErrors.New(dErrors.CodeValidation, "too many assignees")
		}
		assignees, err := parseAssignees(*r.Assignees)
		if err != nil {
			return err
		}
		patch.Assignees = &assignees
	}

	r.parsed = patch
	return nil
}

// Parsed returns the validated patch.
func (r *UpdateWorkItemRequest) Parsed() service.UpdatePatch {
	return r.parsed
}

// WeightsRequest is the HTTP request body for PUT /weights.
type WeightsRequest struct {
	Impact   float64 `json:"impact"`
	Urgency  float64 `json:"urgency"`
	Deadline float64 `json:"deadline"`
}

// Validate validates the request.
func (r *WeightsRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Impact < 0 || r.Urgency < 0 || r.Deadline < 0 {
		return dErrors.New(dErrors.CodeValidation, "weights must be non-negative")
	}
	return nil
}

// Weights returns the parsed weights.
func (r *WeightsRequest) Weights() domain.Weights {
	return domain.Weights{Impact: r.Impact, Urgency: r.Urgency, Deadline: r.Deadline}
}

// The API boundary validates enums strictly; the lenient fallback parsing is
// reserved for stored documents.

func parseWorkType(raw string) (domain.WorkType, error) {
	if raw == "" {
		return "", nil
	}
	for _, t := range domain.WorkTypes {
		if domain.WorkType(raw) == t {
			return t, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown work item type")
}

func parseStatus(raw string) (domain.Status, error) {
	switch domain.Status(raw) {
	case domain.StatusTodo, domain.StatusInProgress, domain.StatusDone:
		return domain.Status(raw), nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "unknown status")
	}
}

func parseLevel(raw, field string) (domain.Level, error) {
	if raw == "" {
		return "", nil
	}
	switch domain.Level(raw) {
	case domain.LevelLow, domain.LevelMed, domain.LevelHigh:
		return domain.Level(raw), nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, field+" must be one of low, med, high")
	}
}

func validateDate(raw, field string) error {
	if raw == "" {
		return nil
	}
	if _, err := time.Parse(domain.DateFormat, raw); err != nil {
		return dErrors.New(dErrors.CodeValidation, field+" must be formatted as YYYY-MM-DD")
	}
	return nil
}

func parseAssignees(raw []string) ([]id.UserID, error) {
	raw = strutil.DedupeAndTrim(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]id.UserID, 0, len(raw))
	for _, s := range raw {
		uid, err := id.ParseUserID(s)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeValidation, "assignees must be valid user IDs")
		}
		out = append(out, uid)
	}
	return out, nil
}
