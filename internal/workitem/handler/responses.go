package handler

import (
	"time"

	"workboard/internal/domain"
	"workboard/internal/workitem/service"
)

// WorkItemResponse is the API representation of a work item. Unlike the
// stored document it carries the ID and the derived priority score.
type WorkItemResponse struct {
	ID            string   `json:"id"`
	ProjectName   string   `json:"project_name"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Type          string   `json:"type"`
	Assignees     []string `json:"assignees"`
	Requester     string   `json:"requester,omitempty"`
	StartDate     string   `json:"start_date,omitempty"`
	DueDate       string   `json:"due_date,omitempty"`
	Status        string   `json:"status"`
	Impact        string   `json:"impact"`
	Urgency       string   `json:"urgency"`
	Approval      string   `json:"approval_status"`
	UpdatedAt     string   `json:"updated_at,omitempty"`
	UpdateNote    string   `json:"last_update_note,omitempty"`
	PriorityScore float64  `json:"priority_score"`
}

// FromWorkItem maps a domain work item to its API shape.
func FromWorkItem(item domain.WorkItem) WorkItemResponse {
	resp := WorkItemResponse{
		ID:            item.ID.String(),
		ProjectName:   item.ProjectName,
		Title:         item.Title,
		Description:   item.Description,
		Type:          string(item.Type),
		Assignees:     make([]string, 0, len(item.Assignees)),
		Status:        string(item.Status),
		Impact:        string(item.Impact),
		Urgency:       string(item.Urgency),
		Approval:      string(item.Approval),
		UpdateNote:    item.UpdateNote,
		PriorityScore: item.PriorityScore,
	}
	for _, a := range item.Assignees {
		resp.Assignees = append(resp.Assignees, a.String())
	}
	if !item.Requester.IsNil() {
		resp.Requester = item.Requester.String()
	}
	if !item.StartDate.IsZero() {
		resp.StartDate = item.StartDate.Format(domain.DateFormat)
	}
	if !item.DueDate.IsZero() {
		resp.DueDate = item.DueDate.Format(domain.DateFormat)
	}
	if !item.UpdatedAt.IsZero() {
		resp.UpdatedAt = item.UpdatedAt.Format(time.RFC3339Nano)
	}
	return resp
}

// FromWorkItems maps a slice of work items.
func FromWorkItems(items []domain.WorkItem) []WorkItemResponse {
	out := make([]WorkItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, FromWorkItem(item))
	}
	return out
}

// ProjectGroupResponse is one project's slice of the grouped board view.
type ProjectGroupResponse struct {
	Project string             `json:"project"`
	Items   []WorkItemResponse `json:"items"`
}

// FromProjectGroups maps grouped items to their API shape.
func FromProjectGroups(groups []service.ProjectGroup) []ProjectGroupResponse {
	out := make([]ProjectGroupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, ProjectGroupResponse{Project: g.Project, Items: FromWorkItems(g.Items)})
	}
	return out
}

// WeightsResponse echoes the active scoring weights.
type WeightsResponse struct {
	Impact   float64 `json:"impact"`
	Urgency  float64 `json:"urgency"`
	Deadline float64 `json:"deadline"`
}

// FromWeights maps weights to their API shape.
func FromWeights(w domain.Weights) WeightsResponse {
	return WeightsResponse{Impact: w.Impact, Urgency: w.Urgency, Deadline: w.Deadline}
}
