package domain

import (
	"encoding/json"
	"time"

	id "workboard/pkg/domain"
)

// DateFormat is the wire format for civil dates (start/due).
const DateFormat = "2006-01-02"

// WorkItem is a unit of assignable work. PriorityScore is derived on every
// sync tick and never persisted authoritatively: the stored document carries
// no score field at all, so a stale score can never be read back as truth.
type WorkItem struct {
	ID          id.WorkItemID
	ProjectName string
	Title       string
	Description string
	Type        WorkType
	Assignees   []id.UserID
	Requester   id.UserID
	StartDate   time.Time // civil date; zero when absent
	DueDate     time.Time // civil date; zero means "far future" (malformed or absent)
	Status      Status
	Impact      Level
	Urgency     Level
	Approval    ApprovalStatus
	UpdatedAt   time.Time
	UpdateNote  string

	// PriorityScore is recomputed by the sync layer after every push and
	// weight change. Consumers must treat it as valid only for the snapshot
	// it arrived with.
	PriorityScore float64
}

// workItemWire is the stored JSON shape. The document ID is the store key
// and is not repeated in the body.
type workItemWire struct {
	ProjectName string   `json:"project_name"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Assignees   []string `json:"assignees"`
	Requester   string   `json:"requester"`
	StartDate   string   `json:"start_date"`
	DueDate     string   `json:"due_date"`
	Status      string   `json:"status"`
	Impact      string   `json:"impact"`
	Urgency     string   `json:"urgency"`
	Approval    string   `json:"approval_status"`
	UpdatedAt   string   `json:"updated_at"`
	UpdateNote  string   `json:"last_update_note"`
}

// EncodeWorkItem marshals the stored representation of w. The derived
// PriorityScore is intentionally dropped.
func EncodeWorkItem(w WorkItem) ([]byte, error) {
	wire := workItemWire{
		ProjectName: w.ProjectName,
		Title:       w.Title,
		Description: w.Description,
		Type:        string(w.Type),
		Assignees:   make([]string, 0, len(w.Assignees)),
		Requester:   w.Requester.String(),
		Status:      string(w.Status),
		Impact:      string(w.Impact),
		Urgency:     string(w.Urgency),
		Approval:    string(w.Approval),
		UpdateNote:  w.UpdateNote,
	}
	for _, a := range w.Assignees {
		wire.Assignees = append(wire.Assignees, a.String())
	}
	if !w.StartDate.IsZero() {
		wire.StartDate = w.StartDate.Format(DateFormat)
	}
	if !w.DueDate.IsZero() {
		wire.DueDate = w.DueDate.Format(DateFormat)
	}
	if !w.UpdatedAt.IsZero() {
		wire.UpdatedAt = w.UpdatedAt.Format(time.RFC3339Nano)
	}
	return json.Marshal(wire)
}

// DecodeWorkItem unmarshals a stored document. Malformed enum values and
// dates fail closed to safe fallbacks; the only hard error is a body that is
// not JSON at all.
func DecodeWorkItem(docID string, data []byte) (WorkItem, error) {
	var wire workItemWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return WorkItem{}, err
	}

	itemID, _ := id.ParseWorkItemID(docID)
	w := WorkItem{
		ID:          itemID,
		ProjectName: wire.ProjectName,
		Title:       wire.Title,
		Description: wire.Description,
		Type:        ParseWorkType(wire.Type),
		Status:      ParseStatus(wire.Status),
		Impact:      ParseLevel(wire.Impact),
		Urgency:     ParseLevel(wire.Urgency),
		Approval:    ParseApprovalStatus(wire.Approval),
		UpdateNote:  wire.UpdateNote,
	}
	for _, raw := range wire.Assignees {
		if uid, err := id.ParseUserID(raw); err == nil {
			w.Assignees = append(w.Assignees, uid)
		}
	}
	if uid, err := id.ParseUserID(wire.Requester); err == nil {
		w.Requester = uid
	}
	w.StartDate = parseDate(wire.StartDate)
	w.DueDate = parseDate(wire.DueDate)
	if t, err := time.Parse(time.RFC3339Nano, wire.UpdatedAt); err == nil {
		w.UpdatedAt = t
	}
	return w, nil
}

// parseDate maps malformed or missing dates to the zero time, which scoring
// treats as far future (minimal deadline contribution).
func parseDate(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(DateFormat, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
