package domain

// Level grades impact and urgency.
type Level string

const (
	LevelLow  Level = "low"
	LevelMed  Level = "med"
	LevelHigh Level = "high"
)

// Ordinal maps a level to its numeric weight input (Low=1, Med=2, High=3).
// Unknown values fall back to 1; scoring must never fail on dirty data.
func (l Level) Ordinal() int {
	switch l {
	case LevelMed:
		return 2
	case LevelHigh:
		return 3
	default:
		return 1
	}
}

// ParseLevel decodes a level from the wire, defaulting unknown or missing
// values to Low rather than erroring.
func ParseLevel(raw string) Level {
	switch Level(raw) {
	case LevelLow, LevelMed, LevelHigh:
		return Level(raw)
	default:
		return LevelLow
	}
}

// Status tracks work item progress.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// ParseStatus decodes a status, defaulting unknown values to Todo.
func ParseStatus(raw string) Status {
	switch Status(raw) {
	case StatusTodo, StatusInProgress, StatusDone:
		return Status(raw)
	default:
		return StatusTodo
	}
}

// ApprovalStatus tracks the proposal lifecycle. Approved and Rejected are
// terminal; there is no transition out of them.
type ApprovalStatus string

const (
	ApprovalNone     ApprovalStatus = "none"
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Terminal reports whether no further transition is possible.
func (a ApprovalStatus) Terminal() bool {
	return a == ApprovalApproved || a == ApprovalRejected
}

// ParseApprovalStatus decodes an approval status, defaulting unknown values
// to None.
func ParseApprovalStatus(raw string) ApprovalStatus {
	switch ApprovalStatus(raw) {
	case ApprovalNone, ApprovalPending, ApprovalApproved, ApprovalRejected:
		return ApprovalStatus(raw)
	default:
		return ApprovalNone
	}
}

// Role gates write access: a member edits only their own attendance, a
// manager edits anyone's and owns seeding, approvals, and directives.
type Role string

const (
	RoleMember  Role = "member"
	RoleManager Role = "manager"
)

// ParseRole decodes a role, defaulting unknown values to Member.
func ParseRole(raw string) Role {
	if Role(raw) == RoleManager {
		return RoleManager
	}
	return RoleMember
}

// WorkType classifies a work item.
type WorkType string

const (
	TypePlanning      WorkType = "planning"
	TypeDevelopment   WorkType = "development"
	TypeDesign        WorkType = "design"
	TypeOperations    WorkType = "operations"
	TypeMeeting       WorkType = "meeting"
	TypeResearch      WorkType = "research"
	TypeDocumentation WorkType = "documentation"
)

// WorkTypes lists the fixed enumerated set in display order.
var WorkTypes = []WorkType{
	TypePlanning, TypeDevelopment, TypeDesign, TypeOperations,
	TypeMeeting, TypeResearch, TypeDocumentation,
}

// ParseWorkType decodes a work type, defaulting unknown values to
// Development.
func ParseWorkType(raw string) WorkType {
	for _, t := range WorkTypes {
		if WorkType(raw) == t {
			return t
		}
	}
	return TypeDevelopment
}
