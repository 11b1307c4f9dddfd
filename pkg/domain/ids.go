// Package domain defines typed identifiers shared across workboard services.
//
// Each entity gets its own UUID-backed type so a WorkItemID can never be
// passed where a UserID is expected. Parsing happens at trust boundaries
// (HTTP handlers, store decoding); everything past the boundary works with
// the typed values.
package domain

import (
	"github.com/google/uuid"

	dErrors "workboard/pkg/domain-errors"
)

type (
	// UserID identifies a team member.
	UserID uuid.UUID
	// WorkItemID identifies a unit of assignable work.
	WorkItemID uuid.UUID
	// ProposalID identifies an approval-workflow proposal.
	ProposalID uuid.UUID
	// DirectiveID identifies a manager-authored AI directive.
	DirectiveID uuid.UUID
	// SessionID identifies an authenticated session.
	SessionID uuid.UUID
)

func (id UserID) String() string      { return uuid.UUID(id).String() }
func (id WorkItemID) String() string  { return uuid.UUID(id).String() }
func (id ProposalID) String() string  { return uuid.UUID(id).String() }
func (id DirectiveID) String() string { return uuid.UUID(id).String() }
func (id SessionID) String() string   { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id WorkItemID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id ProposalID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id DirectiveID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// NewUserID mints a fresh user identifier.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewWorkItemID mints a fresh work item identifier.
func NewWorkItemID() WorkItemID { return WorkItemID(uuid.New()) }

// NewProposalID mints a fresh proposal identifier.
func NewProposalID() ProposalID { return ProposalID(uuid.New()) }

// NewDirectiveID mints a fresh directive identifier.
func NewDirectiveID() DirectiveID { return DirectiveID(uuid.New()) }

// NewSessionID mints a fresh session identifier.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// parseUUID enforces the shared invariant: IDs must be valid, non-empty,
// non-nil UUIDs.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be nil")
	}
	return parsed, nil
}

// ParseUserID parses and validates a user ID from its string form.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user")
	return UserID(parsed), err
}

// ParseWorkItemID parses and validates a work item ID from its string form.
func ParseWorkItemID(raw string) (WorkItemID, error) {
	parsed, err := parseUUID(raw, "work item")
	return WorkItemID(parsed), err
}

// ParseProposalID parses and validates a proposal ID from its string form.
func ParseProposalID(raw string) (ProposalID, error) {
	parsed, err := parseUUID(raw, "proposal")
	return ProposalID(parsed), err
}

// ParseDirectiveID parses and validates a directive ID from its string form.
func ParseDirectiveID(raw string) (DirectiveID, error) {
	parsed, err := parseUUID(raw, "directive")
	return DirectiveID(parsed), err
}

// ParseSessionID parses and validates a session ID from its string form.
func ParseSessionID(raw string) (SessionID, error) {
	parsed, err := parseUUID(raw, "session")
	return SessionID(parsed), err
}
