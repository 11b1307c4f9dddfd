package domain

import (
	"encoding/json"
	"time"

	id "workboard/pkg/domain"
)

// Proposal is an AI-or-user-originated suggestion awaiting a manager
// decision. Created Pending; exactly one manager action moves it to a
// terminal state and records who decided and when.
type Proposal struct {
	ID          id.ProposalID
	Suggestion  string
	Explanation string
	CreatedBy   id.UserID
	CreatedAt   time.Time
	Approval    ApprovalStatus
	DecidedBy   id.UserID
	DecidedAt   time.Time
}

type proposalWire struct {
	Suggestion  string `json:"suggestion_text"`
	Explanation string `json:"explanation"`
	CreatedBy   string `json:"created_by"`
	CreatedAt   string `json:"created_at"`
	Approval    string `json:"approval_status"`
	DecidedBy   string `json:"decided_by,omitempty"`
	DecidedAt   string `json:"decided_at,omitempty"`
}

// EncodeProposal marshals the stored representation of p.
func EncodeProposal(p Proposal) ([]byte, error) {
	wire := proposalWire{
		Suggestion:  p.Suggestion,
		Explanation: p.Explanation,
		CreatedBy:   p.CreatedBy.String(),
		Approval:    string(p.Approval),
	}
	if !p.CreatedAt.IsZero() {
		wire.CreatedAt = p.CreatedAt.Format(time.RFC3339Nano)
	}
	if !p.DecidedBy.IsNil() {
		wire.DecidedBy = p.DecidedBy.String()
	}
	if !p.DecidedAt.IsZero() {
		wire.DecidedAt = p.DecidedAt.Format(time.RFC3339Nano)
	}
	return json.Marshal(wire)
}

// DecodeProposal unmarshals a stored proposal document.
func DecodeProposal(docID string, data []byte) (Proposal, error) {
	var wire proposalWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return Proposal{}, err
	}
	propID, _ := id.ParseProposalID(docID)
	p := Proposal{
		ID:          propID,
		Suggestion:  wire.Suggestion,
		Explanation: wire.Explanation,
		Approval:    ParseApprovalStatus(wire.Approval),
	}
	if uid, err := id.ParseUserID(wire.CreatedBy); err == nil {
		p.CreatedBy = uid
	}
	if uid, err := id.ParseUserID(wire.DecidedBy); err == nil {
		p.DecidedBy = uid
	}
	if t, err := time.Parse(time.RFC3339Nano, wire.CreatedAt); err == nil {
		p.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, wire.DecidedAt); err == nil {
		p.DecidedAt = t
	}
	return p, nil
}
