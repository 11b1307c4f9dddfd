package domain

import (
	"encoding/json"
	"time"

	id "workboard/pkg/domain"
)

// Directive is a manager-authored strategic instruction fed to the AI
// assistant as extra context. Summary is the AI-condensed one-liner shown in
// lists and injected into prompts; Text is the raw input.
type Directive struct {
	ID            id.DirectiveID
	Text          string
	Summary       string
	CreatedAt     time.Time
	CreatedBy     id.UserID
	CreatedByName string
}

type directiveWire struct {
	Text          string `json:"text"`
	Summary       string `json:"summary"`
	CreatedAt     string `json:"created_at"`
	CreatedBy     string `json:"created_by"`
	CreatedByName string `json:"created_by_name,omitempty"`
}

// EncodeDirective marshals the stored representation of d.
func EncodeDirective(d Directive) ([]byte, error) {
	wire := directiveWire{
		Text:          d.Text,
		Summary:       d.Summary,
		CreatedBy:     d.CreatedBy.String(),
		CreatedByName: d.CreatedByName,
	}
	if !d.CreatedAt.IsZero() {
		wire.CreatedAt = d.CreatedAt.Format(time.RFC3339Nano)
	}
	return json.Marshal(wire)
}

// DecodeDirective unmarshals a stored directive document.
func DecodeDirective(docID string, data []byte) (Directive, error) {
	var wire directiveWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return Directive{}, err
	}
	dirID, _ := id.ParseDirectiveID(docID)
	d := Directive{
		ID:            dirID,
		Text:          wire.Text,
		Summary:       wire.Summary,
		CreatedByName: wire.CreatedByName,
	}
	if uid, err := id.ParseUserID(wire.CreatedBy); err == nil {
		d.CreatedBy = uid
	}
	if t, err := time.Parse(time.RFC3339Nano, wire.CreatedAt); err == nil {
		d.CreatedAt = t
	}
	return d, nil
}
