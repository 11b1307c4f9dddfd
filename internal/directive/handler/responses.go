package handler

import (
	"time"

	"workboard/internal/domain"
)

type DirectiveResponse struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	Summary       string `json:"summary"`
	CreatedAt     string `json:"created_at"`
	CreatedBy     string `json:"created_by"`
	CreatedByName string `json:"created_by_name,omitempty"`
}

func FromDirective(d domain.Directive) DirectiveResponse {
	resp := DirectiveResponse{
		ID:            d.ID.String(),
		Text:          d.Text,
		Summary:       d.Summary,
		CreatedBy:     d.CreatedBy.String(),
		CreatedByName: d.CreatedByName,
	}
	if !d.CreatedAt.IsZero() {
		resp.CreatedAt = d.CreatedAt.Format(time.RFC3339Nano)
	}
	return resp
}

func FromDirectives(directives []domain.Directive) []DirectiveResponse {
	out := make([]DirectiveResponse, 0, len(directives))
	for _, d := range directives {
		out = append(out, FromDirective(d))
	}
	return out
}
