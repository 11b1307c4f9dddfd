package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "workboard/pkg/domain"
)

func TestDecodeWorkItem_FailsClosed(t *testing.T) {
	docID := id.NewWorkItemID()

	t.Run("unknown enums default to safe values", func(t *testing.T) {
		body := []byte(`{
			"title": "migrate billing",
			"type": "sorcery",
			"status": "paused",
			"impact": "catastrophic",
			"urgency": "",
			"approval_status": "maybe"
		}`)
		w, err := DecodeWorkItem(docID.String(), body)
		require.NoError(t, err)
		assert.Equal(t, TypeDevelopment, w.Type)
		assert.Equal(t, StatusTodo, w.Status)
		assert.Equal(t, LevelLow, w.Impact)
		assert.Equal(t, LevelLow, w.Urgency)
		assert.Equal(t, ApprovalNone, w.Approval)
	})

	t.Run("malformed due date decodes as far future", func(t *testing.T) {
		body := []byte(`{"title": "x", "due_date": "not-a-date"}`)
		w, err := DecodeWorkItem(docID.String(), body)
		require.NoError(t, err)
		assert.True(t, w.DueDate.IsZero())
	})

	t.Run("malformed assignee ids are dropped, valid ones kept", func(t *testing.T) {
		keep := id.NewUserID()
		body := []byte(`{"title": "x", "assignees": ["nope", "` + keep.String() + `"]}`)
		w, err := DecodeWorkItem(docID.String(), body)
		require.NoError(t, err)
		require.Len(t, w.Assignees, 1)
		assert.Equal(t, keep, w.Assignees[0])
	})

	t.Run("non-JSON body is the only hard error", func(t *testing.T) {
		_, err := DecodeWorkItem(docID.String(), []byte("{"))
		require.Error(t, err)
	})
}

func TestWorkItemRoundTrip_ScoreNeverStored(t *testing.T) {
	due := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	item := WorkItem{
		ID:            id.NewWorkItemID(),
		ProjectName:   "NextGen Platform",
		Title:         "harden ingress",
		Type:          TypeOperations,
		Assignees:     []id.UserID{id.NewUserID()},
		Requester:     id.NewUserID(),
		DueDate:       due,
		Status:        StatusInProgress,
		Impact:        LevelHigh,
		Urgency:       LevelMed,
		Approval:      ApprovalNone,
		UpdatedAt:     time.Now().UTC().Truncate(time.Millisecond),
		PriorityScore: 42.5,
	}

	body, err := EncodeWorkItem(item)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "score", "derived score must not be persisted")

	got, err := DecodeWorkItem(item.ID.String(), body)
	require.NoError(t, err)
	assert.Equal(t, item.Title, got.Title)
	assert.Equal(t, item.Assignees, got.Assignees)
	assert.True(t, got.DueDate.Equal(due))
	assert.Zero(t, got.PriorityScore, "score is recomputed, never decoded")
}

func TestDecodeUser_RoleFallback(t *testing.T) {
	u, err := DecodeUser(id.NewUserID().String(), []byte(`{"name":"Dana","role":"admin"}`))
	require.NoError(t, err)
	assert.Equal(t, RoleMember, u.Role)
}

func TestProposalRoundTrip(t *testing.T) {
	p := Proposal{
		ID:          id.NewProposalID(),
		Suggestion:  "rebalance the design backlog",
		Explanation: "two designers are overloaded",
		CreatedBy:   id.NewUserID(),
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
		Approval:    ApprovalPending,
	}
	body, err := EncodeProposal(p)
	require.NoError(t, err)

	got, err := DecodeProposal(p.ID.String(), body)
	require.NoError(t, err)
	assert.Equal(t, p.Suggestion, got.Suggestion)
	assert.Equal(t, ApprovalPending, got.Approval)
	assert.True(t, got.DecidedAt.IsZero())
}
