package domain

import (
	"encoding/json"
	"time"

	id "workboard/pkg/domain"
)

// User is a team member as stored in the roster collection. Credentials are
// not part of this document; they live with the identity provider boundary.
type User struct {
	ID              id.UserID
	Name            string
	Email           string
	Role            Role
	TodayStatus     string // free-form attendance tag ("office", "remote", ...)
	ScheduledStatus string // optional plan note
	UpdatedAt       time.Time
}

type userWire struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	TodayStatus     string `json:"today_status"`
	ScheduledStatus string `json:"scheduled_status,omitempty"`
	UpdatedAt       string `json:"updated_at"`
}

// EncodeUser marshals the stored representation of u.
func EncodeUser(u User) ([]byte, error) {
	wire := userWire{
		Name:            u.Name,
		Email:           u.Email,
		Role:            string(u.Role),
		TodayStatus:     u.TodayStatus,
		ScheduledStatus: u.ScheduledStatus,
	}
	if !u.UpdatedAt.IsZero() {
		wire.UpdatedAt = u.UpdatedAt.Format(time.RFC3339Nano)
	}
	return json.Marshal(wire)
}

// DecodeUser unmarshals a stored roster document, defaulting an unknown role
// to Member.
func DecodeUser(docID string, data []byte) (User, error) {
	var wire userWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return User{}, err
	}
	userID, _ := id.ParseUserID(docID)
	u := User{
		ID:              userID,
		Name:            wire.Name,
		Email:           wire.Email,
		Role:            ParseRole(wire.Role),
		TodayStatus:     wire.TodayStatus,
		ScheduledStatus: wire.ScheduledStatus,
	}
	if t, err := time.Parse(time.RFC3339Nano, wire.UpdatedAt); err == nil {
		u.UpdatedAt = t
	}
	return u, nil
}
