package handler

import (
	"time"

	"workboard/internal/auth/service"
	"workboard/internal/domain"
)

type UserResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	TodayStatus     string `json:"today_status"`
	ScheduledStatus string `json:"scheduled_status,omitempty"`
}

func FromUser(u domain.User) UserResponse {
	return UserResponse{
		ID:              u.ID.String(),
		Name:            u.Name,
		Email:           u.Email,
		Role:            string(u.Role),
		TodayStatus:     u.TodayStatus,
		ScheduledStatus: u.ScheduledStatus,
	}
}

type SignInResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	SessionID   string       `json:"session_id"`
	User        UserResponse `json:"user"`
}

func FromSignIn(res service.SignInResult) SignInResponse {
	return SignInResponse{
		AccessToken: res.Token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(res.ExpiresIn / time.Second),
		SessionID:   res.SessionID.String(),
		User:        FromUser(res.User),
	}
}
