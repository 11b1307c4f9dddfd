package token

import (
	authmw "workboard/pkg/platform/middleware/auth"
)

func ToMiddlewareClaims(claims *AccessTokenClaims) *authmw.JWTClaims {
	return &authmw.JWTClaims{
		UserID:    claims.UserID,
		SessionID: claims.SessionID,
		Role:      claims.Role,
		JTI:       claims.ID,
	}
}

// ValidatorAdapter exposes the token service through the middleware's
// validator interface.
type ValidatorAdapter struct {
	service *Service
}

func NewValidatorAdapter(service *Service) *ValidatorAdapter {
	return &ValidatorAdapter{service: service}
}

func (a *ValidatorAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
