package handler

import (
	"strings"

	"workboard/internal/domain"
	dErrors "workboard/pkg/domain-errors"
)

type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`

	parsedRole domain.Role
}

func (r *SignUpRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	if len(r.Name) > 100 {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 100 characters")
	}
	switch r.Role {
	case "", string(domain.RoleMember):
		r.parsedRole = domain.RoleMember
	case string(domain.RoleManager):
		r.parsedRole = domain.RoleManager
	default:
		return dErrors.New(dErrors.CodeValidation, "role must be manager or member")
	}
	return nil
}

func (r *SignUpRequest) ParsedRole() domain.Role { return r.parsedRole }

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *SignInRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return nil
}

type DemoSignInRequest struct {
	Role string `json:"role"`

	parsedRole domain.Role
}

func (r *DemoSignInRequest) Validate() error {
	switch r.Role {
	case "", string(domain.RoleMember):
		r.parsedRole = domain.RoleMember
	case string(domain.RoleManager):
		r.parsedRole = domain.RoleManager
	default:
		return dErrors.New(dErrors.CodeValidation, "role must be manager or member")
	}
	return nil
}

func (r *DemoSignInRequest) ParsedRole() domain.Role { return r.parsedRole }
