package dto

import (
	"strings"
	"time"

	"github.com/noah-isme/promptcraft-portal/pkg/promptcraft"
)

// LoginRequest carries portal login credentials.
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required,min=1,max=100"`
	Password string `json:"password" form:"password" validate:"required,min=1"`
}

// RegisterRequest creates an upstream account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"omitempty,max=100"`
}

// ToUpstream converts the request for the backend, omitting a blank full name.
func (r RegisterRequest) ToUpstream() promptcraft.RegisterRequest {
	req := promptcraft.RegisterRequest{
		Email:    strings.TrimSpace(r.Email),
		Username: strings.TrimSpace(r.Username),
		Password: r.Password,
	}
	if name := strings.TrimSpace(r.FullName); name != "" {
		req.FullName = &name
	}
	return req
}

// EmailVerificationRequest asks for a verification mail.
type EmailVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyEmailRequest confirms an email with the mailed token.
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// UserResponse is the profile exposed to the page.
type UserResponse struct {
	ID              uint    `json:"id"`
	Email           string  `json:"email"`
	Username        string  `json:"username"`
	FullName        *string `json:"full_name,omitempty"`
	DisplayName     string  `json:"display_name"`
	CandidateID     string  `json:"candidate_id"`
	IsActive        bool    `json:"is_active"`
	IsVerified      bool    `json:"is_verified"`
	ProfilePhotoURL *string `json:"profile_photo_url,omitempty"`
	CreatedAt       *string `json:"created_at,omitempty"`
}

// NewUserResponse converts an upstream profile.
func NewUserResponse(user promptcraft.User, candidateID string) UserResponse {
	return UserResponse{
		ID:              user.ID,
		Email:           user.Email,
		Username:        user.Username,
		FullName:        user.FullName,
		DisplayName:     user.DisplayName(),
		CandidateID:     candidateID,
		IsActive:        user.IsActive,
		IsVerified:      user.IsVerified,
		ProfilePhotoURL: user.ProfilePhotoURL,
		CreatedAt:       user.CreatedAt,
	}
}

// AuthResponse is returned by login.
type AuthResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}
