package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating an account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest creates a password account. Self-registration leaves Role
// empty or student; administrators may name any role.
type RegisterRequest struct {
	ID       string   `json:"id" validate:"required,max=64"`
	Role     UserRole `json:"role,omitempty"`
	Name     string   `json:"name" validate:"required,max=128"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=4"`
	Branch   string   `json:"branch,omitempty"`
	Section  string   `json:"section,omitempty"`
	Semester string   `json:"semester,omitempty"`
	Dept     string   `json:"dept,omitempty"`
	Hostel   string   `json:"hostel,omitempty"`
}

// Account converts the request into a stored account.
func (r RegisterRequest) Account() UserAccount {
	return UserAccount{
		ID:       r.ID,
		Role:     r.Role,
		Name:     r.Name,
		Email:    r.Email,
		Password: r.Password,
		Branch:   r.Branch,
		Section:  r.Section,
		Semester: r.Semester,
		Dept:     r.Dept,
		Hostel:   r.Hostel,
	}
}

// LoginResponse returns the session token and the signed-in account.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	User        AccountView `json:"user"`
	Redirect    string      `json:"redirect"`
	IssuedAt    time.Time   `json:"issued_at"`
}

// ExternalSignInRequest carries the identity provider credential (a JWT).
type ExternalSignInRequest struct {
	Credential string `json:"credential" validate:"required"`
}

// ExternalIdentity is what the identity provider vouches for.
type ExternalIdentity struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// ExternalSignInResponse either opens a session or asks the client to finish
// registration with the pending token.
type ExternalSignInResponse struct {
	Session              *LoginResponse    `json:"session,omitempty"`
	RegistrationRequired bool              `json:"registration_required"`
	PendingToken         string            `json:"pending_token,omitempty"`
	Identity             *ExternalIdentity `json:"identity,omitempty"`
}

// CompleteRegistrationRequest finishes an external sign-up as a student.
type CompleteRegistrationRequest struct {
	PendingToken string `json:"pending_token" validate:"required"`
	RollNo       string `json:"rollNo" validate:"required,max=64"`
	Branch       string `json:"branch" validate:"required"`
	Section      string `json:"section" validate:"required"`
	Semester     string `json:"semester" validate:"required"`
}

// ChangePasswordRequest replaces the password of the signed-in account.
type ChangePasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=4"`
}

// SessionClaims is the JWT payload pointing at a volatile session handle.
type SessionClaims struct {
	SessionID string   `json:"sid"`
	UserID    string   `json:"user_id"`
	Email     string   `json:"email"`
	Role      UserRole `json:"role"`
	jwt.RegisteredClaims
}
