package models

import "time"

// Session is the volatile handle for the currently authenticated account.
type Session struct {
	ID        string      `json:"id"`
	Account   UserAccount `json:"account"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Expired reports whether the session is past its deadline.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// PendingSignup parks an external identity until registration completes.
type PendingSignup struct {
	Token     string           `json:"token"`
	Identity  ExternalIdentity `json:"identity"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// OneTimeCode is a single-use verification code bound to an email.
type OneTimeCode struct {
	Email    string    `json:"email"`
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"issued_at"`
	Used     bool      `json:"used"`
}

// Expired reports whether the code is older than ttl.
func (c OneTimeCode) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(c.IssuedAt) > ttl
}

// IssueCodeRequest asks for a code to be sent to an email.
type IssueCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyCodeRequest redeems a code, optionally resetting the password.
type VerifyCodeRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password,omitempty" validate:"omitempty,min=4"`
}
