package auth

import "context"

// User is the signed-in account as the provider reports it.
type User struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	IDToken       string `json:"id_token,omitempty"`
	RefreshToken  string `json:"refresh_token,omitempty"`
}

// Provider is an email/password identity backend. Methods return *Error
// values for categorized failures.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*User, error)
	SignIn(ctx context.Context, email, password string) (*User, error)
	SendPasswordReset(ctx context.Context, email string) error
	SendEmailVerification(ctx context.Context, idToken string) error
	UpdateProfile(ctx context.Context, idToken, displayName string) (*User, error)
	Delete(ctx context.Context, idToken string) error
}
