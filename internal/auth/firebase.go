package auth

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// FirebaseProvider talks to the Identity Toolkit REST API.
type FirebaseProvider struct {
	client *resty.Client
	apiKey string
}

func NewFirebaseProvider(baseURL, apiKey string) *FirebaseProvider {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(15 * time.Second)
	client.SetHeader("Content-Type", "application/json")

	return &FirebaseProvider{
		client: client,
		apiKey: apiKey,
	}
}

type accountResponse struct {
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	EmailVerified bool   `json:"emailVerified"`
	IDToken       string `json:"idToken"`
	RefreshToken  string `json:"refreshToken"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *FirebaseProvider) SignUp(ctx context.Context, email, password string) (*User, error) {
	var out accountResponse
	err := p.post(ctx, "/accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.user(), nil
}

func (p *FirebaseProvider) SignIn(ctx context.Context, email, password string) (*User, error) {
	var out accountResponse
	err := p.post(ctx, "/accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.user(), nil
}

func (p *FirebaseProvider) SendPasswordReset(ctx context.Context, email string) error {
	return p.post(ctx, "/accounts:sendOobCode", map[string]any{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}, nil)
}

func (p *FirebaseProvider) SendEmailVerification(ctx context.Context, idToken string) error {
	return p.post(ctx, "/accounts:sendOobCode", map[string]any{
		"requestType": "VERIFY_EMAIL",
		"idToken":     idToken,
	}, nil)
}

func (p *FirebaseProvider) UpdateProfile(ctx context.Context, idToken, displayName string) (*User, error) {
	var out accountResponse
	err := p.post(ctx, "/accounts:update", map[string]any{
		"idToken":           idToken,
		"displayName":       displayName,
		"returnSecureToken": true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.user(), nil
}

func (p *FirebaseProvider) Delete(ctx context.Context, idToken string) error {
	return p.post(ctx, "/accounts:delete", map[string]any{"idToken": idToken}, nil)
}

func (p *FirebaseProvider) post(ctx context.Context, path string, body map[string]any, result any) error {
	if p.apiKey == "" {
		return ErrNotConfigured
	}

	var apiErr apiError
	req := p.client.R().
		SetContext(ctx).
		SetQueryParam("key", p.apiKey).
		SetBody(body).
		SetError(&apiErr)
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Post(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("identity request failed")
		return networkError(err)
	}
	if resp.IsError() {
		log.Debug().Int("status", resp.StatusCode()).Str("code", apiErr.Error.Message).Msg("identity request rejected")
		return mapProviderError(apiErr.Error.Message)
	}
	return nil
}

// mapProviderError turns an Identity Toolkit error code such as
// "WEAK_PASSWORD : Password should be at least 6 characters" into a
// categorized error.
func mapProviderError(message string) error {
	code, _, _ := strings.Cut(message, " ")
	switch code {
	case "WEAK_PASSWORD":
		return ErrWeakPassword
	case "EMAIL_EXISTS":
		return ErrEmailInUse
	case "INVALID_EMAIL", "MISSING_EMAIL":
		return ErrInvalidEmail
	case "EMAIL_NOT_FOUND", "USER_NOT_FOUND":
		return ErrUserNotFound
	case "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "MISSING_PASSWORD":
		return ErrWrongPassword
	case "INVALID_ID_TOKEN", "TOKEN_EXPIRED", "CREDENTIAL_TOO_OLD_LOGIN_AGAIN":
		return ErrNoCurrentUser
	case "API_KEY_INVALID":
		return ErrNotConfigured
	}
	return unknown(humanize(message))
}

func humanize(code string) string {
	if code == "" {
		return ""
	}
	if _, detail, ok := strings.Cut(code, " : "); ok {
		return detail
	}
	s := strings.ToLower(strings.ReplaceAll(code, "_", " "))
	return strings.ToUpper(s[:1]) + s[1:] + "."
}

func (r accountResponse) user() *User {
	return &User{
		UID:           r.LocalID,
		Email:         r.Email,
		DisplayName:   r.DisplayName,
		EmailVerified: r.EmailVerified,
		IDToken:       r.IDToken,
		RefreshToken:  r.RefreshToken,
	}
}
