package auth

import "errors"

// Code categorizes authentication failures.
type Code int

const (
	CodeNotConfigured Code = iota + 1
	CodeNoCurrentUser
	CodeWeakPassword
	CodeEmailInUse
	CodeInvalidEmail
	CodeUserNotFound
	CodeWrongPassword
	CodeNetwork
	CodeUnknown
)

var messages = map[Code]string{
	CodeNotConfigured: "Firebase is not configured. Set IVY_AUTH_API_KEY to enable accounts.",
	CodeNoCurrentUser: "No user is currently signed in.",
	CodeWeakPassword:  "The password is too weak. Please choose a stronger password.",
	CodeEmailInUse:    "An account with this email already exists.",
	CodeInvalidEmail:  "Please enter a valid email address.",
	CodeUserNotFound:  "No account found with this email address.",
	CodeWrongPassword: "Incorrect password. Please try again.",
	CodeNetwork:       "Network error. Please check your internet connection.",
}

// Error is a categorized authentication error whose text is shown to the
// user as is. Unknown errors carry the provider's message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if msg, ok := messages[e.Code]; ok {
		return msg
	}
	return "Authentication failed."
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrNotConfigured = &Error{Code: CodeNotConfigured}
	ErrNoCurrentUser = &Error{Code: CodeNoCurrentUser}
	ErrWeakPassword  = &Error{Code: CodeWeakPassword}
	ErrEmailInUse    = &Error{Code: CodeEmailInUse}
	ErrInvalidEmail  = &Error{Code: CodeInvalidEmail}
	ErrUserNotFound  = &Error{Code: CodeUserNotFound}
	ErrWrongPassword = &Error{Code: CodeWrongPassword}
	ErrNetwork       = &Error{Code: CodeNetwork}
	ErrUnknown       = &Error{Code: CodeUnknown}
)

// ErrInvalidForm is returned by the form validators.
var ErrInvalidForm = errors.New("Please fill in all fields correctly.")

func unknown(message string) *Error {
	if message == "" {
		message = "Authentication failed."
	}
	return &Error{Code: CodeUnknown, Message: message}
}

func networkError(err error) *Error {
	return &Error{Code: CodeNetwork, Err: err}
}
