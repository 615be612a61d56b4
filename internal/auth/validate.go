package auth

import (
	"fmt"
	"regexp"
	"strings"
)

const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[A-Z0-9a-z._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,64}$`)

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

type SignUpForm struct {
	FirstName       string
	LastName        string
	Email           string
	Password        string
	ConfirmPassword string
}

// DisplayName joins the trimmed first and last names.
func (f SignUpForm) DisplayName() string {
	return strings.TrimSpace(f.FirstName) + " " + strings.TrimSpace(f.LastName)
}

// Check is one live password requirement shown while typing.
type Check struct {
	Label string
	OK    bool
}

func (f SignUpForm) PasswordChecks() []Check {
	checks := []Check{{Label: "At least 6 characters", OK: len(f.Password) >= MinPasswordLength}}
	if f.ConfirmPassword != "" {
		checks = append(checks, Check{Label: "Passwords match", OK: f.Password == f.ConfirmPassword})
	}
	return checks
}

func ValidateSignUp(f SignUpForm) error {
	switch {
	case f.FirstName == "", f.LastName == "", f.Email == "", f.Password == "", f.ConfirmPassword == "":
		return fmt.Errorf("%w: all fields are required", ErrInvalidForm)
	case f.Password != f.ConfirmPassword:
		return fmt.Errorf("%w: passwords do not match", ErrInvalidForm)
	case len(f.Password) < MinPasswordLength:
		return fmt.Errorf("%w: password needs at least %d characters", ErrInvalidForm, MinPasswordLength)
	case !IsValidEmail(f.Email):
		return fmt.Errorf("%w: invalid email", ErrInvalidForm)
	}
	return nil
}

func ValidateSignIn(email, password string) error {
	if email == "" || password == "" || !strings.Contains(email, "@") {
		return ErrInvalidForm
	}
	return nil
}

// ValidateEmail is the lighter check used by the password reset form.
func ValidateEmail(email string) error {
	if email == "" || !strings.Contains(email, "@") {
		return ErrInvalidForm
	}
	return nil
}
