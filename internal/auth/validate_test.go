package auth

import (
	"errors"
	"testing"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"jane@example.com", true},
		{"j.doe+ivy@mail.co.uk", true},
		{"jane@example", false},
		{"@example.com", false},
		{"jane example.com", false},
		{" jane@example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := IsValidEmail(tt.email); got != tt.want {
				t.Fatalf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestValidateSignUp(t *testing.T) {
	valid := SignUpForm{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Password: "secret1", ConfirmPassword: "secret1"}

	tests := []struct {
		name   string
		mutate func(f *SignUpForm)
		ok     bool
	}{
		{"valid", func(f *SignUpForm) {}, true},
		{"missing first name", func(f *SignUpForm) { f.FirstName = "" }, false},
		{"mismatch", func(f *SignUpForm) { f.ConfirmPassword = "secret2" }, false},
		{"short password", func(f *SignUpForm) { f.Password, f.ConfirmPassword = "abc", "abc" }, false},
		{"bad email", func(f *SignUpForm) { f.Email = "jane@" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid
			tt.mutate(&f)
			err := ValidateSignUp(f)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidForm) {
				t.Fatalf("expected ErrInvalidForm, got %v", err)
			}
		})
	}
}

func TestSignUpFormHelpers(t *testing.T) {
	f := SignUpForm{FirstName: "  Jane ", LastName: "Doe\n", Password: "12345"}
	if got := f.DisplayName(); got != "Jane Doe" {
		t.Fatalf("DisplayName = %q", got)
	}
	checks := f.PasswordChecks()
	if len(checks) != 1 || checks[0].OK {
		t.Fatalf("unexpected checks %+v", checks)
	}
	f.Password, f.ConfirmPassword = "123456", "123456"
	checks = f.PasswordChecks()
	if len(checks) != 2 || !checks[0].OK || !checks[1].OK {
		t.Fatalf("unexpected checks %+v", checks)
	}
}

func TestValidateSignInAndEmail(t *testing.T) {
	if err := ValidateSignIn("jane@example.com", "x"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := ValidateSignIn("jane", "x"); !errors.Is(err, ErrInvalidForm) {
		t.Fatalf("expected ErrInvalidForm, got %v", err)
	}
	if err := ValidateEmail(""); !errors.Is(err, ErrInvalidForm) {
		t.Fatalf("expected ErrInvalidForm, got %v", err)
	}
}
