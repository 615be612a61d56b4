package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type toolkitStub struct {
	mu    sync.Mutex
	calls []string
	reply func(path string, body map[string]any) (int, any)
}

func (s *toolkitStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("key") != "test-key" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(errorBody("API_KEY_INVALID"))
		return
	}
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	s.calls = append(s.calls, r.URL.Path)
	status, resp := s.reply(r.URL.Path, body)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func errorBody(message string) map[string]any {
	return map[string]any{"error": map[string]any{"code": 400, "message": message}}
}

func newStubProvider(t *testing.T, reply func(path string, body map[string]any) (int, any)) (*FirebaseProvider, *toolkitStub) {
	t.Helper()
	stub := &toolkitStub{reply: reply}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return NewFirebaseProvider(srv.URL+"/v1", "test-key"), stub
}

func TestFirebaseSignIn(t *testing.T) {
	p, stub := newStubProvider(t, func(path string, body map[string]any) (int, any) {
		if body["email"] != "jane@example.com" || body["returnSecureToken"] != true {
			return http.StatusBadRequest, errorBody("INVALID_EMAIL")
		}
		return http.StatusOK, map[string]any{
			"localId":      "uid-1",
			"email":        "jane@example.com",
			"displayName":  "Jane Doe",
			"idToken":      "token-1",
			"refreshToken": "refresh-1",
		}
	})

	u, err := p.SignIn(context.Background(), "jane@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if u.UID != "uid-1" || u.DisplayName != "Jane Doe" || u.IDToken != "token-1" {
		t.Fatalf("unexpected user %+v", u)
	}
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if len(stub.calls) != 1 || stub.calls[0] != "/v1/accounts:signInWithPassword" {
		t.Fatalf("unexpected calls %v", stub.calls)
	}
}

func TestFirebaseErrorMapping(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{"EMAIL_EXISTS", ErrEmailInUse},
		{"WEAK_PASSWORD : Password should be at least 6 characters", ErrWeakPassword},
		{"INVALID_EMAIL", ErrInvalidEmail},
		{"EMAIL_NOT_FOUND", ErrUserNotFound},
		{"INVALID_PASSWORD", ErrWrongPassword},
		{"INVALID_LOGIN_CREDENTIALS", ErrWrongPassword},
		{"TOO_MANY_ATTEMPTS_TRY_LATER : Access disabled", ErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			p, _ := newStubProvider(t, func(string, map[string]any) (int, any) {
				return http.StatusBadRequest, errorBody(tt.code)
			})
			_, err := p.SignUp(context.Background(), "jane@example.com", "secret1")
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFirebaseUnknownErrorMessage(t *testing.T) {
	p, _ := newStubProvider(t, func(string, map[string]any) (int, any) {
		return http.StatusBadRequest, errorBody("USER_DISABLED")
	})
	err := p.SendPasswordReset(context.Background(), "jane@example.com")
	if err == nil || err.Error() != "User disabled." {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestFirebaseSendOobCode(t *testing.T) {
	var got map[string]any
	p, stub := newStubProvider(t, func(_ string, body map[string]any) (int, any) {
		got = body
		return http.StatusOK, map[string]any{"email": "jane@example.com"}
	})
	if err := p.SendEmailVerification(context.Background(), "token-1"); err != nil {
		t.Fatalf("SendEmailVerification: %v", err)
	}
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if got["requestType"] != "VERIFY_EMAIL" || got["idToken"] != "token-1" {
		t.Fatalf("unexpected body %v", got)
	}
}

func TestFirebaseNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	p := NewFirebaseProvider(srv.URL, "test-key")
	if _, err := p.SignIn(context.Background(), "a@b.co", "x"); !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestFirebaseMissingKey(t *testing.T) {
	p := NewFirebaseProvider("http://127.0.0.1:1", "")
	if err := p.Delete(context.Background(), "t"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
