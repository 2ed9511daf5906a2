package integration_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	// signup
	w := env.do(http.MethodPost, "/auth/signup", `{"email":"flow@example.com","full_name":"Flow User","password":"s3cret-pw"}`, "")

	if w.Code != http.StatusCreated {
		t.Fatalf("signup: got status %d, body=%s", w.Code, w.Body.String())
	}

	var created struct {
		User struct {
			ID       string `json:"id"`
			Email    string `json:"email"`
			FullName string `json:"fullName"`
		} `json:"user"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal signup response: %v", err)
	}

	if created.User.ID == "" {
		t.Error("expected user id in signup response")
	}

	if created.User.Email != "flow@example.com" {
		t.Errorf("got email %q", created.User.Email)
	}

	if strings.Contains(w.Body.String(), "s3cret-pw") || strings.Contains(w.Body.String(), "passwordHash") {
		t.Error("signup response leaks password material")
	}

	// duplicate signup
	w = env.do(http.MethodPost, "/auth/signup", `{"email":"flow@example.com","full_name":"Other","password":"another-pw"}`, "")

	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate signup: got status %d", w.Code)
	}

	// signin
	w = env.do(http.MethodPost, "/auth/signin", `{"email":"flow@example.com","password":"s3cret-pw"}`, "")

	if w.Code != http.StatusOK {
		t.Fatalf("signin: got status %d, body=%s", w.Code, w.Body.String())
	}

	var signin struct {
		AccessToken string `json:"accessToken"`
		TokenType   string `json:"tokenType"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &signin); err != nil {
		t.Fatalf("unmarshal signin response: %v", err)
	}

	if signin.AccessToken == "" || signin.TokenType != "bearer" {
		t.Fatalf("unexpected signin response: %+v", signin)
	}

	// wrong password
	w = env.do(http.MethodPost, "/auth/signin", `{"email":"flow@example.com","password":"wrong-pw"}`, "")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: got status %d", w.Code)
	}

	// profile with the issued token
	w = env.do(http.MethodGet, "/auth/profile", "", signin.AccessToken)

	if w.Code != http.StatusOK {
		t.Fatalf("profile: got status %d, body=%s", w.Code, w.Body.String())
	}

	if !strings.Contains(w.Body.String(), "flow@example.com") {
		t.Errorf("profile response missing email: %s", w.Body.String())
	}
}

func TestProfileRejectsBadTokens(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing token", token: ""},
		{name: "garbage token", token: "not-a-jwt"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(http.MethodGet, "/auth/profile", "", tc.token)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("got status %d, want 401", w.Code)
			}
		})
	}
}

func TestSignOutRevokesToken(t *testing.T) {
	env := newTestEnv(t)

	token := env.signupAndSignin(t, "revoke@example.com", "Revoke User", "s3cret-pw")

	// token works before signout
	w := env.do(http.MethodGet, "/auth/profile", "", token)

	if w.Code != http.StatusOK {
		t.Fatalf("profile before signout: got status %d", w.Code)
	}

	w = env.do(http.MethodPost, "/auth/signout", "{}", token)

	if w.Code != http.StatusNoContent {
		t.Fatalf("signout: got status %d, body=%s", w.Code, w.Body.String())
	}

	// same token is now rejected
	w = env.do(http.MethodGet, "/auth/profile", "", token)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("profile after signout: got status %d, want 401", w.Code)
	}
}
