package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueThenValidate(t *testing.T) {
	m := NewManager("unit-test-secret", 30*time.Minute)

	token, err := m.Issue("user-1", "a@x.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.NotEmpty(t, claims.JTI)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestValidateExpiredToken(t *testing.T) {
	// Negative TTL produces a token that is already past its expiry instant.
	m := NewManager("unit-test-secret", -1*time.Minute)

	token, err := m.Issue("user-1", "a@x.com")
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.True(t, errors.Is(err, ErrTokenExpired), "got %v, want ErrTokenExpired", err)
}

func TestValidateWrongSecret(t *testing.T) {
	issuer := NewManager("secret-a", 30*time.Minute)
	verifier := NewManager("secret-b", 30*time.Minute)

	token, err := issuer.Issue("user-1", "a@x.com")
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	assert.True(t, errors.Is(err, ErrSignatureInvalid), "got %v, want ErrSignatureInvalid", err)
}

func TestValidateGarbage(t *testing.T) {
	m := NewManager("unit-test-secret", 30*time.Minute)

	for _, raw := range []string{"", "not-a-jwt", "a.b", "a.b.c.d"} {
		_, err := m.Validate(raw)
		assert.True(t, errors.Is(err, ErrTokenMalformed), "input %q: got %v, want ErrTokenMalformed", raw, err)
	}
}

func TestValidateTamperedToken(t *testing.T) {
	m := NewManager("unit-test-secret", 30*time.Minute)

	token, err := m.Issue("user-1", "a@x.com")
	require.NoError(t, err)

	// flip a character in the signature segment
	tampered := token[:len(token)-2] + flip(token[len(token)-2:])

	_, err = m.Validate(tampered)
	assert.Error(t, err)
}

func flip(s string) string {
	b := []byte(s)
	if b[0] == 'A' {
		b[0] = 'B'
	} else {
		b[0] = 'A'
	}
	return string(b)
}
