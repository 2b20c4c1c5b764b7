package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

var secret = []byte("test-secret")

func TestMintVerify(t *testing.T) {
	tok, err := Mint(secret, "alice", time.Hour)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	user, err := Verify(secret, tok)
	assert.Equal(t, err, nil)
	assert.Equal(t, user, "alice")
}

func TestVerifyRejects(t *testing.T) {
	tok, err := Mint(secret, "alice", 0)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if _, err := Verify([]byte("other"), tok); err == nil {
		t.Error("expected error for wrong secret")
	}
	if _, err := Verify(secret, tok+"x"); err == nil {
		t.Error("expected error for tampered token")
	}

	expired, err := Mint(secret, "alice", -time.Minute)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if _, err := Verify(secret, expired); err == nil {
		t.Error("expected error for expired token")
	}

	if _, err := Mint(secret, "", time.Hour); err == nil {
		t.Error("expected error for empty user")
	}
}

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws", nil)
	_, err := FromRequest(r)
	assert.Equal(t, errors.Is(err, ErrNoToken), true)

	r.Header.Set("Authorization", "Bearer abc")
	tok, err := FromRequest(r)
	assert.Equal(t, err, nil)
	assert.Equal(t, tok, "abc")

	r.Header.Set("Authorization", "Basic abc")
	_, err = FromRequest(r)
	assert.Equal(t, errors.Is(err, ErrNoToken), true)

	q := httptest.NewRequest("GET", "/ws?token=xyz", nil)
	tok, err = FromRequest(q)
	assert.Equal(t, err, nil)
	assert.Equal(t, tok, "xyz")
}
