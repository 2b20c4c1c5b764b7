// Package auth mints and verifies the HS256 tokens the reference backend
// accepts.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned when a request carries no bearer token.
var ErrNoToken = errors.New("missing bearer token")

const issuer = "lesezeichen"

// Claims identify the user a token was issued to.
type Claims struct {
	UserID string `json:"user_id"`
	gojwt.RegisteredClaims
}

// Mint signs a token for userID. A zero ttl means the token never expires.
func Mint(secret []byte, userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("mint token: empty user id")
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:   issuer,
			Subject:  userID,
			IssuedAt: gojwt.NewNumericDate(now),
		},
	}
	if ttl != 0 {
		claims.ExpiresAt = gojwt.NewNumericDate(now.Add(ttl))
	}
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of tokenStr and returns its user.
func Verify(secret []byte, tokenStr string) (string, error) {
	parser := gojwt.NewParser(
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithIssuer(issuer),
	)
	claims := &Claims{}
	_, err := parser.ParseWithClaims(tokenStr, claims, func(*gojwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("verify token: %w", err)
	}
	if claims.UserID == "" {
		return "", errors.New("verify token: no user id")
	}
	return claims.UserID, nil
}

// FromRequest extracts the token from an "Authorization: Bearer" header,
// falling back to the "token" query parameter for clients that cannot set
// headers on a websocket upgrade.
func FromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		const prefix = "Bearer "
		if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
			return strings.TrimSpace(h[len(prefix):]), nil
		}
		return "", ErrNoToken
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return t, nil
	}
	return "", ErrNoToken
}
