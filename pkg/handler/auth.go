package handler

import (
	"crypto/rsa"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Authenticator resolves the creator id of the caller from an incoming
// request. An error means the request carries no valid identity; the
// handler then responds with 401 and never touches the object store.
type Authenticator interface {
	Authenticate(r *http.Request) (creatorID string, err error)
}

// AuthenticatorFunc adapts a plain function into an Authenticator.
type AuthenticatorFunc func(r *http.Request) (string, error)

func (f AuthenticatorFunc) Authenticate(r *http.Request) (string, error) {
	return f(r)
}

var (
	errMissingAuthHeader = errors.New("handler: Authorization header is missing or not a Bearer token")
	errMissingSubject    = errors.New("handler: token carries no subject claim")
)

// JwtAuthenticator validates RS256-signed Bearer tokens against a public
// key and uses the subject claim as the creator id.
type JwtAuthenticator struct {
	PubKey *rsa.PublicKey
}

// NewJwtAuthenticator parses a PEM-encoded RSA public key.
func NewJwtAuthenticator(pub []byte) (*JwtAuthenticator, error) {
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pub)
	if err != nil {
		return nil, err
	}

	return &JwtAuthenticator{
		PubKey: pubKey,
	}, nil
}

func (j *JwtAuthenticator) Authenticate(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", errMissingAuthHeader
	}

	token, err := jwt.Parse(
		strings.TrimPrefix(authHeader, "Bearer "),
		func(token *jwt.Token) (interface{}, error) {
			return j.PubKey, nil
		},
		jwt.WithValidMethods([]string{"RS256"}),
	)
	if err != nil {
		return "", err
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", errMissingSubject
	}

	return sub, nil
}
