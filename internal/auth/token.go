package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ms-festbuzz/internal/models"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Role   models.Role
}

// Verifier turns a bearer token into a Principal.
type Verifier interface {
	Verify(ctx context.Context, token string) (Principal, error)
}

// ExtractTokenFromRequest extracts a JWT token from an HTTP request's Authorization header
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	// Bearer token format: "Bearer {token}"
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}

	return parts[1], nil
}

// Claims accepts the user id as either sub or user_id.
type Claims struct {
	UserID string      `json:"user_id,omitempty"`
	Role   models.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func (c Claims) principal() (Principal, error) {
	id := c.Subject
	if id == "" {
		id = c.UserID
	}
	if id == "" {
		return Principal{}, errors.New("subject claim not found in token")
	}
	role := c.Role
	if role == "" {
		role = models.RoleParticipant
	}
	if !role.Valid() {
		return Principal{}, fmt.Errorf("unknown role %q", role)
	}
	return Principal{UserID: id, Role: role}, nil
}

// HMACVerifier checks HS256 tokens signed with a shared secret.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

func (v *HMACVerifier) Verify(_ context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, errors.New("empty token")
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Principal{}, fmt.Errorf("failed to parse token: %w", err)
	}
	return claims.principal()
}

// IssueToken signs an HS256 token for p valid for ttl.
func IssueToken(secret string, p Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
