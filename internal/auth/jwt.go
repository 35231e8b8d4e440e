package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
)

// Issuer is the iss claim of every rollcall token.
const Issuer = "rollcall"

// Claims is the payload of a rollcall bearer token.
type Claims struct {
	PersonID string `json:"person_id"`
	Admin    bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager issues and verifies HS256 bearer tokens. The server only
// verifies; issuing is used by rollcallctl and tests.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	parser *jwt.Parser
}

var _ Verifier = (*JWTManager)(nil)

// NewJWTManager creates a manager for the shared secret. Tokens it issues
// expire after ttl.
func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		ttl:    ttl,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(Issuer),
			jwt.WithExpirationRequired(),
		),
	}
}

// Generate signs a token for personID.
func (m *JWTManager) Generate(personID string, admin bool) (string, error) {
	if personID == "" {
		return "", errors.New("person id is required")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		PersonID: personID,
		Admin:    admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   personID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate checks signature, issuer and expiry and returns the claims.
func (m *JWTManager) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := m.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.PersonID == "" {
		return nil, fmt.Errorf("%w: no person id", ErrInvalidToken)
	}
	return claims, nil
}

// Verify implements Verifier.
func (m *JWTManager) Verify(tokenString string) (Identity, error) {
	claims, err := m.Validate(tokenString)
	if err != nil {
		return Identity{}, err
	}
	return Identity{PersonID: claims.PersonID, Admin: claims.Admin}, nil
}
