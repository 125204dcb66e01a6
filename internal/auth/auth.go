// Package auth issues and verifies the JWTs that scope every API call to a
// hospital and a role, plus the chi middleware that enforces them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the caller's function within a hospital.
type Role string

const (
	RoleNurse   Role = "nurse"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
	RolePatient Role = "patient"
)

var validRoles = map[Role]struct{}{
	RoleNurse: {}, RoleDoctor: {}, RoleAdmin: {}, RolePatient: {},
}

// Claims is the token payload: standard registered claims plus the tenancy
// and role fields every handler reads.
type Claims struct {
	HospitalID string `json:"hospital_id"`
	Role       Role   `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer creates an Issuer. secret must be non-empty; ttl bounds token
// lifetime.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("auth secret is required")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}, nil
}

// Issue mints a token for a subject within a hospital.
func (i *Issuer) Issue(subject, hospitalID string, role Role) (string, error) {
	if _, ok := validRoles[role]; !ok {
		return "", fmt.Errorf("unknown role %q", role)
	}
	if hospitalID == "" {
		return "", errors.New("hospital_id is required")
	}

	now := time.Now()
	claims := Claims{
		HospitalID: hospitalID,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify parses and validates a token, returning its claims.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.HospitalID == "" {
		return nil, errors.New("token missing hospital_id")
	}
	if _, valid := validRoles[claims.Role]; !valid {
		return nil, fmt.Errorf("token carries unknown role %q", claims.Role)
	}
	return claims, nil
}

type claimsKey struct{}

// WithClaims attaches verified claims to a context.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext extracts the verified claims, if present.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}
