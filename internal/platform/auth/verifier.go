package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalidToken is returned for tokens that fail signature or claim checks.
var ErrInvalidToken = errors.New("invalid token")

// Verifier validates Supabase-issued HS256 bearer tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a Verifier for the shared signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

type supabaseClaims struct {
	jwt.RegisteredClaims
	Email       string `json:"email"`
	Role        string `json:"role"`
	AppMetadata struct {
		Role string `json:"role"`
	} `json:"app_metadata"`
}

// Verify parses and validates the token, returning the caller's identity.
// The application role is read from app_metadata.role and falls back to
// customer; the top-level "role" claim is Supabase's Postgres role, not ours.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	claims := &supabaseClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	role := claims.AppMetadata.Role
	if role == "" {
		role = RoleCustomer
	}
	return Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   role,
	}, nil
}
