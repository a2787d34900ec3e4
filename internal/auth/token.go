package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"nutriai/internal/diet"
)

// SessionDuration is how long a signed-in session stays valid.
const SessionDuration = 24 * time.Hour

// ErrInvalidToken is returned for session tokens that fail verification.
var ErrInvalidToken = errors.New("invalid or expired session token")

// SessionClaims carries the AuthenticatedUser inside the session token. The user
// id is the token subject.
type SessionClaims struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies session tokens.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer signing with secret.
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), now: time.Now}
}

// Issue returns a signed session token for user.
func (t *TokenIssuer) Issue(user diet.AuthenticatedUser) (string, error) {
	now := t.now()
	claims := &SessionClaims{
		Name:      user.DisplayName,
		Email:     user.Email,
		AvatarURL: user.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses tokenString and returns the user it was issued for.
func (t *TokenIssuer) Verify(tokenString string) (*diet.AuthenticatedUser, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &diet.AuthenticatedUser{
		ID:          claims.Subject,
		DisplayName: claims.Name,
		Email:       claims.Email,
		AvatarURL:   claims.AvatarURL,
	}, nil
}
