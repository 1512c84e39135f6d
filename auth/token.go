package auth

import (
	"fmt"
	"socialchat/errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "socialchat"

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name,omitempty" validate:"max=128"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies session tokens with an HMAC secret.
type TokenService struct {
	secret   []byte
	duration time.Duration
	now      func() time.Time
}

func NewTokenService(secret string, duration time.Duration) (*TokenService, error) {
	if err := validate.Var(secret, "required,min=32"); err != nil {
		return nil, fmt.Errorf("auth secret must hold at least 32 characters: %w", err)
	}
	return &TokenService{secret: []byte(secret), duration: duration, now: time.Now}, nil
}

// GenerateToken creates a signed JWT for a specific user.
func (s *TokenService) GenerateToken(email, name string) (string, error) {
	now := s.now()
	claims := &CustomClaims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	if err := ValidateClaims(claims); err != nil {
		return "", err
	}

	// Create the token using the HS256 algorithm (HMAC with SHA256).
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken parses and validates the signature, the expiration and the claims of a JWT string.
func (s *TokenService) ValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, errors.ErrInvalidToken
	}
	if err := ValidateClaims(claims); err != nil {
		return nil, err
	}
	return claims, nil
}
