package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const returnTokenIssuer = "tradeflow-payments"

var jwtSigningMethod = jwt.SigningMethodHS256

// ReturnTokenClaims ride on the checkout return URL so the redirect can be tied
// back to the payer and attempt that started it.
type ReturnTokenClaims struct {
	PayerID   uuid.UUID `json:"pid"`
	Reference string    `json:"ref"`
	jwt.RegisteredClaims
}

// ReturnTokenSigner mints and parses return-redirect tokens.
type ReturnTokenSigner struct {
	secret []byte
	ttl    time.Duration
}

func NewReturnTokenSigner(secret string, ttl time.Duration) (*ReturnTokenSigner, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("return token secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("return token ttl must be positive")
	}
	return &ReturnTokenSigner{secret: []byte(secret), ttl: ttl}, nil
}

// Mint issues a token for payerID and reference valid from now for the configured TTL.
func (s *ReturnTokenSigner) Mint(now time.Time, payerID uuid.UUID, reference string) (string, error) {
	if payerID == uuid.Nil {
		return "", fmt.Errorf("payer id is required")
	}
	if strings.TrimSpace(reference) == "" {
		return "", fmt.Errorf("reference is required")
	}

	claims := ReturnTokenClaims{
		PayerID:   payerID,
		Reference: reference,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    returnTokenIssuer,
			Subject:   payerID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing return token: %w", err)
	}
	return signed, nil
}

// Parse validates tokenString and returns its claims.
func (s *ReturnTokenSigner) Parse(tokenString string) (*ReturnTokenClaims, error) {
	claims := &ReturnTokenClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(returnTokenIssuer),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
