package http

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const privilegedAudience = "freo:privileged"

// DefaultPrivilegedTokenTTL bounds how long a minted background token stays
// usable.
const DefaultPrivilegedTokenTTL = 12 * time.Hour

// PrivilegedTokens mints and verifies the bearer tokens that let
// background-to-background callers assert an origin. The signing key is
// ephemeral per process: tokens die with the daemon.
type PrivilegedTokens struct {
	signKey *ecdsa.PrivateKey
	ttl     time.Duration
}

// NewPrivilegedTokens generates a fresh P-256 signing key.
func NewPrivilegedTokens() (*PrivilegedTokens, error) {
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token key: %w", err)
	}
	return &PrivilegedTokens{signKey: signKey, ttl: DefaultPrivilegedTokenTTL}, nil
}

// Mint issues a token for a privileged subject (e.g. the wallet UI).
func (t *PrivilegedTokens) Mint(subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Audience:  jwt.ClaimStrings{privilegedAudience},
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.New().String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	signed, err := token.SignedString(t.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks a token and returns its subject.
func (t *PrivilegedTokens) Verify(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &t.signKey.PublicKey, nil
	}, jwt.WithAudience(privilegedAudience))
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return "", fmt.Errorf("invalid claims type")
	}
	return claims.Subject, nil
}
