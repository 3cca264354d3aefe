// Package token verifies identity-provider session tokens. The server never
// issues tokens itself; it only checks signatures on what the provider minted.
package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/envpass/envpass-server/internal/model"
)

// SessionClaims is the claim set the identity provider puts in session JWTs.
// The subject carries the provider's stable user identifier.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Parser validates HS256 session tokens against a shared secret.
type Parser struct {
	secretKey string
}

func NewParser(secretKey string) *Parser {
	return &Parser{
		secretKey: secretKey,
	}
}

// ParseSessionToken verifies the token and extracts the identity claims.
func (p *Parser) ParseSessionToken(tokenString string) (model.IdentityClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(p.secretKey), nil
	})
	if err != nil {
		return model.IdentityClaims{}, fmt.Errorf("failed to parse session token: %w", err)
	}
	if !parsed.Valid {
		return model.IdentityClaims{}, fmt.Errorf("invalid session token")
	}

	if claims.Subject == "" {
		return model.IdentityClaims{}, fmt.Errorf("session token missing subject")
	}
	if claims.Email == "" {
		return model.IdentityClaims{}, fmt.Errorf("session token missing email")
	}

	return model.IdentityClaims{
		ExternalID:  claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
		AvatarURL:   claims.AvatarURL,
	}, nil
}
