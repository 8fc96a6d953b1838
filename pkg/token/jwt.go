// Package token issues access tokens for successfully completed
// authentication sessions.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gatehouse-id/gatehouse/pkg/protocol"
)

const defaultAccessTTL = 15 * time.Minute

// Claims is the access token payload. The realm travels as a dedicated
// claim so resource servers can scope verification per tenant.
type Claims struct {
	RealmID string `json:"realm_id"`
	jwt.RegisteredClaims
}

// JWTIssuer signs HS256 access tokens. It is the default TokenIssuer wired
// into the engine; deployments needing asymmetric keys swap the
// implementation behind protocol.TokenIssuer.
type JWTIssuer struct {
	secret    []byte
	issuer    string
	accessTTL time.Duration
}

func NewJWTIssuer(secret []byte, issuer string, accessTTL time.Duration) (*JWTIssuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret must not be empty")
	}

	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}

	return &JWTIssuer{
		secret:    secret,
		issuer:    issuer,
		accessTTL: accessTTL,
	}, nil
}

func (i *JWTIssuer) Issue(ctx context.Context, realmID, userID string) (*protocol.IssuedToken, error) {
	now := time.Now().UTC()

	claims := Claims{
		RealmID: realmID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{realmID},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	return &protocol.IssuedToken{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   i.accessTTL,
	}, nil
}

// Verify parses and validates a token issued by this issuer. Used by tests
// and by callers that terminate their own bearer auth.
func (i *JWTIssuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		return i.secret, nil
	}, jwt.WithIssuer(i.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	return claims, nil
}
