package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/ports"
)

// HMACTokens signs and verifies HS256 bearer tokens that carry a wallet
// address and an optional role.
type HMACTokens struct {
	secret []byte
	issuer string
	leeway time.Duration
}

func NewHMACTokens(secret, issuer string) (*HMACTokens, error) {
	if len(secret) < 32 {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}
	return &HMACTokens{secret: []byte(secret), issuer: issuer, leeway: 30 * time.Second}, nil
}

type escrowClaims struct {
	Address string `json:"address"`
	Role    string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func (t *HMACTokens) Sign(claims ports.AuthClaims, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, escrowClaims{
		Address: claims.Address.String(),
		Role:    claims.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   claims.Address.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(t.secret)
}

func (t *HMACTokens) Verify(raw string) (ports.AuthClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(t.leeway),
		jwt.WithExpirationRequired(),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	parsed, err := jwt.ParseWithClaims(raw, &escrowClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return t.secret, nil
	}, opts...)
	if err != nil {
		return ports.AuthClaims{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(*escrowClaims)
	if !ok || !parsed.Valid {
		return ports.AuthClaims{}, fmt.Errorf("%w: invalid token claims", domain.ErrUnauthorized)
	}
	addr, err := domain.ParseAddress(claims.Address)
	if err != nil {
		return ports.AuthClaims{}, fmt.Errorf("%w: token address: %v", domain.ErrUnauthorized, err)
	}
	return ports.AuthClaims{Address: addr, Role: claims.Role}, nil
}

var _ ports.TokenVerifier = (*HMACTokens)(nil)
