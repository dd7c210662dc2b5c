package ports

import "github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"

type AuthClaims struct {
	Address domain.Address
	Role    string
}

type TokenVerifier interface {
	Verify(raw string) (AuthClaims, error)
}
