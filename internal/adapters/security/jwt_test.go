package security

import (
	"errors"
	"testing"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/ports"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestSignAndVerify(t *testing.T) {
	t.Parallel()
	tokens, err := NewHMACTokens(testSecret, "viralforge-mesh")
	if err != nil {
		t.Fatalf("NewHMACTokens: %v", err)
	}
	addr := domain.Address("0x1111111111111111111111111111111111111111")
	raw, err := tokens.Sign(ports.AuthClaims{Address: addr, Role: "arbiter"}, time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	claims, err := tokens.Verify(raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Address != addr || claims.Role != "arbiter" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	t.Parallel()
	tokens, _ := NewHMACTokens(testSecret, "viralforge-mesh")
	other, _ := NewHMACTokens("ffffffffffffffffffffffffffffffff", "viralforge-mesh")
	wrongIssuer, _ := NewHMACTokens(testSecret, "someone-else")
	addr := domain.Address("0x1111111111111111111111111111111111111111")

	expired, _ := tokens.Sign(ports.AuthClaims{Address: addr}, -time.Hour)
	forged, _ := other.Sign(ports.AuthClaims{Address: addr}, time.Minute)
	foreign, _ := wrongIssuer.Sign(ports.AuthClaims{Address: addr}, time.Minute)
	badAddr, _ := tokens.Sign(ports.AuthClaims{Address: "not-an-address"}, time.Minute)

	for name, raw := range map[string]string{"expired": expired, "forged": forged, "issuer": foreign, "address": badAddr, "garbage": "abc"} {
		if _, err := tokens.Verify(raw); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("%s: expected unauthorized, got %v", name, err)
		}
	}
	if _, err := NewHMACTokens("short", ""); err == nil {
		t.Fatalf("expected short secret to be rejected")
	}
}
