package auth

import (
	"testing"
	"time"

	"github.com/imranpollob/nft-rental-marketplace/internal/config"
	"github.com/imranpollob/nft-rental-marketplace/internal/fault"
	"github.com/imranpollob/nft-rental-marketplace/internal/identity"
)

func testConfig(secret string) config.Config {
	return config.Config{JWTSecret: secret, AccessTokenTTL: 15 * time.Minute}
}

func TestIssueAndVerify(t *testing.T) {
	svc := NewService(testConfig("test-secret"))

	token, err := svc.Issue(identity.User{ID: "user-1", Role: identity.RoleAdmin})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if token.ExpiresIn != 900 {
		t.Fatalf("expected 900s lifetime, got %d", token.ExpiresIn)
	}

	claims, err := svc.Verify(token.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != identity.RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsForgedTokens(t *testing.T) {
	svc := NewService(testConfig("test-secret"))
	other := NewService(testConfig("other-secret"))

	token, err := other.Issue(identity.User{ID: "user-1", Role: identity.RoleMember})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := svc.Verify(token.AccessToken); !fault.Is(err, fault.KindAuthorization) {
		t.Fatalf("expected authorization error for wrong secret, got %v", err)
	}
	if _, err := svc.Verify("not-a-token"); !fault.Is(err, fault.KindAuthorization) {
		t.Fatalf("expected authorization error for garbage, got %v", err)
	}
}

func TestVerifyRejectsExpiredTokens(t *testing.T) {
	cfg := testConfig("test-secret")
	cfg.AccessTokenTTL = -time.Minute
	svc := NewService(cfg)

	token, err := svc.Issue(identity.User{ID: "user-1", Role: identity.RoleMember})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Verify(token.AccessToken); !fault.Is(err, fault.KindAuthorization) {
		t.Fatalf("expected authorization error for expired token, got %v", err)
	}
}
