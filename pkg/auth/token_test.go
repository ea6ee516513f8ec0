package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pabloeorellana/orpos-backend/pkg/config"
	"github.com/pabloeorellana/orpos-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "orpos",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	payload := AccessTokenPayload{
		UserID:      uuid.New(),
		TenantID:    uuid.New(),
		Role:        enums.MemberRoleCashier,
		Permissions: []string{"sales.create", "shifts.manage"},
	}

	signed, err := MintAccessToken(cfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	claims, err := ParseAccessToken(cfg, signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != payload.UserID {
		t.Fatalf("user id mismatch: %s != %s", claims.UserID, payload.UserID)
	}
	if claims.TenantID != payload.TenantID {
		t.Fatalf("tenant id mismatch: %s != %s", claims.TenantID, payload.TenantID)
	}
	if claims.Role != enums.MemberRoleCashier {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if !claims.HasPermission("sales.create") {
		t.Fatal("expected sales.create permission")
	}
	if claims.HasPermission("payments.create") {
		t.Fatal("did not expect payments.create permission")
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be assigned")
	}
}

func TestMintAccessTokenRejectsInvalidPayload(t *testing.T) {
	cfg := testJWTConfig()

	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		TenantID: uuid.New(),
		Role:     enums.MemberRoleCashier,
	}); err == nil {
		t.Fatal("expected error for missing user id")
	}

	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID:   uuid.New(),
		TenantID: uuid.New(),
		Role:     "janitor",
	}); err == nil {
		t.Fatal("expected error for invalid role")
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	payload := AccessTokenPayload{
		UserID:   uuid.New(),
		TenantID: uuid.New(),
		Role:     enums.MemberRoleAdmin,
	}

	signed, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), payload)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := ParseAccessToken(cfg, signed); err == nil {
		t.Fatal("expected expired token to be rejected")
	}

	claims, err := ParseAccessTokenAllowExpired(cfg, signed)
	if err != nil {
		t.Fatalf("allow-expired parse: %v", err)
	}
	if claims.UserID != payload.UserID {
		t.Fatalf("user id mismatch on expired parse")
	}
}

func TestSuperAdminHasEveryPermission(t *testing.T) {
	claims := &AccessTokenClaims{Role: enums.MemberRoleSuperAdmin}
	if !claims.HasPermission("anything.at.all") {
		t.Fatal("super admin should pass every permission check")
	}
}
