package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgAuth "github.com/pabloeorellana/orpos-backend/pkg/auth"
	"github.com/pabloeorellana/orpos-backend/pkg/auth/session"
	"github.com/pabloeorellana/orpos-backend/pkg/config"
	"github.com/pabloeorellana/orpos-backend/pkg/db/models"
	"github.com/pabloeorellana/orpos-backend/pkg/enums"
	pkgerrors "github.com/pabloeorellana/orpos-backend/pkg/errors"
	"github.com/pabloeorellana/orpos-backend/pkg/security"
)

var testJWTConfig = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "orpos-test",
	ExpirationMinutes: 15,
}

var testPasswordConfig = config.PasswordConfig{
	ArgonMemoryKB:    8192,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

type stubSessions struct {
	generated map[string]string
	revoked   []string
	rotateErr error
}

func newStubSessions() *stubSessions {
	return &stubSessions{generated: map[string]string{}}
}

func (s *stubSessions) Generate(ctx context.Context, accessID string) (string, error) {
	token := "refresh-" + accessID
	s.generated[accessID] = token
	return token, nil
}

func (s *stubSessions) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	stored, ok := s.generated[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(s.generated, oldAccessID)
	newID := session.NewAccessID()
	token := "refresh-" + newID
	s.generated[newID] = token
	return newID, token, nil
}

func (s *stubSessions) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	delete(s.generated, accessID)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email, password string, active bool) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordConfig)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{
		ID:           uuid.New(),
		TenantID:     uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FullName:     "Test Operator",
		Role:         enums.MemberRoleCashier,
		Permissions:  []string{"sales.create"},
		IsActive:     active,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return &user
}

func newTestService(t *testing.T, db *gorm.DB, sessions sessionManager) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       NewUserRepository(db),
		SessionManager: sessions,
		JWTConfig:      testJWTConfig,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestLogin(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	user := seedUser(t, db, "cashier@example.com", "s3cret-pw", true)
	svc := newTestService(t, db, newStubSessions())

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "Cashier@Example.com ",
		Password: "s3cret-pw",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected token pair")
	}
	if resp.User == nil || resp.User.ID != user.ID {
		t.Fatalf("unexpected user in response: %+v", resp.User)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.TenantID != user.TenantID {
		t.Fatalf("expected tenant %s in claims, got %s", user.TenantID, claims.TenantID)
	}
	if !claims.HasPermission("sales.create") {
		t.Fatal("expected sales.create permission in claims")
	}

	var stored models.User
	if err := db.First(&stored, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if stored.LastLoginAt == nil {
		t.Fatal("expected last login timestamp")
	}
}

func TestLoginRejections(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	seedUser(t, db, "active@example.com", "right-pw", true)
	seedUser(t, db, "disabled@example.com", "right-pw", false)
	svc := newTestService(t, db, newStubSessions())

	cases := []struct {
		name  string
		email string
		pass  string
	}{
		{name: "wrong password", email: "active@example.com", pass: "wrong-pw"},
		{name: "unknown email", email: "nobody@example.com", pass: "right-pw"},
		{name: "disabled account", email: "disabled@example.com", pass: "right-pw"},
		{name: "blank email", email: "  ", pass: "right-pw"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), LoginRequest{Email: tc.email, Password: tc.pass})
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
				t.Fatalf("expected unauthorized, got %v", err)
			}
		})
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	seedUser(t, db, "cashier@example.com", "s3cret-pw", true)
	sessions := newStubSessions()
	svc := newTestService(t, db, sessions)

	login, err := svc.Login(context.Background(), LoginRequest{
		Email:    "cashier@example.com",
		Password: "s3cret-pw",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.AccessToken == "" || refreshed.RefreshToken == "" {
		t.Fatal("expected rotated token pair")
	}

	// The old pair is single-use.
	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized on replay, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	sessions := newStubSessions()
	svc := newTestService(t, db, sessions)

	if err := svc.Logout(context.Background(), "access-id-1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "access-id-1" {
		t.Fatalf("expected revoke call, got %v", sessions.revoked)
	}

	err := svc.Logout(context.Background(), "  ")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
