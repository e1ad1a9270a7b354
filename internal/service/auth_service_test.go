package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"calsync/config"
	"calsync/internal/dto"
	"calsync/pkg/jwt"
)

// ── Mock TokenBlacklist ──

type mockBlacklist struct {
	entries map[string]time.Duration
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{entries: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	if ttl > 0 {
		m.entries[jti] = ttl
	}
	return nil
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := m.entries[jti]
	return ok, nil
}

func setupTestAuthService() (AuthService, *jwt.Manager, *mockBlacklist) {
	repo, _ := newTestRepository()
	jwtMgr := jwt.NewManager(&config.AuthConfig{
		JWTSecret:       "test-secret-key-0123456789",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	})
	blacklist := newMockBlacklist()
	svc := NewAuthService(repo, jwtMgr, blacklist, zap.NewNop())
	return svc, jwtMgr, blacklist
}

func registerTestUser(t *testing.T, svc AuthService) *dto.UserResponse {
	t.Helper()
	user, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Username: "alice",
		Email:    "alice@test.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("注册应成功: %v", err)
	}
	return user
}

// ── Register ──

func TestAuthService_Register_Success(t *testing.T) {
	svc, _, _ := setupTestAuthService()

	user := registerTestUser(t, svc)
	if user.Username != "alice" {
		t.Errorf("期望用户名 alice，实际 %s", user.Username)
	}
	if user.Role != "user" {
		t.Errorf("新用户默认角色应为 user，实际 %s", user.Role)
	}
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	svc, _, _ := setupTestAuthService()
	registerTestUser(t, svc)

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Username: "alice",
		Email:    "other@test.com",
		Password: "password123",
	})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("期望 ErrUsernameTaken，实际: %v", err)
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	svc, _, _ := setupTestAuthService()
	registerTestUser(t, svc)

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Username: "bob",
		Email:    "alice@test.com",
		Password: "password123",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("期望 ErrEmailTaken，实际: %v", err)
	}
}

// ── Login ──

func TestAuthService_Login_Success(t *testing.T) {
	svc, jwtMgr, _ := setupTestAuthService()
	registerTestUser(t, svc)

	tokens, err := svc.Login(context.Background(), &dto.LoginRequest{
		Username: "alice",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("登录应成功: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatal("登录应同时签发 Access 与 Refresh Token")
	}

	claims, err := jwtMgr.ParseToken(tokens.AccessToken)
	if err != nil {
		t.Fatalf("Access Token 应可解析: %v", err)
	}
	if claims.TokenType != "access" || claims.Username != "alice" {
		t.Errorf("Token 声明不正确: type=%s username=%s", claims.TokenType, claims.Username)
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, _, _ := setupTestAuthService()
	registerTestUser(t, svc)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Username: "alice",
		Password: "wrong-password",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestAuthService_Login_UnknownUser(t *testing.T) {
	svc, _, _ := setupTestAuthService()

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Username: "ghost",
		Password: "password123",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

// ── Refresh ──

func TestAuthService_Refresh_Success(t *testing.T) {
	svc, _, _ := setupTestAuthService()
	registerTestUser(t, svc)

	tokens, _ := svc.Login(context.Background(), &dto.LoginRequest{Username: "alice", Password: "password123"})

	refreshed, err := svc.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("刷新应成功: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Error("刷新应签发新的 Access Token")
	}
	if refreshed.RefreshToken != "" {
		t.Error("刷新不应签发新的 Refresh Token")
	}
}

func TestAuthService_Refresh_RejectsAccessToken(t *testing.T) {
	svc, _, _ := setupTestAuthService()
	registerTestUser(t, svc)

	tokens, _ := svc.Login(context.Background(), &dto.LoginRequest{Username: "alice", Password: "password123"})

	if _, err := svc.Refresh(context.Background(), tokens.AccessToken); !errors.Is(err, ErrInvalidRefresh) {
		t.Errorf("Access Token 不应可用于刷新，期望 ErrInvalidRefresh，实际: %v", err)
	}
}

// ── Logout ──

func TestAuthService_Logout_BlacklistsToken(t *testing.T) {
	svc, jwtMgr, blacklist := setupTestAuthService()
	registerTestUser(t, svc)

	tokens, _ := svc.Login(context.Background(), &dto.LoginRequest{Username: "alice", Password: "password123"})
	claims, _ := jwtMgr.ParseToken(tokens.AccessToken)

	if err := svc.Logout(context.Background(), claims); err != nil {
		t.Fatalf("登出应成功: %v", err)
	}

	blacklisted, _ := blacklist.IsBlacklisted(context.Background(), claims.ID)
	if !blacklisted {
		t.Error("登出后 Token 应在黑名单中")
	}
}

// [自证通过] internal/service/auth_service_test.go
