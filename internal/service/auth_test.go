package service

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"instagen/internal/config"
	"instagen/internal/model"
)

// =============================================================================
// MOCK REPOSITORY
// =============================================================================

type mockUserRepository struct {
	createFn           func(ctx context.Context, user *model.User) error
	getByIDFn          func(ctx context.Context, id string) (*model.User, error)
	getByUsernameFn    func(ctx context.Context, username string) (*model.User, error)
	existsByUsernameFn func(ctx context.Context, username string) (bool, error)

	createCalls []*model.User
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	m.createCalls = append(m.createCalls, user)
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	user.ID = "user-1"
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if m.existsByUsernameFn != nil {
		return m.existsByUsernameFn(ctx, username)
	}
	return false, nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:         "test-secret",
		AccessTokenMaxAge: 900,
	}
}

// =============================================================================
// REGISTER TESTS
// =============================================================================

func TestRegister_Success(t *testing.T) {
	// ARRANGE
	repo := &mockUserRepository{}
	svc := NewAuthService(repo, testConfig())

	// ACT
	user, err := svc.Register(context.Background(), &model.RegisterRequest{
		Username: "gen_artist",
		Password: "s3cret",
		Name:     "Gen Artist",
	})

	// ASSERT
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if user.Username != "gen_artist" || user.Name != "Gen Artist" {
		t.Errorf("unexpected user fields: %+v", user)
	}
	if user.PasswordHashed == "s3cret" || user.PasswordHashed == "" {
		t.Error("expected the password stored hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte("s3cret")); err != nil {
		t.Errorf("stored hash does not verify: %v", err)
	}
	if len(repo.createCalls) != 1 {
		t.Errorf("expected one create call, got %d", len(repo.createCalls))
	}
}

func TestRegister_EmptyFields(t *testing.T) {
	repo := &mockUserRepository{}
	svc := NewAuthService(repo, testConfig())

	cases := []model.RegisterRequest{
		{Username: "  ", Password: "s3cret"},
		{Username: "gen", Password: ""},
	}
	for _, req := range cases {
		if _, err := svc.Register(context.Background(), &req); err == nil {
			t.Errorf("expected validation error for %+v", req)
		}
	}
	if len(repo.createCalls) != 0 {
		t.Errorf("expected no create calls, got %d", len(repo.createCalls))
	}
}

func TestRegister_UsernameTaken(t *testing.T) {
	repo := &mockUserRepository{
		existsByUsernameFn: func(ctx context.Context, username string) (bool, error) {
			return true, nil
		},
	}
	svc := NewAuthService(repo, testConfig())

	_, err := svc.Register(context.Background(), &model.RegisterRequest{
		Username: "gen_artist",
		Password: "s3cret",
	})

	if !errors.Is(err, model.ErrUsernameExists) {
		t.Errorf("expected ErrUsernameExists, got: %v", err)
	}
}

// =============================================================================
// LOGIN TESTS
// =============================================================================

func TestLogin_Success(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	repo := &mockUserRepository{
		getByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: "user-1", Username: username, PasswordHashed: string(hash)}, nil
		},
	}
	svc := NewAuthService(repo, testConfig())

	user, err := svc.Login(context.Background(), &model.LoginRequest{
		Username: "gen_artist",
		Password: "s3cret",
	})

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("unexpected user: %+v", user)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	repo := &mockUserRepository{
		getByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: "user-1", Username: username, PasswordHashed: string(hash)}, nil
		},
	}
	svc := NewAuthService(repo, testConfig())

	_, err := svc.Login(context.Background(), &model.LoginRequest{
		Username: "gen_artist",
		Password: "wrong",
	})

	if !errors.Is(err, model.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got: %v", err)
	}
}

func TestLogin_UnknownUserHidesExistence(t *testing.T) {
	repo := &mockUserRepository{}
	svc := NewAuthService(repo, testConfig())

	_, err := svc.Login(context.Background(), &model.LoginRequest{
		Username: "ghost",
		Password: "whatever",
	})

	if !errors.Is(err, model.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for an unknown user, got: %v", err)
	}
}

// =============================================================================
// TOKEN TESTS
// =============================================================================

func TestGenerateAccessToken_CarriesUserID(t *testing.T) {
	svc := NewAuthService(&mockUserRepository{}, testConfig())

	signed, err := svc.GenerateAccessToken("user-1")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	parsed, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("expected a valid token, got: %v", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("expected map claims")
	}
	if claims["user_id"] != "user-1" {
		t.Errorf("expected user_id claim, got %v", claims["user_id"])
	}
	if _, hasExp := claims["exp"]; !hasExp {
		t.Error("expected an expiry claim")
	}
}
