package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nilpay/payment-service/internal/infrastructure/auth"
	"github.com/nilpay/payment-service/internal/models"
	pkgerrors "github.com/nilpay/payment-service/pkg/errors"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

type stubUserRepo struct {
	mu      sync.Mutex
	nextID  int32
	byEmail map[string]*models.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byEmail: make(map[string]*models.User)}
}

func (s *stubUserRepo) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[user.Email]; ok {
		return pkgerrors.ErrUserAlreadyExists
	}
	s.nextID++
	user.ID = s.nextID
	user.CreatedAt = time.Now().UTC()
	copied := *user
	s.byEmail[user.Email] = &copied
	return nil
}

func (s *stubUserRepo) GetByID(ctx context.Context, id int32) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.byEmail {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pkgerrors.ErrUserNotFound
}

func (s *stubUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byEmail[email]
	if !ok {
		return nil, pkgerrors.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

type stubRedis struct {
	mu     sync.Mutex
	values map[string]string
}

func newStubRedis() *stubRedis {
	return &stubRedis{values: make(map[string]string)}
}

func (s *stubRedis) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	val, ok := s.values[key]
	if !ok {
		return "", pkgerrors.ErrInternal
	}
	return val, nil
}

func (s *stubRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value.(string)
	return nil
}

func (s *stubRedis) Del(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *stubRedis) Ping(ctx context.Context) error { return nil }
func (s *stubRedis) Close() error                   { return nil }

func newTestAuthService() (*authService, *stubUserRepo, *stubRedis) {
	userRepo := newStubUserRepo()
	redisClient := newStubRedis()
	tokens := auth.NewTokenService("secret", time.Hour)
	svc := NewAuthService(userRepo, tokens, redisClient, &stubProducer{}, bcrypt.MinCost, time.Hour)
	return svc, userRepo, redisClient
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, _, redisClient := newTestAuthService()

		token, user, err := svc.Register(ctx, "a@x.com", "secret1", models.RoleDev)
		assert.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, "a@x.com", user.Email)
		assert.Equal(t, models.RoleDev, user.Role)
		assert.NotEqual(t, "secret1", user.PasswordHash)

		cached, err := redisClient.Get(ctx, "user:1:token")
		assert.NoError(t, err)
		assert.Equal(t, token, cached)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		svc, _, _ := newTestAuthService()

		_, _, err := svc.Register(ctx, "a@x.com", "secret1", models.RoleDev)
		assert.NoError(t, err)

		token, user, err := svc.Register(ctx, "a@x.com", "secret2", models.RolePSP)
		assert.ErrorIs(t, err, pkgerrors.ErrUserAlreadyExists)
		assert.Empty(t, token)
		assert.Nil(t, user)
	})

	t.Run("Validation", func(t *testing.T) {
		svc, userRepo, _ := newTestAuthService()

		cases := []struct {
			name     string
			email    string
			password string
			role     models.RoleType
		}{
			{"BadEmail", "not-an-email", "secret1", models.RoleDev},
			{"ShortPassword", "a@x.com", "12345", models.RoleDev},
			{"BadRole", "a@x.com", "secret1", "admin"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				token, user, err := svc.Register(ctx, tc.email, tc.password, tc.role)
				assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
				assert.Empty(t, token)
				assert.Nil(t, user)
			})
		}
		assert.Empty(t, userRepo.byEmail)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, _, _ := newTestAuthService()
		_, _, err := svc.Register(ctx, "a@x.com", "secret1", models.RoleDev)
		assert.NoError(t, err)

		token, user, err := svc.Login(ctx, "a@x.com", "secret1")
		assert.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, "a@x.com", user.Email)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		svc, _, _ := newTestAuthService()
		_, _, err := svc.Register(ctx, "a@x.com", "secret1", models.RoleDev)
		assert.NoError(t, err)

		token, user, err := svc.Login(ctx, "a@x.com", "wrongpass")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidCredentials)
		assert.Empty(t, token)
		assert.Nil(t, user)
	})

	t.Run("UnknownEmailIndistinguishable", func(t *testing.T) {
		svc, _, _ := newTestAuthService()
		_, _, err := svc.Register(ctx, "a@x.com", "secret1", models.RoleDev)
		assert.NoError(t, err)

		_, _, wrongPassErr := svc.Login(ctx, "a@x.com", "wrongpass")
		_, _, unknownErr := svc.Login(ctx, "missing@x.com", "secret1")
		assert.ErrorIs(t, wrongPassErr, pkgerrors.ErrInvalidCredentials)
		assert.ErrorIs(t, unknownErr, pkgerrors.ErrInvalidCredentials)
		assert.Equal(t, wrongPassErr.Error(), unknownErr.Error())
	})
}
