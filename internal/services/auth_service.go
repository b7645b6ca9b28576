package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	stderrors "errors"

	"github.com/nilpay/payment-service/internal/infrastructure/auth"
	"github.com/nilpay/payment-service/internal/infrastructure/kafka"
	"github.com/nilpay/payment-service/internal/infrastructure/redis"
	"github.com/nilpay/payment-service/internal/models"
	"github.com/nilpay/payment-service/internal/repository"
	pkgerrors "github.com/nilpay/payment-service/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type AuthService interface {
	Register(ctx context.Context, email, password string, role models.RoleType) (string, *models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
}

type authService struct {
	userRepo      repository.UserRepository
	tokens        *auth.TokenService
	redisClient   redis.RedisClient
	kafkaProducer kafka.KafkaProducer
	bcryptCost    int
	tokenTTL      time.Duration
}

func NewAuthService(
	userRepo repository.UserRepository,
	tokens *auth.TokenService,
	redisClient redis.RedisClient,
	kafkaProducer kafka.KafkaProducer,
	bcryptCost int,
	tokenTTL time.Duration,
) *authService {
	return &authService{
		userRepo:      userRepo,
		tokens:        tokens,
		redisClient:   redisClient,
		kafkaProducer: kafkaProducer,
		bcryptCost:    bcryptCost,
		tokenTTL:      tokenTTL,
	}
}

func (s *authService) Register(ctx context.Context, email, password string, role models.RoleType) (string, *models.User, error) {
	tracer := otel.Tracer("auth-service")
	ctx, span := tracer.Start(ctx, "Register")
	defer span.End()

	if err := validateSignup(email, password, role); err != nil {
		span.SetStatus(codes.Error, "invalid signup input")
		return "", nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if existing != nil {
		span.SetStatus(codes.Error, "email already taken")
		slog.Warn("email already taken", "email", email, "existing_id", existing.ID)
		return "", nil, pkgerrors.ErrUserAlreadyExists
	}
	if err != nil && !stderrors.Is(err, pkgerrors.ErrUserNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user check failed")
		slog.Error("failed to check user existence", "email", email, "error", err)
		return "", nil, fmt.Errorf("%w: failed to check user existence", pkgerrors.ErrInternal)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "password hashing failed")
		slog.Error("failed to hash password", "email", email, "error", err)
		return "", nil, fmt.Errorf("%w: failed to hash password", pkgerrors.ErrInternal)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if stderrors.Is(err, pkgerrors.ErrUserAlreadyExists) {
			span.SetStatus(codes.Error, "email already taken")
			return "", nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "user creation failed")
		slog.Error("failed to create user in DB", "email", email, "error", err)
		return "", nil, fmt.Errorf("%w: failed to create user", pkgerrors.ErrInternal)
	}

	token, err := s.issueAndCache(ctx, user.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token issuance failed")
		return "", nil, err
	}

	s.emitUserEvent(user)

	slog.Info("user registered successfully", "user_id", user.ID, "email", email, "role", role)
	return token, user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	tracer := otel.Tracer("auth-service")
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		// Same error for unknown email and wrong password: no account
		// enumeration through the login endpoint.
		slog.Warn("login failed", "email", email, "error", err)
		span.SetStatus(codes.Error, "invalid credentials")
		return "", nil, pkgerrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login failed", "email", email)
		span.SetStatus(codes.Error, "invalid credentials")
		return "", nil, pkgerrors.ErrInvalidCredentials
	}

	token, err := s.issueAndCache(ctx, user.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token issuance failed")
		return "", nil, err
	}

	slog.Info("user logged in", "email", email, "user_id", user.ID)
	return token, user, nil
}

func (s *authService) issueAndCache(ctx context.Context, userID int32) (string, error) {
	token, err := s.tokens.Issue(userID)
	if err != nil {
		slog.Error("failed to generate JWT", "user_id", userID, "error", err)
		return "", fmt.Errorf("%w: failed to generate token", pkgerrors.ErrInternal)
	}

	if err := s.redisClient.Set(ctx, fmt.Sprintf("user:%d:token", userID), token, s.tokenTTL); err != nil {
		slog.Error("failed to cache JWT", "user_id", userID, "error", err)
	}
	return token, nil
}

func (s *authService) emitUserEvent(user *models.User) {
	event := kafka.UserEvent{
		EventType: "user_registered",
		UserID:    user.ID,
		Email:     user.Email,
		Role:      string(user.Role),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal kafka event", "user_id", user.ID, "error", err)
		return
	}

	go func() {
		retries := 3
		for i := 0; i < retries; i++ {
			if err := s.kafkaProducer.Send(context.Background(), kafka.TopicUsers, int64(user.ID), eventBytes); err == nil {
				return
			}
			time.Sleep(time.Second * time.Duration(i+1))
		}
		slog.Error("failed to send user registration event after retries", "user_id", user.ID)
	}()
}

func validateSignup(email, password string, role models.RoleType) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email", pkgerrors.ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", pkgerrors.ErrInvalidInput, minPasswordLength)
	}
	if role != models.RolePSP && role != models.RoleDev {
		return fmt.Errorf("%w: role must be psp or dev", pkgerrors.ErrInvalidInput)
	}
	return nil
}
