package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt rejects passwords longer than 72 bytes.
const (
	minPasswordLength = 8
	maxPasswordLength = 72
)

// Claims is the JWT payload issued at login.
type Claims struct {
	UserID string      `json:"user_id"`
	Role   entity.Role `json:"role"`
	jwt.RegisteredClaims
}

// RegisterInput is a new buyer account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// AuthService registers users and issues bearer tokens.
type AuthService struct {
	users  repository.UserRepository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(users repository.UserRepository, secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{users: users, secret: []byte(secret), ttl: ttl, now: nowUTC}
}

// Register creates a buyer account and returns it with a fresh token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*entity.User, string, error) {
	name := strings.TrimSpace(in.Name)
	email := entity.NormalizeEmail(in.Email)
	switch {
	case name == "":
		return nil, "", entity.NewValidationError("name", "is required")
	case email == "" || !strings.Contains(email, "@"):
		return nil, "", entity.NewValidationError("email", "must be a valid address")
	case len(in.Password) < minPasswordLength:
		return nil, "", entity.NewValidationError("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	case len(in.Password) > maxPasswordLength:
		return nil, "", entity.NewValidationError("password", fmt.Sprintf("must be at most %d bytes", maxPasswordLength))
	}

	u, err := s.createUser(ctx, name, email, in.Password, strings.TrimSpace(in.Phone), entity.RoleBuyer, false)
	if err != nil {
		return nil, "", err
	}
	token, err := s.issue(u)
	if err != nil {
		return nil, "", err
	}
	slog.Info("Service: User registered", "user_id", u.ID)
	return u, token, nil
}

// Login checks credentials. Unknown email and wrong password give the same
// error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*entity.User, string, error) {
	u, err := s.users.FindByEmail(ctx, entity.NormalizeEmail(email))
	if errors.Is(err, entity.ErrUserNotFound) {
		return nil, "", entity.ErrUnauthenticated
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", entity.ErrUnauthenticated
	}
	token, err := s.issue(u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// ParseToken validates a bearer token and returns its claims.
func (s *AuthService) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid || claims.UserID == "" {
		return nil, entity.ErrUnauthenticated
	}
	return claims, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*entity.User, error) {
	return s.users.FindByID(ctx, userID)
}

// SeedAdmin creates the admin account if the email is not registered yet.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password string) error {
	email = entity.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}
	_, err := s.createUser(ctx, "Administrator", email, password, "", entity.RoleAdmin, true)
	if errors.Is(err, entity.ErrEmailTaken) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	slog.Info("Service: Admin account created", "email", email)
	return nil
}

func (s *AuthService) createUser(ctx context.Context, name, email, password, phone string, role entity.Role, verified bool) (*entity.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	now := s.now()
	u := &entity.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: string(hash),
		Role:         role,
		IsVerified:   verified,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) issue(u *entity.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: u.ID,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}
