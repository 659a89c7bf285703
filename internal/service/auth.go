package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/marca-labs/brandgov/internal/domain"
)

// UserRepositoryInterface defines the repository interface for user persistence
type UserRepositoryInterface interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
}

// Claims is the JWT payload issued on login.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService issues and validates JWT access tokens and manages users.
// Role resolution for the workflow happens here: downstream services only
// ever see the role carried by a validated token.
type AuthService struct {
	userRepo UserRepositoryInterface
	secret   []byte
	tokenTTL time.Duration
	uuidGen  UUIDGenerator
}

// NewAuthService creates a new AuthService instance
func NewAuthService(userRepo UserRepositoryInterface, secret string, tokenTTL time.Duration, uuidGen UUIDGenerator) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		uuidGen:  uuidGen,
	}
}

// CreateUserInput represents the input for creating a user
type CreateUserInput struct {
	Email    string
	FullName string
	Password string
	Role     domain.Role
}

// CreateUser registers a new user with a bcrypt-hashed password.
func (s *AuthService) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "email is required")
	}
	if len(input.Password) < 8 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "password must be at least 8 characters")
	}
	if !domain.IsValidRole(input.Role) {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "role must be one of creator, approver_a, approver_b")
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrUserAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to hash password", err)
	}

	user := &domain.User{
		ID:             s.uuidGen.NewString(),
		Email:          email,
		FullName:       strings.TrimSpace(input.FullName),
		Role:           input.Role,
		HashedPassword: string(hash),
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}
	if err := domain.ValidateUser(user); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid user", err)
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// LoginOutput carries the issued token and the authenticated user.
type LoginOutput struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// Login checks credentials and issues a signed JWT. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginOutput, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	expiresAt := time.Now().UTC().Add(s.tokenTTL)
	claims := Claims{
		Email: user.Email,
		Role:  string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        s.uuidGen.NewString(),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to sign token", err)
	}

	return &LoginOutput{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// ValidateToken parses and verifies a JWT and returns its claims.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, domain.NewDomainError(domain.ErrCodeUnauthorized, "invalid or expired token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, domain.NewDomainError(domain.ErrCodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// ResolveUser loads the user behind validated claims and re-checks the
// active flag, so a deactivated user's outstanding tokens stop working.
func (s *AuthService) ResolveUser(ctx context.Context, claims *Claims) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.NewDomainError(domain.ErrCodeUnauthorized, "token subject no longer exists")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}
	return user, nil
}

// ListUsers returns all registered users.
func (s *AuthService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.userRepo.List(ctx)
}
