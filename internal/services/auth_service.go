package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// AuthEndpoint is the authentication collaborator consumed by the
// session store. ValidateToken must distinguish authorization failure
// (an error wrapping models.ErrAuthExpired) from transient failure,
// since the two are handled with opposite policies.
type AuthEndpoint interface {
	Login(ctx context.Context, credentials models.Credentials) (models.Identity, string, error)
	ValidateToken(ctx context.Context, token string) (*models.Identity, error)
	InvalidateToken(ctx context.Context, token string) error
}

// AuthService implements AuthEndpoint on top of a user repository:
// bcrypt password hashes, HS256 JWT credentials, and an in-memory token
// blacklist for logout.
type AuthService struct {
	userRepo      repositories.UserRepository
	jwtSecret     []byte
	tokenDuration time.Duration
	validate      *validator.Validate

	mu          sync.Mutex
	blacklisted map[string]struct{}
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: 24 * time.Hour,
		validate:      validator.New(),
		blacklisted:   make(map[string]struct{}),
	}
}

// Register registers a new account, hashes its password, and saves it.
func (s *AuthService) Register(user *models.User) error {
	if err := s.validate.Struct(user); err != nil {
		return fmt.Errorf("invalid registration: %w", err)
	}

	if existing, err := s.userRepo.GetByEmail(user.Email); err == nil && existing != nil {
		return fmt.Errorf("email '%s' already registered", user.Email)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashedPassword)

	if err := s.userRepo.Create(user); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	return nil
}

// Login authenticates credentials and returns the identity plus a
// signed credential token.
func (s *AuthService) Login(ctx context.Context, credentials models.Credentials) (models.Identity, string, error) {
	if err := s.validate.Struct(credentials); err != nil {
		return models.Identity{}, "", fmt.Errorf("invalid credentials")
	}

	user, err := s.userRepo.GetByEmail(credentials.Email)
	if err != nil {
		// Do not reveal whether the email exists.
		return models.Identity{}, "", fmt.Errorf("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(credentials.Password)); err != nil {
		return models.Identity{}, "", fmt.Errorf("invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    string(user.Role),
		"exp":     time.Now().Add(s.tokenDuration).Unix(),
		"iat":     time.Now().Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return models.Identity{}, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return user.Identity(), tokenString, nil
}

// ValidateToken parses and verifies a credential token and returns the
// current identity for its subject. Invalid, expired, or blacklisted
// tokens fail with models.ErrAuthExpired; repository faults are
// reported as transient.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.Identity, error) {
	s.mu.Lock()
	_, revoked := s.blacklisted[tokenString]
	s.mu.Unlock()
	if revoked {
		return nil, fmt.Errorf("token revoked: %w", models.ErrAuthExpired)
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		log.Printf("Token validation error: %v", err)
		return nil, fmt.Errorf("invalid token: %w", models.ErrAuthExpired)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", models.ErrAuthExpired)
	}

	userID, _ := claims["user_id"].(string)
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Subject no longer exists: the credential is dead.
			return nil, fmt.Errorf("token subject gone: %w", models.ErrAuthExpired)
		}
		return nil, fmt.Errorf("user lookup failed: %w", models.ErrTransient)
	}

	identity := user.Identity()
	return &identity, nil
}

// InvalidateToken blacklists a credential token so it can no longer be
// validated.
func (s *AuthService) InvalidateToken(ctx context.Context, tokenString string) error {
	if tokenString == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklisted[tokenString] = struct{}{}
	return nil
}
