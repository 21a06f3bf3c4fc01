package service

import (
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ShaniStaretz-ai/FinalProject/internal/model"
	"github.com/ShaniStaretz-ai/FinalProject/internal/pkg/jwt"
	"github.com/ShaniStaretz-ai/FinalProject/internal/repository"
)

// AuthService handles registration, login and password management.
type AuthService struct {
	users         *repository.UserRepository
	defaultTokens int
}

func NewAuthService(users *repository.UserRepository, defaultTokens int) *AuthService {
	return &AuthService{users: users, defaultTokens: defaultTokens}
}

// Register creates a new user with the default token balance.
func (s *AuthService) Register(email, password string) error {
	if len(password) < 4 {
		return &ValidationError{Msg: "Password must be at least 4 characters"}
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	id, created, err := s.users.Create(email, hash, s.defaultTokens, false)
	if err != nil {
		return err
	}
	if !created {
		return ErrEmailExists
	}

	zap.L().Info("User registered", zap.Int("user_id", id), zap.String("email", email))
	return nil
}

// Login authenticates a user and returns a bearer token.
func (s *AuthService) Login(email, password string) (*model.TokenResponse, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		zap.L().Warn("Password verification failed", zap.String("email", email))
		return nil, ErrInvalidCredentials
	}

	token, err := jwt.GenerateToken(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		return nil, err
	}

	return &model.TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

// GetUser returns the user record for a resolved identity.
func (s *AuthService) GetUser(userID int) (*model.User, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// EnsureAdmin creates the configured admin account if it does not exist yet.
func (s *AuthService) EnsureAdmin(email, password string) error {
	if email == "" || password == "" {
		zap.L().Warn("Admin bootstrap skipped, no admin credentials configured")
		return nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	_, created, err := s.users.Create(email, hash, s.defaultTokens, true)
	if err != nil {
		return err
	}
	if created {
		zap.L().Info("Admin user created", zap.String("email", email))
	}
	return nil
}

// HashPassword hashes a password with bcrypt. bcrypt ignores input beyond
// 72 bytes, so longer passwords are truncated explicitly.
func HashPassword(password string) (string, error) {
	if len(password) > 72 {
		password = password[:72]
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
