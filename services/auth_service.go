package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/yashrajoria/shop-service/models"
	"github.com/yashrajoria/shop-service/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type AuthService struct {
	store  repository.Store
	tokens *TokenService
	logger *zap.Logger
}

func NewAuthService(store repository.Store, tokens *TokenService, logger *zap.Logger) *AuthService {
	return &AuthService{store: store, tokens: tokens, logger: logger}
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	return s.createUser(ctx, username, email, password, false)
}

// ObtainTokens checks credentials and issues an access/refresh pair.
func (s *AuthService) ObtainTokens(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := s.store.Users().FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errBadCredentials()
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, errBadCredentials()
	}
	return s.tokens.GenerateTokenPair(user)
}

func (s *AuthService) Refresh(refreshToken string) (string, error) {
	access, err := s.tokens.RefreshAccess(refreshToken)
	if err != nil {
		return "", &AuthError{Message: "Token is invalid or expired"}
	}
	return access, nil
}

// Verify accepts any valid, unexpired token of either type.
func (s *AuthService) Verify(token string) error {
	if _, err := s.tokens.ValidateToken(token, ""); err != nil {
		return &AuthError{Message: "Token is invalid or expired"}
	}
	return nil
}

// EnsureAdmin creates the staff user when it does not exist yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	if _, err := s.store.Users().FindByUsername(ctx, username); err == nil {
		return nil
	} else if !repository.IsNotFound(err) {
		return fmt.Errorf("find admin: %w", err)
	}
	if _, err := s.createUser(ctx, username, "", password, true); err != nil {
		return err
	}
	s.logger.Info("admin user created", zap.String("username", username))
	return nil
}

func (s *AuthService) createUser(ctx context.Context, username, email, password string, staff bool) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, invalid("username", "This field may not be blank.")
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, invalid("email", "Enter a valid email address.")
		}
	}
	if len(password) < minPasswordLength {
		return nil, invalid("password", "This password is too short. It must contain at least 8 characters.")
	}
	if _, err := s.store.Users().FindByUsername(ctx, username); err == nil {
		return nil, invalid("username", "A user with that username already exists.")
	} else if !repository.IsNotFound(err) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{Username: username, Email: email, Password: string(hash), IsStaff: staff}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, invalid("username", "A user with that username already exists.")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func errBadCredentials() *AuthError {
	return &AuthError{Message: "No active account found with the given credentials"}
}
