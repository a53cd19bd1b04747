package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/yashrajoria/shop-service/models"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenPair holds the generated access and refresh tokens.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Identity is what an access token proves about its bearer.
type Identity struct {
	UserID   uuid.UUID
	Username string
	IsStaff  bool
}

// TokenService is responsible for creating and validating JWTs.
type TokenService struct {
	secretKey  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("jwt secret not configured")
	}
	return &TokenService{
		secretKey:  []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// GenerateTokenPair creates a new access and refresh token pair.
func (s *TokenService) GenerateTokenPair(user *models.User) (*TokenPair, error) {
	access, err := s.generateToken(user.ID.String(), user.Username, user.IsStaff, TokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.generateToken(user.ID.String(), user.Username, user.IsStaff, TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// ValidateToken parses and validates any given token string.
func (s *TokenService) ValidateToken(tokenStr, expectedType string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return s.secretKey, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	if expectedType != "" {
		if typ, ok := claims["typ"].(string); !ok || typ != expectedType {
			return nil, fmt.Errorf("invalid token type")
		}
	}
	return claims, nil
}

// Authenticate validates an access token and extracts the bearer identity.
func (s *TokenService) Authenticate(tokenStr string) (*Identity, error) {
	claims, err := s.ValidateToken(tokenStr, TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	return identityFromClaims(claims)
}

// RefreshAccess issues a new access token from a refresh token.
func (s *TokenService) RefreshAccess(refreshToken string) (string, error) {
	claims, err := s.ValidateToken(refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", err
	}
	id, err := identityFromClaims(claims)
	if err != nil {
		return "", err
	}
	return s.generateToken(id.UserID.String(), id.Username, id.IsStaff, TokenTypeAccess, s.accessTTL)
}

func (s *TokenService) generateToken(userID, username string, isStaff bool, tokenType string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":      userID,
		"username": username,
		"is_staff": isStaff,
		"typ":      tokenType,
		"exp":      now.Add(ttl).Unix(),
		"iat":      now.Unix(),
		"jti":      uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

func identityFromClaims(claims jwt.MapClaims) (*Identity, error) {
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid token subject")
	}
	username, _ := claims["username"].(string)
	isStaff, _ := claims["is_staff"].(bool)
	return &Identity{UserID: userID, Username: username, IsStaff: isStaff}, nil
}
