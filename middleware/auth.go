package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yashrajoria/shop-service/services"
)

const (
	UserContextKey  = "userID"
	StaffContextKey = "isStaff"
)

// Authenticator resolves a bearer access token.
type Authenticator interface {
	Authenticate(token string) (*services.Identity, error)
}

// AuthMiddleware rejects requests without a valid bearer access token.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortAuth(c, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		id, err := auth.Authenticate(token)
		if err != nil {
			abortAuth(c, http.StatusUnauthorized, "Given token not valid for any token type")
			return
		}
		setIdentity(c, id)
		c.Next()
	}
}

// OptionalAuth attaches the identity when a valid token is present and
// rejects only malformed or invalid tokens.
func OptionalAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}
		id, err := auth.Authenticate(token)
		if err != nil {
			abortAuth(c, http.StatusUnauthorized, "Given token not valid for any token type")
			return
		}
		setIdentity(c, id)
		c.Next()
	}
}

func GetUserID(c *gin.Context) (uuid.UUID, error) {
	if val, ok := c.Get(UserContextKey); ok {
		if id, ok := val.(uuid.UUID); ok && id != uuid.Nil {
			return id, nil
		}
	}
	return uuid.Nil, errors.New("user ID not found in context")
}

func IsStaff(c *gin.Context) bool {
	return c.GetBool(StaffContextKey)
}

func setIdentity(c *gin.Context, id *services.Identity) {
	c.Set(UserContextKey, id.UserID)
	c.Set(StaffContextKey, id.IsStaff)
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abortAuth(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail, "key": "auth"})
}
