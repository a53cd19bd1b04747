package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminOrReadOnly lets safe methods through and requires a staff user for
// writes. Run it after OptionalAuth.
func AdminOrReadOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if _, err := GetUserID(c); err != nil {
			abortAuth(c, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		if !IsStaff(c) {
			abortAuth(c, http.StatusForbidden, "You do not have permission to perform this action.")
			return
		}
		c.Next()
	}
}
