package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jengzang/wayfarer-backend-go/pkg/response"
)

// UserIDKey is the gin context key holding the authenticated user id.
const UserIDKey = "userID"

// Auth validates a bearer token signed with HS256 and stores the subject
// claim as the request's user id. Token issuance lives in a separate
// identity service; this middleware only verifies.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			c.Abort()
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
			c.Abort()
			return
		}

		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "token has no subject")
			c.Abort()
			return
		}

		c.Set(UserIDKey, sub)
		c.Next()
	}
}

// UserID extracts the authenticated user id set by Auth.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
