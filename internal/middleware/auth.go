package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/oriumfun/backend/internal/config"
)

// ContextUserID is the gin context key holding the authenticated user id.
const ContextUserID = "user_id"

// ContextUsername is the gin context key holding the authenticated username.
const ContextUsername = "username"

var errInvalidToken = errors.New("invalid token")

// ParseToken validates an HS256 bearer token and returns the user identity
// embedded in it. Used by both the HTTP middleware and the WebSocket
// handshake.
func ParseToken(tokenString, secret string) (int64, string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return 0, "", errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", errInvalidToken
	}

	idf, ok := claims["user_id"].(float64)
	if !ok {
		return 0, "", errInvalidToken
	}
	username, _ := claims["username"].(string)

	return int64(idf), username, nil
}

// Auth requires a valid Authorization: Bearer token and injects the user
// identity into the request context.
func Auth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		userID, username, err := ParseToken(strings.TrimPrefix(header, "Bearer "), cfg.JWTSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextUsername, username)
		c.Next()
	}
}

// UserID extracts the authenticated user id set by Auth.
func UserID(c *gin.Context) int64 {
	v, _ := c.Get(ContextUserID)
	id, _ := v.(int64)
	return id
}

// Username extracts the authenticated username set by Auth.
func Username(c *gin.Context) string {
	v, _ := c.Get(ContextUsername)
	name, _ := v.(string)
	return name
}
