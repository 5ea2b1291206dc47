package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"uploadtrack-backend/pkg/jwt"
)

// AuthMiddleware creates a Gin middleware that validates viewer tokens.
// If valid, it sets user_id and role in the Gin context
func AuthMiddleware(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFromHeader(c, jwtManager)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing token"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// OptionalAuthMiddleware resolves the viewer identity when a valid token
// is supplied but lets anonymous requests through. Read paths use this:
// anonymous viewers can still see public files
func OptionalAuthMiddleware(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := claimsFromHeader(c, jwtManager); ok {
			c.Set("user_id", claims.UserID)
			c.Set("role", claims.Role)
		}
		c.Next()
	}
}

func claimsFromHeader(c *gin.Context, jwtManager *jwt.Manager) (*jwt.Claims, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, false
	}

	claims, err := jwtManager.ValidateToken(parts[1])
	if err != nil {
		return nil, false
	}
	return claims, true
}

// ViewerID returns the authenticated viewer id from the Gin context,
// nil for anonymous requests
func ViewerID(c *gin.Context) *string {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		return nil
	}
	userID, ok := userIDVal.(string)
	if !ok || userID == "" {
		return nil
	}
	return &userID
}
