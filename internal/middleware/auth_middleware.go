package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/ticketdesk/lottery-backoffice/internal/config"
	"github.com/ticketdesk/lottery-backoffice/internal/logger"
)

// Context keys set by JWTAuthMiddleware
const (
	CallerIDKey   = "userID"
	CallerRoleKey = "userRole"
)

// RoleAdmin may perform destructive back-office actions
const RoleAdmin = "admin"

// JWTAuthMiddleware creates a gin middleware for JWT authentication.
// Tokens are issued elsewhere; this only verifies them and exposes the caller.
func JWTAuthMiddleware(cfg config.JWTConfig) gin.HandlerFunc {
	jwtSecret := []byte(cfg.Secret)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
	)

	return func(c *gin.Context) {
		const bearerSchema = "Bearer "
		log := logger.FromContext(c.Request.Context())

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Authorization header is required"})
			return
		}
		if !strings.HasPrefix(authHeader, bearerSchema) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Authorization header must start with Bearer "})
			return
		}

		claims := jwt.MapClaims{}
		_, err := parser.ParseWithClaims(authHeader[len(bearerSchema):], claims, func(token *jwt.Token) (interface{}, error) {
			return jwtSecret, nil
		})
		if err != nil {
			log.Warn("Token validation failed", "error", err)
			msg := "Invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token has expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": msg})
			return
		}

		sub, err := claims.GetSubject()
		if err != nil || sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Token has no subject"})
			return
		}
		role, _ := claims["role"].(string)

		c.Set(CallerIDKey, sub)
		c.Set(CallerRoleKey, role)
		c.Next()
	}
}

// RequireRole rejects callers whose token role is not one of roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(CallerRoleKey)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": fmt.Sprintf("role %q may not perform this action", role),
		})
	}
}
