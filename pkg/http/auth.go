package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"liyu1981.xyz/plant-care-service/pkg/common"
)

const RoleAdmin = "admin"

// Claims are the bearer claims accepted on configuration writes.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ParseJWT validates an HS256 token and returns its claims.
func ParseJWT(tokenString string, secret []byte) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("auth: empty token")
	}
	if len(secret) == 0 {
		return nil, errors.New("auth: empty secret")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("auth: invalid token")
	}
	if claims.Role != RoleAdmin {
		return nil, errors.New("auth: role not allowed")
	}
	return claims, nil
}

// RequireJWT guards a route with a bearer token. Without a secret the route
// is closed.
func RequireJWT(secret []byte) gin.HandlerFunc {
	logger := common.GetLoggerWith(common.LoggerNameRestfulServer)
	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "configuration updates are disabled"})
			return
		}
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := ParseJWT(strings.TrimSpace(token), secret)
		if err != nil {
			logger.Warn("Rejected bearer token", zap.String("path", c.FullPath()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("subject", claims.Subject)
		c.Next()
	}
}
