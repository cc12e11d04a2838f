package middleware

import (
	"errors"
	"net/http"
	"strings"

	"deepguard/internal/apperr"
	"deepguard/internal/models"
	"deepguard/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const orgContextKey = "organization"

// APIKeyClaims are the claims of a gateway-issued token carrying the
// organization API key.
type APIKeyClaims struct {
	APIKey string `json:"api_key"`
	jwt.RegisteredClaims
}

// Authenticate resolves the calling organization before any handler runs.
// It accepts the raw X-API-Key header, or an Authorization Bearer JWT whose
// claims carry the key (issued by the external identity collaborator).
func Authenticate(orgs repository.OrganizationRepository, jwtSecret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")

		if apiKey == "" {
			if authHeader := c.GetHeader("Authorization"); authHeader != "" {
				parts := strings.Split(authHeader, " ")
				if len(parts) != 2 || parts[0] != "Bearer" {
					c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer <token>", "code": "INVALID_API_KEY"})
					c.Abort()
					return
				}

				claims := &APIKeyClaims{}
				token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
					if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
						return nil, jwt.ErrSignatureInvalid
					}
					return []byte(jwtSecret), nil
				})
				if err != nil || !token.Valid {
					logger.Debug("Invalid bearer token", zap.Error(err))
					c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token", "code": "INVALID_API_KEY"})
					c.Abort()
					return
				}
				apiKey = claims.APIKey
			}
		}

		if apiKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "API key is required", "code": "MISSING_API_KEY"})
			c.Abort()
			return
		}

		org, err := orgs.GetByAPIKey(c.Request.Context(), apiKey)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key", "code": "INVALID_API_KEY"})
				c.Abort()
				return
			}
			logger.Error("Failed to look up organization", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "code": "INTERNAL_ERROR"})
			c.Abort()
			return
		}

		c.Set(orgContextKey, org)
		c.Next()
	}
}

// OrgFromContext returns the organization resolved by Authenticate.
func OrgFromContext(c *gin.Context) *models.Organization {
	return c.MustGet(orgContextKey).(*models.Organization)
}
