package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/pricewatch/internal/model"
	"github.com/quocanhngo/pricewatch/pkg/auth"
	"github.com/redis/go-redis/v9"
)

// UserIDKey is the gin context key holding the authenticated user id
const UserIDKey = "user_id"

// revokedPrefix keys revoked tokens in Redis; the account service writes them
const revokedPrefix = "blacklist:"

var (
	errNoHeader     = errors.New("authorization header required")
	errBadScheme    = errors.New("invalid authorization format, use: Bearer <token>")
	errInvalidToken = errors.New("invalid or expired token")
	errRevoked      = errors.New("token has been revoked")
)

// AuthMiddleware accepts "Authorization: Bearer <jwt>" and stores the user id
// under UserIDKey. With rdb set, revoked tokens are refused.
func AuthMiddleware(jwtManager *auth.JWTManager, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			unauthorized(c, err)
			return
		}

		if rdb != nil {
			n, err := rdb.Exists(c.Request.Context(), revokedPrefix+token).Result()
			if err != nil {
				// revocation cannot be checked, so refuse
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: "Auth backend unavailable"})
				return
			}
			if n > 0 {
				unauthorized(c, errRevoked)
				return
			}
		}

		claims, err := jwtManager.ValidateToken(token)
		if err != nil {
			unauthorized(c, errInvalidToken)
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

// UserID returns the authenticated user id set by AuthMiddleware
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errNoHeader
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", errBadScheme
	}
	return strings.TrimSpace(token), nil
}

func unauthorized(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Unauthorized", Message: err.Error()})
}
