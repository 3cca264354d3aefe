package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/envpass/envpass-server/internal/logger"
	"github.com/envpass/envpass-server/internal/model"
)

// SessionParser verifies identity-provider session tokens.
type SessionParser interface {
	ParseSessionToken(tokenString string) (model.IdentityClaims, error)
}

// IdentityService resolves verified claims to a local user.
type IdentityService interface {
	GetOrCreate(ctx context.Context, claims model.IdentityClaims) (model.User, error)
}

// Authenticate validates bearer session tokens and injects the resolved user
// ID into the request context.
type Authenticate struct {
	sessions       SessionParser
	identity       IdentityService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(sessions SessionParser, identity IdentityService, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{
		sessions:       sessions,
		identity:       identity,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Handle returns the gin middleware function.
func (m *Authenticate) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString := strings.TrimPrefix(header, "Bearer ")
		if header == "" || tokenString == header {
			c.AbortWithStatusJSON(401, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := m.sessions.ParseSessionToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(401, gin.H{"error": "invalid session token"})
			return
		}

		user, err := m.identity.GetOrCreate(c.Request.Context(), claims)
		if err != nil {
			m.logger.Error("failed to resolve identity", "error", err)
			c.AbortWithStatusJSON(500, gin.H{"error": "internal server error"})
			return
		}

		ctx := m.contextManager.SetUserIDToContext(c.Request.Context(), user.ID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
