// Package router assembles the HTTP API surface.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/envpass/envpass-server/internal/api/http/handler"
	"github.com/envpass/envpass-server/internal/api/http/middleware"
	"github.com/envpass/envpass-server/internal/logger"
	"github.com/envpass/envpass-server/internal/model"
	"github.com/envpass/envpass-server/internal/service"
)

// Router wires services, middleware and handlers into a gin engine.
type Router struct {
	identityService   *service.Identity
	roomService       *service.Room
	membershipService *service.Membership
	secretService     *service.Secret
	auditService      *service.Audit
	sessions          middleware.SessionParser
	vault             model.Vault
	contextManager    model.ContextManager
	logger            *logger.Logger
}

// New creates a new Router instance.
func New(
	identityService *service.Identity,
	roomService *service.Room,
	membershipService *service.Membership,
	secretService *service.Secret,
	auditService *service.Audit,
	sessions middleware.SessionParser,
	vault model.Vault,
	contextManager model.ContextManager,
	logger *logger.Logger,
) *Router {
	return &Router{
		identityService:   identityService,
		roomService:       roomService,
		membershipService: membershipService,
		secretService:     secretService,
		auditService:      auditService,
		sessions:          sessions,
		vault:             vault,
		contextManager:    contextManager,
		logger:            logger,
	}
}

// Register registers all routes and middleware and returns the engine.
func (r *Router) Register() *gin.Engine {
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.sessions, r.identityService, r.contextManager, r.logger)

	rooms := handler.NewRoom(r.roomService, r.membershipService, r.vault, r.contextManager, r.logger)
	members := handler.NewMember(r.membershipService, r.contextManager, r.logger)
	secrets := handler.NewSecret(r.secretService, r.roomService, r.membershipService, r.vault, r.contextManager, r.logger)
	audit := handler.NewAudit(r.auditService, r.membershipService, r.contextManager, r.logger)
	users := handler.NewUser(r.identityService, r.contextManager, r.logger)

	engine := gin.New()
	engine.Use(gin.Recovery(), logging.Handle())

	api := engine.Group("/api/v1", authenticate.Handle())

	api.GET("/me", users.Me)

	api.POST("/rooms", rooms.Create)
	api.GET("/rooms", rooms.List)
	api.POST("/rooms/join", rooms.Join)
	api.GET("/rooms/:roomID", rooms.Get)
	api.PATCH("/rooms/:roomID", rooms.Update)
	api.POST("/rooms/:roomID/shred", rooms.Shred)
	api.DELETE("/rooms/:roomID", rooms.Delete)

	api.GET("/rooms/:roomID/members", members.List)
	api.DELETE("/memberships/:membershipID", members.Remove)

	api.POST("/rooms/:roomID/secrets", secrets.Create)
	api.GET("/rooms/:roomID/secrets", secrets.List)
	api.POST("/rooms/:roomID/secrets/import", secrets.Import)
	api.GET("/rooms/:roomID/secrets/export", secrets.Export)
	api.GET("/secrets/:secretID/reveal", secrets.Reveal)
	api.PATCH("/secrets/:secretID", secrets.Update)
	api.DELETE("/secrets/:secretID", secrets.Delete)

	api.GET("/rooms/:roomID/audit", audit.List)

	return engine
}
