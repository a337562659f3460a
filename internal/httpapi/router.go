package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"rowpage/config"
	"rowpage/internal/obs"
	"rowpage/internal/render"
)

// NewRouter builds the gin engine: the catch-all page route driven by the
// render pipeline, plus the admin login and template-push routes.
func NewRouter(cfg *config.Config, db *sqlx.DB, store *render.Store, resolver QueryResolver, adminUser, adminPasswordHash string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), obs.RequestLogger())
	r.Use(DependencyInjectionMiddleware(db, cfg, store))

	admin := r.Group("/admin")
	admin.Use(ErrorHandlerMiddleware())
	admin.POST("/login", LoginHandler(adminUser, adminPasswordHash, cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenExpiry)*time.Minute))

	protected := admin.Group("")
	protected.Use(AuthMiddleware(cfg.Auth.JWTSecret))
	protected.POST("/templates", TemplatePushHandler(db, store))

	r.NoRoute(PageHandler(store, db, resolver))

	return r
}
