package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"rowpage/config"
	"rowpage/internal/render"
)

// AuthMiddleware protects the admin template-push routes with a bearer JWT.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, NewError(ErrUnauthorized))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			abortWithError(c, NewErrorWithDetail(ErrUnauthorized, "malformed authorization header"))
			return
		}

		claims, err := VerifyToken(parts[1], secret)
		if err != nil {
			abortWithError(c, NewErrorWithErr(ErrUnauthorized, err))
			return
		}

		c.Set("claims", claims)
		c.Set("admin_id", claims["admin_id"])
		c.Next()
	}
}

// DependencyInjectionMiddleware injects the shared database handle, config,
// and template store into the gin context for handlers to pull out.
func DependencyInjectionMiddleware(db *sqlx.DB, cfg *config.Config, store *render.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			c.Set("db", db)
		}
		if cfg != nil {
			c.Set("config", cfg)
		}
		if store != nil {
			c.Set("store", store)
		}
		c.Next()
	}
}

// ErrorHandlerMiddleware converts any AppError left on the gin context into
// a standardized JSON error envelope. Used by the admin JSON routes; the
// page-rendering route never reaches this path because its errors are
// rendered inline by the render package instead.
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		if appErr := GetAppError(err); appErr != nil {
			abortWithError(c, appErr)
			return
		}

		log.Error().Err(err).Msg("internal server error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    ErrInternalServer,
			"message": errorMessages[ErrInternalServer],
		})
	}
}

func abortWithError(c *gin.Context, appErr *AppError) {
	log.Warn().
		Int("code", int(appErr.Code)).
		Str("message", appErr.Message).
		Err(appErr.Err).
		Msg(appErr.Message)

	response := gin.H{"code": appErr.Code, "message": appErr.Message}
	if appErr.Detail != "" {
		response["detail"] = appErr.Detail
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus(), response)
}
