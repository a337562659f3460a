package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"rowpage/internal/render"
	"rowpage/models"
)

// LoginRequest is the admin login payload.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginHandler issues a bearer token for an admin whose credentials match
// the single configured account. A real multi-admin deployment would look
// the hash up in a table; this service only guards one template-push actor.
func LoginHandler(adminUser, adminPasswordHash, jwtSecret string, tokenExpiry time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, NewErrorWithDetail(ErrInvalidParam, err.Error()))
			return
		}

		if req.Username != adminUser || !VerifyPassword(req.Password, adminPasswordHash) {
			abortWithError(c, NewError(ErrUnauthorized))
			return
		}

		token, err := CreateAccessToken(map[string]interface{}{"sub": req.Username}, jwtSecret, tokenExpiry)
		if err != nil {
			abortWithError(c, NewErrorWithErr(ErrInternalServer, err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

// TemplatePushRequest upserts one named component template.
type TemplatePushRequest struct {
	Name    string `json:"name" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// TemplatePushHandler writes a template row and reloads it in the store so
// the next request to resolve that component sees the new content.
func TemplatePushHandler(db *sqlx.DB, store *render.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TemplatePushRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, NewErrorWithDetail(ErrInvalidParam, err.Error()))
			return
		}

		existing := &models.Template{}
		lookErr := db.Get(existing, `SELECT * FROM templates WHERE name = ?`, req.Name)
		var execErr error
		switch {
		case lookErr == nil:
			_, execErr = db.Exec(
				`UPDATE templates SET content = ?, version = version + 1, status = 1, updated_at = NOW() WHERE name = ?`,
				req.Content, req.Name,
			)
		case lookErr == sql.ErrNoRows:
			_, execErr = db.Exec(
				`INSERT INTO templates (name, content, status, version) VALUES (?, ?, 1, 1)`,
				req.Name, req.Content,
			)
		default:
			execErr = lookErr
		}
		if execErr != nil {
			abortWithError(c, NewErrorWithErr(ErrInternalServer, execErr))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := store.ReloadByName(ctx, req.Name); err != nil {
			abortWithError(c, NewErrorWithErr(ErrInternalServer, err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"name": req.Name})
	}
}
