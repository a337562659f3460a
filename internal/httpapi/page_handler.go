package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"rowpage/internal/render"
	"rowpage/internal/rowsource"
)

// QueryResolver maps a request path to the SQL query (and its bound
// parameters) whose row stream should drive the page. Parsing the SQL file
// and binding request parameters into it is explicitly out of scope for
// this service; QueryResolver is the seam a real deployment plugs that
// collaborator into.
type QueryResolver interface {
	Resolve(c *gin.Context) (query string, args []interface{}, err error)
}

// ginResponseBuilder adapts gin's header-setting calls to render.ResponseBuilder.
type ginResponseBuilder struct {
	c *gin.Context
}

func (b *ginResponseBuilder) SetStatus(code int) {
	b.c.Status(code)
}

func (b *ginResponseBuilder) SetContentType(contentType string) {
	b.c.Header("Content-Type", contentType)
}

func (b *ginResponseBuilder) InsertHeader(name, value string) {
	b.c.Header(name, value)
}

// PageHandler drives one row-stream query straight into the response
// writer through a render.PageContext, never buffering the body.
func PageHandler(store render.TemplateResolver, db *sqlx.DB, resolver QueryResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		query, args, err := resolver.Resolve(c)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"code": ErrNotFound, "message": "no page matches this path"})
			return
		}

		builder := &ginResponseBuilder{c: c}
		builder.SetStatus(http.StatusOK)
		builder.SetContentType("text/html; charset=utf-8")

		page := render.NewPageContext(store, c.Writer, builder)

		stream, err := rowsource.NewSQLRows(c.Request.Context(), db, query, args...)
		if err != nil {
			log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("failed to start query")
			WriteFatalErrorPage(c.Writer, http.StatusInternalServerError, "query failed to start")
			return
		}

		if err := render.Drive(c.Request.Context(), page, stream); err != nil {
			if page.BodyStarted() {
				log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("page render failed after the body had already started streaming")
				return
			}
			log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("page render aborted before the body opened")
			WriteFatalErrorPage(c.Writer, http.StatusInternalServerError, err.Error())
		}
	}
}
