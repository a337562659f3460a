package httpapi

import (
	"database/sql"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// DBQueryResolver is the minimal stand-in QueryResolver collaborator: it
// looks up the SQL file registered for a request path in the pages table.
// Binding request parameters into the query text is the SQL file parser's
// job, out of scope here -- the stored query_sql is executed as-is.
type DBQueryResolver struct {
	db *sqlx.DB
}

func NewDBQueryResolver(db *sqlx.DB) *DBQueryResolver {
	return &DBQueryResolver{db: db}
}

func (r *DBQueryResolver) Resolve(c *gin.Context) (string, []interface{}, error) {
	var querySQL string
	err := r.db.GetContext(c.Request.Context(), &querySQL,
		"SELECT query_sql FROM pages WHERE path = ? LIMIT 1", c.Request.URL.Path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, NewError(ErrNotFound)
	}
	if err != nil {
		return "", nil, err
	}
	return querySQL, nil, nil
}
