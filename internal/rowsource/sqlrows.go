// Package rowsource provides render.RowStream implementations that pull
// rows from a live SQL query and from fixed in-memory JSON, the two row
// sources the render pipeline is driven by in production and in tooling
// respectively.
package rowsource

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"rowpage/internal/render"
)

// SQLRows streams rows from a single parameterized query, translating
// sqlx's row cursor into the render.RowStream contract. It emits one
// ItemFinishedQuery item after the query's rows are exhausted, and an
// ItemError item (rather than a transport error) for scan failures that
// happen mid-stream, so the page can render them inline instead of
// aborting.
type SQLRows struct {
	ctx  context.Context
	rows *sqlx.Rows
	done bool
}

// NewSQLRows runs query against db and wraps the resulting cursor.
func NewSQLRows(ctx context.Context, db *sqlx.DB, query string, args ...interface{}) (*SQLRows, error) {
	rows, err := db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &SQLRows{ctx: ctx, rows: rows}, nil
}

// Next implements render.RowStream.
func (s *SQLRows) Next() (render.Item, bool, error) {
	if s.done {
		return render.Item{}, false, nil
	}

	if !s.rows.Next() {
		s.done = true
		if err := s.rows.Err(); err != nil && err != sql.ErrNoRows {
			return render.Item{Kind: render.ItemError, Err: err}, true, nil
		}
		s.rows.Close()
		return render.Item{Kind: render.ItemFinishedQuery}, true, nil
	}

	row := make(render.Row)
	if err := s.rows.MapScan(row); err != nil {
		return render.Item{Kind: render.ItemError, Err: err}, true, nil
	}
	return render.Item{Kind: render.ItemRow, Row: normalize(row)}, true, nil
}

// normalize converts the []byte values the database/sql driver produces for
// text columns into plain strings, so a row scanned from MySQL has the same
// shape as one decoded from a JSON properties payload.
func normalize(row render.Row) render.Row {
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
	return row
}
