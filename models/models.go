// Package models defines the persisted data structures shared by the
// database layer and the render pipeline.
package models

import (
	"database/sql"
	"time"
)

// Template is one named, versioned component template stored in the
// templates table and served through the render package's Template Store.
// Content is raw mustachex source containing at most one {{#each_row}}
// marker; the store splits and compiles it on first resolution.
type Template struct {
	ID          int64          `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	DisplayName sql.NullString `db:"display_name" json:"display_name"`
	Content     string         `db:"content" json:"content"`
	Status      int            `db:"status" json:"status"`
	Version     int            `db:"version" json:"version"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}
