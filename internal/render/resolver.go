package render

import (
	"context"

	"rowpage/internal/mustachex"
)

// TemplateResolver resolves a component name to its compiled split
// template. Store is the database-backed production implementation;
// FixedStore backs tests and standalone tooling that never touch a
// database.
type TemplateResolver interface {
	Resolve(ctx context.Context, name string) (*mustachex.SplitTemplate, error)
}
