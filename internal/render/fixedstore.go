package render

import (
	"context"

	"rowpage/internal/mustachex"
)

// FixedStore resolves against a fixed, pre-compiled set of templates with
// no backing database -- used by the debug CLI and by tests that want to
// exercise the page-assembly state machine without the Template Store's
// caching and reload machinery.
type FixedStore struct {
	templates map[string]*mustachex.SplitTemplate
}

// NewFixedStore wraps a name-to-template map as a TemplateResolver.
func NewFixedStore(templates map[string]*mustachex.SplitTemplate) *FixedStore {
	return &FixedStore{templates: templates}
}

// Resolve implements TemplateResolver.
func (f *FixedStore) Resolve(_ context.Context, name string) (*mustachex.SplitTemplate, error) {
	return f.templates[name], nil
}
