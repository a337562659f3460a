package render

import (
	"io"

	"rowpage/internal/mustachex"
)

// SplitTemplateRenderer drives one compiled split template through its three
// discontinuous render phases, holding the BlockLocals bag a compiled
// template needs carried between calls. A single instance is created per
// opened component and discarded on close; it is never reused across
// components.
type SplitTemplateRenderer struct {
	name     string
	compiled *mustachex.SplitTemplate
	rootData interface{}
	locals   mustachex.BlockLocals
	rowIndex int
	held     bool
}

// NewSplitTemplateRenderer wraps a compiled split template. RenderStart must
// be called before RenderItem or RenderEnd have any effect.
func NewSplitTemplateRenderer(name string, compiled *mustachex.SplitTemplate) *SplitTemplateRenderer {
	return &SplitTemplateRenderer{name: name, compiled: compiled}
}

// RenderStart installs the page-level data context, emits before_list, and
// captures the resulting BlockLocals. It must be called exactly once, before
// any RenderItem or RenderEnd call, and resets the row counter to zero.
func (r *SplitTemplateRenderer) RenderStart(w io.Writer, pageData interface{}) error {
	locals, err := r.compiled.BeforeList.Render(w, pageData, nil, nil)
	if err != nil {
		return err
	}
	r.rootData = pageData
	r.locals = locals
	r.rowIndex = 0
	r.held = true
	return nil
}

// RenderItem pushes one item frame, renders list_content against it, then
// recaptures the BlockLocals left in the outer frame. It is a no-op if
// RenderStart has not run (or RenderEnd already consumed the hold).
func (r *SplitTemplateRenderer) RenderItem(w io.Writer, itemBase interface{}) error {
	if !r.held {
		return nil
	}
	item := &mustachex.Item{Base: itemBase, RowIndex: r.rowIndex}
	locals, err := r.compiled.ListItem.Render(w, r.rootData, r.locals, item)
	if err != nil {
		return err
	}
	r.locals = locals
	r.rowIndex++
	return nil
}

// RenderEnd reinstalls the held BlockLocals, renders after_list, and clears
// the hold. It is idempotent: a second call is a no-op.
func (r *SplitTemplateRenderer) RenderEnd(w io.Writer) error {
	if !r.held {
		return nil
	}
	_, err := r.compiled.AfterList.Render(w, r.rootData, r.locals, nil)
	r.held = false
	r.locals = nil
	return err
}
