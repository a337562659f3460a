package render

import (
	"context"
	"io"
)

// PageContext is the outer state machine stepped by the caller once per row.
// It starts in the Header phase and transitions to Body exactly once, on the
// first row whose component is not http_header.
type PageContext struct {
	store   TemplateResolver
	writer  io.Writer
	builder ResponseBuilder

	body *RenderContext // nil while still in the Header phase
}

// NewPageContext builds a fresh Header-phase page bound to one request's
// writer and response builder.
func NewPageContext(store TemplateResolver, writer io.Writer, builder ResponseBuilder) *PageContext {
	return &PageContext{store: store, writer: writer, builder: builder}
}

// Step feeds one row into whichever phase is currently active.
func (p *PageContext) Step(ctx context.Context, row Row) error {
	if p.body == nil {
		return p.handleHeaderRow(ctx, row)
	}
	return p.body.HandleRow(ctx, row)
}

// BodyStarted reports whether the Body phase has begun, i.e. whether the
// shell's before_list has already been written to the response. Once true,
// a caller that hits a transport-level error can no longer safely write a
// fresh document over the partial response already sent.
func (p *PageContext) BodyStarted() bool {
	return p.body != nil
}

// FinishQuery marks a SQL-statement boundary, used only to attribute inline
// errors to the right statement. It has no effect before the Body phase.
func (p *PageContext) FinishQuery() {
	if p.body != nil {
		p.body.FinishQuery()
	}
}

// HandleError renders a source-stream error inline. Before the Body
// transition there is nothing to render into yet, so the error is returned
// for the caller to translate into a hard failure.
func (p *PageContext) HandleError(ctx context.Context, err error) error {
	if p.body == nil {
		return err
	}
	return p.body.reportInline(ctx, err)
}

// Finish closes out the page. If no body row ever arrived, it first emits an
// empty body through the shell-default transition, then closes as usual.
func (p *PageContext) Finish(ctx context.Context) error {
	if p.body == nil {
		if err := p.enterBody(ctx, Row{}); err != nil {
			return err
		}
	}
	return p.body.Close()
}
