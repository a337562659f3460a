package render

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/rs/zerolog/log"
)

// maxRecursionDepth bounds how many nested dynamic-component expansions
// handle_row may be inside of at once.
const maxRecursionDepth = 256

// RenderContext is the Body-phase page context. It owns the page-wide shell
// renderer plus whichever inner component renderer is currently active, and
// drives component switching, dynamic row expansion, and inline error
// rendering.
type RenderContext struct {
	store  TemplateResolver
	writer io.Writer

	shell *SplitTemplateRenderer

	current     *SplitTemplateRenderer
	currentName string
	// currentOpen is false once current has been closed (render_end ran) but
	// not yet reopened -- notably right after an inline error is rendered.
	// The next row must trigger a fresh open even if it names the same
	// component, rather than being treated as a continuation.
	currentOpen bool

	recursionDepth   int
	currentStatement int
}

// enterBody is called exactly once, with the first row whose component is
// not http_header. It determines the shell's properties and opens the
// shell. When the row itself was a shell or top-level-dynamic row, its
// payload is fully consumed as shell properties and no first inner
// component is opened yet -- the next row opens it fresh, the same as any
// other component switch. Any other row instead opens its own payload as
// the first inner component immediately, alongside the shell.
func (p *PageContext) enterBody(ctx context.Context, row Row) error {
	comp, _ := row["component"].(string)

	var shellProps interface{}
	var firstName string
	var firstProps interface{}
	openFirst := false

	switch comp {
	case "shell":
		shellProps = withoutComponent(row)

	case "dynamic":
		subRows, err := parseDynamicRows(row["properties"])
		if err != nil {
			return err
		}
		if len(subRows) != 1 {
			return NewError(ErrUnsupportedTopLevelDynamic)
		}
		sub := subRows[0]
		subComp, _ := sub["component"].(string)
		if subComp != "" && subComp != "shell" {
			return NewError(ErrUnsupportedTopLevelDynamic)
		}
		shellProps = withoutComponent(sub)

	default:
		firstName = comp
		if firstName == "" {
			firstName = "default"
		}
		firstProps = withoutComponent(row)
		openFirst = true
	}

	shellSplit, err := p.store.Resolve(ctx, "shell")
	if err != nil {
		return err
	}
	if shellSplit == nil {
		return NewErrorWithDetail(ErrComponentNotFound, "shell")
	}
	shell := NewSplitTemplateRenderer("shell", shellSplit)
	if err := shell.RenderStart(p.writer, shellProps); err != nil {
		return err
	}

	body := &RenderContext{
		store:            p.store,
		writer:           p.writer,
		shell:            shell,
		currentStatement: 1,
	}
	p.body = body

	if !openFirst {
		return nil
	}
	return body.openComponent(ctx, firstName, firstProps)
}

// HandleRow implements the steady-state dispatch table: dynamic expansion,
// the protocol error of http_header after body start, component switching,
// and continuing the current component with a new item.
func (r *RenderContext) HandleRow(ctx context.Context, row Row) error {
	comp, hasComp := row["component"].(string)

	switch {
	case hasComp && comp == "dynamic":
		return r.renderDynamic(ctx, row["properties"])

	case hasComp && comp == "http_header":
		return r.reportInline(ctx, NewError(ErrHeaderAfterBody))

	case hasComp && comp != "" && (comp != r.currentName || !r.currentOpen):
		if err := r.closeCurrent(); err != nil {
			return err
		}
		return r.openComponent(ctx, comp, withoutComponent(row))

	case !r.currentOpen:
		name := comp
		if name == "" {
			name = r.currentName
		}
		if name == "" {
			name = "default"
		}
		if err := r.closeCurrent(); err != nil {
			return err
		}
		return r.openComponent(ctx, name, withoutComponent(row))

	default:
		return r.renderItem(withoutComponent(row))
	}
}

// renderItem renders one item in the current component, then gives the
// shell a chance to emit interstitial content for this row via a null-item
// list_content render.
func (r *RenderContext) renderItem(itemData interface{}) error {
	if err := r.current.RenderItem(r.writer, itemData); err != nil {
		return err
	}
	return r.shell.RenderItem(r.writer, nil)
}

func (r *RenderContext) closeCurrent() error {
	if r.current == nil || !r.currentOpen {
		return nil
	}
	err := r.current.RenderEnd(r.writer)
	r.currentOpen = false
	return err
}

// openComponent resolves name through the Template Store and opens it as
// the current inner component. Resolution failures are never returned as Go
// errors here -- they are rendered inline as the accepted recovery path,
// matching the "render a shell-plus-error page on the caller's behalf"
// treatment of an unresolvable first component.
func (r *RenderContext) openComponent(ctx context.Context, name string, props interface{}) error {
	split, err := r.store.Resolve(ctx, name)
	if err != nil {
		var appErr *AppError
		if errors.As(err, &appErr) {
			return r.reportInline(ctx, appErr)
		}
		return r.reportInline(ctx, NewErrorWithErr(ErrTemplateCompile, err))
	}
	if split == nil {
		return r.reportInline(ctx, NewErrorWithDetail(ErrComponentNotFound, name))
	}

	r.current = NewSplitTemplateRenderer(name, split)
	r.currentName = name
	r.currentOpen = true
	return r.current.RenderStart(r.writer, props)
}

// renderDynamic expands a dynamic row's properties into a sequence of
// synthetic rows and recursively feeds each one back through HandleRow,
// bounding recursion at maxRecursionDepth. The array stops at the first
// error HandleRow returns (a writer failure); a sub-row whose failure is
// rendered inline returns nil, so the remaining rows are still handled.
func (r *RenderContext) renderDynamic(ctx context.Context, properties interface{}) error {
	rows, err := parseDynamicRows(properties)
	if err != nil {
		return r.reportInline(ctx, err)
	}

	for _, sub := range rows {
		if r.recursionDepth+1 > maxRecursionDepth {
			return r.reportInline(ctx, NewError(ErrRecursionExceeded))
		}
		r.recursionDepth++
		err := r.HandleRow(ctx, sub)
		r.recursionDepth--
		if err != nil {
			return err
		}
	}
	return nil
}

// reportInline is the shared mid-body error path: it closes the current
// component, renders the error component with one item describing err, then
// restores the saved renderer as current in its already-closed state. Per
// the accepted resolution of the restored-renderer question, the next row
// always forces a fresh open rather than being treated as a continuation of
// the restored renderer.
func (r *RenderContext) reportInline(ctx context.Context, err error) error {
	log.Warn().Err(err).Int("query_number", r.currentStatement).Msg("rendering error inline")

	saved := r.current
	savedName := r.currentName

	if r.current != nil && r.currentOpen {
		if werr := r.current.RenderEnd(r.writer); werr != nil {
			return werr
		}
	}

	errSplit, lookErr := r.store.Resolve(ctx, "error")
	if lookErr != nil || errSplit == nil {
		log.Error().Err(lookErr).Msg("failed to resolve error component")
		return nil
	}

	errRenderer := NewSplitTemplateRenderer("error", errSplit)
	if werr := errRenderer.RenderStart(r.writer, nil); werr != nil {
		return werr
	}
	payload := map[string]interface{}{
		"query_number": r.currentStatement,
		"description":  err.Error(),
		"backtrace":    backtrace(err),
	}
	if werr := errRenderer.RenderItem(r.writer, payload); werr != nil {
		return werr
	}
	if werr := errRenderer.RenderEnd(r.writer); werr != nil {
		return werr
	}

	r.current = saved
	r.currentName = savedName
	r.currentOpen = false
	return nil
}

// backtrace walks err's cause chain outermost-first, excluding err itself.
// It returns []interface{} rather than []string so the result can be
// iterated directly by the template engine's {{#each}} block, which only
// recognises that concrete element type.
func backtrace(err error) []interface{} {
	var chain []interface{}
	cur := errors.Unwrap(err)
	for cur != nil {
		chain = append(chain, cur.Error())
		cur = errors.Unwrap(cur)
	}
	return chain
}

// FinishQuery increments the 1-based statement counter used to attribute
// inline errors to the SQL statement that produced them.
func (r *RenderContext) FinishQuery() {
	r.currentStatement++
}

// Close ends the body: the current inner component first, then the shell.
// Each failure is logged independently so the other still gets attempted.
func (r *RenderContext) Close() error {
	var firstErr error
	if r.current != nil && r.currentOpen {
		if err := r.current.RenderEnd(r.writer); err != nil {
			log.Error().Err(err).Msg("inner component render_end failed")
			firstErr = err
		}
	}
	if err := r.shell.RenderEnd(r.writer); err != nil {
		log.Error().Err(err).Msg("shell render_end failed")
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// parseDynamicRows interprets a dynamic row's properties field: an array
// expands to one synthetic row per element, an object to a single synthetic
// row, and a string is parsed as JSON and then handled by the same rules.
func parseDynamicRows(properties interface{}) ([]Row, error) {
	switch v := properties.(type) {
	case []interface{}:
		return toRows(v)
	case map[string]interface{}:
		return []Row{Row(v)}, nil
	case string:
		var parsed interface{}
		if err := json.Unmarshal([]byte(v), &parsed); err != nil {
			return nil, NewErrorWithErr(ErrInvalidDynamicProperties, err)
		}
		switch pv := parsed.(type) {
		case []interface{}:
			return toRows(pv)
		case map[string]interface{}:
			return []Row{Row(pv)}, nil
		default:
			return nil, NewError(ErrInvalidDynamicProperties)
		}
	default:
		return nil, NewError(ErrInvalidDynamicProperties)
	}
}

func toRows(items []interface{}) ([]Row, error) {
	rows := make([]Row, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			return nil, NewError(ErrInvalidDynamicProperties)
		}
		rows = append(rows, Row(m))
	}
	return rows, nil
}

// withoutComponent returns a shallow copy of row with the "component" key
// removed, so the remaining fields can be passed straight through as a
// component's properties.
func withoutComponent(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		if k == "component" {
			continue
		}
		out[k] = v
	}
	return out
}
