package render

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"rowpage/internal/mustachex"
)

// fakeResponseBuilder records header-phase calls for assertions, mirroring
// the debug CLI's in-memory ResponseBuilder.
type fakeResponseBuilder struct {
	status      int
	contentType string
	headers     map[string]string
}

func newFakeResponseBuilder() *fakeResponseBuilder {
	return &fakeResponseBuilder{headers: make(map[string]string)}
}

func (b *fakeResponseBuilder) SetStatus(code int)              { b.status = code }
func (b *fakeResponseBuilder) SetContentType(ct string)        { b.contentType = ct }
func (b *fakeResponseBuilder) InsertHeader(name, value string) { b.headers[name] = value }

func mustCompile(t *testing.T, src string) *mustachex.SplitTemplate {
	t.Helper()
	split, err := mustachex.CompileSplit(src)
	require.NoError(t, err)
	return split
}

func testStore(t *testing.T) *FixedStore {
	t.Helper()
	return NewFixedStore(map[string]*mustachex.SplitTemplate{
		"shell":   mustCompile(t, "SHELL_BEFORE{{#each_row}}SHELL_ITEM{{/each_row}}SHELL_AFTER"),
		"list":    mustCompile(t, "LIST_BEFORE{{#each_row}}LIST_ITEM(x={{x}},idx={{row_index}}){{/each_row}}LIST_AFTER"),
		"default": mustCompile(t, "DEFAULT_BEFORE{{#each_row}}{{/each_row}}DEFAULT_AFTER"),
		"a":       mustCompile(t, "A_BEFORE{{#each_row}}A_ITEM(x={{x}}){{/each_row}}A_AFTER"),
		"error":   mustCompile(t, "{{#each_row}}ERROR(q={{query_number}},desc={{description}}){{/each_row}}"),
	})
}

// S1 -- simple page: shell + list, two items.
func TestPipelineSimplePage(t *testing.T) {
	store := testStore(t)
	var out bytes.Buffer
	builder := newFakeResponseBuilder()
	page := NewPageContext(store, &out, builder)
	ctx := context.Background()

	require.NoError(t, page.Step(ctx, Row{"component": "shell", "title": "T"}))
	require.NoError(t, page.Step(ctx, Row{"component": "list", "items": 3.0}))
	require.NoError(t, page.Step(ctx, Row{"x": 1.0}))
	require.NoError(t, page.Step(ctx, Row{"x": 2.0}))
	require.NoError(t, page.Finish(ctx))

	require.Equal(t,
		"SHELL_BEFORE"+
			"LIST_BEFORE"+
			"LIST_ITEM(x=1,idx=0)"+
			"SHELL_ITEM"+
			"LIST_ITEM(x=2,idx=1)"+
			"SHELL_ITEM"+
			"LIST_AFTER"+
			"SHELL_AFTER",
		out.String())
}

// S4 -- http_header rows configure the response before the body opens.
func TestPipelineHTTPHeader(t *testing.T) {
	store := testStore(t)
	var out bytes.Buffer
	builder := newFakeResponseBuilder()
	page := NewPageContext(store, &out, builder)
	ctx := context.Background()

	require.NoError(t, page.Step(ctx, Row{"component": "http_header", "X-Test": "v"}))
	require.NoError(t, page.Step(ctx, Row{"component": "default"}))
	require.NoError(t, page.Finish(ctx))

	require.Equal(t, "v", builder.headers["X-Test"])
	require.True(t, strings.HasPrefix(out.String(), "SHELL_BEFORE"))
}

// S5 -- http_header after the body has opened is an inline error, and the
// late header must never reach the response.
func TestPipelineHTTPHeaderAfterBody(t *testing.T) {
	store := testStore(t)
	var out bytes.Buffer
	builder := newFakeResponseBuilder()
	page := NewPageContext(store, &out, builder)
	ctx := context.Background()

	require.NoError(t, page.Step(ctx, Row{"component": "default"}))
	require.NoError(t, page.Step(ctx, Row{"component": "http_header", "X-Late": "v"}))
	require.NoError(t, page.Finish(ctx))

	require.NotContains(t, builder.headers, "X-Late")
	require.Contains(t, out.String(), "ERROR(")
	require.Contains(t, out.String(), "http_header")
}

// S6 -- a dynamic row expands into a sequence of synthetic rows.
func TestPipelineDynamicExpansion(t *testing.T) {
	store := testStore(t)
	var out bytes.Buffer
	builder := newFakeResponseBuilder()
	page := NewPageContext(store, &out, builder)
	ctx := context.Background()

	require.NoError(t, page.Step(ctx, Row{"component": "default"}))
	require.NoError(t, page.Step(ctx, Row{
		"component":  "dynamic",
		"properties": `[{"component":"a"},{"x":1},{"x":2}]`,
	}))
	require.NoError(t, page.Finish(ctx))

	require.Equal(t,
		"SHELL_BEFORE"+
			"DEFAULT_BEFORE"+
			"DEFAULT_AFTER"+
			"A_BEFORE"+
			"A_ITEM(x=1)"+
			"SHELL_ITEM"+
			"A_ITEM(x=2)"+
			"SHELL_ITEM"+
			"A_AFTER"+
			"SHELL_AFTER",
		out.String())
}

// S7 -- a dynamic row whose properties expand into another dynamic row
// naming itself is stopped by the recursion guard and rendered as an inline
// error instead of recursing forever.
func TestPipelineRecursionGuard(t *testing.T) {
	store := testStore(t)
	var out bytes.Buffer
	builder := newFakeResponseBuilder()
	page := NewPageContext(store, &out, builder)
	ctx := context.Background()

	// A row whose properties slice contains itself: expanding it yields the
	// same dynamic row again, forever, exactly the shape the guard exists for.
	selfRow := Row{"component": "dynamic"}
	selfProps := []interface{}{map[string]interface{}(selfRow)}
	selfRow["properties"] = selfProps

	require.NoError(t, page.Step(ctx, Row{"component": "default"}))
	require.NoError(t, page.Step(ctx, Row{"component": "dynamic", "properties": selfProps}))
	require.NoError(t, page.Finish(ctx))

	require.Contains(t, out.String(), "ERROR(")
	require.Contains(t, out.String(), "recursion")
}
