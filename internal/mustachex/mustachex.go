// Package mustachex implements the small mustache-flavored template engine
// that drives split-template rendering. It exists because no template
// library in the dependency set exposes a block-local-variable bag that can
// be captured after one render call and reinstalled before the next -- the
// exact contract the split renderer needs to carry state between its three
// discrete render phases. See DESIGN.md for why this is hand-built instead
// of wired to a third-party engine.
package mustachex

import (
	"fmt"
	"strings"
)

// BlockLocals is the opaque named-variable bag threaded between successive
// renders of the same compiled template. A nil value means "no render has
// happened yet"; a non-nil (possibly empty) map means a render completed and
// left state behind, even if that state is empty.
type BlockLocals map[string]interface{}

// Clone returns an independent copy so callers can hold onto the bag across
// render calls without aliasing internal engine state.
func (b BlockLocals) Clone() BlockLocals {
	if b == nil {
		return nil
	}
	out := make(BlockLocals, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Item is the base value and injected locals pushed as a new frame for one
// list_content render. RowIndex is exposed to the template as {{row_index}}.
type Item struct {
	Base     interface{}
	RowIndex int
}

// CompiledTemplate is an immutable, freely shared parsed node list.
type CompiledTemplate struct {
	nodes []node
}

// Compile parses template source into a renderable artifact.
func Compile(src string) (*CompiledTemplate, error) {
	nodes, rest, err := parseNodes(src, "")
	if err != nil {
		return nil, err
	}
	if rest != "" {
		return nil, fmt.Errorf("mustachex: unexpected trailing content near %q", truncate(rest, 24))
	}
	return &CompiledTemplate{nodes: nodes}, nil
}

// SplitTemplate is a template partitioned on its single {{#each_row}} marker
// into the three segments a split-template renderer drives independently.
type SplitTemplate struct {
	BeforeList *CompiledTemplate
	ListItem   *CompiledTemplate
	AfterList  *CompiledTemplate
}

const (
	eachRowOpen  = "{{#each_row}}"
	eachRowClose = "{{/each_row}}"
)

// CompileSplit splits source on its first {{#each_row}}...{{/each_row}}
// region and compiles the three resulting segments independently. A
// template with no each_row marker compiles entirely into BeforeList, with
// an empty ListItem and AfterList -- the natural shape for components that
// never repeat (error pages, single-shot shells).
func CompileSplit(src string) (*SplitTemplate, error) {
	openIdx := strings.Index(src, eachRowOpen)
	if openIdx == -1 {
		before, err := Compile(src)
		if err != nil {
			return nil, err
		}
		empty, _ := Compile("")
		return &SplitTemplate{BeforeList: before, ListItem: empty, AfterList: empty}, nil
	}

	afterOpen := src[openIdx+len(eachRowOpen):]
	closeIdx := strings.Index(afterOpen, eachRowClose)
	if closeIdx == -1 {
		return nil, fmt.Errorf("mustachex: unterminated %s", eachRowOpen)
	}

	beforeSrc := src[:openIdx]
	listSrc := afterOpen[:closeIdx]
	afterSrc := afterOpen[closeIdx+len(eachRowClose):]

	before, err := Compile(beforeSrc)
	if err != nil {
		return nil, fmt.Errorf("mustachex: before_list: %w", err)
	}
	list, err := Compile(listSrc)
	if err != nil {
		return nil, fmt.Errorf("mustachex: list_content: %w", err)
	}
	after, err := Compile(afterSrc)
	if err != nil {
		return nil, fmt.Errorf("mustachex: after_list: %w", err)
	}
	return &SplitTemplate{BeforeList: before, ListItem: list, AfterList: after}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
