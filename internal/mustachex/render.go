package mustachex

import (
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"
)

// frame is one level of the block stack: a base data value plus the named
// local variables attached to it (row_index, the delayed-fragment
// accumulator, ...).
type frame struct {
	base   interface{}
	locals map[string]interface{}
}

const delayedKey = "__delayed"

// Render executes the compiled template against rootData (the page-level
// data context installed once at render_start and reused unchanged for
// every subsequent call), the BlockLocals captured from the previous call
// (nil on the very first call of a render phase for a fresh instance), and
// an optional item frame for list_content renders.
//
// It returns the BlockLocals to hold onto and hand back on the next call.
func (t *CompiledTemplate) Render(w io.Writer, rootData interface{}, locals BlockLocals, item *Item) (BlockLocals, error) {
	root := &frame{base: rootData, locals: locals.Clone()}
	if root.locals == nil {
		root.locals = make(map[string]interface{})
	}
	stack := []*frame{root}

	if item != nil {
		stack = append(stack, &frame{
			base: item.Base,
			locals: map[string]interface{}{
				"row_index": item.RowIndex,
			},
		})
	}

	if err := renderNodes(w, t.nodes, stack); err != nil {
		return nil, err
	}

	return BlockLocals(root.locals).Clone(), nil
}

func renderNodes(w io.Writer, nodes []node, stack []*frame) error {
	for _, n := range nodes {
		if err := renderNode(w, n, stack); err != nil {
			return err
		}
	}
	return nil
}

func renderNode(w io.Writer, n node, stack []*frame) error {
	switch v := n.(type) {
	case textNode:
		_, err := io.WriteString(w, v.text)
		return err

	case varNode:
		val, _ := lookup(v.path, stack)
		_, err := io.WriteString(w, html.EscapeString(toDisplayString(val)))
		return err

	case rawNode:
		val, _ := lookup(v.path, stack)
		_, err := io.WriteString(w, toDisplayString(val))
		return err

	case flushDelayedNode:
		return renderFlushDelayed(w, stack)

	case blockNode:
		return renderBlock(w, v, stack)

	default:
		return fmt.Errorf("mustachex: unknown node type %T", n)
	}
}

func renderBlock(w io.Writer, b blockNode, stack []*frame) error {
	switch b.name {
	case "delay":
		return renderDelay(b, stack)
	case "if":
		val, _ := lookup(b.args, stack)
		if !truthy(val) {
			return nil
		}
		return renderNodes(w, b.body, stack)
	case "each":
		return renderEach(w, b, stack)
	default:
		// Unknown block names are rendered as their body with no looping,
		// matching the engine's tolerant treatment of unsupported sections.
		return renderNodes(w, b.body, stack)
	}
}

// renderDelay captures the rendered body as a string without emitting it,
// then appends it to the delayed-fragment accumulator held by the frame
// just below the current one -- the frame that survives after the
// surrounding item frame (if any) is popped. This is what lets a delayed
// fragment written during list_content surface later, in after_list.
func renderDelay(b blockNode, stack []*frame) error {
	var buf strings.Builder
	if err := renderNodes(&buf, b.body, stack); err != nil {
		return err
	}

	target := stack[len(stack)-1]
	if len(stack) >= 2 {
		target = stack[len(stack)-2]
	}

	existing, _ := target.locals[delayedKey].([]string)
	target.locals[delayedKey] = append(existing, buf.String())
	return nil
}

// renderFlushDelayed emits every fragment accumulated by renderDelay
// against the current frame, most-recently-added first, then clears them.
func renderFlushDelayed(w io.Writer, stack []*frame) error {
	current := stack[len(stack)-1]
	entries, _ := current.locals[delayedKey].([]string)
	for i := len(entries) - 1; i >= 0; i-- {
		if _, err := io.WriteString(w, entries[i]); err != nil {
			return err
		}
	}
	delete(current.locals, delayedKey)
	return nil
}

// renderEach iterates over an array field of the current frame's base value,
// pushing each element as its own frame so {{.}} and {{field}} both work
// inside the body.
func renderEach(w io.Writer, b blockNode, stack []*frame) error {
	val, _ := lookup(b.args, stack)
	items, ok := val.([]interface{})
	if !ok {
		return nil
	}
	for i, elem := range items {
		child := &frame{
			base: elem,
			locals: map[string]interface{}{
				"row_index": i,
			},
		}
		if err := renderNodes(w, b.body, append(stack, child)); err != nil {
			return err
		}
	}
	return nil
}

// lookup resolves a template path against the frame stack. A path prefixed
// with one or more "../" segments walks up that many frames before
// resolving the remainder; otherwise resolution starts at the innermost
// frame and does not implicitly bubble outward.
func lookup(path string, stack []*frame) (interface{}, bool) {
	idx := len(stack) - 1
	for strings.HasPrefix(path, "../") {
		path = path[len("../"):]
		if idx > 0 {
			idx--
		}
	}
	f := stack[idx]

	if path == "." {
		return f.base, true
	}
	if v, ok := f.locals[path]; ok {
		return v, true
	}
	return lookupBase(f.base, path)
}

func lookupBase(base interface{}, path string) (interface{}, bool) {
	segments := strings.Split(path, ".")
	current := base
	for _, seg := range segments {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		current = v
	}
	return current, true
}

func truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case int:
		return x != 0
	case []interface{}:
		return len(x) > 0
	default:
		return true
	}
}

func toDisplayString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
