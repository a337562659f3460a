package mustachex

import (
	"fmt"
	"strings"
)

// node is one parsed piece of template source.
type node interface{}

type textNode struct{ text string }

// varNode renders the HTML-escaped string form of a looked-up value.
type varNode struct{ path string }

// rawNode renders the value unescaped ({{{path}}}).
type rawNode struct{ path string }

type flushDelayedNode struct{}

// blockNode covers every {{#name args}}...{{/name}} pair: "delay", "if",
// "each". Args holds whatever followed the block name on the opening tag.
type blockNode struct {
	name string
	args string
	body []node
}

// parseNodes parses src until it runs out or hits a closing tag matching
// stopName (the name without the leading slash). It returns the parsed
// nodes and whatever source remains after the matched closing tag (or all
// consumed input when stopName is empty, the top-level case).
func parseNodes(src string, stopName string) ([]node, string, error) {
	var nodes []node
	rest := src

	for {
		openIdx := strings.Index(rest, "{{")
		if openIdx == -1 {
			if stopName != "" {
				return nil, "", fmt.Errorf("mustachex: missing {{/%s}}", stopName)
			}
			if rest != "" {
				nodes = append(nodes, textNode{text: rest})
			}
			return nodes, "", nil
		}

		if openIdx > 0 {
			nodes = append(nodes, textNode{text: rest[:openIdx]})
		}
		rest = rest[openIdx:]

		raw := strings.HasPrefix(rest, "{{{")
		closeMarker := "}}"
		tagStart := 2
		if raw {
			closeMarker = "}}}"
			tagStart = 3
		}
		closeIdx := strings.Index(rest, closeMarker)
		if closeIdx == -1 {
			return nil, "", fmt.Errorf("mustachex: unterminated tag near %q", truncate(rest, 24))
		}
		tag := strings.TrimSpace(rest[tagStart:closeIdx])
		rest = rest[closeIdx+len(closeMarker):]

		switch {
		case raw:
			nodes = append(nodes, rawNode{path: tag})

		case strings.HasPrefix(tag, "/"):
			name := strings.TrimSpace(tag[1:])
			if name != stopName {
				return nil, "", fmt.Errorf("mustachex: mismatched close tag {{/%s}}, expected {{/%s}}", name, stopName)
			}
			return nodes, rest, nil

		case strings.HasPrefix(tag, "#"):
			nameAndArgs := strings.TrimSpace(tag[1:])
			name, args := splitFirstToken(nameAndArgs)
			body, remaining, err := parseNodes(rest, name)
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, blockNode{name: name, args: args, body: body})
			rest = remaining

		case tag == "flush_delayed":
			nodes = append(nodes, flushDelayedNode{})

		default:
			nodes = append(nodes, varNode{path: tag})
		}
	}
}

func splitFirstToken(s string) (first, rest string) {
	s = strings.TrimSpace(s)
	idx := strings.IndexAny(s, " \t")
	if idx == -1 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx+1:])
}
