// Command debug drives a fixed, in-memory row fixture through the render
// pipeline and prints the resulting HTML to stdout -- a quick way to
// exercise a shell/component pair without a database or HTTP server.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"

	"rowpage/internal/mustachex"
	"rowpage/internal/render"
	"rowpage/internal/rowsource"
)

// fixedResponseBuilder collects headers set during the Header phase so they
// can be printed alongside the body; it never actually commits anything.
type fixedResponseBuilder struct {
	status      int
	contentType string
	headers     map[string]string
}

func newFixedResponseBuilder() *fixedResponseBuilder {
	return &fixedResponseBuilder{status: 200, headers: make(map[string]string)}
}

func (b *fixedResponseBuilder) SetStatus(code int)             { b.status = code }
func (b *fixedResponseBuilder) SetContentType(ct string)       { b.contentType = ct }
func (b *fixedResponseBuilder) InsertHeader(name, value string) { b.headers[name] = value }

func main() {
	flag.Parse()

	rows := []render.Row{
		{"component": "shell", "title": "Debug Page"},
		{"component": "list", "heading": "Items"},
		{"x": 1.0},
		{"x": 2.0},
		{"x": 3.0},
	}

	shell, err := mustachex.CompileSplit(`<html><head><title>{{title}}</title></head><body>{{#each_row}}{{/each_row}}</body></html>`)
	if err != nil {
		fmt.Fprintln(os.Stderr, "compile shell:", err)
		os.Exit(1)
	}
	list, err := mustachex.CompileSplit(`<h1>{{heading}}</h1><ul>{{#each_row}}<li>{{x}} (#{{row_index}})</li>{{/each_row}}</ul>`)
	if err != nil {
		fmt.Fprintln(os.Stderr, "compile list:", err)
		os.Exit(1)
	}
	errTpl, err := mustachex.CompileSplit(`{{#each_row}}<pre class="error">query {{query_number}}: {{description}}</pre>{{/each_row}}`)
	if err != nil {
		fmt.Fprintln(os.Stderr, "compile error component:", err)
		os.Exit(1)
	}
	defaultTpl, err := mustachex.CompileSplit(``)
	if err != nil {
		fmt.Fprintln(os.Stderr, "compile default component:", err)
		os.Exit(1)
	}

	store := render.NewFixedStore(map[string]*mustachex.SplitTemplate{
		"shell":   shell,
		"list":    list,
		"error":   errTpl,
		"default": defaultTpl,
	})

	var out bytes.Buffer
	builder := newFixedResponseBuilder()
	page := render.NewPageContext(store, &out, builder)

	stream := rowsource.NewJSONRows(rows)
	if err := render.Drive(context.Background(), page, stream); err != nil {
		fmt.Fprintln(os.Stderr, "render failed:", err)
		os.Exit(1)
	}

	fmt.Printf("status: %d  content-type: %s  headers: %v\n\n", builder.status, builder.contentType, builder.headers)
	fmt.Println(out.String())
}
