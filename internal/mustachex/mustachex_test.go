package mustachex

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitTemplateRender(t *testing.T) {
	split, err := CompileSplit("Hello {{name}} !{{#each_row}} ({{x}} : {{../name}}) {{/each_row}}Goodbye {{name}}")
	require.NoError(t, err)

	var out bytes.Buffer
	locals, err := split.BeforeList.Render(&out, map[string]interface{}{"name": "SQL"}, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, locals)

	locals, err = split.ListItem.Render(&out, map[string]interface{}{"name": "SQL"}, locals, &Item{Base: map[string]interface{}{"x": 1.0}, RowIndex: 0})
	require.NoError(t, err)

	locals, err = split.ListItem.Render(&out, map[string]interface{}{"name": "SQL"}, locals, &Item{Base: map[string]interface{}{"x": 2.0}, RowIndex: 1})
	require.NoError(t, err)

	_, err = split.AfterList.Render(&out, map[string]interface{}{"name": "SQL"}, locals, nil)
	require.NoError(t, err)

	require.Equal(t, "Hello SQL ! (1 : SQL)  (2 : SQL) Goodbye SQL", out.String())
}

func TestDelayedFlushAcrossSegments(t *testing.T) {
	split, err := CompileSplit("{{#each_row}}<b> {{x}} {{#delay}} {{x}} </b>{{/delay}}{{/each_row}}{{flush_delayed}}")
	require.NoError(t, err)

	var out bytes.Buffer
	locals, err := split.BeforeList.Render(&out, nil, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, locals)

	locals, err = split.ListItem.Render(&out, nil, locals, &Item{Base: map[string]interface{}{"x": 1.0}, RowIndex: 0})
	require.NoError(t, err)

	locals, err = split.ListItem.Render(&out, nil, locals, &Item{Base: map[string]interface{}{"x": 2.0}, RowIndex: 1})
	require.NoError(t, err)

	_, err = split.AfterList.Render(&out, nil, locals, nil)
	require.NoError(t, err)

	require.Equal(t, "<b> 1 <b> 2  2 </b> 1 </b>", out.String())
}

func TestCompileSplitWithoutEachRow(t *testing.T) {
	split, err := CompileSplit("<p>static only</p>")
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = split.BeforeList.Render(&out, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "<p>static only</p>", out.String())

	out.Reset()
	_, err = split.ListItem.Render(&out, nil, nil, &Item{Base: nil, RowIndex: 0})
	require.NoError(t, err)
	require.Equal(t, "", out.String())
}

func TestVarEscaping(t *testing.T) {
	tmpl, err := Compile("{{msg}}")
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = tmpl.Render(&out, map[string]interface{}{"msg": "<script>"}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "&lt;script&gt;", out.String())
}

func TestRawUnescaped(t *testing.T) {
	tmpl, err := Compile("{{{msg}}}")
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = tmpl.Render(&out, map[string]interface{}{"msg": "<b>x</b>"}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "<b>x</b>", out.String())
}

func TestEachBlock(t *testing.T) {
	tmpl, err := Compile("{{#each items}}[{{.}}]{{/each}}")
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = tmpl.Render(&out, map[string]interface{}{"items": []interface{}{"a", "b"}}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "[a][b]", out.String())
}

func TestUnterminatedBlockFails(t *testing.T) {
	_, err := Compile("{{#if x}}no close")
	require.Error(t, err)
}
