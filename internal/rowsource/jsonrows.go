package rowsource

import "rowpage/internal/render"

// JSONRows streams a fixed, pre-decoded sequence of rows. It is used by the
// debug CLI and by tests that exercise the render pipeline without a live
// database.
type JSONRows struct {
	items []render.Item
	pos   int
}

// NewJSONRows wraps a slice of already-decoded rows as a RowStream, with no
// finished-query or error items interspersed.
func NewJSONRows(rows []render.Row) *JSONRows {
	items := make([]render.Item, len(rows))
	for i, r := range rows {
		items[i] = render.Item{Kind: render.ItemRow, Row: r}
	}
	return &JSONRows{items: items}
}

// NewJSONItems wraps a caller-built sequence of items directly, letting
// tests and fixtures interleave ItemFinishedQuery and ItemError markers.
func NewJSONItems(items []render.Item) *JSONRows {
	return &JSONRows{items: items}
}

// Next implements render.RowStream.
func (j *JSONRows) Next() (render.Item, bool, error) {
	if j.pos >= len(j.items) {
		return render.Item{}, false, nil
	}
	item := j.items[j.pos]
	j.pos++
	return item, true, nil
}
