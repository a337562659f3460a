package render

import "context"

// ResponseBuilder is mutable only until the Body transition; once the first
// body row is handled, its header-setting operations must no longer be
// invoked.
type ResponseBuilder interface {
	SetStatus(code int)
	SetContentType(contentType string)
	InsertHeader(name, value string)
}

func (p *PageContext) handleHeaderRow(ctx context.Context, row Row) error {
	if name, _ := row["component"].(string); name == "http_header" {
		return p.applyHeaders(row)
	}
	return p.enterBody(ctx, row)
}

// applyHeaders inserts one response header per field other than "component".
// A non-string value is a protocol error; since headers are not yet
// committed, it aborts the request rather than rendering inline.
func (p *PageContext) applyHeaders(row Row) error {
	for key, val := range row {
		if key == "component" {
			continue
		}
		str, ok := val.(string)
		if !ok {
			return NewErrorWithDetail(ErrInvalidHeaderValue, key)
		}
		p.builder.InsertHeader(key, str)
	}
	return nil
}
