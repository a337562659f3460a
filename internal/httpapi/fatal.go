package httpapi

import (
	"net/http"

	qtpl "github.com/valyala/quicktemplate"
)

// WriteFatalErrorPage renders a minimal static HTML page for failures that
// happen before the shell ever opens -- the shell component itself failing
// to resolve, or the row stream failing to start. Nothing has been written
// yet in these cases, so there is no split-template instance to render an
// inline error component into; this bypasses the render package entirely
// and writes directly with quicktemplate's runtime writer.
func WriteFatalErrorPage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	qw := qtpl.AcquireWriter(w)
	defer qtpl.ReleaseWriter(qw)

	title := http.StatusText(status)

	qw.N().S("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>")
	qw.E().S(title)
	qw.N().S("</title></head><body><h1>")
	qw.E().S(title)
	qw.N().S("</h1><p>")
	qw.E().S(message)
	qw.N().S("</p></body></html>")
}
