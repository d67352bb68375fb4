// Package templates renders the HTML pages of the data sweeper UI.
//
// Components follow the shape of templ's generated code: each renders into
// the pooled templ runtime buffer and escapes every dynamic value.
package templates

import (
	"context"

	"github.com/a-h/templ"
	templruntime "github.com/a-h/templ/runtime"
)

// htmlWriter keeps the first write error so components can emit markup
// without checking every call.
type htmlWriter struct {
	buf *templruntime.Buffer
	err error
}

// raw writes trusted markup.
func (h *htmlWriter) raw(s string) {
	if h.err == nil {
		_, h.err = h.buf.WriteString(s)
	}
}

// text writes s HTML-escaped.
func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

// attr writes name="value" with the value escaped.
func (h *htmlWriter) attr(name, value string) {
	h.raw(" " + name + "=\"")
	h.text(value)
	h.raw("\"")
}

// tag writes <name>escaped text</name>.
func (h *htmlWriter) tag(name, s string) {
	h.raw("<" + name + ">")
	h.text(s)
	h.raw("</" + name + ">")
}

func (h *htmlWriter) component(ctx context.Context, c templ.Component) {
	if h.err == nil && c != nil {
		h.err = c.Render(ctx, h.buf)
	}
}

// component builds a templ.Component from a body writer, reusing the
// caller's buffer when rendered inside another component.
func component(body func(ctx context.Context, h *htmlWriter)) templ.Component {
	return templruntime.GeneratedTemplate(func(in templruntime.GeneratedComponentInput) (err error) {
		w, ctx := in.Writer, in.Context
		if err := ctx.Err(); err != nil {
			return err
		}
		buf, isBuffer := templruntime.GetBuffer(w)
		if !isBuffer {
			defer func() {
				if relErr := templruntime.ReleaseBuffer(buf); err == nil {
					err = relErr
				}
			}()
		}

		h := &htmlWriter{buf: buf}
		body(ctx, h)
		return h.err
	})
}

const styles = `
body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 1100px; color: #1f2933; }
h1 { font-size: 1.6rem; } h2 { font-size: 1.25rem; margin-top: 2rem; }
table { border-collapse: collapse; margin: .5rem 0; font-size: .9rem; }
th, td { border: 1px solid #cbd2d9; padding: .25rem .5rem; text-align: left; }
th { background: #f5f7fa; }
td.missing { color: #9aa5b1; font-style: italic; }
section.file { border-top: 2px solid #e4e7eb; margin-top: 2rem; padding-top: 1rem; }
.flash { background: #e3f9e5; border: 1px solid #57ae5b; padding: .5rem 1rem; }
.alert { background: #ffeeee; border: 1px solid #e66a6a; padding: .5rem 1rem; }
form.inline { display: inline-block; margin-right: .5rem; }
.muted { color: #7b8794; }
`

// Layout wraps body in the page shell.
func Layout(title string, body templ.Component) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		h.raw("<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\">")
		h.raw("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">")
		h.tag("title", title)
		h.raw("<style>" + styles + "</style></head><body>")
		h.raw("<header><h1><a href=\"/\">Data Sweeper</a></h1>")
		h.raw("<p class=\"muted\">Transform your files between CSV and Excel formats with built-in data cleaning and visualization.</p></header><main>")
		h.component(ctx, body)
		h.raw("</main></body></html>")
	})
}

// ErrorAlert renders an error message with its support code.
func ErrorAlert(message, action, code string) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw("<div class=\"alert\" role=\"alert\">")
		h.tag("strong", message)
		if action != "" {
			h.raw(" ")
			h.text(action)
		}
		h.raw(" <span class=\"muted\">(Code: ")
		h.text(code)
		h.raw(")</span></div>")
	})
}

// ErrorPage renders a full page around ErrorAlert.
func ErrorPage(message, action, code string) templ.Component {
	return Layout("Error - Data Sweeper", ErrorAlert(message, action, code))
}
