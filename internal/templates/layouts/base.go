package layouts

import (
	"context"
	"html"
	"io"

	"github.com/a-h/templ"
)

// htmx swaps 500 responses so a failed result change can show its message
// next to the match.
const htmxConfig = `{"responseHandling":[{"code":"204","swap":false},{"code":"[23]..","swap":true},{"code":"500","swap":true,"error":true},{"code":"[45]..","swap":false,"error":true}]}`

// Base renders the page shell around content.
func Base(title string, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		head := `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">` +
			`<meta name="viewport" content="width=device-width, initial-scale=1">` +
			`<meta name="htmx-config" content='` + htmxConfig + `'>` +
			`<title>` + html.EscapeString(title) + `</title>` +
			`<link rel="stylesheet" href="/static/css/main.css">` +
			`<script src="/static/js/htmx.min.js" defer></script></head>` +
			`<body class="bg-gray-50 text-gray-900"><main class="mx-auto max-w-5xl p-6">`
		if _, err := io.WriteString(w, head); err != nil {
			return err
		}
		if content != nil {
			if err := content.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}
