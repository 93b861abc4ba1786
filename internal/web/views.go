package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/statspub/internal/core"
)

const pageStyle = `body{font-family:system-ui,sans-serif;margin:2rem;color:#1f2937}` +
	`table{border-collapse:collapse;margin-bottom:1.5rem}` +
	`th,td{border:1px solid #d1d5db;padding:.25rem .75rem;text-align:left}` +
	`.badge{display:inline-block;padding:.1rem .5rem;border-radius:.25rem;margin-right:.5rem}` +
	`.warn{background:#fef3c7}.ok{background:#d1fae5}.err{background:#fee2e2}`

// render writes a templ component as an HTML response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		s.logger.Error("render error", "path", r.URL.Path, "error", err)
	}
}

// page wraps body in the admin page layout.
func page(title string, body func(b *strings.Builder)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\"><title>")
		b.WriteString(templ.EscapeString(title))
		b.WriteString("</title><style>")
		b.WriteString(pageStyle)
		b.WriteString("</style></head><body>")
		body(&b)
		b.WriteString("</body></html>")
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// mappingPage shows the completeness of a mapping plan.
func mappingPage(review core.MappingReview) templ.Component {
	title := fmt.Sprintf("Mapping review for version %s", review.TargetVersionID)
	return page(title, func(b *strings.Builder) {
		fmt.Fprintf(b, "<h1>%s</h1>", templ.EscapeString(title))
		fmt.Fprintf(b, "<p>Source version %s, suggested next version <strong>%s</strong></p>",
			templ.EscapeString(review.SourceVersion.String()),
			templ.EscapeString(review.SuggestedVersion.String()))

		fmt.Fprintf(b, "<p id=\"tally\">%d auto-mapped, %d need review</p>",
			review.Tally.AutoMapped, review.Tally.NeedReview())

		b.WriteString("<p>")
		switch {
		case review.Summary.Empty():
			b.WriteString(`<span class="badge ok">Nothing to map</span>`)
		case review.NeedsManualReview:
			b.WriteString(`<span class="badge warn">Needs manual review</span>`)
		default:
			b.WriteString(`<span class="badge ok">Complete</span>`)
		}
		if review.HasBreakingChanges {
			b.WriteString(`<span class="badge err">Breaking changes</span>`)
		}
		b.WriteString("</p>")

		b.WriteString("<h2>Locations</h2><table><tr><th>Level</th><th>Option</th></tr>")
		for _, p := range review.Summary.Locations {
			fmt.Fprintf(b, "<tr><td>%s</td><td>%s</td></tr>",
				templ.EscapeString(p.Level.String()), templ.EscapeString(p.Option.String()))
		}
		b.WriteString("</table>")

		b.WriteString("<h2>Filters</h2><table><tr><th>Filter</th><th>Option</th></tr>")
		for _, p := range review.Summary.Filters {
			fmt.Fprintf(b, "<tr><td>%s</td><td>%s</td></tr>",
				templ.EscapeString(p.Filter.String()), templ.EscapeString(p.Option.String()))
		}
		b.WriteString("</table>")
	})
}

// errorPage renders a user message for browser clients.
func errorPage(msg core.UserMessage) templ.Component {
	return page("Error", func(b *strings.Builder) {
		fmt.Fprintf(b, "<div class=\"badge err\" role=\"alert\"><p>%s</p>", templ.EscapeString(msg.Message))
		if msg.Action != "" {
			fmt.Fprintf(b, "<p>%s</p>", templ.EscapeString(msg.Action))
		}
		fmt.Fprintf(b, "<p><small>Code: %s</small></p></div>", templ.EscapeString(msg.Code))
	})
}
