package export

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"brdwizard/internal/logging"
	"brdwizard/internal/records"
	"brdwizard/internal/schema"
)

const (
	textWidth   = 78
	formFeed    = "\f"
	fieldIndent = "    "
)

// Text renders a paginated plain text document. Every page holds the same
// number of body lines followed by a blank line and a "Page i of n" footer;
// pages are separated by a form feed.
type Text struct {
	schema    *schema.Schema
	pageLines int
}

// NewText returns a Text exporter. pageLines is the body height of a page.
func NewText(sc *schema.Schema, pageLines int) *Text {
	if pageLines <= 0 {
		pageLines = DefaultPageLines
	}
	return &Text{schema: sc, pageLines: pageLines}
}

func (t *Text) lines(rec records.Record) []string {
	var out []string
	add := func(s string) {
		out = append(out, strings.Split(s, "\n")...)
	}

	title := strings.ToUpper(documentTitle(rec))
	add(title)
	add(strings.Repeat("=", min(len([]rune(title)), textWidth)))
	if name := t.schema.Name(); name != "" {
		add(name)
	}
	if ts := formatMillis(rec.LastUpdated); ts != "" {
		add("Last updated: " + ts)
	}

	for _, sec := range t.schema.Sections() {
		add("")
		add(sec.Title)
		add(strings.Repeat("-", min(len([]rune(sec.Title)), textWidth)))
		for _, f := range sec.Fields {
			v := strings.TrimSpace(rec.Get(f.Key))
			if f.Kind != schema.KindTextarea && !strings.Contains(v, "\n") {
				add(wordwrap.String(f.Label+": "+v, textWidth))
				continue
			}
			add(f.Label + ":")
			if v == "" {
				continue
			}
			wrapped := wordwrap.String(v, textWidth-len(fieldIndent))
			for _, l := range strings.Split(wrapped, "\n") {
				add(strings.TrimRight(fieldIndent+l, " "))
			}
		}
	}
	return out
}

// Paginate splits body lines into pages of t's height.
func (t *Text) Paginate(lines []string) [][]string {
	var pages [][]string
	for len(lines) > 0 {
		n := min(t.pageLines, len(lines))
		pages = append(pages, lines[:n])
		lines = lines[n:]
	}
	if len(pages) == 0 {
		pages = append(pages, nil)
	}
	return pages
}

// Export implements Exporter.
func (t *Text) Export(rec records.Record) (Artifact, error) {
	pages := t.Paginate(t.lines(rec))

	var b strings.Builder
	for i, page := range pages {
		if i > 0 {
			b.WriteString(formFeed)
		}
		for _, l := range page {
			b.WriteString(l)
			b.WriteString("\n")
		}
		for pad := len(page); pad < t.pageLines; pad++ {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "\n%s\n", footer(i+1, len(pages)))
	}

	name := SanitizeFilename(rec.Title()) + ".txt"
	logging.ExportDebug("Rendered %s (%d pages)", name, len(pages))
	return Artifact{
		Name:        name,
		ContentType: "text/plain; charset=utf-8",
		Pages:       len(pages),
		Body:        []byte(b.String()),
	}, nil
}

func footer(page, total int) string {
	s := fmt.Sprintf("Page %d of %d", page, total)
	if pad := (textWidth - len(s)) / 2; pad > 0 {
		s = strings.Repeat(" ", pad) + s
	}
	return s
}
