package export

import (
	"strings"

	"brdwizard/internal/logging"
	"brdwizard/internal/records"
	"brdwizard/internal/schema"
)

// Markdown renders one heading per section and one labelled block per field.
type Markdown struct {
	schema *schema.Schema
}

// NewMarkdown returns a Markdown exporter laid out by sc.
func NewMarkdown(sc *schema.Schema) *Markdown {
	return &Markdown{schema: sc}
}

// Render returns the markdown source for rec.
func (m *Markdown) Render(rec records.Record) string {
	var b strings.Builder

	b.WriteString("# ")
	b.WriteString(documentTitle(rec))
	b.WriteString("\n\n")
	if name := m.schema.Name(); name != "" {
		b.WriteString("_")
		b.WriteString(name)
		b.WriteString("_\n\n")
	}
	if ts := formatMillis(rec.LastUpdated); ts != "" {
		b.WriteString("Last updated: ")
		b.WriteString(ts)
		b.WriteString("\n\n")
	}

	for _, sec := range m.schema.Sections() {
		b.WriteString("## ")
		b.WriteString(sec.Title)
		b.WriteString("\n\n")
		for _, f := range sec.Fields {
			v := strings.TrimSpace(rec.Get(f.Key))
			if f.Kind == schema.KindTextarea {
				b.WriteString("### ")
				b.WriteString(f.Label)
				b.WriteString("\n\n")
				if v != "" {
					b.WriteString(v)
					b.WriteString("\n\n")
				}
				continue
			}
			b.WriteString("**")
			b.WriteString(f.Label)
			b.WriteString(":** ")
			b.WriteString(v)
			b.WriteString("\n\n")
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// Export implements Exporter.
func (m *Markdown) Export(rec records.Record) (Artifact, error) {
	body := m.Render(rec)
	name := SanitizeFilename(rec.Title()) + ".md"
	logging.ExportDebug("Rendered %s (%d bytes)", name, len(body))
	return Artifact{
		Name:        name,
		ContentType: "text/markdown; charset=utf-8",
		Pages:       1,
		Body:        []byte(body),
	}, nil
}
