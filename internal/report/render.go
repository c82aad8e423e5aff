package report

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/KaramelBytes/dataprep-cli/internal/export"
	"github.com/KaramelBytes/dataprep-cli/internal/utils"
)

// Format selects a renderer.
type Format string

const (
	Markdown Format = "md"
	HTML     Format = "html"
	PDF      Format = "pdf"
	CSV      Format = "csv"
)

// ErrUnknownFormat is returned for formats without a renderer.
var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat accepts md/markdown, html, pdf and csv.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "md", "markdown":
		return Markdown, nil
	case "html":
		return HTML, nil
	case "pdf":
		return PDF, nil
	case "csv":
		return CSV, nil
	}
	return "", fmt.Errorf("%w: %q (want md, html, pdf or csv)", ErrUnknownFormat, s)
}

// Ext returns the file extension for f.
func (f Format) Ext() string { return "." + string(f) }

// Render writes the document in format f.
func (d *Document) Render(w io.Writer, f Format) error {
	switch f {
	case Markdown:
		return d.renderMarkdown(w)
	case HTML:
		return d.renderHTML(w)
	case PDF:
		return d.renderPDF(w)
	case CSV:
		if d.Data == nil {
			return errors.New("csv report needs the dataset")
		}
		return export.WriteCSV(w, d.Data)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// WriteFile renders the document and writes it atomically to path.
func (d *Document) WriteFile(path string, f Format) error {
	var buf bytes.Buffer
	if err := d.Render(&buf, f); err != nil {
		return err
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

func (d *Document) renderMarkdown(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", d.Title)
	fmt.Fprintf(&b, "Creation Date: %s\n", d.CreatedAt.Format("2006-01-02 15:04:05"))
	if d.Dataset != "" {
		fmt.Fprintf(&b, "Dataset: %s\n", d.Dataset)
	}
	for _, s := range d.Sections() {
		fmt.Fprintf(&b, "\n## %s\n\n", s.Title)
		if s.Title == "Analysis Results" {
			b.WriteString("```\n")
			for _, l := range s.Lines {
				b.WriteString(l + "\n")
			}
			b.WriteString("```\n")
			continue
		}
		for _, l := range s.Lines {
			b.WriteString(l + "\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

var htmlTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 960px; margin: 2em auto; color: #222; }
h1 { text-align: center; }
pre { background: #f6f6f6; padding: 1em; overflow-x: auto; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>Creation Date: {{.Created}}{{if .Dataset}}<br>Dataset: {{.Dataset}}{{end}}</p>
{{range .Sections}}<section>
<h2>{{.Title}}</h2>
{{if eq .Title "Analysis Results"}}<pre>{{range .Lines}}{{.}}
{{end}}</pre>{{else}}<ul>
{{range .Lines}}<li>{{.}}</li>
{{end}}</ul>{{end}}
</section>
{{end}}</body>
</html>
`))

func (d *Document) renderHTML(w io.Writer) error {
	data := struct {
		Title, Created, Dataset string
		Sections                []Section
	}{d.Title, d.CreatedAt.Format("2006-01-02 15:04:05"), d.Dataset, d.Sections()}
	if err := htmlTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

func (d *Document) renderPDF(w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle(d.Title, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(d.Title), "", 1, "C", false, 0, "")
	pdf.Ln(10)
	text := func(s string) {
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(s), "", "L", false)
	}
	text("Creation Date: " + d.CreatedAt.Format("2006-01-02 15:04:05"))
	if d.Dataset != "" {
		text("Dataset: " + d.Dataset)
	}
	pdf.Ln(5)
	for _, s := range d.Sections() {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 10, tr(s.Title), "", 1, "", false, 0, "")
		pdf.Ln(2)
		for _, l := range s.Lines {
			if strings.TrimSpace(l) == "" {
				pdf.Ln(3)
				continue
			}
			text(l)
		}
		pdf.Ln(5)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
