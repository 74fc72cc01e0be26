package export

import "fmt"

// Dataset defines tabular export content. Rows are keyed by header.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
}

// AddRow appends values positionally aligned with Headers.
func (d *Dataset) AddRow(values ...string) {
	row := make(map[string]string, len(d.Headers))
	for i, header := range d.Headers {
		if i < len(values) {
			row[header] = values[i]
		}
	}
	d.Rows = append(d.Rows, row)
}

// Renderer turns a dataset into a downloadable document.
type Renderer interface {
	Render(Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ForFormat returns the renderer for "csv" or "pdf".
func ForFormat(format string) (Renderer, error) {
	switch format {
	case "csv":
		return NewCSVExporter(), nil
	case "pdf":
		return NewPDFExporter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
