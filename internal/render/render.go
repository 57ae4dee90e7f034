// Package render turns a normalized analysis into report artifacts.
package render

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ghda/fieldreports/internal/entity"
)

// Format selects a report artifact encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
)

// Formats lists every supported artifact format.
var Formats = []Format{FormatJSON, FormatMarkdown, FormatPDF}

// ParseFormat resolves a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// Extension returns the artifact file extension including the dot.
func (f Format) Extension() string {
	if f == FormatMarkdown {
		return ".md"
	}
	return "." + string(f)
}

// Render encodes the analysis in the requested format.
func Render(res *entity.AnalysisResult, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(res, "", "  ")
	case FormatMarkdown:
		return renderMarkdown(res), nil
	case FormatPDF:
		return renderPDF(res)
	}
	return nil, fmt.Errorf("unknown report format %q", format)
}

// WriteArtifacts renders the analysis in each requested format and writes the
// files under dir, named <stem>.<ext>. It returns the written paths.
func WriteArtifacts(res *entity.AnalysisResult, dir, stem string, formats []Format) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		data, err := Render(res, f)
		if err != nil {
			return paths, fmt.Errorf("rendering %s: %w", f, err)
		}
		path := filepath.Join(dir, stem+f.Extension())
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("writing %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
