// Package notes converts Markdown chapter files (src/notes/*.md) into TeX
// includes so ancillary documentation written in Markdown can be pulled into
// the compiled report with a single \input.
package notes

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	gmtext "github.com/yuin/goldmark/text"
)

// IndexName is the master include generated alongside the converted chapters.
// The report pulls all notes in with \input{notes/IndexName}.
const IndexName = "notes.tex"

// Converted describes one generated chapter file.
type Converted struct {
	Source string // markdown input path
	Output string // generated .tex path
}

// ToLaTeX converts a Markdown document body to LaTeX.
func ToLaTeX(body []byte) (string, error) {
	md := goldmark.New()
	root := md.Parser().Parse(gmtext.NewReader(body))
	return renderLaTeX(root, body)
}

// ConvertDir converts every .md file in srcDir into a .tex file in outDir and
// writes an index include referencing them in lexical order. A missing srcDir
// is not an error; it simply means the report has no Markdown notes.
func ConvertDir(srcDir, outDir string) ([]Converted, error) {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read notes directory: %w", err)
	}

	var mdFiles []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		mdFiles = append(mdFiles, entry.Name())
	}
	if len(mdFiles) == 0 {
		return nil, nil
	}
	sort.Strings(mdFiles)

	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create notes output directory: %w", err)
	}

	var converted []Converted
	var index strings.Builder
	index.WriteString("% Generated from Markdown notes. Do not edit.\n")

	for _, name := range mdFiles {
		srcPath := filepath.Join(srcDir, name)
		body, err := os.ReadFile(srcPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}

		tex, err := ToLaTeX(body)
		if err != nil {
			return nil, fmt.Errorf("failed to convert %s: %w", name, err)
		}

		base := strings.TrimSuffix(name, ".md")
		outPath := filepath.Join(outDir, base+".tex")
		if err := os.WriteFile(outPath, []byte(tex), 0o600); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", outPath, err)
		}

		converted = append(converted, Converted{Source: srcPath, Output: outPath})
		fmt.Fprintf(&index, "\\input{%s}\n", filepath.ToSlash(filepath.Join(filepath.Base(outDir), base)))
	}

	indexPath := filepath.Join(outDir, IndexName)
	if err := os.WriteFile(indexPath, []byte(index.String()), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write notes index: %w", err)
	}

	return converted, nil
}
