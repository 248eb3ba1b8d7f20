// Package render formats pipeline answers as terminal text for the CLI and
// for MCP text content.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/cloo-solutions/nl2sparql/internal/domain"
	"github.com/cloo-solutions/nl2sparql/internal/service"
)

// DefaultMaxRows is how many result rows are printed before truncating.
const DefaultMaxRows = 10

// ANSI SGR codes.
const (
	codeBold   = "1"
	codeAccent = "1;36"
	codeDim    = "90"
	codeError  = "31"
)

// Style wraps text in ANSI escapes when enabled.
type Style struct {
	Color bool
}

func (s Style) wrap(text, code string) string {
	if !s.Color {
		return text
	}
	return "\033[" + code + "m" + text + "\033[0m"
}

func (s Style) Accent(text string) string { return s.wrap(text, codeAccent) }
func (s Style) Dim(text string) string    { return s.wrap(text, codeDim) }
func (s Style) Bold(text string) string   { return s.wrap(text, codeBold) }
func (s Style) Error(text string) string  { return s.wrap(text, codeError) }

// Gradient colours each non-space rune with the next code in codes.
func (s Style) Gradient(text string, codes []string) string {
	if !s.Color || len(codes) == 0 {
		return text
	}
	var b strings.Builder
	idx := 0
	for _, r := range text {
		if r == ' ' {
			b.WriteRune(r)
			continue
		}
		b.WriteString("\033[" + codes[idx%len(codes)] + "m")
		b.WriteRune(r)
		b.WriteString("\033[0m")
		idx++
	}
	return b.String()
}

// Options controls Answer output.
type Options struct {
	Style
	// Verbose adds the linked entities and retrieved schema.
	Verbose bool
	// MaxRows caps printed rows; zero means DefaultMaxRows.
	MaxRows int
}

// Answer writes the human-readable form of ans.
func Answer(w io.Writer, ans *service.Answer, opts Options) {
	if opts.Verbose {
		fmt.Fprintln(w)
		fmt.Fprintln(w, opts.Bold("Linked entities:"))
		fmt.Fprintln(w, Entities(ans.Entities))
		fmt.Fprintln(w)
		fmt.Fprintln(w, opts.Bold("Retrieved classes:"))
		fmt.Fprintln(w, SchemaItems(ans.Classes))
		fmt.Fprintln(w)
		fmt.Fprintln(w, opts.Bold("Retrieved properties:"))
		fmt.Fprintln(w, SchemaItems(ans.Properties))
	}

	for _, warning := range ans.Warnings {
		fmt.Fprintln(w, opts.Dim("! "+warning))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, opts.Accent("Generated SPARQL:"))
	fmt.Fprintln(w, ans.Query)
	if ans.Fallback && opts.Verbose {
		fmt.Fprintln(w, opts.Dim("(fallback: "+ans.FallbackReason+")"))
	}

	if !ans.Executed {
		return
	}
	if ans.ExecutionError != "" {
		fmt.Fprintln(w, opts.Error("Execution error: "+ans.ExecutionError))
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, opts.Accent("Results:"))
	Results(w, ans.Result, opts.MaxRows)
}

// Entities lists linked entities one per line, or "(none)".
func Entities(entities []domain.Entity) string {
	if len(entities) == 0 {
		return "(none)"
	}
	lines := make([]string, 0, len(entities))
	for _, ent := range entities {
		line := "- " + ent.SurfaceForm + " -> " + ent.URI
		if ent.Types != "" {
			line += " | types=" + ent.Types
		}
		line += fmt.Sprintf(" | score=%.2f | support=%d", ent.SimilarityScore, ent.Support)
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// SchemaItems lists schema items as "- label -> prefixed", or "(none)".
func SchemaItems(items []domain.SchemaItem) string {
	if len(items) == 0 {
		return "(none)"
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		ref := item.Prefixed
		if ref == "" {
			ref = item.URI
		}
		lines = append(lines, "- "+item.Label+" -> "+ref)
	}
	return strings.Join(lines, "\n")
}

// Results prints a shaped result table, truncated to maxRows.
func Results(w io.Writer, table *domain.ResultTable, maxRows int) {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	if table == nil {
		fmt.Fprintln(w, "No results.")
		return
	}
	if table.Kind == domain.ResultKindBoolean && table.Boolean != nil {
		fmt.Fprintf(w, "ASK result: %t\n", *table.Boolean)
		return
	}
	if len(table.Columns) == 0 {
		fmt.Fprintln(w, "No variables returned.")
		return
	}

	fmt.Fprintf(w, "Columns: %s\n", strings.Join(table.Columns, ", "))
	if len(table.Rows) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}

	for i, row := range table.Rows {
		if i == maxRows {
			break
		}
		cells := make([]string, 0, len(table.Columns))
		for _, col := range table.Columns {
			cells = append(cells, col+"="+row[col])
		}
		fmt.Fprintf(w, "  %2d. %s\n", i+1, strings.Join(cells, " | "))
	}

	if len(table.Rows) > maxRows {
		fmt.Fprintf(w, "... (%d more rows)\n", len(table.Rows)-maxRows)
	}
}
