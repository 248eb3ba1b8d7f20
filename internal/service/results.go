package service

import (
	"regexp"
	"sort"

	"github.com/cloo-solutions/nl2sparql/internal/domain"
	"github.com/cloo-solutions/nl2sparql/internal/sparql"
	"github.com/cloo-solutions/nl2sparql/internal/vocabulary"
)

// AskColumn is the single column of a boolean result table.
const AskColumn = "ASK"

var imageURLPattern = regexp.MustCompile(`(?i)^https?://\S+\.(png|jpe?g|gif|svg)([?#]\S+)?$`)

// FormatTerm renders one bound term for display: "value (@lang)" for tagged
// literals, "value (type)" for typed literals, the bare value otherwise.
func FormatTerm(t sparql.Term) string {
	if lang := t.Language(); lang != "" {
		return t.Value + " (@" + lang + ")"
	}
	if t.Datatype != "" {
		return t.Value + " (" + vocabulary.ShortName(t.Datatype) + ")"
	}
	return t.Value
}

// IsImageURL reports whether v is a bare http(s) URL to an image file.
func IsImageURL(v string) bool {
	return imageURLPattern.MatchString(v)
}

// ShapeResults flattens an endpoint response into a display table. Image
// URLs found in any cell are collected, deduplicated and sorted.
func ShapeResults(res *sparql.Results) *domain.ResultTable {
	if res == nil {
		return &domain.ResultTable{Kind: domain.ResultKindTabular, Columns: []string{}, Rows: []map[string]string{}}
	}

	if res.IsBoolean() {
		b := *res.Boolean
		value := "false"
		if b {
			value = "true"
		}
		return &domain.ResultTable{
			Kind:    domain.ResultKindBoolean,
			Boolean: &b,
			Columns: []string{AskColumn},
			Rows:    []map[string]string{{AskColumn: value}},
		}
	}

	columns := append([]string{}, res.Head.Vars...)
	bindings := res.Rows()
	rows := make([]map[string]string, 0, len(bindings))
	images := make(map[string]struct{})

	for _, binding := range bindings {
		row := make(map[string]string, len(columns))
		for _, col := range columns {
			term, ok := binding[col]
			if !ok {
				row[col] = ""
				continue
			}
			row[col] = FormatTerm(term)
			if IsImageURL(term.Value) {
				images[term.Value] = struct{}{}
			}
		}
		rows = append(rows, row)
	}

	var imageURLs []string
	for u := range images {
		imageURLs = append(imageURLs, u)
	}
	sort.Strings(imageURLs)

	return &domain.ResultTable{
		Kind:      domain.ResultKindTabular,
		Columns:   columns,
		Rows:      rows,
		ImageURLs: imageURLs,
	}
}
