// Package schema loads the static catalog of DBpedia properties and classes
// that every question is matched against.
package schema

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/cloo-solutions/nl2sparql/internal/domain"
	"github.com/cloo-solutions/nl2sparql/internal/vocabulary"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type entry struct {
	Label       string `yaml:"label"`
	URI         string `yaml:"uri"`
	Description string `yaml:"description,omitempty"`
	Prefixed    string `yaml:"prefixed,omitempty"`
}

type file struct {
	Properties []entry `yaml:"properties"`
	Classes    []entry `yaml:"classes"`
}

// Catalog is the static schema. Items are returned in file order.
type Catalog struct {
	Properties []domain.SchemaItem `json:"properties"`
	Classes    []domain.SchemaItem `json:"classes"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// MustDefault panics if the embedded catalog is broken.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// LoadFile reads a catalog from path. An empty path yields the embedded one.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog, rejecting unknown fields and entries without
// a URI.
func Parse(data []byte) (*Catalog, error) {
	var f file
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, domain.ErrInvalidCatalog.WithCause(err)
	}

	props, err := toItems(f.Properties, domain.SchemaKindProperty)
	if err != nil {
		return nil, err
	}
	classes, err := toItems(f.Classes, domain.SchemaKindClass)
	if err != nil {
		return nil, err
	}

	return &Catalog{Properties: props, Classes: classes}, nil
}

func toItems(entries []entry, kind domain.SchemaKind) ([]domain.SchemaItem, error) {
	items := make([]domain.SchemaItem, 0, len(entries))
	for i, e := range entries {
		uri := strings.TrimSpace(e.URI)
		if uri == "" {
			return nil, domain.ErrInvalidCatalog.WithCause(fmt.Errorf("%s #%d (%q) has no uri", kind, i+1, e.Label))
		}
		label := strings.TrimSpace(e.Label)
		if label == "" {
			label = vocabulary.LabelFromURI(uri)
		}
		prefixed := strings.TrimSpace(e.Prefixed)
		if prefixed == "" {
			prefixed = vocabulary.ToPrefixed(uri)
		}
		items = append(items, domain.SchemaItem{
			Kind:        kind,
			Label:       label,
			URI:         uri,
			Description: strings.TrimSpace(e.Description),
			Prefixed:    prefixed,
		})
	}
	return items, nil
}

// Marshal renders the catalog back to YAML.
func (c *Catalog) Marshal() ([]byte, error) {
	f := file{
		Properties: fromItems(c.Properties),
		Classes:    fromItems(c.Classes),
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fromItems(items []domain.SchemaItem) []entry {
	out := make([]entry, 0, len(items))
	for _, it := range items {
		out = append(out, entry{
			Label:       it.Label,
			URI:         it.URI,
			Description: it.Description,
			Prefixed:    it.Prefixed,
		})
	}
	return out
}
