package domain

import (
	"fmt"
	"strings"
)

// SchemaKind distinguishes properties from classes.
type SchemaKind string

const (
	SchemaKindProperty SchemaKind = "property"
	SchemaKindClass    SchemaKind = "class"
)

// SchemaItem is a candidate ontology term offered to the generator.
type SchemaItem struct {
	Kind        SchemaKind `json:"kind"`
	Label       string     `json:"label"`
	URI         string     `json:"uri"`
	Description string     `json:"description,omitempty"`
	Prefixed    string     `json:"prefixed"`
	// Text is the string the embedding was computed from.
	Text      string    `json:"-"`
	Embedding []float32 `json:"-"`
	Score     float64   `json:"score,omitempty"`
}

// EmbeddingText returns label and description joined by a space, falling
// back to the label and then the URI when both are empty.
func (s SchemaItem) EmbeddingText() string {
	var parts []string
	if s.Label != "" {
		parts = append(parts, s.Label)
	}
	if s.Description != "" {
		parts = append(parts, s.Description)
	}
	text := strings.TrimSpace(strings.Join(parts, " "))
	if text != "" {
		return text
	}
	if s.Label != "" {
		return s.Label
	}
	return s.URI
}

// ValidateSchemaItem checks the invariants every item handed to the prompt
// builder must satisfy.
func ValidateSchemaItem(s *SchemaItem) error {
	if s == nil {
		return fmt.Errorf("schema item cannot be nil")
	}
	if strings.TrimSpace(s.URI) == "" {
		return ErrMissingRequiredURI
	}
	if !isValidSchemaKind(s.Kind) {
		return fmt.Errorf("schema item Kind is invalid: %s", s.Kind)
	}
	return nil
}

func isValidSchemaKind(k SchemaKind) bool {
	switch k {
	case SchemaKindProperty, SchemaKindClass:
		return true
	}
	return false
}
