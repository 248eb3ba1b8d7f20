package service

import (
	"fmt"
	"strings"

	"github.com/cloo-solutions/nl2sparql/internal/domain"
	"github.com/cloo-solutions/nl2sparql/internal/vocabulary"
)

// PromptBuilder renders the system and user messages sent to the completion
// model. The user message lists the only identifiers the model may use.
type PromptBuilder struct {
	selectLimit int
}

func NewPromptBuilder(selectLimit int) *PromptBuilder {
	return &PromptBuilder{selectLimit: selectLimit}
}

func (b *PromptBuilder) SystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are a DBpedia SPARQL generator.\n")
	sb.WriteString("Rules you must follow:\n")
	sb.WriteString("- Use ONLY properties listed under Allowed Properties.\n")
	sb.WriteString("- Use ONLY entities listed under Allowed Entities.\n")
	sb.WriteString("- Use ONLY classes listed under Allowed Classes.\n")
	sb.WriteString("- Use rdf:type only with Allowed Classes.\n")
	sb.WriteString("- Do NOT invent properties, entities, or classes.\n")
	sb.WriteString("- If the request cannot be answered with the allowed items, output a query that returns no results using FILTER(false).\n")
	sb.WriteString("- Output only valid SPARQL with PREFIX declarations. No markdown or explanations.\n")
	fmt.Fprintf(&sb, "- For SELECT queries, include LIMIT %d unless the user asks for all results.\n", b.selectLimit)
	sb.WriteString("- Use the following prefixes when relevant:\n")
	sb.WriteString(vocabulary.PrefixDeclarations())
	return sb.String()
}

func (b *PromptBuilder) UserPrompt(question string, entities []domain.Entity, properties, classes []domain.SchemaItem) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n\n", question)

	sb.WriteString("Allowed Entities:\n")
	writeBlock(&sb, len(entities), func(i int) string { return entityLine(entities[i]) })
	sb.WriteString("\n\nAllowed Classes:\n")
	writeBlock(&sb, len(classes), func(i int) string { return schemaLine(classes[i]) })
	sb.WriteString("\n\nAllowed Properties:\n")
	writeBlock(&sb, len(properties), func(i int) string { return schemaLine(properties[i]) })
	sb.WriteString("\n")

	return sb.String()
}

func writeBlock(sb *strings.Builder, n int, line func(int) string) {
	if n == 0 {
		sb.WriteString("- (none)")
		return
	}
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line(i))
	}
}

func entityLine(e domain.Entity) string {
	prefixed := ""
	if e.URI != "" {
		prefixed = vocabulary.ToPrefixed(e.URI)
	}
	line := fmt.Sprintf("- %s | %s | surface='%s'", prefixed, e.URI, e.SurfaceForm)
	if e.Types != "" {
		line += fmt.Sprintf(" | types='%s'", e.Types)
	}
	return line
}

func schemaLine(it domain.SchemaItem) string {
	prefixed := it.Prefixed
	if prefixed == "" {
		prefixed = vocabulary.ToPrefixed(it.URI)
	}
	line := fmt.Sprintf("- %s | %s | label='%s'", prefixed, it.URI, it.Label)
	if it.Description != "" {
		line += fmt.Sprintf(" | desc='%s'", it.Description)
	}
	return line
}
