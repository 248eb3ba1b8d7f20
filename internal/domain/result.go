package domain

// ResultKind is the shape of an endpoint response.
type ResultKind string

const (
	ResultKindBoolean ResultKind = "boolean"
	ResultKindTabular ResultKind = "tabular"
)

// ResultTable is an endpoint response flattened for display. Rows are keyed
// by column name. Image URLs found in cells are listed separately so front
// ends can render them.
type ResultTable struct {
	Kind      ResultKind          `json:"kind"`
	Boolean   *bool               `json:"boolean,omitempty"`
	Columns   []string            `json:"columns"`
	Rows      []map[string]string `json:"rows"`
	ImageURLs []string            `json:"image_urls,omitempty"`
}

// IsEmpty reports whether the table has no rows.
func (t *ResultTable) IsEmpty() bool {
	return t == nil || len(t.Rows) == 0
}
