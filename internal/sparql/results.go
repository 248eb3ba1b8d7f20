package sparql

// Results is the SPARQL 1.1 Query Results JSON document. Exactly one of
// Boolean or Results is set, depending on the query form.
type Results struct {
	Head    Head      `json:"head"`
	Boolean *bool     `json:"boolean,omitempty"`
	Results *Bindings `json:"results,omitempty"`
}

type Head struct {
	Vars []string `json:"vars,omitempty"`
	Link []string `json:"link,omitempty"`
}

type Bindings struct {
	Bindings []map[string]Term `json:"bindings"`
}

// Term is one bound RDF term. LegacyLang carries the "lang" key some older
// endpoints emit instead of "xml:lang".
type Term struct {
	Type       string `json:"type"`
	Value      string `json:"value"`
	Lang       string `json:"xml:lang,omitempty"`
	LegacyLang string `json:"lang,omitempty"`
	Datatype   string `json:"datatype,omitempty"`
}

// Language returns the language tag, whichever key carried it.
func (t Term) Language() string {
	if t.Lang != "" {
		return t.Lang
	}
	return t.LegacyLang
}

// IsBoolean reports whether the document answers an ASK query.
func (r *Results) IsBoolean() bool {
	return r != nil && r.Boolean != nil
}

// Rows returns the bindings, or nil for boolean results.
func (r *Results) Rows() []map[string]Term {
	if r == nil || r.Results == nil {
		return nil
	}
	return r.Results.Bindings
}
