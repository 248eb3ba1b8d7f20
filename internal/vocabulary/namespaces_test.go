package vocabulary

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToPrefixed(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"http://dbpedia.org/resource/France", "dbr:France"},
		{"http://dbpedia.org/ontology/capital", "dbo:capital"},
		{"http://dbpedia.org/property/name", "dbp:name"},
		{"http://www.w3.org/1999/02/22-rdf-syntax-ns#type", "rdf:type"},
		{"http://www.w3.org/2000/01/rdf-schema#label", "rdfs:label"},
		{"http://xmlns.com/foaf/0.1/name", "foaf:name"},
		{"http://www.w3.org/2001/XMLSchema#date", "xsd:date"},
		{"http://example.org/other", "http://example.org/other"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			assert.Equal(t, tt.want, ToPrefixed(tt.uri))
		})
	}
}

func TestExpand(t *testing.T) {
	iri, ok := Expand("dbo:capital", nil)
	assert.True(t, ok)
	assert.Equal(t, "http://dbpedia.org/ontology/capital", iri)

	iri, ok = Expand("dbo:capital", map[string]string{"dbo": "http://evil.example/"})
	assert.True(t, ok)
	assert.Equal(t, "http://evil.example/capital", iri)

	_, ok = Expand("owl:sameAs", nil)
	assert.False(t, ok)

	_, ok = Expand("noprefix", nil)
	assert.False(t, ok)

	_, ok = Expand(":local", nil)
	assert.False(t, ok)

	iri, ok = Expand(":France", map[string]string{"": "http://dbpedia.org/resource/"})
	assert.True(t, ok)
	assert.Equal(t, "http://dbpedia.org/resource/France", iri)

	iri, ok = Expand("dbo:", nil)
	assert.True(t, ok)
	assert.Equal(t, "http://dbpedia.org/ontology/", iri)
}

func TestPrefixDeclarations(t *testing.T) {
	block := PrefixDeclarations()
	lines := strings.Split(strings.TrimSpace(block), "\n")

	assert.Len(t, lines, 7)
	assert.Equal(t, "PREFIX dbo: <http://dbpedia.org/ontology/>", lines[0])
	assert.Equal(t, "PREFIX xsd: <http://www.w3.org/2001/XMLSchema#>", lines[6])
	assert.True(t, strings.HasSuffix(block, "\n"))
}

func TestLabelFromURI(t *testing.T) {
	assert.Equal(t, "birth place", LabelFromURI("http://dbpedia.org/ontology/birth_place"))
	assert.Equal(t, "label", LabelFromURI("http://www.w3.org/2000/01/rdf-schema#label"))
	assert.Equal(t, "plain", LabelFromURI("plain"))
}

func TestShortName(t *testing.T) {
	assert.Equal(t, "date", ShortName("http://www.w3.org/2001/XMLSchema#date"))
	assert.Equal(t, "squareKilometre", ShortName("http://dbpedia.org/datatype/squareKilometre"))
	assert.Equal(t, "plain", ShortName("plain"))
	assert.Equal(t, "http://x/", ShortName("http://x/"))
}

func TestStandard_ReturnsCopy(t *testing.T) {
	ns := Standard()
	ns[0].Prefix = "changed"

	assert.Equal(t, "dbo", Standard()[0].Prefix)
	assert.Equal(t, []string{"dbo", "dbr", "dbp", "rdf", "rdfs", "foaf", "xsd"}, StandardPrefixes())
	assert.Equal(t, DBpediaOntology, PrefixMap()["dbo"])
}
