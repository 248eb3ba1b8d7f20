package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cloo-solutions/nl2sparql/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Len(t, c.Properties, 17)
	assert.Len(t, c.Classes, 13)

	capital := c.Properties[5]
	assert.Equal(t, "capital", capital.Label)
	assert.Equal(t, "http://dbpedia.org/ontology/capital", capital.URI)
	assert.Equal(t, "dbo:capital", capital.Prefixed)
	assert.Equal(t, "capital city of a country", capital.Description)
	assert.Equal(t, domain.SchemaKindProperty, capital.Kind)

	assert.Equal(t, "rdf:type", c.Properties[0].Prefixed)
	assert.Equal(t, "rdfs:label", c.Properties[16].Prefixed)

	for _, cls := range c.Classes {
		assert.Equal(t, domain.SchemaKindClass, cls.Kind)
		assert.NoError(t, domain.ValidateSchemaItem(&cls))
	}
	assert.Equal(t, "dbo:Organisation", c.Classes[4].Prefixed)
	assert.Equal(t, "organization", c.Classes[4].Label)
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("properties:\n  - label: x\n    uri: http://x\n    weight: 3\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidCatalog)
}

func TestParse_RejectsMissingURI(t *testing.T) {
	_, err := Parse([]byte("classes:\n  - label: thing\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidCatalog)
	assert.Contains(t, err.Error(), "thing")
}

func TestParse_DerivesLabelAndPrefix(t *testing.T) {
	c, err := Parse([]byte("properties:\n  - uri: http://dbpedia.org/property/birth_name\n"))
	require.NoError(t, err)
	require.Len(t, c.Properties, 1)
	assert.Equal(t, "birth name", c.Properties[0].Label)
	assert.Equal(t, "dbp:birth_name", c.Properties[0].Prefixed)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("classes:\n  - label: lake\n    uri: http://dbpedia.org/ontology/Lake\n"), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Empty(t, c.Properties)
	require.Len(t, c.Classes, 1)
	assert.Equal(t, "dbo:Lake", c.Classes[0].Prefixed)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	def, err := LoadFile("")
	require.NoError(t, err)
	assert.Len(t, def.Properties, 17)
}

func TestMarshal_RoundTripsThroughParse(t *testing.T) {
	c := MustDefault()
	data, err := c.Marshal()
	require.NoError(t, err)

	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, c, again)
}
