package service

import (
	"testing"

	"github.com/cloo-solutions/nl2sparql/internal/domain"
	"github.com/cloo-solutions/nl2sparql/internal/sparql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeResults_Boolean(t *testing.T) {
	yes := true

	table := ShapeResults(&sparql.Results{Boolean: &yes})

	assert.Equal(t, domain.ResultKindBoolean, table.Kind)
	assert.Equal(t, []string{"ASK"}, table.Columns)
	assert.Equal(t, []map[string]string{{"ASK": "true"}}, table.Rows)
	require.NotNil(t, table.Boolean)
	assert.True(t, *table.Boolean)
}

func TestShapeResults_Tabular(t *testing.T) {
	res := &sparql.Results{
		Head: sparql.Head{Vars: []string{"city", "label", "pop", "thumb", "missing"}},
		Results: &sparql.Bindings{Bindings: []map[string]sparql.Term{
			{
				"city":  {Type: "uri", Value: "http://dbpedia.org/resource/Paris"},
				"label": {Type: "literal", Value: "Paris", Lang: "en"},
				"pop":   {Type: "typed-literal", Value: "2165423", Datatype: "http://www.w3.org/2001/XMLSchema#integer"},
				"thumb": {Type: "uri", Value: "http://commons.wikimedia.org/wiki/Special:FilePath/Paris.JPG?width=300"},
			},
			{
				"city":  {Type: "uri", Value: "http://dbpedia.org/resource/Lyon"},
				"label": {Type: "literal", Value: "Lyon", LegacyLang: "fr"},
				"thumb": {Type: "uri", Value: "https://example.org/a.png"},
			},
		}},
	}

	table := ShapeResults(res)

	assert.Equal(t, domain.ResultKindTabular, table.Kind)
	assert.Equal(t, []string{"city", "label", "pop", "thumb", "missing"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "http://dbpedia.org/resource/Paris", table.Rows[0]["city"])
	assert.Equal(t, "Paris (@en)", table.Rows[0]["label"])
	assert.Equal(t, "2165423 (integer)", table.Rows[0]["pop"])
	assert.Equal(t, "", table.Rows[0]["missing"])
	assert.Equal(t, "Lyon (@fr)", table.Rows[1]["label"])
	assert.Equal(t, "", table.Rows[1]["pop"])
	assert.Equal(t, []string{
		"http://commons.wikimedia.org/wiki/Special:FilePath/Paris.JPG?width=300",
		"https://example.org/a.png",
	}, table.ImageURLs)
	assert.Nil(t, table.Boolean)
}

func TestShapeResults_Empty(t *testing.T) {
	table := ShapeResults(&sparql.Results{Head: sparql.Head{Vars: []string{"x"}}, Results: &sparql.Bindings{}})

	assert.True(t, table.IsEmpty())
	assert.Equal(t, []string{"x"}, table.Columns)
	assert.Empty(t, table.ImageURLs)
}

func TestFormatTerm_DatatypeWithSlash(t *testing.T) {
	term := sparql.Term{Value: "12.5", Datatype: "http://dbpedia.org/datatype/squareKilometre"}

	assert.Equal(t, "12.5 (squareKilometre)", FormatTerm(term))
}

func TestIsImageURL(t *testing.T) {
	assert.True(t, IsImageURL("https://upload.wikimedia.org/a/b/Flag.svg"))
	assert.True(t, IsImageURL("http://x.org/photo.jpeg#frag"))
	assert.True(t, IsImageURL("http://x.org/anim.GIF"))
	assert.False(t, IsImageURL("http://dbpedia.org/resource/Paris"))
	assert.False(t, IsImageURL("see http://x.org/a.png"))
	assert.False(t, IsImageURL("ftp://x.org/a.png"))
}
