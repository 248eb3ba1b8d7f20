package sparql

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Query_Select(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/sparql-results+json", r.Header.Get("Accept"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "SELECT ?c WHERE { dbr:France dbo:capital ?c } LIMIT 50", r.PostForm.Get("query"))

		w.Header().Set("Content-Type", "application/sparql-results+json")
		_, _ = w.Write([]byte(`{
		  "head": {"link": [], "vars": ["c", "label", "pop"]},
		  "results": {"distinct": false, "ordered": true, "bindings": [
		    {"c": {"type": "uri", "value": "http://dbpedia.org/resource/Paris"},
		     "label": {"type": "literal", "xml:lang": "en", "value": "Paris"},
		     "pop": {"type": "typed-literal", "datatype": "http://www.w3.org/2001/XMLSchema#integer", "value": "2165423"}}
		  ]}
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	res, err := client.Query(context.Background(), "SELECT ?c WHERE { dbr:France dbo:capital ?c } LIMIT 50")

	require.NoError(t, err)
	assert.False(t, res.IsBoolean())
	assert.Equal(t, []string{"c", "label", "pop"}, res.Head.Vars)
	rows := res.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "http://dbpedia.org/resource/Paris", rows[0]["c"].Value)
	assert.Equal(t, "uri", rows[0]["c"].Type)
	assert.Equal(t, "en", rows[0]["label"].Language())
	assert.Equal(t, "http://www.w3.org/2001/XMLSchema#integer", rows[0]["pop"].Datatype)
}

func TestClient_Query_Ask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"head": {}, "boolean": false}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, time.Second).Query(context.Background(), "ASK { FILTER(false) }")

	require.NoError(t, err)
	require.True(t, res.IsBoolean())
	assert.False(t, *res.Boolean)
	assert.Nil(t, res.Rows())
}

func TestClient_Query_EndpointError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Virtuoso 37000 Error SP030: SPARQL compiler, line 3: syntax error", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Query(context.Background(), "SELEC")

	var endpointErr *EndpointError
	require.True(t, errors.As(err, &endpointErr))
	assert.Equal(t, http.StatusBadRequest, endpointErr.StatusCode)
	assert.Contains(t, endpointErr.Error(), "syntax error")
}

func TestClient_Query_Unrecognized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"head": {"vars": []}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Query(context.Background(), "SELECT * {}")

	assert.ErrorContains(t, err, "neither boolean nor results")
}

func TestClient_Query_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 20*time.Millisecond).Query(context.Background(), "ASK {}")

	assert.ErrorContains(t, err, "sparql request failed")
}

func TestTerm_LegacyLang(t *testing.T) {
	assert.Equal(t, "fr", Term{LegacyLang: "fr"}.Language())
	assert.Equal(t, "en", Term{Lang: "en", LegacyLang: "fr"}.Language())
	assert.Equal(t, "", Term{}.Language())
}
