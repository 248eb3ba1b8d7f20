//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/cloo-solutions/nl2sparql/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const capitalReply = "Here you go:\n```sparql\nSELECT ?capital WHERE { dbr:France dbo:capital ?capital }\n```"

func decodeAnswer(t *testing.T, resp *APIResponse) service.Answer {
	t.Helper()
	var ans service.Answer
	require.NoError(t, json.Unmarshal(resp.Data, &ans))
	return ans
}

func TestE2E_HTTPAPI(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("health is open", func(t *testing.T) {
		resp, _, err := env.Get("/health")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("ask requires token", func(t *testing.T) {
		_, err := env.Post("/ask", map[string]any{"question": "What is the capital of France?"}, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 401")
	})

	t.Run("capital of France", func(t *testing.T) {
		env.LLM.SetReply(capitalReply)

		resp, err := env.Post("/ask", map[string]any{"question": "What is the capital of France?"}, apiToken)
		require.NoError(t, err)
		ans := decodeAnswer(t, resp)

		require.Len(t, ans.Entities, 1)
		assert.Equal(t, "http://dbpedia.org/resource/France", ans.Entities[0].URI)

		var props []string
		for _, p := range ans.Properties {
			props = append(props, p.Prefixed)
		}
		assert.Contains(t, props, "dbo:capital")

		assert.False(t, ans.Fallback, "rejected: %v", ans.Rejected)
		assert.True(t, strings.HasPrefix(ans.Query, "PREFIX dbo:"))
		assert.True(t, strings.HasSuffix(ans.Query, "LIMIT 50"))

		assert.True(t, ans.Executed)
		assert.Empty(t, ans.ExecutionError)
		require.NotNil(t, ans.Result)
		require.Len(t, ans.Result.Rows, 1)
		assert.Equal(t, "http://dbpedia.org/resource/Paris", ans.Result.Rows[0]["capital"])

		prompts := env.LLM.LastPrompts()
		require.Len(t, prompts, 2)
		assert.Contains(t, prompts[1], "dbr:France")
		assert.Contains(t, prompts[1], "dbo:capital")
	})

	t.Run("unretrieved property falls back", func(t *testing.T) {
		env.LLM.SetReply("SELECT ?p WHERE { ?p dbo:birthPlace dbr:France }")

		resp, err := env.Post("/ask", map[string]any{"question": "What is the capital of France?"}, apiToken)
		require.NoError(t, err)
		ans := decodeAnswer(t, resp)

		assert.True(t, ans.Fallback)
		assert.Equal(t, service.FallbackDisallowedIdentifier, ans.FallbackReason)
		assert.Contains(t, ans.Rejected, "dbo:birthPlace")
		assert.Equal(t, service.FallbackQuery, ans.Query)

		require.NotNil(t, ans.Result)
		require.NotNil(t, ans.Result.Boolean)
		assert.False(t, *ans.Result.Boolean)
	})

	t.Run("generate does not execute", func(t *testing.T) {
		env.LLM.SetReply(capitalReply)

		resp, err := env.Post("/generate", map[string]any{"question": "What is the capital of France?"}, apiToken)
		require.NoError(t, err)
		ans := decodeAnswer(t, resp)

		assert.False(t, ans.Executed)
		assert.Nil(t, ans.Result)
		assert.Contains(t, ans.Query, "dbo:capital")
	})

	t.Run("empty question is rejected", func(t *testing.T) {
		_, err := env.Post("/ask", map[string]any{"question": "   "}, apiToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 400")
	})

	t.Run("metrics are exposed", func(t *testing.T) {
		resp, body, err := env.Get("/metrics")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), "nl2sparql_stage_total")
		assert.Contains(t, string(body), `nl2sparql_fallback_total{reason="disallowed_identifier"}`)
	})
}

func TestE2E_CLI(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.BuildBinaries()

	t.Run("catalog", func(t *testing.T) {
		out, err := env.RunCLI("catalog")
		require.NoError(t, err)
		assert.Contains(t, out, "http://dbpedia.org/ontology/capital")
	})

	t.Run("single question as JSON", func(t *testing.T) {
		env.LLM.SetReply(capitalReply)

		out, err := env.RunCLI("-q", "What is the capital of France?", "--output")
		require.NoError(t, err)

		var ans service.Answer
		require.NoError(t, json.Unmarshal([]byte(out), &ans))
		require.NotNil(t, ans.Result)
		assert.Equal(t, "http://dbpedia.org/resource/Paris", ans.Result.Rows[0]["capital"])
	})

	t.Run("single question without execution", func(t *testing.T) {
		env.LLM.SetReply(capitalReply)

		out, err := env.RunCLI("-q", "What is the capital of France?", "--no-exec", "--verbose")
		require.NoError(t, err)
		assert.Contains(t, out, "Linked entities:\n- France -> http://dbpedia.org/resource/France")
		assert.Contains(t, out, "Generated SPARQL:")
		assert.NotContains(t, out, "Results:")
	})
}
