package openrouter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nl2sql_cache/schema"
)

const testKeyEnv = "OPENROUTER_TEST_KEY"

func testTables() []schema.Table {
	return []schema.Table{{
		Name: "students",
		Columns: []schema.Column{
			{Name: "id", Type: "int"},
			{Name: "gpa", Type: "float"},
		},
	}}
}

func newChatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "students(id(int), gpa(float))")
		assert.InDelta(t, 0.2, req.Temperature, 1e-9)

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestGenerateParsesJSONOutput(t *testing.T) {
	t.Setenv(testKeyEnv, "test-key")
	srv := newChatServer(t, `{"sql": "SELECT AVG(gpa) FROM students", "reasoning": ["aggregate gpa", "no filter needed"]}`)
	defer srv.Close()

	s := New(srv.URL, "test-model", testKeyEnv)
	res, err := s.Generate(context.Background(), "average gpa", testTables())
	require.NoError(t, err)
	assert.Equal(t, "SELECT AVG(gpa) FROM students", res.SQL)
	assert.Equal(t, []string{"aggregate gpa", "no filter needed"}, res.Reasoning)
	assert.True(t, res.Validated)
}

func TestGenerateFallsBackToBareSQL(t *testing.T) {
	t.Setenv(testKeyEnv, "test-key")
	srv := newChatServer(t, "```sql\nSELECT AVG(gpa) FROM students\n```")
	defer srv.Close()

	s := New(srv.URL, "test-model", testKeyEnv)
	res, err := s.Generate(context.Background(), "average gpa", testTables())
	require.NoError(t, err)
	assert.Equal(t, "SELECT AVG(gpa) FROM students", res.SQL)
	assert.Empty(t, res.Reasoning)
	assert.True(t, res.Validated)
}

func TestGenerateRejectsBlockedSQL(t *testing.T) {
	t.Setenv(testKeyEnv, "test-key")
	srv := newChatServer(t, `{"sql": "DROP TABLE students", "reasoning": []}`)
	defer srv.Close()

	s := New(srv.URL, "test-model", testKeyEnv)
	_, err := s.Generate(context.Background(), "remove the table", testTables())
	assert.ErrorContains(t, err, "not allowed")
}

func TestGenerateUpstreamError(t *testing.T) {
	t.Setenv(testKeyEnv, "test-key")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := New(srv.URL, "test-model", testKeyEnv)
	_, err := s.Generate(context.Background(), "average gpa", testTables())
	assert.Error(t, err)
}

func TestGenerateMissingAPIKey(t *testing.T) {
	t.Setenv(testKeyEnv, "")
	s := New("http://localhost:0", "test-model", testKeyEnv)
	_, err := s.Generate(context.Background(), "average gpa", testTables())
	assert.ErrorContains(t, err, "empty api key")
}
