package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaServiceGenerate(t *testing.T) {
	var captured ollamaRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		resp := ollamaResponse{
			Model:           captured.Model,
			Response:        "```sql\nSELECT country FROM sales\n```",
			Done:            true,
			PromptEvalCount: 42,
			EvalCount:       8,
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	svc := NewOllamaService(server.URL, time.Second)

	resp, err := svc.Generate(context.Background(), Request{
		Question: "which countries do we sell in",
		Schema:   "sales(country STR)",
		Model:    "llama3",
	})
	require.NoError(t, err)

	assert.Equal(t, "SELECT country FROM sales", resp.SQL)
	assert.Equal(t, "llama3", resp.Model)
	assert.Equal(t, 42, resp.PromptTokens)
	assert.Equal(t, 8, resp.CompletionTokens)

	assert.Equal(t, "llama3", captured.Model)
	assert.False(t, captured.Stream)
	assert.Contains(t, captured.System, "sales(country STR)")
	assert.Contains(t, captured.Prompt, "which countries do we sell in")
}

func TestOllamaServiceRepairRequest(t *testing.T) {
	var captured ollamaRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		require.NoError(t, json.NewEncoder(w).Encode(ollamaResponse{
			Response: "SELECT product_id FROM sales",
			Done:     true,
		}))
	}))
	defer server.Close()

	svc := NewOllamaService(server.URL, time.Second)

	resp, err := svc.Generate(context.Background(), Request{
		Question: "sales by product",
		Schema:   "sales(product_id INT)",
		Model:    "llama3",
		Repair: &RepairContext{
			FailingSQL:   "SELECT product FROM sales",
			ErrorMessage: `column "product" does not exist`,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "SELECT product_id FROM sales", resp.SQL)
	assert.Contains(t, captured.Prompt, "SELECT product FROM sales")
	assert.Contains(t, captured.Prompt, `column "product" does not exist`)
}

func TestOllamaServiceAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(ollamaResponse{
			Error: "model not found",
		}))
	}))
	defer server.Close()

	svc := NewOllamaService(server.URL, time.Second)

	_, err := svc.Generate(context.Background(), Request{Question: "anything", Model: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

func TestOllamaServiceHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewOllamaService(server.URL, time.Second)

	_, err := svc.Generate(context.Background(), Request{Question: "anything", Model: "llama3"})
	assert.Error(t, err)
}
