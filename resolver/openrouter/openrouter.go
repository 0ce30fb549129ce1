// Package openrouter implements resolver.Pipeline against the OpenRouter
// chat-completions API.
package openrouter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"nl2sql_cache/resolver"
	"nl2sql_cache/schema"
)

const systemPrompt = "You are a SQLite expert. Given a table schema and a natural language question, " +
	"respond with a JSON object {\"sql\": \"...\", \"reasoning\": [\"step\", ...]} where sql is the most " +
	"accurate and efficient SQLite query and reasoning lists the derivation steps. " +
	"Output only the JSON object, no markdown and no comments."

// Service implements resolver.Pipeline using the OpenRouter API.
type Service struct {
	endpoint  string
	model     string
	apiKeyEnv string
	client    *http.Client
}

// New creates a new OpenRouter SQL generator. The API key is read from the
// named environment variable at request time.
func New(endpoint string, model string, apiKeyEnvName string) *Service {
	return &Service{
		endpoint:  endpoint,
		model:     model,
		apiKeyEnv: apiKeyEnvName,
		client:    &http.Client{},
	}
}

// Generate implements [resolver.Pipeline].
func (s *Service) Generate(ctx context.Context, question string, tables []schema.Table) (*resolver.Resolution, error) {
	content, err := s.complete(ctx, buildPrompt(question, tables))
	if err != nil {
		return nil, err
	}

	sql, reasoning := parseOutput(content)
	if sql == "" {
		return nil, fmt.Errorf("empty sql in model output")
	}
	if err := resolver.ValidateSQL(sql); err != nil {
		return nil, fmt.Errorf("generated query is not allowed: %w", err)
	}
	return &resolver.Resolution{
		SQL:       sql,
		Reasoning: reasoning,
		Validated: true,
	}, nil
}

// buildPrompt renders the schema line the way the model was tuned on:
// table(col1(type1), col2(type2), ...) per table.
func buildPrompt(question string, tables []schema.Table) string {
	var b strings.Builder
	b.WriteString("Schema: ")
	for i, t := range tables {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(t.Name)
		b.WriteString("(")
		for j, c := range t.Columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s(%s)", c.Name, c.Type)
		}
		b.WriteString(")")
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\nSQL: ")
	return b.String()
}

func (s *Service) complete(ctx context.Context, prompt string) (string, error) {
	requestBody := ChatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.2,
		MaxTokens:   1000,
	}
	requestBodyBytes, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("fail to marshal completion request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return "", fmt.Errorf("fail to create completion request: %w", err)
	}
	apiKey := os.Getenv(s.apiKeyEnv)
	if apiKey == "" {
		return "", fmt.Errorf("empty api key from env: %s", s.apiKeyEnv)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fail to do completion request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion request fail: (%d) %s", resp.StatusCode, body)
	}
	if err != nil {
		return "", fmt.Errorf("fail to read completion response body: %w", err)
	}
	var respBody ChatResponse
	if err := json.Unmarshal(body, &respBody); err != nil {
		return "", fmt.Errorf("fail to unmarshal completion response: %w", err)
	}
	if len(respBody.Choices) == 0 {
		return "", fmt.Errorf("empty completion response choices")
	}
	return respBody.Choices[0].Message.Content, nil
}

// parseOutput decodes the {sql, reasoning} object the prompt asks for.
// Models that ignore the instruction and emit bare SQL degrade gracefully to
// a resolution with an empty reasoning trace.
func parseOutput(content string) (string, []string) {
	content = resolver.StripFences(content)

	var out modelOutput
	if err := json.Unmarshal([]byte(content), &out); err == nil && out.SQL != "" {
		return strings.TrimSpace(resolver.StripFences(out.SQL)), out.Reasoning
	}
	return strings.TrimSpace(content), nil
}
