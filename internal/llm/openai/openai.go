package openai_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mohammad-safakhou/flightdeck/config"
	"github.com/mohammad-safakhou/flightdeck/internal/amadeus"
	"github.com/mohammad-safakhou/flightdeck/internal/telemetry"
)

// client implements the llm.Provider interface using OpenAI's API
type client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	telemetry   *telemetry.Telemetry

	now func() time.Time
}

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// request represents a request to the OpenAI API
type request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// response represents a response from the OpenAI API
type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewClient creates a new OpenAI client
func NewClient(cfg config.LLMConfig, tel *telemetry.Telemetry) *client {
	return &client{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		telemetry:   tel,
		now:         time.Now,
	}
}

// Interpret converts a natural-language flight query into a structured
// Amadeus command using the endpoint templates prompt.
func (c *client) Interpret(ctx context.Context, query string) (amadeus.Command, error) {
	today := c.now().Format("2006-01-02")
	tomorrow := c.now().AddDate(0, 0, 1).Format("2006-01-02")

	messages := []Message{
		{Role: "system", Content: fmt.Sprintf(interpreterPrompt, today, tomorrow, tomorrow)},
		{Role: "user", Content: query},
	}

	raw, err := c.sendRequest(ctx, messages)
	if err != nil {
		c.telemetry.IncLLM("interpret", "error")
		return amadeus.Command{}, err
	}

	var parsed struct {
		UserIntent     string `json:"user_intent"`
		QueryType      string `json:"query_type"`
		AmadeusCommand struct {
			Endpoint   string                 `json:"endpoint"`
			Method     string                 `json:"method"`
			Parameters map[string]interface{} `json:"parameters"`
		} `json:"amadeus_command"`
	}
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &parsed); err != nil {
		c.telemetry.IncLLM("interpret", "malformed")
		return amadeus.Command{}, fmt.Errorf("failed to parse interpretation: %w", err)
	}

	c.telemetry.IncLLM("interpret", "ok")
	return amadeus.Command{
		Endpoint:   parsed.AmadeusCommand.Endpoint,
		Method:     parsed.AmadeusCommand.Method,
		Parameters: parsed.AmadeusCommand.Parameters,
		UserIntent: parsed.UserIntent,
	}, nil
}

// Explain renders the serialized result envelope as an answer to the
// original query. History lines give the model conversational context.
func (c *client) Explain(ctx context.Context, envelopeJSON, originalQuery string, history []string) (string, error) {
	contextLine := originalQuery
	if contextLine == "" {
		contextLine = "General flight search"
	}

	var historyBlock string
	if len(history) > 0 {
		historyBlock = "\n\nRECENT QUERIES IN THIS CHANNEL:\n" + strings.Join(history, "\n")
	}

	messages := []Message{
		{Role: "system", Content: fmt.Sprintf(explainerPrompt, contextLine) + historyBlock},
		{Role: "user", Content: "Please explain this Amadeus API response:\n\n" + envelopeJSON},
	}

	out, err := c.sendRequest(ctx, messages)
	if err != nil {
		c.telemetry.IncLLM("explain", "error")
		return "", err
	}
	c.telemetry.IncLLM("explain", "ok")
	return strings.TrimSpace(out), nil
}

// sendRequest sends a chat-completions request to the OpenAI API
func (c *client) sendRequest(ctx context.Context, messages []Message) (string, error) {
	requestBody := request{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var openaiResp response
	if err := json.NewDecoder(resp.Body).Decode(&openaiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(openaiResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return openaiResp.Choices[0].Message.Content, nil
}

// stripCodeFences removes markdown code fences the model sometimes wraps
// JSON in.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
