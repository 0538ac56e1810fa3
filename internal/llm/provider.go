package llm

import (
	"context"
	"errors"

	"github.com/mohammad-safakhou/flightdeck/config"
	"github.com/mohammad-safakhou/flightdeck/internal/amadeus"
	openai_provider "github.com/mohammad-safakhou/flightdeck/internal/llm/openai"
	"github.com/mohammad-safakhou/flightdeck/internal/telemetry"
)

// Provider is the language-model boundary of the pipeline: one pass turns
// free text into a structured Amadeus command, the other turns the result
// envelope back into plain language.
type Provider interface {
	// Interpret converts a natural-language flight query into a structured
	// Amadeus command (endpoint, method, parameters, intent).
	Interpret(ctx context.Context, query string) (amadeus.Command, error)

	// Explain renders the serialized result envelope as a reader-friendly
	// answer to the original query. It must cope with every envelope kind,
	// including error and partial payloads, without failing the pipeline.
	Explain(ctx context.Context, envelopeJSON, originalQuery string, history []string) (string, error)
}

// NewProvider builds the configured LLM client.
func NewProvider(cfg config.LLMConfig, tel *telemetry.Telemetry) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm.api_key not configured")
	}
	return openai_provider.NewClient(cfg, tel), nil
}
