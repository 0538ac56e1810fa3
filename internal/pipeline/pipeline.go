package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mohammad-safakhou/flightdeck/internal/amadeus"
	"github.com/mohammad-safakhou/flightdeck/internal/history"
	"github.com/mohammad-safakhou/flightdeck/internal/llm"
	"github.com/mohammad-safakhou/flightdeck/internal/store"
	"github.com/mohammad-safakhou/flightdeck/internal/telemetry"
)

// Progress messages posted between stages.
const (
	msgQuerying   = "✈️ Currently having a nice convo with Amadeus... 💬"
	msgFormatting = "📋 Got the Amadeus response, making it sensible for you now... 🧠"
)

const apology = "Sorry, I encountered an error while processing your request. Please try again or contact support."

const historyContextLines = 5

var pipelineTracer trace.Tracer = otel.Tracer("flightdeck/internal/pipeline")

// Query is one inbound chat request.
type Query struct {
	Text      string
	UserID    string
	ChannelID string
}

// Pipeline sequences Interpret -> Execute -> Explain. History and store are
// optional; their failures never fail a run.
type Pipeline struct {
	llm       llm.Provider
	executor  *amadeus.Executor
	history   *history.History
	store     *store.Store
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// New wires the pipeline. history and st may be nil.
func New(provider llm.Provider, executor *amadeus.Executor, hist *history.History, st *store.Store, tel *telemetry.Telemetry, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Pipeline{
		llm:       provider,
		executor:  executor,
		history:   hist,
		store:     st,
		telemetry: tel,
		logger:    logger,
	}
}

// Process runs the full pipeline for one query and always returns some text
// for the chat surface. progress, when non-nil, receives the two checkpoint
// messages before the final answer.
func (p *Pipeline) Process(ctx context.Context, q Query, progress func(string)) (answer string) {
	started := time.Now()
	runID := uuid.NewString()
	status := "panic"

	ctx, span := pipelineTracer.Start(ctx, "pipeline.process",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("user.id", q.UserID),
			attribute.String("channel.id", q.ChannelID),
		))

	// Outermost guard: nothing below should panic, but the chat surface must
	// get a response even if something does.
	defer func() {
		if r := recover(); r != nil {
			p.logger.Printf("[%s] pipeline panic: %v", runID, r)
			span.SetStatus(codes.Error, fmt.Sprint(r))
			answer = apology
		}
		p.telemetry.ObservePipeline(status, time.Since(started))
		span.SetAttributes(attribute.String("pipeline.status", status))
		span.End()
	}()

	p.logger.Printf("[%s] processing query from %s: %q", runID, q.UserID, q.Text)

	report := func(msg string) {
		if progress != nil {
			progress(msg)
		}
	}

	report(msgQuerying)

	cmd, err := p.llm.Interpret(ctx, q.Text)
	if err != nil {
		p.logger.Printf("[%s] interpretation failed: %v", runID, err)
		status = "interpretation_error"
		p.record(ctx, runID, q, status, started, amadeus.Envelope{})
		return fmt.Sprintf("Sorry, I could not understand that flight query: %v\n\nPlease try rephrasing it.", err)
	}
	p.logger.Printf("[%s] interpreted: %s %s (intent %s)", runID, cmd.Method, cmd.Endpoint, cmd.UserIntent)

	env := p.executor.Execute(ctx, cmd)
	status = string(env.Status)

	report(msgFormatting)

	envelopeJSON := env.JSON()
	answer, err = p.llm.Explain(ctx, envelopeJSON, q.Text, p.contextLines(ctx, q.ChannelID))
	if err != nil {
		// Degrade to echoing the raw envelope rather than losing the data.
		p.logger.Printf("[%s] explanation failed: %v", runID, err)
		answer = "I received flight data but had trouble formatting it clearly. Here's what I found:\n\n" + envelopeJSON
	}

	p.record(ctx, runID, q, status, started, env)
	p.logger.Printf("[%s] completed with status %s in %s", runID, status, time.Since(started).Round(time.Millisecond))
	return answer
}

// contextLines fetches recent channel history for the explainer prompt.
func (p *Pipeline) contextLines(ctx context.Context, channelID string) []string {
	if p.history == nil || channelID == "" {
		return nil
	}
	entries, err := p.history.Recent(ctx, channelID, historyContextLines)
	if err != nil {
		p.logger.Printf("history lookup failed: %v", err)
		return nil
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Line())
	}
	return lines
}

// record persists the run to the channel history and the query log,
// best-effort.
func (p *Pipeline) record(ctx context.Context, runID string, q Query, status string, started time.Time, env amadeus.Envelope) {
	if p.history != nil && q.ChannelID != "" {
		err := p.history.Append(ctx, q.ChannelID, history.Entry{
			Query:  q.Text,
			Status: status,
			At:     time.Now().UTC(),
		})
		if err != nil {
			p.logger.Printf("[%s] history append failed: %v", runID, err)
		}
	}
	if p.store == nil {
		return
	}
	rec := store.QueryRecord{
		ID:        runID,
		UserID:    q.UserID,
		ChannelID: q.ChannelID,
		Query:     q.Text,
		Status:    status,
		Latency:   time.Since(started),
	}
	if env.QueryInfo != nil {
		rec.StrategyUsed = env.QueryInfo.StrategyUsed
		if env.QueryInfo.SuccessfulAttempt > 0 {
			rec.AttemptsMade = env.QueryInfo.SuccessfulAttempt
		}
	}
	if env.AttemptsMade > 0 {
		rec.AttemptsMade = env.AttemptsMade
	}
	if err := p.store.RecordQuery(ctx, rec); err != nil {
		p.logger.Printf("[%s] query log insert failed: %v", runID, err)
	}
}
