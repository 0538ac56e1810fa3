package amadeus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mohammad-safakhou/flightdeck/internal/telemetry"
)

// Executor resolves a structured Command against the Amadeus API using the
// ordered strategy table. Execute never returns an error and never panics
// across its boundary; every failure mode is an envelope variant.
type Executor struct {
	tokens     *TokenSource
	strategies []Strategy
	httpClient *http.Client
	logger     *log.Logger
	telemetry  *telemetry.Telemetry
}

// NewExecutor wires the executor. The strategy table is fixed per instance.
func NewExecutor(tokens *TokenSource, strategies []Strategy, client *http.Client, logger *log.Logger, tel *telemetry.Telemetry) *Executor {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Executor{
		tokens:     tokens,
		strategies: strategies,
		httpClient: client,
		logger:     logger,
		telemetry:  tel,
	}
}

// Execute runs the command through the strategy table and returns the
// normalized envelope. The deferred recover is the catch-all guaranteeing the
// "never raises" contract.
func (e *Executor) Execute(ctx context.Context, cmd Command) (env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("execution panic: %v", r)
			env = ExecutionError(fmt.Errorf("%v", r))
		}
	}()

	if strings.TrimSpace(cmd.Endpoint) == "" {
		return ExecutionError(fmt.Errorf("missing endpoint in query"))
	}

	method := strings.ToUpper(strings.TrimSpace(cmd.Method))
	if method == "" {
		method = http.MethodGet
	}

	baseInfo := QueryInfo{
		Endpoint:   cmd.Endpoint,
		Method:     method,
		Parameters: cmd.Parameters,
		UserIntent: cmd.UserIntent,
	}

	// Static precondition: no credential pair means no exchange is even
	// attempted.
	if e.tokens == nil || !e.tokens.Configured() {
		e.logger.Printf("no Amadeus credentials configured")
		return CredentialsError(baseInfo)
	}

	token, err := e.tokens.Token(ctx)
	if err != nil {
		e.logger.Printf("authentication failed: %v", err)
		return AuthenticationError(err, baseInfo)
	}

	attempts := len(e.strategies)
	path := normalizeEndpoint(cmd.Endpoint)

	for i, strat := range e.strategies {
		// Every attempt transforms fresh from the original parameters; prior
		// attempts' mutations never accumulate.
		params := cloneParams(cmd.Parameters)
		if strat.Transform != nil {
			strat.Transform(params)
		}

		fullURL := strat.BaseURL + "/" + path
		e.logger.Printf("attempt %d/%d: %s %s (%s)", i+1, attempts, method, fullURL, strat.Label)

		statusCode, body, reqErr := e.dispatch(ctx, method, fullURL, token, params)
		last := i == attempts-1

		if reqErr != nil {
			e.telemetry.IncAttempt(strat.Label, "transport_error")
			e.logger.Printf("attempt %d failed: %v", i+1, reqErr)
			if last {
				return RequestError(reqErr, attempts)
			}
			continue
		}

		if statusCode == http.StatusOK {
			e.telemetry.IncAttempt(strat.Label, "success")
			if !json.Valid(body) {
				return ExecutionError(fmt.Errorf("upstream returned 200 with a non-JSON body"))
			}
			e.logger.Printf("attempt %d succeeded", i+1)
			return Success(json.RawMessage(body), QueryInfo{
				Endpoint:          path,
				Method:            method,
				Parameters:        params,
				UserIntent:        cmd.UserIntent,
				SuccessfulAttempt: i + 1,
				StrategyUsed:      strat.Label,
			})
		}

		e.telemetry.IncAttempt(strat.Label, "http_error")
		e.logger.Printf("attempt %d failed: status %d", i+1, statusCode)
		if last {
			return APIError(statusCode, string(body), attempts, QueryInfo{
				Endpoint:   path,
				Method:     method,
				Parameters: params,
				UserIntent: cmd.UserIntent,
			})
		}
	}

	// Unreachable with a non-empty strategy table.
	return ExecutionError(fmt.Errorf("no dispatch strategies configured"))
}

// dispatch performs one HTTP round-trip: GET carries the parameters in the
// query string, POST as a JSON body.
func (e *Executor) dispatch(ctx context.Context, method, fullURL, token string, params map[string]interface{}) (int, []byte, error) {
	var req *http.Request
	var err error

	if method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return 0, nil, err
		}
		q := url.Values{}
		for k, v := range params {
			q.Set(k, paramString(v))
		}
		req.URL.RawQuery = q.Encode()
	} else {
		payload, merr := json.Marshal(params)
		if merr != nil {
			return 0, nil, merr
		}
		req, err = http.NewRequestWithContext(ctx, method, fullURL, bytes.NewReader(payload))
		if err != nil {
			return 0, nil, err
		}
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

// paramString renders a query parameter value. JSON-decoded numbers arrive
// as float64; integral ones must not print a trailing ".0"-style mantissa.
func paramString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(x)
	}
}

// cloneParams deep-copies the parameter map so transforms never touch the
// caller's command. POST bodies nest maps and slices, hence the round-trip.
func cloneParams(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	if len(in) == 0 {
		return out
	}
	if b, err := json.Marshal(in); err == nil {
		var copied map[string]interface{}
		if json.Unmarshal(b, &copied) == nil {
			return copied
		}
	}
	for k, v := range in {
		out[k] = v
	}
	return out
}
