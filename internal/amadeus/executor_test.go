package amadeus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// testUpstream simulates the Amadeus API: the auth endpoint plus v1/v2 bases
// whose behaviour is scripted per attempt.
type testUpstream struct {
	authCalls int32
	apiCalls  int32
	handler   func(attempt int32, w http.ResponseWriter, r *http.Request)
	srv       *httptest.Server
}

func newTestUpstream(t *testing.T, handler func(attempt int32, w http.ResponseWriter, r *http.Request)) *testUpstream {
	u := &testUpstream{handler: handler}
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&u.authCalls, 1)
		fmt.Fprint(w, `{"access_token":"test-token","expires_in":1799}`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("expected bearer token header, got %q", got)
		}
		n := atomic.AddInt32(&u.apiCalls, 1)
		u.handler(n, w, r)
	})
	u.srv = httptest.NewServer(mux)
	t.Cleanup(u.srv.Close)
	return u
}

func (u *testUpstream) executor() *Executor {
	tokens := NewTokenSource("id", "secret", u.srv.URL+"/auth/token", u.srv.Client(), nil, nil)
	strategies := DefaultStrategies(u.srv.URL+"/v1", u.srv.URL+"/v2")
	return NewExecutor(tokens, strategies, u.srv.Client(), nil, nil)
}

func searchCommand() Command {
	return Command{
		Endpoint: "shopping/flight-offers",
		Method:   "GET",
		Parameters: map[string]interface{}{
			"originLocationCode":      "ARN",
			"destinationLocationCode": "LHR",
			"departureDate":           "2025-10-10",
			"adults":                  "1",
		},
		UserIntent: "search_flights",
	}
}

func TestExecuteSuccessOnSecondStrategy(t *testing.T) {
	up := newTestUpstream(t, func(attempt int32, w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v2/") {
			http.Error(w, `{"errors":[{"status":404}]}`, http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"data":[{"id":"1","type":"flight-offer"}]}`)
	})

	env := up.executor().Execute(context.Background(), searchCommand())

	if env.Status != StatusSuccess {
		t.Fatalf("expected success, got %s (%s)", env.Status, env.Err)
	}
	if env.QueryInfo == nil || env.QueryInfo.SuccessfulAttempt != 2 {
		t.Fatalf("expected successful_attempt 2, got %+v", env.QueryInfo)
	}
	if env.QueryInfo.StrategyUsed != "v1 API" {
		t.Fatalf("expected v1 API strategy, got %q", env.QueryInfo.StrategyUsed)
	}
	if n := atomic.LoadInt32(&up.apiCalls); n != 2 {
		t.Fatalf("expected 2 attempts, got %d", n)
	}

	var payload struct {
		Data []map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(env.Response, &payload); err != nil {
		t.Fatalf("amadeus_response not JSON: %v", err)
	}
	if len(payload.Data) != 1 {
		t.Fatalf("expected 1 offer in payload, got %d", len(payload.Data))
	}
}

func TestExecuteAllStrategiesExhausted(t *testing.T) {
	up := newTestUpstream(t, func(attempt int32, w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"status":500}]}`, http.StatusInternalServerError)
	})

	env := up.executor().Execute(context.Background(), searchCommand())

	if env.Status != StatusAPIError {
		t.Fatalf("expected amadeus_api_error, got %s", env.Status)
	}
	if env.AttemptsMade != 3 {
		t.Fatalf("expected attempts_made 3, got %d", env.AttemptsMade)
	}
	if env.FinalStatusCode != http.StatusInternalServerError {
		t.Fatalf("expected final_status_code 500, got %d", env.FinalStatusCode)
	}
	if env.FinalError == "" {
		t.Fatalf("expected final error body")
	}
	if n := atomic.LoadInt32(&up.apiCalls); n != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", n)
	}
}

func TestExecuteDateShiftOnThirdStrategy(t *testing.T) {
	up := newTestUpstream(t, func(attempt int32, w http.ResponseWriter, r *http.Request) {
		if attempt < 3 {
			http.Error(w, `{"errors":[{"status":400}]}`, http.StatusBadRequest)
			return
		}
		if got := r.URL.Query().Get("departureDate"); got != "2025-10-11" {
			t.Errorf("expected shifted departureDate 2025-10-11, got %q", got)
		}
		fmt.Fprint(w, `{"data":[]}`)
	})

	cmd := searchCommand()
	env := up.executor().Execute(context.Background(), cmd)

	if env.Status != StatusSuccess {
		t.Fatalf("expected success on third attempt, got %s", env.Status)
	}
	if env.QueryInfo.SuccessfulAttempt != 3 {
		t.Fatalf("expected successful_attempt 3, got %d", env.QueryInfo.SuccessfulAttempt)
	}
	if env.QueryInfo.StrategyUsed != "v2 API with adjusted date" {
		t.Fatalf("unexpected strategy label %q", env.QueryInfo.StrategyUsed)
	}
	if got := env.QueryInfo.Parameters["departureDate"]; got != "2025-10-11" {
		t.Fatalf("expected echoed parameters to carry the shifted date, got %v", got)
	}
	// The caller's command is never mutated.
	if got := cmd.Parameters["departureDate"]; got != "2025-10-10" {
		t.Fatalf("original parameters mutated: departureDate=%v", got)
	}
}

func TestExecuteFirstAttemptsUseOriginalDate(t *testing.T) {
	var seen []string
	up := newTestUpstream(t, func(attempt int32, w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.URL.Query().Get("departureDate"))
		http.Error(w, `{}`, http.StatusBadRequest)
	})

	up.executor().Execute(context.Background(), searchCommand())

	want := []string{"2025-10-10", "2025-10-10", "2025-10-11"}
	if len(seen) != len(want) {
		t.Fatalf("expected %d attempts, got %d", len(want), len(seen))
	}
	for i, date := range want {
		if seen[i] != date {
			t.Fatalf("attempt %d: expected departureDate %s, got %s", i+1, date, seen[i])
		}
	}
}

func TestExecuteMissingEndpoint(t *testing.T) {
	up := newTestUpstream(t, func(attempt int32, w http.ResponseWriter, r *http.Request) {
		t.Errorf("no API call expected")
	})

	cmd := searchCommand()
	cmd.Endpoint = ""
	env := up.executor().Execute(context.Background(), cmd)

	if env.Status != StatusExecutionError {
		t.Fatalf("expected execution_error, got %s", env.Status)
	}
	if atomic.LoadInt32(&up.authCalls) != 0 || atomic.LoadInt32(&up.apiCalls) != 0 {
		t.Fatalf("expected zero network calls, got auth=%d api=%d", up.authCalls, up.apiCalls)
	}
}

func TestExecuteMissingCredentials(t *testing.T) {
	up := newTestUpstream(t, func(attempt int32, w http.ResponseWriter, r *http.Request) {
		t.Errorf("no API call expected")
	})

	tokens := NewTokenSource("", "", up.srv.URL+"/auth/token", up.srv.Client(), nil, nil)
	exec := NewExecutor(tokens, DefaultStrategies(up.srv.URL+"/v1", up.srv.URL+"/v2"), up.srv.Client(), nil, nil)

	env := exec.Execute(context.Background(), searchCommand())

	if env.Status != StatusCredentialsError {
		t.Fatalf("expected credentials_error, got %s", env.Status)
	}
	if atomic.LoadInt32(&up.authCalls) != 0 {
		t.Fatalf("expected no token exchange, got %d", up.authCalls)
	}
	if env.QueryInfo == nil || env.QueryInfo.Endpoint != "shopping/flight-offers" {
		t.Fatalf("expected echoed query context, got %+v", env.QueryInfo)
	}
}

func TestExecuteAuthenticationError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tokens := NewTokenSource("id", "wrong", srv.URL+"/auth/token", srv.Client(), nil, nil)
	exec := NewExecutor(tokens, DefaultStrategies(srv.URL+"/v1", srv.URL+"/v2"), srv.Client(), nil, nil)

	env := exec.Execute(context.Background(), searchCommand())
	if env.Status != StatusAuthenticationError {
		t.Fatalf("expected authentication_error, got %s", env.Status)
	}
	if !strings.Contains(env.Err, "401") {
		t.Fatalf("expected upstream status in error, got %q", env.Err)
	}
}

func TestExecuteTransportErrorAfterAllAttempts(t *testing.T) {
	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"test-token","expires_in":1799}`)
	}))
	defer authSrv.Close()

	// A server that is already closed produces connection-refused errors.
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	tokens := NewTokenSource("id", "secret", authSrv.URL, authSrv.Client(), nil, nil)
	exec := NewExecutor(tokens, DefaultStrategies(deadURL+"/v1", deadURL+"/v2"), &http.Client{}, nil, nil)

	env := exec.Execute(context.Background(), searchCommand())
	if env.Status != StatusRequestError {
		t.Fatalf("expected request_error, got %s", env.Status)
	}
	if env.AttemptsMade != 3 {
		t.Fatalf("expected attempts_made 3, got %d", env.AttemptsMade)
	}
	if env.Err == "" {
		t.Fatalf("expected transport error detail")
	}
}

func TestExecutePostSendsJSONBody(t *testing.T) {
	up := newTestUpstream(t, func(attempt int32, w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %q", ct)
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("body not JSON: %v", err)
		}
		if _, ok := body["originDestinations"]; !ok {
			t.Errorf("expected nested originDestinations in body, got %v", body)
		}
		fmt.Fprint(w, `{"data":{"flightAvailabilities":[]}}`)
	})

	cmd := Command{
		Endpoint: "v1/shopping/availability/flight-availabilities",
		Method:   "POST",
		Parameters: map[string]interface{}{
			"originDestinations": []interface{}{
				map[string]interface{}{"id": "1", "originLocationCode": "ARN"},
			},
			"sources": []interface{}{"GDS"},
		},
	}
	env := up.executor().Execute(context.Background(), cmd)
	if env.Status != StatusSuccess {
		t.Fatalf("expected success, got %s (%s)", env.Status, env.Err)
	}
	// The version prefix is stripped; the strategy's base is authoritative.
	if env.QueryInfo.Endpoint != "shopping/availability/flight-availabilities" {
		t.Fatalf("expected normalized endpoint, got %q", env.QueryInfo.Endpoint)
	}
}

func TestExecuteExactlyOneOutcomeKind(t *testing.T) {
	up := newTestUpstream(t, func(attempt int32, w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[]}`)
	})

	env := up.executor().Execute(context.Background(), searchCommand())
	if !env.IsSuccess() {
		t.Fatalf("expected success, got %s", env.Status)
	}
	if env.Err != "" || env.Message != "" || env.FinalError != "" || env.FinalStatusCode != 0 {
		t.Fatalf("success envelope carries error fields: %+v", env)
	}

	up2 := newTestUpstream(t, func(attempt int32, w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{}`, http.StatusBadGateway)
	})
	env2 := up2.executor().Execute(context.Background(), searchCommand())
	if env2.IsSuccess() || env2.Response != nil {
		t.Fatalf("error envelope carries a payload: %+v", env2)
	}
}
