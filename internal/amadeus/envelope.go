package amadeus

import (
	"encoding/json"
	"fmt"
)

// Status is the outcome kind of an Envelope. Exactly one kind is ever set;
// the constructors below are the only way an Envelope is built.
type Status string

const (
	StatusSuccess             Status = "success"
	StatusCredentialsError    Status = "credentials_error"
	StatusAuthenticationError Status = "authentication_error"
	StatusAPIError            Status = "amadeus_api_error"
	StatusRequestError        Status = "request_error"
	StatusExecutionError      Status = "execution_error"
)

// QueryInfo echoes the query context for diagnostics. For success envelopes
// it additionally records which attempt and strategy won.
type QueryInfo struct {
	Endpoint          string                 `json:"endpoint"`
	Method            string                 `json:"method"`
	Parameters        map[string]interface{} `json:"parameters"`
	UserIntent        string                 `json:"user_intent,omitempty"`
	SuccessfulAttempt int                    `json:"successful_attempt,omitempty"`
	StrategyUsed      string                 `json:"strategy_used,omitempty"`
}

// Envelope is the normalized result of executing a Command. Its JSON shape
// is the wire contract consumed by the explainer stage, so success and every
// failure mode serialize the same way regardless of which stage produced it.
type Envelope struct {
	Status          Status                 `json:"status"`
	Response        json.RawMessage        `json:"amadeus_response,omitempty"`
	Message         string                 `json:"message,omitempty"`
	Err             string                 `json:"error,omitempty"`
	FinalStatusCode int                    `json:"final_status_code,omitempty"`
	FinalError      string                 `json:"final_error,omitempty"`
	AttemptsMade    int                    `json:"attempts_made,omitempty"`
	QueryInfo       *QueryInfo             `json:"query_info,omitempty"`
}

// Success wraps a 200 upstream payload with its attempt metadata.
func Success(payload json.RawMessage, info QueryInfo) Envelope {
	return Envelope{Status: StatusSuccess, Response: payload, QueryInfo: &info}
}

// CredentialsError reports a statically missing client id/secret pair; no
// network call was attempted.
func CredentialsError(info QueryInfo) Envelope {
	return Envelope{
		Status:    StatusCredentialsError,
		Err:       "Amadeus API credentials not available",
		QueryInfo: &info,
	}
}

// AuthenticationError reports a failed token exchange.
func AuthenticationError(err error, info QueryInfo) Envelope {
	return Envelope{Status: StatusAuthenticationError, Err: err.Error(), QueryInfo: &info}
}

// APIError reports a non-200 upstream status on the final attempt.
func APIError(statusCode int, body string, attempts int, info QueryInfo) Envelope {
	return Envelope{
		Status:          StatusAPIError,
		Message:         fmt.Sprintf("Amadeus API returned an error after %d attempts", attempts),
		FinalStatusCode: statusCode,
		FinalError:      body,
		AttemptsMade:    attempts,
		QueryInfo:       &info,
	}
}

// RequestError reports a transport-level failure on the final attempt.
func RequestError(err error, attempts int) Envelope {
	return Envelope{
		Status:       StatusRequestError,
		Message:      fmt.Sprintf("Request failed after %d attempts", attempts),
		Err:          err.Error(),
		AttemptsMade: attempts,
	}
}

// ExecutionError is the catch-all for malformed input and unexpected faults.
func ExecutionError(err error) Envelope {
	return Envelope{Status: StatusExecutionError, Err: err.Error()}
}

// IsSuccess reports whether the envelope carries an upstream payload.
func (e Envelope) IsSuccess() bool { return e.Status == StatusSuccess }

// JSON serializes the envelope for the explainer stage. Marshalling a value
// built by the constructors above cannot fail; the fallback exists for the
// contract that this layer never raises.
func (e Envelope) JSON() string {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"status":"execution_error","error":%q}`, err.Error())
	}
	return string(b)
}
