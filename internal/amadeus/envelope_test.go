package amadeus

import (
	"encoding/json"
	"testing"
)

func TestEnvelopeWireShape(t *testing.T) {
	env := Success(json.RawMessage(`{"data":[]}`), QueryInfo{
		Endpoint:          "shopping/flight-offers",
		Method:            "GET",
		Parameters:        map[string]interface{}{"adults": "1"},
		UserIntent:        "search_flights",
		SuccessfulAttempt: 2,
		StrategyUsed:      "v1 API",
	})

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(env.JSON()), &decoded); err != nil {
		t.Fatalf("envelope JSON: %v", err)
	}
	if decoded["status"] != "success" {
		t.Fatalf("expected status success, got %v", decoded["status"])
	}
	if _, ok := decoded["amadeus_response"]; !ok {
		t.Fatalf("expected amadeus_response key")
	}
	info, ok := decoded["query_info"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected query_info object, got %T", decoded["query_info"])
	}
	if info["successful_attempt"] != float64(2) || info["strategy_used"] != "v1 API" {
		t.Fatalf("unexpected query_info: %v", info)
	}

	apiErr := APIError(404, `{"errors":[]}`, 3, QueryInfo{Endpoint: "x", Method: "GET"})
	decoded = map[string]interface{}{}
	if err := json.Unmarshal([]byte(apiErr.JSON()), &decoded); err != nil {
		t.Fatalf("api error JSON: %v", err)
	}
	if decoded["status"] != "amadeus_api_error" {
		t.Fatalf("expected amadeus_api_error, got %v", decoded["status"])
	}
	if decoded["attempts_made"] != float64(3) || decoded["final_status_code"] != float64(404) {
		t.Fatalf("unexpected error envelope: %v", decoded)
	}
	if _, ok := decoded["amadeus_response"]; ok {
		t.Fatalf("error envelope must not carry a payload")
	}
}
