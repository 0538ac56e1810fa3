package amadeus

import "testing"

func TestNormalizeEndpoint(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"shopping/flight-offers", "shopping/flight-offers"},
		{"v1/shopping/flight-offers", "shopping/flight-offers"},
		{"v2/shopping/flight-offers", "shopping/flight-offers"},
		{"/v2/shopping/flight-offers", "shopping/flight-offers"},
		{" v1/reference-data/locations ", "reference-data/locations"},
	}
	for _, c := range cases {
		if got := normalizeEndpoint(c.in); got != c.want {
			t.Errorf("normalizeEndpoint(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestShiftDepartureDate(t *testing.T) {
	params := map[string]interface{}{"departureDate": "2025-12-31"}
	shiftDepartureDate(params)
	if got := params["departureDate"]; got != "2026-01-01" {
		t.Fatalf("expected date rolled over the year boundary, got %v", got)
	}

	params = map[string]interface{}{"departureDate": "next friday"}
	shiftDepartureDate(params)
	if got := params["departureDate"]; got != "next friday" {
		t.Fatalf("unparseable dates must be left alone, got %v", got)
	}

	params = map[string]interface{}{"adults": "1"}
	shiftDepartureDate(params)
	if _, ok := params["departureDate"]; ok {
		t.Fatalf("transform must not invent a departureDate")
	}
}

func TestDefaultStrategiesOrder(t *testing.T) {
	s := DefaultStrategies("https://host/v1", "https://host/v2")
	if len(s) != 3 {
		t.Fatalf("expected exactly 3 strategies, got %d", len(s))
	}
	if s[0].BaseURL != "https://host/v2" || s[1].BaseURL != "https://host/v1" || s[2].BaseURL != "https://host/v2" {
		t.Fatalf("unexpected base URL order: %q %q %q", s[0].BaseURL, s[1].BaseURL, s[2].BaseURL)
	}
	if s[0].Transform != nil || s[1].Transform != nil || s[2].Transform == nil {
		t.Fatalf("only the third strategy carries a parameter transform")
	}
}
