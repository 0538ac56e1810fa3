package amadeus

import (
	"strings"
	"time"
)

// Strategy is one fallback hypothesis for dispatching a Command: a target
// base URL and an optional transform applied to a fresh copy of the
// parameters. The table is static; attempt N uses entry N.
type Strategy struct {
	BaseURL   string
	Label     string
	Transform func(params map[string]interface{})
}

// DefaultStrategies is the fixed dispatch order: v2 first, v1 second, then
// v2 again with the departure date shifted one day forward. The date shift
// routes around "date too near / no availability" rejections that some
// endpoints report as generic errors; it is a heuristic, not a fix.
func DefaultStrategies(baseURLV1, baseURLV2 string) []Strategy {
	return []Strategy{
		{BaseURL: baseURLV2, Label: "v2 API"},
		{BaseURL: baseURLV1, Label: "v1 API"},
		{BaseURL: baseURLV2, Label: "v2 API with adjusted date", Transform: shiftDepartureDate},
	}
}

// normalizeEndpoint strips literal version prefixes from the command's
// endpoint path so the strategy's base URL stays authoritative.
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.ReplaceAll(endpoint, "v1/", "")
	endpoint = strings.ReplaceAll(endpoint, "v2/", "")
	return strings.TrimPrefix(strings.TrimSpace(endpoint), "/")
}

// shiftDepartureDate moves a top-level departureDate one day forward.
// Unparseable or absent values are left alone.
func shiftDepartureDate(params map[string]interface{}) {
	raw, ok := params["departureDate"].(string)
	if !ok {
		return
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return
	}
	params["departureDate"] = d.AddDate(0, 0, 1).Format("2006-01-02")
}
