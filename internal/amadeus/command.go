package amadeus

// Command is a structured Amadeus API request produced by the interpreter.
// The executor never mutates it; every attempt works on a fresh copy of the
// parameter set.
type Command struct {
	Endpoint   string                 `json:"endpoint"`
	Method     string                 `json:"method"`
	Parameters map[string]interface{} `json:"parameters"`

	// UserIntent is interpreter metadata echoed back in the envelope for
	// diagnostics; it does not influence dispatch.
	UserIntent string `json:"user_intent,omitempty"`
}
