package domain

// RequestEntry tracks one in-flight or terminal prompt request inside a
// session's request table. Entries are created as processing, mutated exactly
// once to a terminal state by the orchestrator, and evicted on the first poll
// that observes a terminal state.
type RequestEntry struct {
	Status RequestStatus `json:"status"`
	Kind   ErrorKind     `json:"kind,omitempty"`
	Data   interface{}   `json:"data"`
}

// Result is the terminal payload of a successful orchestration.
type Result struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	AudioURL string `json:"audioUrl,omitempty"`
}

// Turn is one entry of a session's in-memory conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
