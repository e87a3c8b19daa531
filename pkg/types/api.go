package types

// Result is the outcome of one conversation turn. Immutable once produced.
type Result struct {
	// Unique id for this turn, for log correlation.
	RequestID string `json:"request_id"`
	// Participant the turn belongs to.
	ParticipantID string `json:"participant_id"`
	// Id of the model that served the turn.
	ModelID string `json:"model_id,omitempty"`
	// Normalized reply text. On failure this holds the designated
	// fallback line so UIs can render something without inspecting Err.
	Text string `json:"text"`
	// Wall-clock latency of the model call in milliseconds.
	LatencyMs int64 `json:"latency_ms"`
	// Where the inference ran.
	Location Location `json:"location,omitempty"`
	// True iff the turn succeeded and the history was updated.
	OK bool `json:"ok"`
	// Error message when OK is false.
	Err string `json:"error,omitempty"`
}

// ModelStatus summarizes one loaded model for GET /status.
type ModelStatus struct {
	// example: tinyllama-q4
	ID string `json:"id"`
	// example: text-generation
	Task TaskTag `json:"task"`
	// True while an inference is in flight on this model.
	Busy bool `json:"busy"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// True once registry initialization completed with at least one model.
	Ready bool `json:"ready"`
	// Loaded models and their gate state.
	Models []ModelStatus `json:"models"`
	// Number of participants with a live conversation context.
	Participants int `json:"participants"`
	// Uptime of the process in seconds.
	UptimeSeconds int64 `json:"uptime_seconds"`
	// Server time in unix seconds.
	ServerTimeUnix int64 `json:"server_time_unix"`
}

// ModelsResponse wraps the list returned by GET /models.
type ModelsResponse struct {
	Models []ModelConfig `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// example: encoding failed
	Error string `json:"error"`
	// example: 500
	Code int `json:"code"`
}
