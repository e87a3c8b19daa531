package types

// TaskTag classifies what a loaded model does. Requests are routed to a
// model by tag, not by id, so callers do not need to know which file backs
// a given capability.
type TaskTag string

const (
	TaskTextGeneration TaskTag = "text-generation"
	TaskTextToSpeech   TaskTag = "text-to-speech"
	TaskUnknown        TaskTag = "unknown"
)

// ModelConfig describes one model to load at registry initialization.
type ModelConfig struct {
	// Stable identifier for the model.
	// example: tinyllama-q4
	ID string `json:"id" yaml:"id" toml:"id"`
	// Task tag used for routing. Empty defaults to "unknown".
	// example: text-generation
	Task TaskTag `json:"task,omitempty" yaml:"task" toml:"task"`
	// Absolute path to the model file on disk.
	// example: /home/user/models/TinyLlama.Q4_K_M.gguf
	Path string `json:"path" yaml:"path" toml:"path"`
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry in a participant's conversation history.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Identity is the character sheet of a conversational participant. It is
// folded into the system prompt exactly once, when the participant's
// context is first created.
type Identity struct {
	Name      string `json:"name" yaml:"name" toml:"name"`
	Role      string `json:"role,omitempty" yaml:"role" toml:"role"`
	Persona   string `json:"persona,omitempty" yaml:"persona" toml:"persona"`
	Backstory string `json:"backstory,omitempty" yaml:"backstory" toml:"backstory"`
}

// World carries the shared setting every participant speaks from.
type World struct {
	Setting    string `json:"setting,omitempty" yaml:"setting" toml:"setting"`
	Lore       string `json:"lore,omitempty" yaml:"lore" toml:"lore"`
	Boundaries string `json:"boundaries,omitempty" yaml:"boundaries" toml:"boundaries"`
}

// Location reports where an inference physically ran.
type Location string

const (
	LocationDevice Location = "device"
	LocationEdge   Location = "edge"
	LocationCloud  Location = "cloud"
)
