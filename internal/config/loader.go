package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"dialogd/internal/engine"
	"dialogd/pkg/types"
)

// Participant pairs a participant name with its character sheet.
type Participant struct {
	Name      string `json:"name" yaml:"name" toml:"name"`
	Role      string `json:"role" yaml:"role" toml:"role"`
	Persona   string `json:"persona" yaml:"persona" toml:"persona"`
	Backstory string `json:"backstory" yaml:"backstory" toml:"backstory"`
}

// Identity converts the config entry to the domain type.
func (p Participant) Identity() types.Identity {
	return types.Identity{Name: p.Name, Role: p.Role, Persona: p.Persona, Backstory: p.Backstory}
}

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by defaults in cmd.
type Config struct {
	// Status/metrics listen address for `dialogd serve`.
	Addr string `json:"addr" yaml:"addr" toml:"addr"`
	// Directory scanned for *.gguf files; each becomes a text-generation model.
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	// Explicit model entries, in routing priority order.
	Models []types.ModelConfig `json:"models" yaml:"models" toml:"models"`
	// Participant answering `dialogd chat` when --participant is omitted.
	DefaultParticipant string `json:"default_participant" yaml:"default_participant" toml:"default_participant"`
	// Character sheets selectable by name.
	Participants []Participant `json:"participants" yaml:"participants" toml:"participants"`
	// Shared world knowledge folded into every system prompt.
	World types.World `json:"world" yaml:"world" toml:"world"`
	// Turns kept per participant before FIFO eviction.
	MaxHistory int `json:"max_history" yaml:"max_history" toml:"max_history"`
	// Prompt composition strategy: "flatten" (default) or "native".
	Composer string `json:"composer" yaml:"composer" toml:"composer"`
	// Generation parameters.
	CtxSize       int     `json:"ctx_size" yaml:"ctx_size" toml:"ctx_size"`
	Threads       int     `json:"threads" yaml:"threads" toml:"threads"`
	MaxTokens     int     `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	Temperature   float32 `json:"temperature" yaml:"temperature" toml:"temperature"`
	TopP          float32 `json:"top_p" yaml:"top_p" toml:"top_p"`
	TopK          int     `json:"top_k" yaml:"top_k" toml:"top_k"`
	Seed          int     `json:"seed" yaml:"seed" toml:"seed"`
	RepeatPenalty float32 `json:"repeat_penalty" yaml:"repeat_penalty" toml:"repeat_penalty"`
	// Log level: debug|info|warn|error.
	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// Params maps the generation knobs to the engine's parameter struct.
func (c Config) Params() engine.Params {
	return engine.Params{
		CtxSize:       c.CtxSize,
		Threads:       c.Threads,
		MaxTokens:     c.MaxTokens,
		Temperature:   c.Temperature,
		TopP:          c.TopP,
		TopK:          c.TopK,
		Seed:          c.Seed,
		RepeatPenalty: c.RepeatPenalty,
	}
}

// FindParticipant looks a character sheet up by name (case-insensitive).
func (c Config) FindParticipant(name string) (Participant, bool) {
	for _, p := range c.Participants {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Participant{}, false
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
