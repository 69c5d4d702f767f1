// Package agiconfig loads the YAML configuration surface that binds an
// agent's LLM provider, memory policy, tool registry, and authorization
// mode, grounded on pkg/config/loader.go — minus its fsnotify-backed
// hot-reload watcher, which nothing in this spec's operations exercises
// (see DESIGN.md's dropped-dependency ledger).
package agiconfig

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/kadirpekel/agiloop/agillm"
)

// MemoryPolicy names one of the four conversation memory strategies.
type MemoryPolicy string

const (
	MemorySlidingWindow     MemoryPolicy = "sliding_window"
	MemoryProgressiveSummary MemoryPolicy = "progressive_summary"
	MemorySummaryBuffer     MemoryPolicy = "summary_buffer"
	MemoryAgentHistory      MemoryPolicy = "agent_history"
)

// AuthorizationMode names one of the three guardrail modes.
type AuthorizationMode string

const (
	AuthzNone        AuthorizationMode = "none"
	AuthzAlwaysDeny  AuthorizationMode = "always_deny"
	AuthzInteractive AuthorizationMode = "interactive"
)

// MemoryConfig configures whichever policy Policy names.
type MemoryConfig struct {
	Policy               MemoryPolicy `yaml:"policy" mapstructure:"policy"`
	SlidingWindowSize    int          `yaml:"sliding_window_size,omitempty" mapstructure:"sliding_window_size"`
	SummaryTokenBudget   int          `yaml:"summary_token_budget,omitempty" mapstructure:"summary_token_budget"`
}

// LoopConfig bounds the reasoning loop's scheduler.
type LoopConfig struct {
	MaxSteps            int `yaml:"max_steps" mapstructure:"max_steps"`
	LoopDetectionWindow  int `yaml:"loop_detection_window" mapstructure:"loop_detection_window"`
	TruncationBudget     int `yaml:"truncation_budget" mapstructure:"truncation_budget"`
	AutoRecoveryAttempts int `yaml:"auto_recovery_attempts" mapstructure:"auto_recovery_attempts"`
}

// CheckpointConfig configures the optional SQL-backed persistence
// layer; Enabled=false keeps the agent-history policy purely in-memory.
type CheckpointConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Dialect string `yaml:"dialect,omitempty" mapstructure:"dialect"`
	DSN     string `yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// Config is the top-level configuration surface for one agent.
type Config struct {
	LLM          agillm.ProviderConfig `yaml:"llm" mapstructure:"llm"`
	Memory       MemoryConfig          `yaml:"memory" mapstructure:"memory"`
	Loop         LoopConfig            `yaml:"loop" mapstructure:"loop"`
	Authorization AuthorizationMode    `yaml:"authorization" mapstructure:"authorization"`
	Checkpoint   CheckpointConfig      `yaml:"checkpoint" mapstructure:"checkpoint"`
}

func (c *Config) setDefaults() {
	if c.Memory.Policy == "" {
		c.Memory.Policy = MemorySlidingWindow
	}
	if c.Memory.SlidingWindowSize == 0 {
		c.Memory.SlidingWindowSize = 20
	}
	if c.Memory.SummaryTokenBudget == 0 {
		c.Memory.SummaryTokenBudget = 2000
	}
	if c.Loop.MaxSteps == 0 {
		c.Loop.MaxSteps = 25
	}
	if c.Loop.LoopDetectionWindow == 0 {
		c.Loop.LoopDetectionWindow = 3
	}
	if c.Loop.TruncationBudget == 0 {
		c.Loop.TruncationBudget = 8000
	}
	if c.Loop.AutoRecoveryAttempts == 0 {
		c.Loop.AutoRecoveryAttempts = 3
	}
	if c.Authorization == "" {
		c.Authorization = AuthzNone
	}
	if c.Checkpoint.Dialect == "" {
		c.Checkpoint.Dialect = "sqlite3"
	}
}

// Validate enforces that a parsed Config is internally consistent.
func (c *Config) Validate() error {
	switch c.Memory.Policy {
	case MemorySlidingWindow, MemoryProgressiveSummary, MemorySummaryBuffer, MemoryAgentHistory:
	default:
		return fmt.Errorf("agiconfig: memory.policy %q is not a recognized policy", c.Memory.Policy)
	}
	switch c.Authorization {
	case AuthzNone, AuthzAlwaysDeny, AuthzInteractive:
	default:
		return fmt.Errorf("agiconfig: authorization %q is not a recognized mode", c.Authorization)
	}
	if c.Checkpoint.Enabled && c.Checkpoint.DSN == "" {
		return fmt.Errorf("agiconfig: checkpoint.dsn is required when checkpoint.enabled is true")
	}
	return nil
}

// Load reads YAML from raw, expands ${VAR}/${VAR:-default}/$VAR
// references against the process environment, decodes it into a
// Config, applies defaults, and validates it.
func Load(raw []byte) (*Config, error) {
	var rawMap map[string]any
	if err := yaml.Unmarshal(raw, &rawMap); err != nil {
		return nil, fmt.Errorf("agiconfig: parse yaml: %w", err)
	}

	expanded := expandEnvVars(rawMap)

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("agiconfig: build decoder: %w", err)
	}
	if err := decoder.Decode(expanded); err != nil {
		return nil, fmt.Errorf("agiconfig: decode: %w", err)
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads path and calls Load on its contents.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("agiconfig: read %s: %w", path, err)
	}
	return Load(data)
}

func expandEnvVars(input map[string]any) map[string]any {
	out := make(map[string]any, len(input))
	for k, v := range input {
		out[k] = expandValue(v)
	}
	return out
}

func expandValue(v any) any {
	switch val := v.(type) {
	case string:
		return expandEnvString(val)
	case map[string]any:
		return expandEnvVars(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = expandValue(item)
		}
		return out
	default:
		return v
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

func expandEnvString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if strings.HasPrefix(match, "${") {
			inner := match[2 : len(match)-1]
			if idx := strings.Index(inner, ":-"); idx != -1 {
				varName := inner[:idx]
				defaultVal := inner[idx+2:]
				if val := os.Getenv(varName); val != "" {
					return val
				}
				return defaultVal
			}
			return os.Getenv(inner)
		}
		return os.Getenv(match[1:])
	})
}
