package agillm

import "fmt"

// Provider names a supported LLM vendor.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderCustom    Provider = "custom"
)

// ProviderConfig configures a provider binding, matching the fields
// spec §6 names for the config surface.
type ProviderConfig struct {
	Provider        Provider `yaml:"provider" mapstructure:"provider"`
	Model           string   `yaml:"model" mapstructure:"model"`
	APIKey          string   `yaml:"api_key,omitempty" mapstructure:"api_key"`
	APIKeyEnv       string   `yaml:"api_key_env,omitempty" mapstructure:"api_key_env"`
	BaseURL         string   `yaml:"base_url,omitempty" mapstructure:"base_url"`
	AnthropicVersion string  `yaml:"anthropic_version,omitempty" mapstructure:"anthropic_version"`
}

// ConfigError reports an invalid provider configuration, ported from
// original_source's validate_provider_config.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("agillm: config error (%s): %s", e.Field, e.Message)
}

func validateProviderConfig(cfg *ProviderConfig) error {
	if cfg.APIKey == "" && cfg.APIKeyEnv == "" && cfg.Provider != ProviderCustom {
		return &ConfigError{Field: "api_key", Message: "one of api_key or api_key_env is required"}
	}
	if cfg.Provider == ProviderAnthropic && cfg.AnthropicVersion == "" {
		cfg.AnthropicVersion = "2023-06-01"
	}
	if cfg.Provider == ProviderCustom && cfg.BaseURL == "" {
		return &ConfigError{Field: "base_url", Message: "base_url is required for the custom provider"}
	}
	return nil
}

// DefaultModel returns the provider's default model string when cfg.Model
// is left empty, matching original_source's get_default_model table.
func DefaultModel(p Provider) string {
	switch p {
	case ProviderOpenAI:
		return "gpt-4.1-mini"
	case ProviderAnthropic:
		return "claude-3-5-sonnet-latest"
	case ProviderGemini:
		return "gemini-2.0-flash"
	default:
		return ""
	}
}

// NewProvider dispatches on cfg.Provider to build a bare Port binding
// (no decorators attached — callers compose Truncating/AutoRecovery
// around the result).
func NewProvider(cfg ProviderConfig) (Port, error) {
	if err := validateProviderConfig(&cfg); err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.Provider)
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		return newHTTPPort(cfg, "https://api.openai.com/v1/chat/completions", openAIRequestBody, parseOpenAIResponse), nil
	case ProviderAnthropic:
		return newHTTPPort(cfg, "https://api.anthropic.com/v1/messages", anthropicRequestBody, parseAnthropicResponse), nil
	case ProviderGemini:
		return newHTTPPort(cfg, fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", cfg.Model), openAIRequestBody, parseOpenAIResponse), nil
	case ProviderCustom:
		return newHTTPPort(cfg, cfg.BaseURL+"/v1/chat/completions", openAIRequestBody, parseOpenAIResponse), nil
	default:
		return nil, &ConfigError{Field: "provider", Message: fmt.Sprintf("unknown provider %q", cfg.Provider)}
	}
}
