package agiconfig

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/agiloop/agillm"
)

func TestLoadExpandsEnvVarsAndAppliesDefaults(t *testing.T) {
	require.NoError(t, os.Setenv("TEST_AGILOOP_KEY", "secret-123"))
	defer os.Unsetenv("TEST_AGILOOP_KEY")

	raw := []byte(`
llm:
  provider: openai
  api_key: ${TEST_AGILOOP_KEY}
memory:
  policy: sliding_window
authorization: interactive
`)

	cfg, err := Load(raw)
	require.NoError(t, err)
	require.Equal(t, "secret-123", cfg.LLM.APIKey)
	require.Equal(t, agillm.ProviderOpenAI, cfg.LLM.Provider)
	require.Equal(t, 20, cfg.Memory.SlidingWindowSize)
	require.Equal(t, 25, cfg.Loop.MaxSteps)
	require.Equal(t, AuthzInteractive, cfg.Authorization)
}

func TestLoadUsesInlineDefaultForUnsetEnvVar(t *testing.T) {
	raw := []byte(`
llm:
  provider: openai
  api_key: ${DEFINITELY_UNSET_AGILOOP_VAR:-fallback}
`)
	cfg, err := Load(raw)
	require.NoError(t, err)
	require.Equal(t, "fallback", cfg.LLM.APIKey)
}

func TestLoadRejectsUnknownMemoryPolicy(t *testing.T) {
	raw := []byte(`
llm:
  provider: openai
  api_key: x
memory:
  policy: not_a_real_policy
`)
	_, err := Load(raw)
	require.Error(t, err)
}

func TestLoadRequiresDSNWhenCheckpointEnabled(t *testing.T) {
	raw := []byte(`
llm:
  provider: openai
  api_key: x
checkpoint:
  enabled: true
`)
	_, err := Load(raw)
	require.Error(t, err)
}
