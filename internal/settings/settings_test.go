package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"XDG_CONFIG_HOME",
		"QPG_OPENAI_API_KEY", "OPENAI_API_KEY",
		"QPG_OPENAI_BASE_URL", "OPENAI_BASE_URL",
		"QPG_OPENAI_MODEL", "OPENAI_MODEL",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestResolve_FallsBackToStaticDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	got := Resolve(Overrides{})

	require.Equal(t, "", got.APIKey)
	require.Equal(t, defaultBaseURL, got.BaseURL)
	require.Equal(t, defaultModel, got.Model)
}

func TestResolve_OverrideBeatsEverything(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("QPG_OPENAI_MODEL", "env-model")

	got := Resolve(Overrides{Model: "flag-model"})

	require.Equal(t, "flag-model", got.Model)
}

func TestResolve_QpgPrefixedEnvBeatsGenericEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("QPG_OPENAI_API_KEY", "qpg-key")
	t.Setenv("OPENAI_API_KEY", "generic-key")

	got := Resolve(Overrides{})

	require.Equal(t, "qpg-key", got.APIKey)
}

func TestResolve_GenericEnvBeatsConfigFile(t *testing.T) {
	clearEnv(t)
	configDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)
	writeConfig(t, configDir, "openai_api_key: file-key\n")
	t.Setenv("OPENAI_API_KEY", "generic-key")

	got := Resolve(Overrides{})

	require.Equal(t, "generic-key", got.APIKey)
}

func TestResolve_ReadsYAMLConfigFile(t *testing.T) {
	clearEnv(t)
	configDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)
	writeConfig(t, configDir, "openai_api_key: file-key\nopenai_model: file-model\n")

	got := Resolve(Overrides{})

	require.Equal(t, "file-key", got.APIKey)
	require.Equal(t, "file-model", got.Model)
}

func TestResolve_ReadsDotenvShapedConfigFile(t *testing.T) {
	clearEnv(t)
	configDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)
	writeConfig(t, configDir, "# comment\nOPENAI_API_KEY=file-key\nOPENAI_MODEL=\"file-model\"\n")

	got := Resolve(Overrides{})

	require.Equal(t, "file-key", got.APIKey)
	require.Equal(t, "file-model", got.Model)
}

func TestResolve_MissingConfigFileIsNotAnError(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	require.NotPanics(t, func() { Resolve(Overrides{}) })
}

func TestConfigPath_UsesXDGConfigHomeWhenSet(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	require.Equal(t, "/custom/config/qpg/config.yaml", ConfigPath())
}

func writeConfig(t *testing.T, dir, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "qpg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "qpg", "config.yaml"), []byte(contents), 0o600))
}
