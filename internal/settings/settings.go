// Package settings resolves OpenAI-like configuration (API key, base URL,
// model) through a layered precedence: explicit override, qpg-prefixed env
// var, generic env var, config file, static default.
package settings

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// OpenAISettings is the resolved set of chat-completion connection settings.
type OpenAISettings struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Overrides are explicit, highest-precedence values, typically parsed from
// CLI flags. An empty string is treated as unset at every layer.
type Overrides struct {
	APIKey  string
	BaseURL string
	Model   string
}

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-5-nano"
)

// Resolve applies the full precedence chain for every field.
func Resolve(overrides Overrides) OpenAISettings {
	fileValues := loadConfigFile()

	return OpenAISettings{
		APIKey: firstNonEmpty(
			overrides.APIKey,
			os.Getenv("QPG_OPENAI_API_KEY"),
			os.Getenv("OPENAI_API_KEY"),
			fileValues["openai_api_key"],
			"",
		),
		BaseURL: firstNonEmpty(
			overrides.BaseURL,
			os.Getenv("QPG_OPENAI_BASE_URL"),
			os.Getenv("OPENAI_BASE_URL"),
			fileValues["openai_base_url"],
			defaultBaseURL,
		),
		Model: firstNonEmpty(
			overrides.Model,
			os.Getenv("QPG_OPENAI_MODEL"),
			os.Getenv("OPENAI_MODEL"),
			fileValues["openai_model"],
			defaultModel,
		),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// ConfigPath returns $XDG_CONFIG_HOME/qpg/config.yaml, falling back to
// ~/.config/qpg/config.yaml.
func ConfigPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "qpg", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "qpg", "config.yaml")
}

var dotenvLineRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*=`)

// loadConfigFile reads the settings file, detecting YAML vs dotenv shape
// heuristically: dotenv when the first non-comment line matches K=V without
// a leading "K:".
func loadConfigFile() map[string]string {
	path := ConfigPath()
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	if looksLikeDotenv(data) {
		return parseDotenv(data)
	}
	return parseYAML(path)
}

func looksLikeDotenv(data []byte) bool {
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return dotenvLineRe.MatchString(line)
	}
	return false
}

func parseDotenv(data []byte) map[string]string {
	out := map[string]string{}
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:idx]))
		val := strings.Trim(strings.TrimSpace(line[idx+1:]), `"'`)
		out[key] = val
	}
	return out
}

func parseYAML(path string) map[string]string {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil
	}
	out := map[string]string{}
	for _, key := range []string{"openai_api_key", "openai_base_url", "openai_model"} {
		if val := v.GetString(key); val != "" {
			out[key] = val
		}
	}
	return out
}

// CacheDir returns $XDG_CACHE_HOME/qpg, falling back to ~/.cache/qpg.
func CacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "qpg")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cache", "qpg")
}

// StateDir returns $XDG_STATE_HOME/qpg, falling back to ~/.local/state/qpg.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "qpg")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "qpg")
}
