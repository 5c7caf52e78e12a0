package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Voiceflow VoiceflowConfig
	OpenAI    OpenAIConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

type VoiceflowConfig struct {
	BaseURL string
}

type OpenAIConfig struct {
	// APIKey may be empty at load time; the submit endpoint rejects requests
	// with a 500 until it is configured.
	APIKey string
	Model  string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Voiceflow: VoiceflowConfig{
			BaseURL: "https://api.voiceflow.com",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON config file and environment.
//
// The file lives at $XDG_CONFIG_HOME/asrtune/config.json (falling back to
// ~/.config/asrtune/config.json) and holds a flat object keyed by the dotted
// key names in keys.go. Environment variables (ASRTUNE_*) override file
// values. A missing file is not an error.
func Load() (Config, error) {
	values, err := readConfigFile(configFilePath())
	if err != nil {
		return Config{}, err
	}
	return loadWith(values, os.LookupEnv)
}

func loadWith(fileValues map[string]any, lookupEnv func(string) (string, bool)) (Config, error) {
	cfg := defaults()

	if err := applyFileValues(&cfg, fileValues); err != nil {
		return Config{}, err
	}
	if err := applyEnvOverrides(&cfg, lookupEnv); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func configFilePath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "asrtune", "config.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "asrtune", "config.json")
	}
	return filepath.Join(home, ".config", "asrtune", "config.json")
}

func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "asrtune")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "asrtune-data")
	}
	return filepath.Join(home, ".local", "share", "asrtune")
}

func readConfigFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return values, nil
}
