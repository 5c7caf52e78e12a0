package config

import (
	"fmt"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key   string
	typ   keyType
	env   string
	apply func(cfg *Config, v any)
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "ASRTUNE_SERVER_PORT",
		apply: func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
	},
	{
		key: "storage.data_dir", typ: kString, env: "ASRTUNE_STORAGE_DATA_DIR",
		apply: func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
	},
	{
		key: "voiceflow.base_url", typ: kString, env: "ASRTUNE_VOICEFLOW_BASE_URL",
		apply: func(cfg *Config, v any) { cfg.Voiceflow.BaseURL = v.(string) },
	},
	{
		key: "openai.api_key", typ: kString, env: "ASRTUNE_OPENAI_API_KEY",
		apply: func(cfg *Config, v any) { cfg.OpenAI.APIKey = v.(string) },
	},
	{
		key: "openai.model", typ: kString, env: "ASRTUNE_OPENAI_MODEL",
		apply: func(cfg *Config, v any) { cfg.OpenAI.Model = v.(string) },
	},
	{
		key: "log.level", typ: kString, env: "ASRTUNE_LOG_LEVEL",
		apply: func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
	},
}

func applyFileValues(cfg *Config, values map[string]any) error {
	if values == nil {
		return nil
	}
	for _, spec := range specs {
		raw, ok := values[spec.key]
		if !ok {
			continue
		}
		switch spec.typ {
		case kString:
			s, ok := raw.(string)
			if !ok {
				return fmt.Errorf("config key %q: expected string, got %T", spec.key, raw)
			}
			spec.apply(cfg, s)
		case kInt:
			// encoding/json decodes numbers as float64.
			f, ok := raw.(float64)
			if !ok {
				return fmt.Errorf("config key %q: expected number, got %T", spec.key, raw)
			}
			spec.apply(cfg, int(f))
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config, lookupEnv func(string) (string, bool)) error {
	for _, spec := range specs {
		raw, ok := lookupEnv(spec.env)
		if !ok || raw == "" {
			continue
		}
		switch spec.typ {
		case kString:
			spec.apply(cfg, raw)
		case kInt:
			n, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("environment variable %s: %w", spec.env, err)
			}
			spec.apply(cfg, n)
		}
	}
	return nil
}
