package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/MegaGrindStone/gemini-web-ui/internal/handlers"
	"github.com/MegaGrindStone/gemini-web-ui/internal/services"
	"gopkg.in/yaml.v3"
)

type config struct {
	Port          string `yaml:"port"`
	AllowedOrigin string `yaml:"allowedOrigin"`
	Mock          bool   `yaml:"mock"`

	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"apiKey"`
	OllamaHost string `yaml:"ollamaHost"`
}

// loadConfig reads the optional YAML config file and applies environment
// overrides on top. Every setting works from the environment alone, so a
// config file is never required.
func loadConfig(path string) (config, error) {
	cfg := config{
		Port:          "5000",
		AllowedOrigin: "http://localhost:5173",
		Provider:      "gemini",
	}

	if f, err := os.Open(path); err == nil {
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return config{}, fmt.Errorf("error decoding config file: %w", err)
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("ALLOWED_ORIGIN"); v != "" {
		cfg.AllowedOrigin = v
	}
	if v := os.Getenv("USE_MOCK"); v != "" {
		if mock, err := strconv.ParseBool(v); err == nil {
			cfg.Mock = mock
		}
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		cfg.OllamaHost = v
	}

	return cfg, nil
}

// llm picks the upstream provider. Mock mode wins over everything so the
// whole system runs without network access or credentials. A missing API key
// does not stop the process; live requests simply fail upstream until the
// key is provided.
func (c config) llm(logger *slog.Logger) (handlers.LLM, error) {
	if c.Mock {
		return services.Mock{Delay: services.MockDelay}, nil
	}

	switch c.Provider {
	case "gemini", "":
		if c.APIKey == "" {
			logger.Warn("GEMINI_API_KEY is not set; live generation is disabled")
		}
		return services.NewGemini(c.APIKey, logger), nil
	case "ollama":
		host := c.OllamaHost
		if host == "" {
			host = "http://localhost:11434"
		}
		return services.NewOllama(host), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", c.Provider)
	}
}
