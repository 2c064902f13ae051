package config

// Config holds lectern configuration.
// Stored at: ~/.lectern/config.yaml
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	Server       ServerCfg                 `mapstructure:"server" yaml:"server"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type    string `mapstructure:"type" yaml:"type"`       // "openrouter", "gemini", "openai", "mock"
	Model   string `mapstructure:"model" yaml:"model"`     // Model name
	APIKey  string `mapstructure:"api_key" yaml:"api_key"` // API key (supports ${ENV_VAR} syntax)
	RPM     int    `mapstructure:"rpm" yaml:"rpm"`         // Requests per minute
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default behavior.
type DefaultsCfg struct {
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider"` // Default LLM provider
	MaxPages    int    `mapstructure:"max_pages" yaml:"max_pages"`       // Max pages loaded per book
	RenderDPI   int    `mapstructure:"render_dpi" yaml:"render_dpi"`     // Page raster resolution
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {
				Type:    "openrouter",
				Model:   "google/gemini-2.0-flash-001",
				APIKey:  "${OPENROUTER_API_KEY}",
				RPM:     60,
				Enabled: true,
			},
			"gemini": {
				Type:    "gemini",
				Model:   "gemini-2.0-flash",
				APIKey:  "${GEMINI_API_KEY}",
				RPM:     60,
				Enabled: false,
			},
			"openai": {
				Type:    "openai",
				Model:   "gpt-4o-mini",
				APIKey:  "${OPENAI_API_KEY}",
				RPM:     60,
				Enabled: false,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider: "openrouter",
			MaxPages:    50,
			RenderDPI:   150,
		},
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: 8585,
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// ListenAddr returns the host:port the server binds.
func (c *Config) ListenAddr() string {
	host := c.Server.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := c.Server.Port
	if port == 0 {
		port = 8585
	}
	return hostPort(host, port)
}
