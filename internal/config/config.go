// Package config defines the application configuration tree and its defaults.
// Values are loaded from a YAML file and UXAGENT_ environment variables via
// viper; CLI flags override individual fields from cmd.
package config

import (
	"fmt"
	"time"
)

// Config is the root of the configuration tree.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	LLM        LLMConfig        `mapstructure:"llm" yaml:"llm"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding" yaml:"embedding"`
	Browser    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
	Agent      AgentConfig      `mapstructure:"agent" yaml:"agent"`
	Simulation SimulationConfig `mapstructure:"simulation" yaml:"simulation"`
}

// LoggerConfig controls the zap logger built in internal/observability.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`

	// File output, rotated by lumberjack. Empty LogFile disables it.
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// Supported LLM providers.
const (
	ProviderGemini   = "gemini"
	ProviderScripted = "scripted"
)

// LLMConfig configures the language model client.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	// RequestsPerMinute throttles outgoing calls; zero disables the limiter.
	RequestsPerMinute int `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	// ScriptPath feeds the scripted provider its canned completions.
	ScriptPath string `mapstructure:"script_path" yaml:"script_path"`
}

// Supported embedding providers.
const (
	EmbedderGemini = "gemini"
	EmbedderLocal  = "local"
)

// EmbeddingConfig configures the embedding client used by the memory stream.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider" yaml:"provider"`
	Model      string `mapstructure:"model" yaml:"model"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`
	Dimensions int    `mapstructure:"dimensions" yaml:"dimensions"`
}

// BrowserConfig configures the chromedp connector.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// PostNavigateWait gives client-side rendering a moment to settle before
	// the page is simplified.
	PostNavigateWait time.Duration `mapstructure:"post_navigate_wait" yaml:"post_navigate_wait"`
	IgnoreTLSErrors  bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	ViewportWidth    int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight   int           `mapstructure:"viewport_height" yaml:"viewport_height"`
}

// AgentConfig bounds the controller's loops.
type AgentConfig struct {
	MaxCycles int `mapstructure:"max_cycles" yaml:"max_cycles"`
	// SlowLoopInterval is the fast-loop cycle period between reflect/wonder
	// invocations.
	SlowLoopInterval  int `mapstructure:"slow_loop_interval" yaml:"slow_loop_interval"`
	PlanningMemories  int `mapstructure:"planning_memories" yaml:"planning_memories"`
	ActionMemories    int `mapstructure:"action_memories" yaml:"action_memories"`
	FailureStreak     int `mapstructure:"failure_streak" yaml:"failure_streak"`
	FailureWindowSize int `mapstructure:"failure_window_size" yaml:"failure_window_size"`
}

// SimulationConfig controls the CLI-level session fan-out.
type SimulationConfig struct {
	Sessions    int           `mapstructure:"sessions" yaml:"sessions"`
	ReplayDelay time.Duration `mapstructure:"replay_delay" yaml:"replay_delay"`
}

// NewDefault returns the configuration used when no file or flags override it.
func NewDefault() Config {
	return Config{
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "console",
			ServiceName: "uxagent",
			MaxSizeMB:   50,
			MaxBackups:  3,
			MaxAgeDays:  14,
		},
		LLM: LLMConfig{
			Provider:          ProviderGemini,
			Model:             "gemini-2.0-flash",
			APITimeout:        60 * time.Second,
			Temperature:       0.7,
			MaxTokens:         4096,
			RequestsPerMinute: 30,
		},
		Embedding: EmbeddingConfig{
			Provider:   EmbedderLocal,
			Model:      "gemini-embedding-001",
			Dimensions: 256,
		},
		Browser: BrowserConfig{
			Headless:          true,
			NavigationTimeout: 30 * time.Second,
			PostNavigateWait:  2 * time.Second,
			ViewportWidth:     1366,
			ViewportHeight:    900,
		},
		Agent: AgentConfig{
			MaxCycles:         10,
			SlowLoopInterval:  3,
			PlanningMemories:  10,
			ActionMemories:    7,
			FailureStreak:     2,
			FailureWindowSize: 3,
		},
		Simulation: SimulationConfig{
			Sessions:    1,
			ReplayDelay: time.Second,
		},
	}
}

// Validate rejects configurations the runtime cannot work with.
func (c Config) Validate() error {
	if c.Agent.MaxCycles <= 0 {
		return fmt.Errorf("agent.max_cycles must be positive, got %d", c.Agent.MaxCycles)
	}
	if c.Agent.SlowLoopInterval <= 0 {
		return fmt.Errorf("agent.slow_loop_interval must be positive, got %d", c.Agent.SlowLoopInterval)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	switch c.LLM.Provider {
	case ProviderGemini, ProviderScripted:
	default:
		return fmt.Errorf("unknown llm.provider %q", c.LLM.Provider)
	}
	switch c.Embedding.Provider {
	case EmbedderGemini, EmbedderLocal:
	default:
		return fmt.Errorf("unknown embedding.provider %q", c.Embedding.Provider)
	}
	return nil
}
