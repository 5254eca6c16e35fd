package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	DefaultModel         = "gpt-oss:20b"
	DefaultBaseURL       = "http://localhost:11434/v1"
	DefaultMaxToolRounds = 10
	DefaultMaxEntries    = 50
	DefaultTimeout       = 120 * time.Second
	DefaultToolTimeout   = 30
	DefaultMaxBytes      = 24 * 1024
	DefaultMaxResults    = 200
)

// ToolLimits bounds tool execution and output sizes.
type ToolLimits struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	MaxBytes         int `mapstructure:"max_bytes"`
	SearchMaxResults int `mapstructure:"search_max_results"`
}

// Config holds runtime configuration values.
type Config struct {
	Model               string
	BaseURL             string
	MaxToolRounds       int
	MaxEntries          int
	Personality         string
	Approval            string // ask | always-allow | always-deny
	Timeout             time.Duration
	Quiet               bool
	JSON                bool
	Verbose             bool
	Stream              bool
	AchievementsEnabled bool
	HistoryEnabled      bool
	DataDir             string
	ToolLimits          ToolLimits
}

type rawConfig struct {
	Model               string     `mapstructure:"model"`
	BaseURL             string     `mapstructure:"base_url"`
	MaxToolRounds       int        `mapstructure:"max_tool_rounds"`
	MaxEntries          int        `mapstructure:"max_conversation_entries"`
	Personality         string     `mapstructure:"personality"`
	Approval            string     `mapstructure:"approval"`
	Timeout             string     `mapstructure:"timeout"`
	Quiet               bool       `mapstructure:"quiet"`
	JSON                bool       `mapstructure:"json"`
	Verbose             bool       `mapstructure:"verbose"`
	Stream              bool       `mapstructure:"stream"`
	AchievementsEnabled bool       `mapstructure:"achievements_enabled"`
	HistoryEnabled      bool       `mapstructure:"history_enabled"`
	DataDir             string     `mapstructure:"data_dir"`
	ToolLimits          ToolLimits `mapstructure:"tool_limits"`
}

// Load resolves configuration from defaults, config files, env, and flags.
func Load(cmd *cobra.Command) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DEMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("model", DefaultModel)
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("max_tool_rounds", DefaultMaxToolRounds)
	v.SetDefault("max_conversation_entries", DefaultMaxEntries)
	v.SetDefault("personality", "cynical")
	v.SetDefault("approval", "ask")
	v.SetDefault("timeout", DefaultTimeout.String())
	v.SetDefault("quiet", false)
	v.SetDefault("json", false)
	v.SetDefault("verbose", false)
	v.SetDefault("stream", true)
	v.SetDefault("achievements_enabled", true)
	v.SetDefault("history_enabled", true)
	v.SetDefault("data_dir", "")
	v.SetDefault("tool_limits.timeout_seconds", DefaultToolTimeout)
	v.SetDefault("tool_limits.max_bytes", DefaultMaxBytes)
	v.SetDefault("tool_limits.search_max_results", DefaultMaxResults)

	if cmd != nil {
		_ = v.BindPFlag("model", cmd.Flags().Lookup("model"))
		_ = v.BindPFlag("base_url", cmd.Flags().Lookup("base-url"))
		_ = v.BindPFlag("max_tool_rounds", cmd.Flags().Lookup("max-tool-rounds"))
		_ = v.BindPFlag("personality", cmd.Flags().Lookup("personality"))
		_ = v.BindPFlag("approval", cmd.Flags().Lookup("approval"))
		_ = v.BindPFlag("timeout", cmd.Flags().Lookup("timeout"))
		_ = v.BindPFlag("quiet", cmd.Flags().Lookup("quiet"))
		_ = v.BindPFlag("json", cmd.Flags().Lookup("json"))
		_ = v.BindPFlag("verbose", cmd.Flags().Lookup("verbose"))
	}

	if err := loadConfigFile(v); err != nil {
		return Config{}, err
	}

	var raw rawConfig
	decoder, _ := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "mapstructure",
		Result:  &raw,
		// Environment values arrive as strings.
		WeaklyTypedInput: true,
	})
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return Config{}, err
	}

	timeout := DefaultTimeout
	if raw.Timeout != "" {
		parsed, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("invalid timeout duration: %w", err)
		}
		timeout = parsed
	}

	cfg := Config{
		Model:               raw.Model,
		BaseURL:             raw.BaseURL,
		MaxToolRounds:       raw.MaxToolRounds,
		MaxEntries:          raw.MaxEntries,
		Personality:         raw.Personality,
		Approval:            raw.Approval,
		Timeout:             timeout,
		Quiet:               raw.Quiet,
		JSON:                raw.JSON,
		Verbose:             raw.Verbose,
		Stream:              raw.Stream,
		AchievementsEnabled: raw.AchievementsEnabled,
		HistoryEnabled:      raw.HistoryEnabled,
		DataDir:             raw.DataDir,
		ToolLimits:          raw.ToolLimits,
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = DefaultMaxToolRounds
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	switch cfg.Approval {
	case "ask", "always-allow", "always-deny":
	default:
		return Config{}, fmt.Errorf("invalid approval mode: %q", cfg.Approval)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}
	if cfg.ToolLimits.TimeoutSeconds <= 0 {
		cfg.ToolLimits.TimeoutSeconds = DefaultToolTimeout
	}
	if cfg.ToolLimits.MaxBytes <= 0 {
		cfg.ToolLimits.MaxBytes = DefaultMaxBytes
	}
	if cfg.ToolLimits.SearchMaxResults <= 0 {
		cfg.ToolLimits.SearchMaxResults = DefaultMaxResults
	}
	if cfg.JSON {
		cfg.Stream = false
	}

	return cfg, nil
}

// AchievementsFile returns the tracker storage path.
func (c Config) AchievementsFile() string {
	return filepath.Join(c.DataDir, "achievements.json")
}

// HistoryDir returns the session storage directory.
func (c Config) HistoryDir() string {
	return filepath.Join(c.DataDir, "history")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".demon-cli"
	}
	return filepath.Join(home, ".local", "share", "demon-cli")
}

func loadConfigFile(v *viper.Viper) error {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil
	}
	base := filepath.Join(configDir, "demon-cli")
	candidates := []string{
		filepath.Join(base, "config.yaml"),
		filepath.Join(base, "config.yml"),
		filepath.Join(base, "config.json"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return err
			}
			return nil
		}
	}
	return nil
}
