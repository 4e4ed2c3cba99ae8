// Package config implements the YAML configuration schema: one flat,
// nested schema shared by all four roles (econ, handler, bot-reader,
// bot-writer), loaded with gopkg.in/yaml.v3 via a
// defaultConfig()/normalize()/Load() pipeline. Every other component is
// constructed from it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teeworlds-nats/bridge/internal/args"
	"github.com/teeworlds-nats/bridge/internal/otel"
)

// NatsAuthConfig models "nats.auth": one of UserPassword,
// NKey, Token, or absent (the zero value). At most one of the non-empty
// field groups should be set; normalize does not enforce mutual
// exclusion, it is a config-authoring error to set more than one and the
// role wiring picks in the order user/password, then nkey, then token.
type NatsAuthConfig struct {
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	NKey     string `yaml:"nkey,omitempty"`
	Token    string `yaml:"token,omitempty"`
}

// NatsConfig models the "nats.*" config keys.
type NatsConfig struct {
	Server       []string       `yaml:"server"`
	Auth         NatsAuthConfig `yaml:"auth,omitempty"`
	PingInterval int            `yaml:"ping_interval"` // seconds, default 15
	TLS          bool           `yaml:"tls"`
	From         []string       `yaml:"from,omitempty"`
	To           []string       `yaml:"to,omitempty"`
	Queue        string         `yaml:"queue,omitempty"`
	Errors       string         `yaml:"errors,omitempty"`
}

// PingIntervalDuration returns PingInterval as a time.Duration, defaulting
// to 15s.
func (n NatsConfig) PingIntervalDuration() time.Duration {
	if n.PingInterval <= 0 {
		return 15 * time.Second
	}
	return time.Duration(n.PingInterval) * time.Second
}

// ReconnectConfig models the "econ.reconnect.*" config keys.
type ReconnectConfig struct {
	MaxAttempts int `yaml:"max_attempts"` // default 20
	Sleep       int `yaml:"sleep"`        // seconds, default 10
}

// SleepDuration returns Sleep as a time.Duration, defaulting to 10s.
func (r ReconnectConfig) SleepDuration() time.Duration {
	if r.Sleep <= 0 {
		return 10 * time.Second
	}
	return time.Duration(r.Sleep) * time.Second
}

// MaxAttemptsOrDefault returns MaxAttempts, defaulting to 20.
func (r ReconnectConfig) MaxAttemptsOrDefault() int {
	if r.MaxAttempts <= 0 {
		return 20
	}
	return r.MaxAttempts
}

// TaskConfig models one entry of "econ.tasks": a Delay task
// (Kind "delay") or a Cron task (Kind "cron").
type TaskConfig struct {
	Kind     string   `yaml:"kind"` // "delay" or "cron"
	Commands []string `yaml:"commands"`

	// Delay task fields.
	DelaySeconds int `yaml:"delay_seconds,omitempty"`

	// Cron task fields.
	Cron string `yaml:"cron,omitempty"`
	Mode string `yaml:"mode,omitempty"` // "line", "random", "all"
}

// EconConfig models the "econ.*" config keys.
type EconConfig struct {
	Host          string          `yaml:"host"`
	Password      string          `yaml:"password"`
	AuthMessage   string          `yaml:"auth_message,omitempty"`
	FirstCommands []string        `yaml:"first_commands,omitempty"`
	Tasks         []TaskConfig    `yaml:"tasks,omitempty"`
	Reconnect     ReconnectConfig `yaml:"reconnect"`
}

// BotConfig models "bot.tokens" (reader/writer roles).
type BotConfig struct {
	Tokens []string `yaml:"tokens,omitempty"`
}

// FormatStepConfig is one step of a FormatConfig chain:
// a format string and an escape flag.
type FormatStepConfig struct {
	Format string `yaml:"format"`
	Escape bool   `yaml:"escape"`
}

// FormatConfig models "format.text, .reply, .media, .sticker":
// one ordered chain of FormatStepConfig per media kind.
type FormatConfig struct {
	Text    []FormatStepConfig `yaml:"text,omitempty"`
	Reply   []FormatStepConfig `yaml:"reply,omitempty"`
	Media   []FormatStepConfig `yaml:"media,omitempty"`
	Sticker []FormatStepConfig `yaml:"sticker,omitempty"`

	// MessageText / MessageRegex / NotStartsWith configure the Bot
	// Reader's per-message rendering.
	MessageText   string `yaml:"message_text,omitempty"`
	MessageRegex  string `yaml:"message_regex,omitempty"`
	NotStartsWith string `yaml:"not_starts_with,omitempty"`
}

// BlockConfig is one (pattern, replacement) content-blocklist entry of
// entry of the chat/nickname content blocklist.
type BlockConfig struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// PathConfig models one entry of "paths" (transformer role): an
// ingress -> regex-set -> egress tuple.
type PathConfig struct {
	From  []string `yaml:"from"`
	Regex []string `yaml:"regex,omitempty"`
	To    []string `yaml:"to"`
	Queue string   `yaml:"queue,omitempty"`

	// Auto switches this path to the built-in log-line regex set of
	// built-in log-line regex set instead of Regex.
	Auto bool `yaml:"auto,omitempty"`

	Block []BlockConfig `yaml:"block,omitempty"`

	Args args.Value `yaml:"args,omitempty"`
}

// Config is the root schema shared by every role. Each
// role reads only the keys relevant to it; unused sections are simply
// left zero-valued in a given role's config file.
type Config struct {
	// ConfigPath is not a yaml field; it records where this Config was
	// loaded from, for diagnostics.
	ConfigPath string `yaml:"-"`

	Logging string `yaml:"logging,omitempty"`

	Nats NatsConfig `yaml:"nats"`
	Econ EconConfig `yaml:"econ"`
	Bot  BotConfig  `yaml:"bot"`

	Format FormatConfig `yaml:"format"`
	Paths  []PathConfig `yaml:"paths,omitempty"`

	Args args.Value `yaml:"args,omitempty"`

	Otel otel.Config `yaml:"otel,omitempty"`
}

// defaultConfig returns the built-in defaults written to disk when the
// config file is absent.
func defaultConfig() Config {
	return Config{
		Logging: "info",
		Nats: NatsConfig{
			Server:       []string{"nats://127.0.0.1:4222"},
			PingInterval: 15,
		},
		Econ: EconConfig{
			Host:        "127.0.0.1:8303",
			AuthMessage: "Authentication successful",
			Reconnect:   ReconnectConfig{MaxAttempts: 20, Sleep: 10},
		},
	}
}

// normalize fills zero-valued fields with their documented defaults.
func normalize(cfg *Config) {
	if cfg.Nats.PingInterval <= 0 {
		cfg.Nats.PingInterval = 15
	}
	if cfg.Econ.AuthMessage == "" {
		cfg.Econ.AuthMessage = "Authentication successful"
	}
	if cfg.Econ.Reconnect.MaxAttempts <= 0 {
		cfg.Econ.Reconnect.MaxAttempts = 20
	}
	if cfg.Econ.Reconnect.Sleep <= 0 {
		cfg.Econ.Reconnect.Sleep = 10
	}
	if cfg.Logging == "" {
		cfg.Logging = "info"
	}
	for i := range cfg.Paths {
		if cfg.Paths[i].Queue == "" {
			cfg.Paths[i].Queue = "handler_{{0}}"
		}
	}
}

// WroteDefault is returned by Load when the config file did not exist
// and a default was just written in its place: a missing config file
// causes the process to write a built-in default config to that path,
// print a hint, and exit 0. Printing the hint and exiting is the CLI's
// responsibility; Load only signals that this happened.
type WroteDefault struct {
	Path string
}

func (e *WroteDefault) Error() string {
	return fmt.Sprintf("config: wrote default config to %s", e.Path)
}

// Load reads the YAML file at path into a Config. If the file does not
// exist, Load writes defaultConfig() to path and returns that default
// Config together with a *WroteDefault error, so the caller can detect
// the "just created" case with errors.As and exit 0.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			def := defaultConfig()
			def.ConfigPath = path
			if writeErr := writeConfig(path, def); writeErr != nil {
				return Config{}, &Error{Path: path, Err: writeErr}
			}
			return def, &WroteDefault{Path: path}
		}
		return Config{}, &Error{Path: path, Err: err}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, &Error{Path: path, Err: err}
	}
	cfg.ConfigPath = path
	normalize(&cfg)
	return cfg, nil
}

// writeConfig marshals cfg and writes it to path, creating parent
// directories as needed.
func writeConfig(path string, cfg Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	return os.WriteFile(path, out, 0o644)
}
