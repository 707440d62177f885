package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	defaultBaseURL     = "https://localhost:7073"
	defaultSendTimeout = 60 * time.Second
	defaultLogLevel    = "info"
)

// Environment variable names.
const (
	envBaseURL     = "COACH_BASE_URL"
	envSessionPath = "COACH_SESSION_PATH"
	envLogPath     = "COACH_LOG_PATH"
	envLogLevel    = "COACH_LOG_LEVEL"
	envSendTimeout = "COACH_SEND_TIMEOUT"
)

// Config is the resolved client configuration. Sources apply in order:
// defaults, config file, environment (including .env), flags.
type Config struct {
	BaseURL     string        `yaml:"base_url"`
	SessionPath string        `yaml:"session_path"`
	LogPath     string        `yaml:"log_path"`
	LogLevel    string        `yaml:"log_level"`
	SendTimeout time.Duration `yaml:"send_timeout"`
}

// environment is what main reads from the process: the home directory and
// variable lookup. Nothing below main touches os.Getenv.
type environment struct {
	home   string
	lookup func(key string) (string, bool)
}

// chainLookup returns a lookup that tries the process environment first and
// falls back to values read from a .env file.
func chainLookup(process func(string) (string, bool), dotenv map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := process(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
}

func defaultConfigPath(home string) string {
	return filepath.Join(home, ".coach", "config.yaml")
}

func defaultConfig(home string) Config {
	dir := filepath.Join(home, ".coach")
	return Config{
		BaseURL:     defaultBaseURL,
		SessionPath: filepath.Join(dir, "session.json"),
		LogPath:     filepath.Join(dir, "coach.log"),
		LogLevel:    defaultLogLevel,
		SendTimeout: defaultSendTimeout,
	}
}

// loadFile overlays the YAML file at path. A missing file is fine unless
// required is set, which is the case for a path given explicitly.
func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && !required:
		return nil
	default:
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := []struct {
		key string
		dst *string
	}{
		{envBaseURL, &c.BaseURL},
		{envSessionPath, &c.SessionPath},
		{envLogPath, &c.LogPath},
		{envLogLevel, &c.LogLevel},
	}
	for _, s := range strs {
		if v, ok := lookup(s.key); ok && v != "" {
			*s.dst = v
		}
	}
	if v, ok := lookup(envSendTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envSendTimeout, err)
		}
		c.SendTimeout = d
	}
	return nil
}

// Flag names shared by every command.
const (
	flagConfig      = "config"
	flagBaseURL     = "base-url"
	flagSessionPath = "session"
	flagLogPath     = "log-file"
	flagLogLevel    = "log-level"
	flagSendTimeout = "send-timeout"
)

func addConfigFlags(flags *pflag.FlagSet) {
	flags.String(flagConfig, "", "Path to config file (default ~/.coach/config.yaml)")
	flags.String(flagBaseURL, "", "CoachAI API base URL")
	flags.String(flagSessionPath, "", "Path to the saved session file")
	flags.String(flagLogPath, "", "Path to the log file (empty disables logging)")
	flags.String(flagLogLevel, "", "Log level: debug, info, warn, error")
	flags.Duration(flagSendTimeout, 0, "Timeout for a single message send")
}

// applyFlags overlays flags that were set explicitly.
func (c *Config) applyFlags(flags *pflag.FlagSet) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{flagBaseURL, &c.BaseURL},
		{flagSessionPath, &c.SessionPath},
		{flagLogPath, &c.LogPath},
		{flagLogLevel, &c.LogLevel},
	}
	for _, s := range strs {
		if !flags.Changed(s.name) {
			continue
		}
		v, err := flags.GetString(s.name)
		if err != nil {
			return err
		}
		*s.dst = v
	}
	if flags.Changed(flagSendTimeout) {
		d, err := flags.GetDuration(flagSendTimeout)
		if err != nil {
			return err
		}
		c.SendTimeout = d
	}
	return nil
}

func (c Config) validate() error {
	if c.BaseURL == "" {
		return errors.New("base URL is empty")
	}
	if c.SessionPath == "" {
		return errors.New("session path is empty")
	}
	if c.SendTimeout < 0 {
		return fmt.Errorf("send timeout must not be negative: %s", c.SendTimeout)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// resolveConfig builds the Config for a command invocation.
func resolveConfig(env environment, flags *pflag.FlagSet) (Config, error) {
	cfg := defaultConfig(env.home)

	path, err := flags.GetString(flagConfig)
	if err != nil {
		return Config{}, err
	}
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath(env.home)
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(env.lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.applyFlags(flags); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
