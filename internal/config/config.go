// Package config loads gitmcp settings from an optional config file and the
// environment. Settings are read once at startup and never reloaded.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/HendryAvila/gitmcp/internal/paths"
	"github.com/HendryAvila/gitmcp/internal/workflow"
)

const (
	DefaultSMTPPort      = 587
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultRemote        = workflow.DefaultRemote
	DefaultBase          = workflow.DefaultBase
	DefaultGitBinary     = "git"
	DefaultHostingBinary = "gh"
)

// Environment variables read by Load.
const (
	EnvConfigFile        = "GITMCP_CONFIG"
	EnvDotenvFile        = "GITMCP_ENV_FILE"
	EnvSMTPHost          = "SMTP_HOST"
	EnvSMTPPort          = "SMTP_PORT"
	EnvSMTPUsername      = "SMTP_USERNAME"
	EnvSMTPPassword      = "SMTP_PASSWORD"
	EnvFromEmail         = "FROM_EMAIL"
	EnvLogLevel          = "GITMCP_LOG_LEVEL"
	EnvLogFormat         = "GITMCP_LOG_FORMAT"
	EnvJournal           = "GITMCP_JOURNAL"
	EnvJournalDir        = "GITMCP_JOURNAL_DIR"
	EnvProtectedBranches = "GITMCP_PROTECTED_BRANCHES"
	EnvGitBinary         = "GITMCP_GIT_BINARY"
	EnvHostingBinary     = "GITMCP_GH_BINARY"
	EnvUpdateCheck       = "GITMCP_UPDATE_CHECK"
	EnvGitHubToken       = "GITHUB_TOKEN"
)

var (
	supportedLevels  = map[string]struct{}{"debug": {}, "info": {}, "warn": {}, "warning": {}, "error": {}}
	supportedFormats = map[string]struct{}{"text": {}, "json": {}}
)

// SMTP holds outbound mail settings. Every field is optional; the email tool
// reports what is missing at call time.
type SMTP struct {
	Host     string `toml:"host" yaml:"host"`
	Port     int    `toml:"port" yaml:"port"`
	Username string `toml:"username" yaml:"username"`
	Password string `toml:"password" yaml:"password"`
	From     string `toml:"from" yaml:"from"`
}

// Missing lists the required SMTP fields that are empty, by env var name.
func (s SMTP) Missing() []string {
	var missing []string
	if s.Host == "" {
		missing = append(missing, EnvSMTPHost)
	}
	if s.Username == "" {
		missing = append(missing, EnvSMTPUsername)
	}
	if s.Password == "" {
		missing = append(missing, EnvSMTPPassword)
	}
	if s.From == "" {
		missing = append(missing, EnvFromEmail)
	}
	return missing
}

// Log configures the process logger.
type Log struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// Journal configures the invocation journal.
type Journal struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Dir     string `toml:"dir" yaml:"dir"`
}

// Defaults holds workflow defaults applied when a tool call omits them.
type Defaults struct {
	ProtectedBranches []string `toml:"protected_branches" yaml:"protected_branches"`
	Remote            string   `toml:"remote" yaml:"remote"`
	Base              string   `toml:"base" yaml:"base"`
}

// Updates configures the release check of `gitmcp serve`. Token is only
// read from the environment.
type Updates struct {
	Check bool   `toml:"check" yaml:"check"`
	Token string `toml:"-" yaml:"-"`
}

// Settings is the complete gitmcp configuration.
type Settings struct {
	SMTP          SMTP     `toml:"smtp" yaml:"smtp"`
	Log           Log      `toml:"log" yaml:"log"`
	Journal       Journal  `toml:"journal" yaml:"journal"`
	Defaults      Defaults `toml:"defaults" yaml:"defaults"`
	Updates       Updates  `toml:"updates" yaml:"updates"`
	GitBinary     string   `toml:"git_binary" yaml:"git_binary"`
	HostingBinary string   `toml:"gh_binary" yaml:"gh_binary"`

	// Source is the config file that was read, empty when none was.
	Source string `toml:"-" yaml:"-"`
}

// Default returns the built-in settings.
func Default() Settings {
	home, _ := os.UserHomeDir()
	return Settings{
		SMTP: SMTP{Port: DefaultSMTPPort},
		Log:  Log{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Journal: Journal{
			Enabled: true,
			Dir:     filepath.Join(home, ".gitmcp"),
		},
		Defaults: Defaults{
			ProtectedBranches: []string{"main", "master"},
			Remote:            DefaultRemote,
			Base:              DefaultBase,
		},
		Updates:       Updates{Check: true},
		GitBinary:     DefaultGitBinary,
		HostingBinary: DefaultHostingBinary,
	}
}

// Load builds Settings from defaults, then the config file, then the
// environment. A missing default config file is not an error; a missing
// file named by GITMCP_CONFIG is. Variables from a .env file fill in only
// what the process environment leaves empty.
func Load() (Settings, error) {
	getenv, err := withDotenv(os.Getenv)
	if err != nil {
		return Default(), err
	}
	return load(getenv)
}

// withDotenv layers the variables of a .env file under getenv. The file is
// GITMCP_ENV_FILE when set, ./.env otherwise; only the named file must exist.
func withDotenv(getenv func(string) string) (func(string) string, error) {
	path, explicit := strings.TrimSpace(getenv(EnvDotenvFile)), true
	if path == "" {
		path, explicit = ".env", false
	} else {
		path = paths.ExpandHome(path)
	}

	vars, err := godotenv.Read(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return getenv, nil
		}
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}
	return func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return vars[key]
	}, nil
}

func load(getenv func(string) string) (Settings, error) {
	cfg := Default()

	path, explicit := configPath(getenv)
	if path != "" {
		found, err := readFile(path, &cfg)
		if err != nil {
			return Default(), err
		}
		if !found && explicit {
			return Default(), fmt.Errorf("config file %s does not exist", path)
		}
		if found {
			cfg.Source = path
		}
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return Default(), err
	}

	normalize(&cfg)
	if err := validate(cfg); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// configPath returns the config file to read and whether the user named it.
func configPath(getenv func(string) string) (string, bool) {
	if p := strings.TrimSpace(getenv(EnvConfigFile)); p != "" {
		return paths.ExpandHome(p), true
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(home, ".config", "gitmcp", "config.toml"), false
}

// readFile decodes path into cfg. YAML is chosen by extension, TOML otherwise.
func readFile(path string, cfg *Settings) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return true, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return true, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	return true, nil
}

func applyEnv(cfg *Settings, getenv func(string) string) error {
	env := func(key string) string { return strings.TrimSpace(getenv(key)) }

	setIf(&cfg.SMTP.Host, env(EnvSMTPHost))
	setIf(&cfg.SMTP.Username, env(EnvSMTPUsername))
	setIf(&cfg.SMTP.Password, env(EnvSMTPPassword))
	setIf(&cfg.SMTP.From, env(EnvFromEmail))
	if raw := env(EnvSMTPPort); raw != "" {
		cfg.SMTP.Port = parsePort(raw)
	}

	setIf(&cfg.Log.Level, strings.ToLower(env(EnvLogLevel)))
	setIf(&cfg.Log.Format, strings.ToLower(env(EnvLogFormat)))

	if raw := env(EnvJournal); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvJournal, err)
		}
		cfg.Journal.Enabled = enabled
	}
	setIf(&cfg.Journal.Dir, env(EnvJournalDir))

	if raw := env(EnvProtectedBranches); raw != "" {
		cfg.Defaults.ProtectedBranches = parseBranchList(raw)
	}

	if raw := env(EnvUpdateCheck); raw != "" {
		check, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvUpdateCheck, err)
		}
		cfg.Updates.Check = check
	}
	setIf(&cfg.Updates.Token, env(EnvGitHubToken))

	setIf(&cfg.GitBinary, env(EnvGitBinary))
	setIf(&cfg.HostingBinary, env(EnvHostingBinary))
	return nil
}

// normalize trims values and fills anything a file or env var blanked out.
func normalize(cfg *Settings) {
	def := Default()

	cfg.SMTP.Host = strings.TrimSpace(cfg.SMTP.Host)
	cfg.SMTP.Username = strings.TrimSpace(cfg.SMTP.Username)
	cfg.SMTP.Password = strings.TrimSpace(cfg.SMTP.Password)
	cfg.SMTP.From = strings.TrimSpace(cfg.SMTP.From)
	if cfg.SMTP.Port <= 0 || cfg.SMTP.Port > 65535 {
		cfg.SMTP.Port = DefaultSMTPPort
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	defaultIfEmpty(&cfg.Log.Level, def.Log.Level)
	defaultIfEmpty(&cfg.Log.Format, def.Log.Format)

	cfg.Journal.Dir = paths.ExpandHome(strings.TrimSpace(cfg.Journal.Dir))
	defaultIfEmpty(&cfg.Journal.Dir, def.Journal.Dir)

	cfg.Defaults.ProtectedBranches = parseBranchList(strings.Join(cfg.Defaults.ProtectedBranches, ","))
	if len(cfg.Defaults.ProtectedBranches) == 0 {
		cfg.Defaults.ProtectedBranches = def.Defaults.ProtectedBranches
	}
	cfg.Defaults.Remote = strings.TrimSpace(cfg.Defaults.Remote)
	cfg.Defaults.Base = strings.TrimSpace(cfg.Defaults.Base)
	defaultIfEmpty(&cfg.Defaults.Remote, def.Defaults.Remote)
	defaultIfEmpty(&cfg.Defaults.Base, def.Defaults.Base)

	cfg.GitBinary = strings.TrimSpace(cfg.GitBinary)
	cfg.HostingBinary = strings.TrimSpace(cfg.HostingBinary)
	defaultIfEmpty(&cfg.GitBinary, def.GitBinary)
	defaultIfEmpty(&cfg.HostingBinary, def.HostingBinary)
}

func validate(cfg Settings) error {
	if _, ok := supportedLevels[cfg.Log.Level]; !ok {
		return fmt.Errorf("unsupported log level %q", cfg.Log.Level)
	}
	if _, ok := supportedFormats[cfg.Log.Format]; !ok {
		return fmt.Errorf("unsupported log format %q", cfg.Log.Format)
	}
	return nil
}

// Redacted returns the settings as a map safe to show to a client: the SMTP
// password is replaced by whether it is set.
func (s Settings) Redacted() map[string]any {
	return map[string]any{
		"source": s.Source,
		"smtp": map[string]any{
			"host":         s.SMTP.Host,
			"port":         s.SMTP.Port,
			"username":     s.SMTP.Username,
			"password_set": s.SMTP.Password != "",
			"from":         s.SMTP.From,
			"missing":      s.SMTP.Missing(),
		},
		"log": map[string]any{
			"level":  s.Log.Level,
			"format": s.Log.Format,
		},
		"journal": map[string]any{
			"enabled": s.Journal.Enabled,
			"dir":     s.Journal.Dir,
		},
		"defaults": map[string]any{
			"protected_branches": s.Defaults.ProtectedBranches,
			"remote":             s.Defaults.Remote,
			"base":               s.Defaults.Base,
		},
		"updates": map[string]any{
			"check":     s.Updates.Check,
			"token_set": s.Updates.Token != "",
		},
		"git_binary": s.GitBinary,
		"gh_binary":  s.HostingBinary,
	}
}

// parsePort falls back to DefaultSMTPPort for anything that is not a valid
// TCP port.
func parsePort(raw string) int {
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || port <= 0 || port > 65535 {
		return DefaultSMTPPort
	}
	return port
}

func parseBranchList(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})

	branches := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			branches = append(branches, trimmed)
		}
	}
	return branches
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func defaultIfEmpty(dst *string, fallback string) {
	if *dst == "" {
		*dst = fallback
	}
}
