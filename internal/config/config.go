// Package config loads als-transform settings. Values are layered: built-in
// defaults, the YAML file, a .env file, ALS_TRANSFORM_* environment
// variables, and finally command-line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"als-transform/internal/expr"
	"als-transform/internal/logging"
	"als-transform/internal/match"
	"als-transform/internal/sink"
	"als-transform/internal/subjectid"
)

// DefaultPath is read when no config file is given and it exists.
const DefaultPath = "als-transform.yaml"

// DefaultEnvFile is loaded into the environment when present.
const DefaultEnvFile = ".env"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ALS_TRANSFORM_"

const defaultDebounceMs = 300

// Profile binds one source system's mapping expression to its target
// schema.
type Profile struct {
	Mapping  string   `yaml:"mapping"`
	Engine   string   `yaml:"engine"`
	Schema   string   `yaml:"schema"`
	Class    string   `yaml:"class"`
	ItemsKey string   `yaml:"items_key"`
	IDFields []string `yaml:"id_fields"`

	// MergeKeys join the CSV files of a directory input.
	MergeKeys []string `yaml:"merge_keys"`
}

// RunConfig tunes the pipeline.
type RunConfig struct {
	Strict               bool     `yaml:"strict"`
	Workers              int      `yaml:"workers"`
	FullSchema           bool     `yaml:"full_schema"`
	CaseInsensitiveEnums bool     `yaml:"case_insensitive_enums"`
	ErrorLog             string   `yaml:"error_log"`
	IDFields             []string `yaml:"id_fields"`
	MergeKeys            []string `yaml:"merge_keys"`
}

// Config is the full settings tree.
type Config struct {
	Logging logging.Config `yaml:"logging"`
	Run     RunConfig      `yaml:"run"`

	SubjectID struct {
		Style string `yaml:"style"`
	} `yaml:"subject_id"`

	Sink sink.Config `yaml:"sink"`

	Watch struct {
		DebounceMs int `yaml:"debounce_ms"`
	} `yaml:"watch"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`

	Sources map[string]Profile `yaml:"sources"`
}

// Load reads path, or DefaultPath when path is empty and that file exists,
// then applies .env, environment overrides and validation.
func Load(path string) (*Config, error) {
	var cfg Config

	file := path
	if file == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			file = DefaultPath
		}
	}

	if file != "" {
		// #nosec G304 -- path is provided by trusted config/flag.
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", file, err)
		}
	}

	if err := LoadEnvFile(DefaultEnvFile); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadEnvFile loads KEY=value pairs into the environment without
// overriding variables that are already set. A missing file is ignored.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	return nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}

	if strings.TrimSpace(cfg.Logging.Format) == "" {
		cfg.Logging.Format = logging.FormatConsole
	}

	if cfg.Run.Workers <= 0 {
		cfg.Run.Workers = 1
	}

	if strings.TrimSpace(cfg.SubjectID.Style) == "" {
		cfg.SubjectID.Style = string(subjectid.DefaultStyle)
	}

	if strings.TrimSpace(cfg.Sink.Kind) == "" {
		cfg.Sink.Kind = sink.KindJSON
	}

	if cfg.Sink.Kind == sink.KindPostgres && strings.TrimSpace(cfg.Sink.Table) == "" {
		cfg.Sink.Table = sink.DefaultTable
	}

	if cfg.Watch.DebounceMs <= 0 {
		cfg.Watch.DebounceMs = defaultDebounceMs
	}

	if cfg.Sources == nil {
		cfg.Sources = map[string]Profile{}
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := envString("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := envString("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	cfg.Run.Strict = envBool("STRICT", cfg.Run.Strict)
	cfg.Run.FullSchema = envBool("FULL_SCHEMA", cfg.Run.FullSchema)
	cfg.Run.CaseInsensitiveEnums = envBool("CASE_INSENSITIVE_ENUMS", cfg.Run.CaseInsensitiveEnums)

	if n, ok := envInt("WORKERS"); ok {
		cfg.Run.Workers = n
	}

	if v := envString("ERROR_LOG"); v != "" {
		cfg.Run.ErrorLog = v
	}

	if v := envString("ID_FIELDS"); v != "" {
		cfg.Run.IDFields = splitList(v)
	}

	if v := envString("MERGE_KEYS"); v != "" {
		cfg.Run.MergeKeys = splitList(v)
	}

	if v := envString("SUBJECT_ID_STYLE"); v != "" {
		cfg.SubjectID.Style = v
	}

	if v := envString("SINK"); v != "" {
		cfg.Sink.Kind = v
	}

	if v := envString("SINK_OUTPUT"); v != "" {
		cfg.Sink.Output = v
	}

	if v := envString("SINK_DSN"); v != "" {
		cfg.Sink.DSN = v
	}

	if v := envString("SINK_TABLE"); v != "" {
		cfg.Sink.Table = v
	}

	if n, ok := envInt("WATCH_DEBOUNCE_MS"); ok {
		cfg.Watch.DebounceMs = n
	}

	cfg.Metrics.Enabled = envBool("METRICS", cfg.Metrics.Enabled)
}

// Validate checks values that defaults and overrides cannot repair.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	switch c.Logging.Format {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}

	if c.Run.Workers < 1 {
		return errors.New("run.workers must be > 0")
	}

	if _, err := subjectid.ParseStyle(c.SubjectID.Style); err != nil {
		return fmt.Errorf("subject_id.style: %w", err)
	}

	switch c.Sink.Kind {
	case sink.KindJSON:
	case sink.KindPostgres:
		if strings.TrimSpace(c.Sink.DSN) == "" {
			return errors.New("sink.dsn is required when sink.kind=postgres")
		}
	default:
		return fmt.Errorf("sink.kind must be json or postgres, got %q", c.Sink.Kind)
	}

	if c.Watch.DebounceMs <= 0 {
		return errors.New("watch.debounce_ms must be > 0")
	}

	for _, name := range c.SourceNames() {
		p := c.Sources[name]

		if strings.TrimSpace(p.Mapping) == "" {
			return fmt.Errorf("sources.%s.mapping is required", name)
		}

		if strings.TrimSpace(p.Schema) == "" {
			return fmt.Errorf("sources.%s.schema is required", name)
		}

		switch p.Engine {
		case "", expr.EngineJSONata, expr.EngineFieldMap:
		default:
			return fmt.Errorf("sources.%s.engine must be %s or %s, got %q",
				name, expr.EngineJSONata, expr.EngineFieldMap, p.Engine)
		}
	}

	return nil
}

// SourceNames lists the configured profiles in sorted order.
func (c *Config) SourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Source returns the named profile.
func (c *Config) Source(name string) (Profile, error) {
	if p, ok := c.Sources[name]; ok {
		return p, nil
	}

	msg := fmt.Sprintf("unknown source %q", name)
	if s := match.Suggest(name, c.SourceNames(), 1); len(s) > 0 {
		msg += fmt.Sprintf(" (did you mean %q?)", s[0])
	}

	return Profile{}, errors.New(msg)
}

// SubjectIDStyle returns the validated style.
func (c *Config) SubjectIDStyle() subjectid.Style {
	s, err := subjectid.ParseStyle(c.SubjectID.Style)
	if err != nil {
		return subjectid.DefaultStyle
	}

	return s
}

func envString(name string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + name))
}

func envInt(name string) (int, bool) {
	v := envString(name)
	if v == "" {
		return 0, false
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}

	return n, true
}

func envBool(name string, def bool) bool {
	v := envString(name)
	if v == "" {
		return def
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}

	return b
}

func splitList(v string) []string {
	var out []string

	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}

	return out
}
