// Package config loads the project file (assembler.yaml) describing the
// builds to dispatch and the sections the project contributes itself.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/assembler/internal/builder"
	"git.home.luguber.info/inful/assembler/internal/routes"
)

// DefaultFileName is looked up in the work directory when no path is given.
const DefaultFileName = "assembler.yaml"

// DefaultTarget is used when neither the file nor the CLI sets a target.
const DefaultTarget = "preview"

// DefaultDiscontinuedRuntimes lists Lambda runtimes that fail a build.
var DefaultDiscontinuedRuntimes = []string{"nodejs8.10", "nodejs10.x", "nodejs12.x", "nodejs14.x", "nodejs16.x"}

// Config is the project file.
type Config struct {
	Target               string                    `yaml:"target"`
	WorkDir              string                    `yaml:"work_dir"`
	Output               OutputConfig              `yaml:"output"`
	Builds               []builder.Build           `yaml:"builds"`
	Builders             map[string]CommandBuilder `yaml:"builders"`
	Routes               []routes.Route            `yaml:"routes"`
	Images               builder.Images            `yaml:"images"`
	Wildcard             []builder.Wildcard        `yaml:"wildcard"`
	Crons                []builder.Cron            `yaml:"crons"`
	DiscontinuedRuntimes []string                  `yaml:"discontinued_runtimes"`
	Journal              JournalConfig             `yaml:"journal"`
	Metrics              MetricsConfig             `yaml:"metrics"`
	Notify               NotifyConfig              `yaml:"notify"`

	// path the file was loaded from; empty for in-memory configs
	source string
}

// OutputConfig controls the output directory.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	// Clean defaults to true when omitted.
	Clean     *bool `yaml:"clean"`
	CleanURLs bool  `yaml:"clean_urls"`
}

// ShouldClean reports whether the output directory is wiped before a run.
func (o OutputConfig) ShouldClean() bool {
	return o.Clean == nil || *o.Clean
}

// CommandBuilder registers an external process as a builder.
type CommandBuilder struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`
	Timeout string            `yaml:"timeout"`
}

// JournalConfig enables the sqlite run journal.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig enables the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// NotifyConfig enables run summaries on NATS.
type NotifyConfig struct {
	NATSURL   string `yaml:"nats_url"`
	Subject   string `yaml:"subject"`
	JetStream bool   `yaml:"jetstream"`
}

// Load reads the project file at path, expanding environment variables and
// applying defaults. Relative paths inside the file are resolved against
// the file's directory. Load does not validate; see Validate.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.source = path

	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolve config directory: %w", err)
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = base
	} else if !filepath.IsAbs(cfg.WorkDir) {
		cfg.WorkDir = filepath.Join(base, cfg.WorkDir)
	}
	return cfg, nil
}

// Parse decodes a project file from memory.
func Parse(data []byte) (*Config, error) {
	expanded := os.Expand(string(data), expandVar)

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// expandVar resolves ${NAME} from the environment but leaves positional
// references such as $1 in route destinations untouched.
func expandVar(name string) string {
	if name != "" && strings.Trim(name, "0123456789") == "" {
		return "$" + name
	}
	return os.Getenv(name)
}

// Source returns the path the config was loaded from.
func (c *Config) Source() string { return c.source }

func applyDefaults(cfg *Config) {
	if cfg.Target == "" {
		cfg.Target = DefaultTarget
	}
	if cfg.DiscontinuedRuntimes == nil {
		cfg.DiscontinuedRuntimes = append([]string(nil), DefaultDiscontinuedRuntimes...)
	}
	for i := range cfg.Builds {
		if cfg.Builds[i].Config.Extra == nil {
			continue
		}
		if len(cfg.Builds[i].Config.Extra) == 0 {
			cfg.Builds[i].Config.Extra = nil
		}
	}
}
