package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory.
const FileName = "bankcsv.yaml"

// EnvPrefix prefixes environment overrides, e.g. BANKCSV_LOG_LEVEL.
const EnvPrefix = "BANKCSV"

// Config represents the top-level bankcsv.yaml configuration.
type Config struct {
	SchemasDir  string            `yaml:"schemas_dir" mapstructure:"schemas_dir"`
	RulesDir    string            `yaml:"rules_dir,omitempty" mapstructure:"rules_dir"`
	Workers     int               `yaml:"workers" mapstructure:"workers"`
	Import      ImportConfig      `yaml:"import" mapstructure:"import"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics" mapstructure:"diagnostics"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// ImportConfig controls where bank exports are picked up.
type ImportConfig struct {
	Dir           string `yaml:"dir" mapstructure:"dir"`
	MoveProcessed bool   `yaml:"move_processed" mapstructure:"move_processed"`
}

// OutputConfig controls converted CSV output.
type OutputConfig struct {
	Dir          string   `yaml:"dir" mapstructure:"dir"`
	ExtraColumns []string `yaml:"extra_columns,omitempty" mapstructure:"extra_columns"`
}

// DiagnosticsConfig controls the persistent diagnostics log.
type DiagnosticsConfig struct {
	File string `yaml:"file" mapstructure:"file"` // empty disables the log
}

// LogConfig controls process logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "text" or "json"
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		SchemasDir: "schemas",
		Workers:    runtime.NumCPU(),
		Import: ImportConfig{
			Dir: "import",
		},
		Output: OutputConfig{
			Dir: "out",
		},
		Diagnostics: DiagnosticsConfig{
			File: "logs/diagnostics.csv",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// flagKeys maps config keys to the command-line flags that override them.
var flagKeys = map[string]string{
	"schemas_dir": "schemas",
	"rules_dir":   "rules-dir",
	"workers":     "workers",
	"output.dir":  "out-dir",
	"log.level":   "log-level",
	"log.format":  "log-format",
}

// Load reads configuration from path, or from ./bankcsv.yaml when path is
// empty, with BANKCSV_* environment variables taking precedence. A missing
// ./bankcsv.yaml is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	return LoadWithFlags(path, nil)
}

// LoadWithFlags is like Load, but flags in fs that the user set take
// precedence over everything else.
func LoadWithFlags(path string, fs *pflag.FlagSet) (*Config, error) {
	v := newViper()
	if fs != nil {
		for key, name := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault("schemas_dir", d.SchemasDir)
	v.SetDefault("rules_dir", d.RulesDir)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("import.dir", d.Import.Dir)
	v.SetDefault("import.move_processed", d.Import.MoveProcessed)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.extra_columns", d.Output.ExtraColumns)
	v.SetDefault("diagnostics.file", d.Diagnostics.File)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("invalid config: workers must be at least 1, got %d", c.Workers)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid config: log.format must be text or json, got %q", c.Log.Format)
	}
	if strings.TrimSpace(c.SchemasDir) == "" {
		return errors.New("invalid config: schemas_dir is required")
	}
	return nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
