package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Model configures training and the model cache.
type Model struct {
	Path         string  `mapstructure:"path" yaml:"path"`
	VerifyCache  bool    `mapstructure:"verify_cache" yaml:"verify_cache"`
	TestFraction float64 `mapstructure:"test_fraction" yaml:"test_fraction"`
	CVFolds      int     `mapstructure:"cv_folds" yaml:"cv_folds"`
	Trees        int     `mapstructure:"trees" yaml:"trees"`
	Mtry         []int   `mapstructure:"mtry" yaml:"mtry"`
	MinLeaf      int     `mapstructure:"min_leaf" yaml:"min_leaf"`
	MaxDepth     int     `mapstructure:"max_depth" yaml:"max_depth"`
	Workers      int     `mapstructure:"workers" yaml:"workers"`
	RampSteps    int     `mapstructure:"ramp_steps" yaml:"ramp_steps"`
	SampleSize   int     `mapstructure:"sample_size" yaml:"sample_size"`
}

// Cluster configures DBSCAN.
type Cluster struct {
	Eps    float64 `mapstructure:"eps" yaml:"eps"`
	MinPts int     `mapstructure:"min_pts" yaml:"min_pts"`
}

// Global configuration structure.
type Global struct {
	DataPath  string `mapstructure:"data_path" yaml:"data_path"`
	Sheet     string `mapstructure:"sheet" yaml:"sheet"`
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
	Seed      int64  `mapstructure:"seed" yaml:"seed"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	Model   Model   `mapstructure:"model" yaml:"model"`
	Cluster Cluster `mapstructure:"cluster" yaml:"cluster"`
}

// Keys lists every settable key in dotted form.
var Keys = []string{
	"data_path", "sheet", "output_dir", "seed", "log_level", "log_format",
	"model.path", "model.verify_cache", "model.test_fraction", "model.cv_folds",
	"model.trees", "model.mtry", "model.min_leaf", "model.max_depth",
	"model.workers", "model.ramp_steps", "model.sample_size",
	"cluster.eps", "cluster.min_pts",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_path", "data/battery_data.csv")
	v.SetDefault("sheet", "")
	v.SetDefault("output_dir", "report")
	v.SetDefault("seed", 42)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	// Model defaults
	v.SetDefault("model.path", "models/energy_forest.json")
	v.SetDefault("model.verify_cache", true)
	v.SetDefault("model.test_fraction", 0.2)
	v.SetDefault("model.cv_folds", 10)
	v.SetDefault("model.trees", 200)
	v.SetDefault("model.mtry", []int{2, 3, 4})
	v.SetDefault("model.min_leaf", 5)
	v.SetDefault("model.max_depth", 0)
	v.SetDefault("model.workers", 0)
	v.SetDefault("model.ramp_steps", 50)
	v.SetDefault("model.sample_size", 10)
	// DBSCAN defaults
	v.SetDefault("cluster.eps", 0.5)
	v.SetDefault("cluster.min_pts", 5)
}

// DefaultPath returns ~/.voltlens/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".voltlens", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.voltlens/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file (cfgFile or ~/.voltlens/config.yaml) > defaults.
// Nested keys map to env vars with underscores, e.g. VOLTLENS_MODEL_TREES.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("VOLTLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// A missing default file is fine; an explicit --config must exist.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Set parses value for a dotted key and stores it in c.
func Set(c *Global, key, value string) error {
	known := false
	for _, k := range Keys {
		if k == key {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown config key %q", key)
	}
	v := viper.New()
	setDefaults(v)
	if err := v.MergeConfigMap(toMap(c)); err != nil {
		return fmt.Errorf("merge config: %w", err)
	}
	if key == "model.mtry" {
		var grid []int
		for _, part := range strings.Split(value, ",") {
			var n int
			if _, err := fmt.Sscanf(strings.TrimSpace(part), "%d", &n); err != nil {
				return fmt.Errorf("parse %s: %w", key, err)
			}
			grid = append(grid, n)
		}
		v.Set(key, grid)
	} else {
		v.Set(key, value)
	}
	var out Global
	if err := v.Unmarshal(&out); err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*c = out
	return nil
}

func toMap(c *Global) map[string]any {
	b, _ := yaml.Marshal(c)
	m := map[string]any{}
	_ = yaml.Unmarshal(b, &m)
	return m
}
