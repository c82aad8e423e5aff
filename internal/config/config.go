package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Data
	DataDir       string `mapstructure:"data_dir" yaml:"data_dir"`
	MaxFileSizeMB int    `mapstructure:"max_file_size_mb" yaml:"max_file_size_mb" validate:"gte=0"`

	// Preprocessing
	LabelColumn        string  `mapstructure:"label_column" yaml:"label_column"`
	TopK               int     `mapstructure:"top_k" yaml:"top_k" validate:"gte=1"`
	IQRMultiplier      float64 `mapstructure:"iqr_multiplier" yaml:"iqr_multiplier" validate:"gt=0"`
	MissingPlaceholder string  `mapstructure:"missing_placeholder" yaml:"missing_placeholder" validate:"required"`
	FailurePolicy      string  `mapstructure:"failure_policy" yaml:"failure_policy" validate:"oneof=atomic best-effort"`

	// Models
	ModelsDir      string  `mapstructure:"models_dir" yaml:"models_dir"`
	TestSize       float64 `mapstructure:"test_size" yaml:"test_size" validate:"gt=0,lt=1"`
	RandomState    uint64  `mapstructure:"random_state" yaml:"random_state"`
	KMeansClusters int     `mapstructure:"kmeans_clusters" yaml:"kmeans_clusters" validate:"gte=2"`
	KNNNeighbors   int     `mapstructure:"knn_neighbors" yaml:"knn_neighbors" validate:"gte=1"`

	// Analysis
	OutlierThreshold float64 `mapstructure:"outlier_threshold" yaml:"outlier_threshold" validate:"gt=0"`
	ConfidenceLevel  float64 `mapstructure:"confidence_level" yaml:"confidence_level" validate:"gt=0,lt=1"`
	DBSCANEps        float64 `mapstructure:"dbscan_eps" yaml:"dbscan_eps" validate:"gt=0"`
	DBSCANMinSamples int     `mapstructure:"dbscan_min_samples" yaml:"dbscan_min_samples" validate:"gte=1"`

	// Reports
	ReportDir    string `mapstructure:"report_dir" yaml:"report_dir"`
	ReportFormat string `mapstructure:"report_format" yaml:"report_format" validate:"oneof=md html pdf csv"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec" validate:"gte=1"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts" validate:"gte=1"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms" validate:"gte=0"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms" validate:"gte=0"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=trace debug info warn error disabled"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=console json"`
	LogFile   string `mapstructure:"log_file" yaml:"log_file"`
}

// Keys lists every configuration key in declaration order.
var Keys = []string{
	"data_dir", "max_file_size_mb",
	"label_column", "top_k", "iqr_multiplier", "missing_placeholder", "failure_policy",
	"models_dir", "test_size", "random_state", "kmeans_clusters", "knn_neighbors",
	"outlier_threshold", "confidence_level", "dbscan_eps", "dbscan_min_samples",
	"report_dir", "report_format",
	"http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms",
	"log_level", "log_format", "log_file",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks value ranges and enumerations.
func (c *Global) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (%s=%v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Dir returns ~/.dataprep.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".dataprep"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.dataprep/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
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

func setDefaults(v *viper.Viper) {
	// Data
	v.SetDefault("data_dir", "data")
	v.SetDefault("max_file_size_mb", 100)
	// Preprocessing
	v.SetDefault("label_column", "target")
	v.SetDefault("top_k", 10)
	v.SetDefault("iqr_multiplier", 1.5)
	v.SetDefault("missing_placeholder", "Unknown")
	v.SetDefault("failure_policy", "atomic")
	// Models
	v.SetDefault("models_dir", "")
	v.SetDefault("test_size", 0.2)
	v.SetDefault("random_state", 42)
	v.SetDefault("kmeans_clusters", 3)
	v.SetDefault("knn_neighbors", 5)
	// Analysis
	v.SetDefault("outlier_threshold", 3.5)
	v.SetDefault("confidence_level", 0.95)
	v.SetDefault("dbscan_eps", 0.5)
	v.SetDefault("dbscan_min_samples", 5)
	// Reports
	v.SetDefault("report_dir", "reports")
	v.SetDefault("report_format", "pdf")
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 30)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 1000)
	v.SetDefault("retry_max_delay_ms", 8000)
	// Logging
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "console")
	v.SetDefault("log_file", "")
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (DATAPREP_*, including values from a .env file in the
// working directory) > config file (cfgFile or ~/.dataprep/config.yaml) > defaults.
func Load(cfgFile string) (*Global, error) {
	// A missing .env is normal; existing variables win over its values.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("DATAPREP")
	v.AutomaticEnv()
	setDefaults(v)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Resolve models_dir default: ~/.dataprep/models
	if c.ModelsDir == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.ModelsDir = filepath.Join(dir, "models")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Get returns the value of key as it would be written to yaml.
func (c *Global) Get(key string) (any, error) {
	m, err := c.asMap()
	if err != nil {
		return nil, err
	}
	val, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key %q", key)
	}
	return val, nil
}

// Set parses value into key and validates the result.
func (c *Global) Set(key, value string) error {
	m, err := c.asMap()
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return fmt.Errorf("unknown config key %q", key)
	}
	var parsed any
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil || parsed == nil {
		parsed = value
	}
	m[key] = parsed
	b, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	next := *c
	if err := yaml.Unmarshal(b, &next); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

func (c *Global) asMap() (map[string]any, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}
	m := map[string]any{}
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	return m, nil
}
