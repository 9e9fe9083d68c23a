// Package config loads process configuration from config.yaml with
// environment variable overrides. Secrets (warehouse password, completion
// API key) come only from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for lumera-engine.
// Environment variables always override YAML values for fields that
// support both.
type Config struct {
	Env       string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" env-default:"json"`
	Version   string `yaml:"-"` // Set at load time, not from config

	Knowledgebase KnowledgebaseConfig `yaml:"knowledgebase"`
	Warehouse     WarehouseConfig     `yaml:"warehouse"`
	LLM           LLMConfig           `yaml:"llm"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Filters       FiltersConfig       `yaml:"filters"`

	// Routing groups: group name -> description + member tables.
	// YAML only; the shape does not fit an environment variable.
	Groups map[string]GroupConfig `yaml:"groups"`
}

// KnowledgebaseConfig locates the schema knowledgebase file.
type KnowledgebaseConfig struct {
	// Path is the primary location; CWD and binary-dir fallbacks are
	// attempted when it is missing.
	Path           string            `yaml:"path" env:"KNOWLEDGEBASE_PATH" env-default:"knowledgebase.yaml"`
	FuzzyThreshold int               `yaml:"fuzzy_threshold" env:"KNOWLEDGEBASE_FUZZY_THRESHOLD" env-default:"80"`
	Aliases        map[string]string `yaml:"aliases"`
}

// WarehouseConfig holds the analytics warehouse connection settings.
type WarehouseConfig struct {
	Type     string `yaml:"type" env:"WAREHOUSE_TYPE" env-default:"postgres"` // "postgres" or "sqlserver"
	Host     string `yaml:"host" env:"WAREHOUSE_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"WAREHOUSE_PORT" env-default:"0"` // 0 = dialect default
	User     string `yaml:"user" env:"WAREHOUSE_USER" env-default:""`
	Password string `yaml:"-" env:"WAREHOUSE_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"WAREHOUSE_DATABASE" env-default:""`

	// PostgreSQL only
	SSLMode string `yaml:"ssl_mode" env:"WAREHOUSE_SSLMODE" env-default:"require"`

	// SQL Server only
	Encrypt                bool `yaml:"encrypt" env:"WAREHOUSE_ENCRYPT" env-default:"true"`
	TrustServerCertificate bool `yaml:"trust_server_certificate" env:"WAREHOUSE_TRUST_SERVER_CERTIFICATE" env-default:"false"`
	ConnectionTimeout      int  `yaml:"connection_timeout" env:"WAREHOUSE_CONNECTION_TIMEOUT" env-default:"30"`
}

// LLMConfig holds completion capability settings.
type LLMConfig struct {
	Provider    string  `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	Endpoint    string  `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model       string  `yaml:"model" env:"LLM_MODEL" env-default:""`
	APIKey      string  `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	Temperature float64 `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0"`
}

// PipelineConfig tunes the orchestrator and its repair loops.
type PipelineConfig struct {
	// MaxRetries bounds both the SQL and visualization repair loops.
	MaxRetries int `yaml:"max_retries" env:"PIPELINE_MAX_RETRIES" env-default:"3"`
	// RowLimit caps executed statements that carry no bound of their own.
	RowLimit int `yaml:"row_limit" env:"PIPELINE_ROW_LIMIT" env-default:"2000"`
	// SQLErrorLimit caps diagnostic text fed back into SQL repair prompts.
	SQLErrorLimit int `yaml:"sql_error_limit" env:"PIPELINE_SQL_ERROR_LIMIT" env-default:"600"`
	// VizErrorLimit caps diagnostic text fed back into viz repair prompts.
	VizErrorLimit int `yaml:"viz_error_limit" env:"PIPELINE_VIZ_ERROR_LIMIT" env-default:"800"`
	// VizTimeoutSeconds bounds one execution of generated viz code.
	VizTimeoutSeconds int `yaml:"viz_timeout_seconds" env:"PIPELINE_VIZ_TIMEOUT_SECONDS" env-default:"10"`
	// DefaultGroup is expanded when routing produces nothing usable.
	DefaultGroup string `yaml:"default_group" env:"PIPELINE_DEFAULT_GROUP" env-default:"orders"`
	// SampleRows is how many result rows viz prompts see as sample data.
	SampleRows int `yaml:"sample_rows" env:"PIPELINE_SAMPLE_ROWS" env-default:"5"`
}

// FiltersConfig tunes the fuzzy filter resolver.
type FiltersConfig struct {
	MatchThreshold  int      `yaml:"match_threshold" env:"FILTERS_MATCH_THRESHOLD" env-default:"60"`
	DistinctLimit   int      `yaml:"distinct_limit" env:"FILTERS_DISTINCT_LIMIT" env-default:"500"`
	CacheTTLMinutes int      `yaml:"cache_ttl_minutes" env:"FILTERS_CACHE_TTL_MINUTES" env-default:"60"`
	RedirectTables  []string `yaml:"redirect_tables"`
}

// GroupConfig describes one routing group.
type GroupConfig struct {
	Description string   `yaml:"description"`
	Tables      []string `yaml:"tables"`
}

// Load reads configuration from the given path (or "config.yaml" when
// empty), applying environment overrides. A missing file degrades to
// environment-only configuration.
func Load(path, version string) (*Config, error) {
	cfg := &Config{Version: version}

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Inside a container, localhost means the container itself; the
	// warehouse usually runs on the host.
	cfg.Warehouse.Host = ResolveHostForDocker(cfg.Warehouse.Host)

	return cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Warehouse.Type) {
	case "postgres", "sqlserver":
	default:
		return fmt.Errorf("unsupported warehouse type %q (expected postgres or sqlserver)", c.Warehouse.Type)
	}
	if c.Pipeline.MaxRetries < 0 {
		return fmt.Errorf("pipeline max_retries must not be negative")
	}
	if c.Pipeline.RowLimit <= 0 {
		return fmt.Errorf("pipeline row_limit must be positive")
	}
	return nil
}

// KnowledgebasePaths returns the load candidates in order: the configured
// path, the current working directory, and the binary's directory.
func (c *Config) KnowledgebasePaths() []string {
	name := "knowledgebase.yaml"
	paths := []string{c.Knowledgebase.Path}

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, name))
	}
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), name))
	}
	return paths
}
