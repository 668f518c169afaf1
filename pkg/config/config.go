package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Store configuration
	Store StoreConfig `mapstructure:"store"`

	// Schema configuration
	Schema SchemaConfig `mapstructure:"schema"`

	// Linker configuration
	Linker LinkerConfig `mapstructure:"linker"`

	// Updater configuration
	Updater UpdaterConfig `mapstructure:"updater"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// Alert configuration
	Alert AlertConfig `mapstructure:"alert"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// AlertConfig holds configuration for alerting
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	MinRequests      uint32  `mapstructure:"min_requests"`
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	// ParquetPath is the directory error records are written to; empty disables it
	ParquetPath string `mapstructure:"parquet_path"`
	BufferSize  int    `mapstructure:"buffer_size"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// StoreConfig holds graph store configuration
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // sparql, neo4j, badger

	// SPARQL endpoint (Fuseki layout: <url>/<dataset>/query)
	URL       string `mapstructure:"url"`
	Dataset   string `mapstructure:"dataset"`
	QueryURL  string `mapstructure:"query_url"`
	UpdateURL string `mapstructure:"update_url"`

	// Neo4j
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`

	// Shared credentials for sparql and neo4j
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// Badger
	Path     string `mapstructure:"path"`
	InMemory bool   `mapstructure:"in_memory"`

	Timeout time.Duration `mapstructure:"timeout"`
}

// SchemaConfig selects the schema document and the entity class.
type SchemaConfig struct {
	// Path to a .ttl, .nt, .owl/.rdf or .yaml document; empty uses the built-in blueprint
	Path        string `mapstructure:"path"`
	Class       string `mapstructure:"class"`
	Namespace   string `mapstructure:"namespace"`
	Orientation string `mapstructure:"orientation"` // blueprint only: quaternion, euler
}

// LinkerConfig selects the linker.
type LinkerConfig struct {
	Mode string `mapstructure:"mode"` // exact, none
}

// UpdaterConfig configures the update orchestrator.
type UpdaterConfig struct {
	Allocator string        `mapstructure:"allocator"` // sequential, uuid
	CacheTTL  time.Duration `mapstructure:"cache_ttl"` // 0 disables the registry cache
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Set defaults
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Override with environment variables if present
	if err := overrideWithEnv(config); err != nil {
		return nil, err
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	// Store defaults
	viper.SetDefault("store.driver", "sparql")
	viper.SetDefault("store.url", "http://localhost:3030")
	viper.SetDefault("store.dataset", "mainDataset")
	viper.SetDefault("store.uri", "bolt://localhost:7687")
	viper.SetDefault("store.database", "neo4j")
	viper.SetDefault("store.path", "./scenegraph_db")
	viper.SetDefault("store.in_memory", false)
	viper.SetDefault("store.timeout", 30*time.Second)

	// Schema defaults
	viper.SetDefault("schema.path", "")
	viper.SetDefault("schema.class", "SceneObject")
	viper.SetDefault("schema.namespace", "http://example.org/ontology#")
	viper.SetDefault("schema.orientation", "quaternion")

	viper.SetDefault("linker.mode", "exact")

	viper.SetDefault("updater.allocator", "sequential")
	viper.SetDefault("updater.cache_ttl", 0)

	// Circuit breaker defaults
	viper.SetDefault("circuit_breaker.enabled", false)
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.min_requests", 3)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	// Telemetry defaults
	viper.SetDefault("telemetry.buffer_size", 100)
	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetDefault("telemetry.parquet_path", filepath.Join(home, ".scenegraph", "telemetry"))
	}
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) error {
	if drv := os.Getenv("STORE_DRIVER"); drv != "" {
		config.Store.Driver = drv
	}

	// Fuseki endpoint
	if u := os.Getenv("FUSEKI_URL"); u != "" {
		config.Store.URL = u
	}
	if ds := os.Getenv("FUSEKI_DATASET"); ds != "" {
		config.Store.Dataset = ds
	}

	// Neo4j credentials
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Store.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Store.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Store.Password = pass
	}

	// Badger database path
	if dbPath := os.Getenv("BADGER_PATH"); dbPath != "" {
		config.Store.Path = dbPath
	}

	if path := os.Getenv("SCHEMA_PATH"); path != "" {
		config.Schema.Path = path
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid SERVER_PORT %q: %w", port, err)
		}
		config.Server.Port = p
	}

	// Telemetry settings
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
	return nil
}
