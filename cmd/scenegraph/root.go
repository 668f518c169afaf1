package scenegraph

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/soundprediction/scenegraph/pkg/config"
	"github.com/soundprediction/scenegraph/pkg/logger"
	"github.com/soundprediction/scenegraph/pkg/telemetry"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "scenegraph",
		Short: "Scenegraph: scene object registry",
		Long: `Scenegraph keeps a registry of physical objects observed by a perception
pipeline in an RDF or property graph store. Each observation is linked to a
registered object or registered under a fresh identifier, and every object is
written with one atomic upsert.

The attributes of the tracked class are reflected from an ontology document,
so the same tool serves any schema expressed in Turtle, N-Triples, RDF/XML or
YAML.`,
		SilenceUsage: true,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.scenegraph.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().String("store-driver", "sparql", "graph store driver (sparql, neo4j, badger)")
	rootCmd.PersistentFlags().String("store-url", "", "SPARQL endpoint base URL")
	rootCmd.PersistentFlags().String("store-path", "", "badger database directory")
	rootCmd.PersistentFlags().String("schema", "", "ontology document (.ttl, .nt, .owl, .rdf, .yaml); empty uses the built-in blueprint")
	rootCmd.PersistentFlags().String("class", "", "entity class to track")
	rootCmd.PersistentFlags().String("telemetry-parquet-path", "", "directory for parquet error records")

	// Bind flags to viper
	bindFlag("log.level", "log-level")
	bindFlag("log.format", "log-format")
	bindFlag("store.driver", "store-driver")
	bindFlag("store.url", "store-url")
	bindFlag("store.path", "store-path")
	bindFlag("schema.path", "schema")
	bindFlag("schema.class", "class")
	bindFlag("telemetry.parquet_path", "telemetry-parquet-path")
}

func bindFlag(key, flag string) {
	cobra.CheckErr(viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".scenegraph" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".scenegraph")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// env bundles what every subcommand needs.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	flush  func()
}

// setup loads the configuration and builds the logger. Error records are
// also written to parquet files when a telemetry path is configured.
func setup(stderr io.Writer) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	base, err := logger.NewLogger(stderr, logger.Options{Level: level, Format: cfg.Log.Format})
	if err != nil {
		return nil, err
	}

	rt := &env{cfg: cfg, logger: base, flush: func() {}}
	if cfg.Telemetry.ParquetPath == "" {
		return rt, nil
	}

	ph, err := telemetry.NewParquetHandler(base.Handler(), cfg.Telemetry.ParquetPath, cfg.Telemetry.BufferSize)
	if err != nil {
		base.Warn("error tracking disabled", "path", cfg.Telemetry.ParquetPath, "error", err)
		return rt, nil
	}
	rt.logger = slog.New(ph)
	rt.flush = func() {
		if err := ph.Close(); err != nil {
			base.Warn("failed to flush error records", "error", err)
		}
	}
	base.Debug("error tracking enabled", "path", cfg.Telemetry.ParquetPath)
	return rt, nil
}
