package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mongo-catalog/internal/catalog"
	"mongo-catalog/internal/config"
)

var (
	verbose          bool
	configPath       string
	dbType           string
	allowDestructive bool

	logger *zap.Logger
	cfg    *config.Config

	cat = catalog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Catalog of e-commerce queries for catalogo_comercio_electronico",
	Long: `catalog lists, renders and executes the named query templates of the
e-commerce store: CRUD, filters and aggregations over categories, products,
users, orders and reviews.

Queries run natively on MongoDB, through their SQL equivalents on Postgres
and MySQL, or against an in-memory store seeded with generated data.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if !cmd.Flags().Changed("allow-destructive") {
			allowDestructive = cfg.Catalog.AllowDestructive
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the yaml config")
	rootCmd.PersistentFlags().StringVar(&dbType, "db", "memory", "database type (mongo, postgres, mysql or memory)")
	rootCmd.PersistentFlags().BoolVar(&allowDestructive, "allow-destructive", false, "allow deletes and drops")

	listCmd.Flags().StringVar(&listSection, "section", "", "only list one section (database, crud, filters, aggregations)")
	runCmd.Flags().BoolVar(&runSeed, "seed", false, "reset and seed the store before running")
	benchCmd.Flags().IntVar(&benchConcurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	benchCmd.Flags().DurationVar(&benchDuration, "duration", 0, "duration of the benchmark (default from config)")

	rootCmd.AddCommand(listCmd, showCmd, scriptCmd, validateCmd, runCmd, benchCmd, seedCmd, importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
