package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mongo-catalog/internal/database"
	"mongo-catalog/internal/importer"
	"mongo-catalog/internal/runner"
	"mongo-catalog/internal/workloads/analytics"
	"mongo-catalog/internal/workloads/ecommerce"
)

var (
	runSeed          bool
	benchConcurrency int
	benchDuration    time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run NAME",
	Short: "Execute one query and print its outcome as Extended JSON",
	Long: `Executes a catalog query against the selected database. Deletes and drops
are refused unless --allow-destructive is given. The memory database starts
empty in every process and is always seeded first.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

var benchCmd = &cobra.Command{
	Use:   "bench NAME",
	Short: "Benchmark a query, or the dashboard or ingestion workload",
	Long: `Seeds the database, runs NAME with concurrent workers for a duration and
prints latency percentiles and throughput. NAME is a catalog query, or one of
the workloads "dashboard" (every aggregation in rotation) and "ingestion"
(bulk review inserts).`,
	Args: cobra.ExactArgs(1),
	RunE: runBench,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Reset the database and load a generated dataset",
	Args:  cobra.NoArgs,
	RunE:  runSeedCmd,
}

var importCmd = &cobra.Command{
	Use:   "import DIR",
	Short: "Load <collection>.json files from DIR",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func drivers() map[string]database.DatabaseDriver {
	return map[string]database.DatabaseDriver{
		"postgres": &database.PostgresDriver{},
		"mysql":    &database.MySQLDriver{},
		"mongo":    &database.MongoDriver{Database: cfg.Catalog.Database, Transactions: cfg.Catalog.Transactions},
		"memory":   database.NewMemoryDriver(),
	}
}

func openDriver() (database.DatabaseDriver, error) {
	driver, ok := drivers()[dbType]
	if !ok {
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
	if err := driver.Connect(cfg.DSN(dbType)); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", dbType, err)
	}
	logger.Debug("connected", zap.String("db", dbType))
	return driver, nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func dataset() *ecommerce.Dataset {
	return ecommerce.Generate(ecommerce.Options{
		Categories: cfg.Seed.Categories,
		Products:   cfg.Seed.Products,
		Users:      cfg.Seed.Users,
		Orders:     cfg.Seed.Orders,
		Reviews:    cfg.Seed.Reviews,
		Seed:       cfg.Seed.Value,
	})
}

func seed(ctx context.Context, db database.DatabaseDriver, data *ecommerce.Dataset) error {
	if err := db.Reset(ctx); err != nil {
		return err
	}
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	return data.Load(ctx, db)
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}

func runQuery(cmd *cobra.Command, args []string) error {
	q, err := cat.Get(args[0])
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(cmd)
	defer cancel()

	db, err := openDriver()
	if err != nil {
		return err
	}
	defer db.Close()

	if runSeed || dbType == "memory" {
		if err := seed(ctx, db, dataset()); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	out, err := database.Execute(ctx, db, q, allowDestructive)
	if err != nil {
		return err
	}
	logger.Debug("query executed", zap.String("query", q.Name), zap.Int("documents", len(out.Documents)))

	body, err := out.JSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(body))
	return err
}

func workload(name string) (database.Workload, error) {
	switch name {
	case "dashboard":
		return &analytics.DashboardQueryTest{Catalog: cat, Data: dataset()}, nil
	case "ingestion":
		return &analytics.IngestionTest{Data: dataset()}, nil
	}
	q, err := cat.Get(name)
	if err != nil {
		return nil, err
	}
	return &ecommerce.CatalogTest{Query: q, Data: dataset(), AllowDestructive: allowDestructive}, nil
}

func runBench(cmd *cobra.Command, args []string) error {
	w, err := workload(args[0])
	if err != nil {
		return err
	}
	concurrency := benchConcurrency
	if concurrency <= 0 {
		concurrency = cfg.BenchmarkSettings.DefaultConcurrency
	}
	duration := benchDuration
	if duration <= 0 {
		if duration, err = cfg.Duration(); err != nil {
			return err
		}
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	db, err := openDriver()
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("running benchmark",
		zap.String("workload", args[0]),
		zap.String("db", dbType),
		zap.Int("concurrency", concurrency),
		zap.Duration("duration", duration))

	result, err := runner.Run(ctx, db, w, concurrency, duration, logger)
	if err != nil {
		return fmt.Errorf("benchmark failed: %w", err)
	}
	return writeJSON(cmd, result)
}

func runSeedCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	db, err := openDriver()
	if err != nil {
		return err
	}
	defer db.Close()

	data := dataset()
	if err := seed(ctx, db, data); err != nil {
		return err
	}
	counts := map[string]int{
		"categories": len(data.Categories),
		"products":   len(data.Products),
		"users":      len(data.Users),
		"orders":     len(data.Orders),
		"reviews":    len(data.Reviews),
	}
	logger.Info("seeded", zap.String("db", dbType), zap.Any("counts", counts))
	return writeJSON(cmd, counts)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	db, err := openDriver()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}
	counts, err := importer.Import(ctx, db, args[0], logger)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	total := 0
	for _, name := range names {
		total += counts[name]
	}
	logger.Info("import finished", zap.Strings("collections", names), zap.Int("documents", total))
	return writeJSON(cmd, counts)
}
