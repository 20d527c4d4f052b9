package runner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mongo-catalog/internal/database"
)

// Run sets up the workload, runs it and tears it down. Teardown runs even
// when the run fails; its error is logged, not returned.
func Run(ctx context.Context, db database.DatabaseDriver, workload database.Workload, concurrency int, duration time.Duration, logger *zap.Logger) (*database.Result, error) {
	if err := workload.Setup(ctx, db, logger); err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}
	defer func() {
		if err := workload.Teardown(ctx, db, logger); err != nil {
			logger.Error("teardown failed", zap.Error(err))
		}
	}()

	result, err := workload.Run(ctx, db, concurrency, duration, logger)
	if err != nil {
		return nil, err
	}

	return result, nil
}
