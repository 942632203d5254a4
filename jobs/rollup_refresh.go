package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/gestor-comercial/gestor/internal/reporting"
)

// RollupRefreshJob invalidates the monthly rollup cache so the next read
// recomputes from the ledger.
type RollupRefreshJob struct {
	Reporting *reporting.Service
	Logger    *slog.Logger
}

// NewRollupRefreshJob wires dependencies for the refresh handler.
func NewRollupRefreshJob(reportingSvc *reporting.Service, logger *slog.Logger) *RollupRefreshJob {
	return &RollupRefreshJob{Reporting: reportingSvc, Logger: logger}
}

// Handle processes TaskTypeRollupRefresh tasks.
func (j *RollupRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reporting == nil {
		return errors.New("rollup refresh: handler not configured")
	}
	if err := j.Reporting.Invalidate(ctx); err != nil {
		if j.Logger != nil {
			j.Logger.Error("rollup refresh", slog.Any("error", err))
		}
		return err
	}
	if j.Logger != nil {
		j.Logger.Info("rollup cache invalidated", slog.String("job", "rollup_refresh"))
	}
	return nil
}
