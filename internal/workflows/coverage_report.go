package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/canvass/internal/core/domain"
)

// CoverageReportInput is the input for the coverage report workflow.
type CoverageReportInput struct {
	WindowDays int
}

// CoverageReportWorkflow computes coverage for the window and pushes the
// snapshot to every API instance.
func CoverageReportWorkflow(ctx workflow.Context, input CoverageReportInput) (*domain.CoverageStats, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting coverage report", "windowDays", input.WindowDays)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 3,
		},
	})

	var stats *domain.CoverageStats
	if err := workflow.ExecuteActivity(ctx, "ComputeCoverage", input.WindowDays).Get(ctx, &stats); err != nil {
		return nil, err
	}

	if err := workflow.ExecuteActivity(ctx, "PublishCoverage", stats).Get(ctx, nil); err != nil {
		logger.Warn("coverage snapshot not published", "error", err)
		return nil, err
	}

	logger.Info("Coverage report published", "totalVisits", stats.TotalVisits)
	return stats, nil
}
