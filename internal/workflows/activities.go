package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/canvass/internal/core/domain"
	"github.com/samirrijal/canvass/internal/core/ports"
)

// CoverageSource computes coverage statistics. *usecases.AggregationService
// satisfies it.
type CoverageSource interface {
	CoverageStatistics(ctx context.Context, windowDays int) (*domain.CoverageStats, error)
}

// CoverageActivities holds the activity implementations for the coverage
// report workflow.
type CoverageActivities struct {
	Coverage  CoverageSource
	Publisher ports.EventPublisher
}

// ComputeCoverage summarizes the trailing window. A rejected window is
// permanent and is not retried.
func (a *CoverageActivities) ComputeCoverage(ctx context.Context, windowDays int) (*domain.CoverageStats, error) {
	stats, err := a.Coverage.CoverageStatistics(ctx, windowDays)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), "validation", err)
		}
		return nil, fmt.Errorf("compute coverage: %w", err)
	}
	activity.GetLogger(ctx).Info("coverage computed",
		"window_days", stats.WindowDays,
		"total_visits", stats.TotalVisits,
		"efficiency", stats.CoverageEfficiency,
	)
	return stats, nil
}

// PublishCoverage sends the snapshot to live dashboards.
func (a *CoverageActivities) PublishCoverage(ctx context.Context, stats *domain.CoverageStats) error {
	if a.Publisher == nil {
		activity.GetLogger(ctx).Warn("no publisher configured, snapshot dropped")
		return nil
	}
	if err := a.Publisher.PublishCoverageSnapshot(ctx, stats); err != nil {
		return fmt.Errorf("publish coverage snapshot: %w", err)
	}
	return nil
}
