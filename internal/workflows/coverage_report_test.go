package workflows

import (
	"context"
	"errors"
	"testing"

	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/canvass/internal/core/domain"
)

type fakeCoverage struct {
	stats *domain.CoverageStats
	err   error
	calls int
}

func (f *fakeCoverage) CoverageStatistics(ctx context.Context, windowDays int) (*domain.CoverageStats, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	s := *f.stats
	s.WindowDays = windowDays
	return &s, nil
}

type fakePublisher struct {
	snapshots []*domain.CoverageStats
	err       error
}

func (f *fakePublisher) PublishVisitCreated(ctx context.Context, s domain.VisitSummary) error {
	return nil
}

func (f *fakePublisher) PublishCoverageSnapshot(ctx context.Context, stats *domain.CoverageStats) error {
	if f.err != nil {
		return f.err
	}
	f.snapshots = append(f.snapshots, stats)
	return nil
}

func TestCoverageReportWorkflow_Publishes(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	source := &fakeCoverage{stats: &domain.CoverageStats{TotalVisits: 10, ProductiveVisits: 4, CoverageEfficiency: 40}}
	pub := &fakePublisher{}
	env.RegisterActivity(&CoverageActivities{Coverage: source, Publisher: pub})

	env.ExecuteWorkflow(CoverageReportWorkflow, CoverageReportInput{WindowDays: 7})

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}

	var stats *domain.CoverageStats
	if err := env.GetWorkflowResult(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.CoverageEfficiency != 40 || stats.WindowDays != 7 {
		t.Errorf("unexpected result %+v", stats)
	}
	if len(pub.snapshots) != 1 || pub.snapshots[0].TotalVisits != 10 {
		t.Errorf("expected one published snapshot, got %+v", pub.snapshots)
	}
}

func TestCoverageReportWorkflow_InvalidWindowNotRetried(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	source := &fakeCoverage{err: &domain.ValidationError{Field: "window_days", Reason: "must be between 1 and 90"}}
	pub := &fakePublisher{}
	env.RegisterActivity(&CoverageActivities{Coverage: source, Publisher: pub})

	env.ExecuteWorkflow(CoverageReportWorkflow, CoverageReportInput{WindowDays: 120})

	if env.GetWorkflowError() == nil {
		t.Fatal("expected workflow error")
	}
	if source.calls != 1 {
		t.Errorf("expected a single attempt, got %d", source.calls)
	}
	if len(pub.snapshots) != 0 {
		t.Error("nothing should be published")
	}
}

func TestCoverageReportWorkflow_StoreErrorsRetried(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	source := &fakeCoverage{err: &domain.StoreError{Op: "count snapped cells", Err: errors.New("timeout")}}
	env.RegisterActivity(&CoverageActivities{Coverage: source, Publisher: &fakePublisher{}})

	env.ExecuteWorkflow(CoverageReportWorkflow, CoverageReportInput{WindowDays: 7})

	if env.GetWorkflowError() == nil {
		t.Fatal("expected workflow error")
	}
	if source.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", source.calls)
	}
}

func TestCoverageReportWorkflow_PublishFailureFailsRun(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	source := &fakeCoverage{stats: &domain.CoverageStats{TotalVisits: 2}}
	env.RegisterActivity(&CoverageActivities{Coverage: source, Publisher: &fakePublisher{err: errors.New("no responders")}})

	env.ExecuteWorkflow(CoverageReportWorkflow, CoverageReportInput{WindowDays: 7})

	if env.GetWorkflowError() == nil {
		t.Fatal("expected publish error to fail the run")
	}
}
