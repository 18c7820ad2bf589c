package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/canvass/internal/adapters/memory"
	natsadapter "github.com/samirrijal/canvass/internal/adapters/nats"
	"github.com/samirrijal/canvass/internal/adapters/postgres"
	"github.com/samirrijal/canvass/internal/core/ports"
	"github.com/samirrijal/canvass/internal/core/usecases"
	"github.com/samirrijal/canvass/internal/pkg/config"
	"github.com/samirrijal/canvass/internal/pkg/logging"
	"github.com/samirrijal/canvass/internal/workflows"
)

const scheduleID = "coverage-report"

func main() {
	cfg, err := config.Load("canvass-reporter")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var repo ports.VisitRepository
	if cfg.Database.Driver == "memory" {
		// Only useful for wiring checks: the API process has its own store.
		repo = memory.NewVisitStore()
	} else {
		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		repo = postgres.NewVisitRepo(db)
	}

	var publisher ports.EventPublisher
	if cfg.NATS.Enabled {
		nc, err := natsadapter.Connect(cfg.NATS.URL, "canvass-reporter")
		if err != nil {
			log.Fatalf("nats: %v", err)
		}
		pub, err := natsadapter.NewPublisher(nc)
		if err != nil {
			log.Fatalf("nats publisher: %v", err)
		}
		defer pub.Close()
		publisher = pub
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	if err := ensureSchedule(ctx, c, cfg.Temporal); err != nil {
		log.Fatalf("schedule: %v", err)
	}

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.CoverageReportWorkflow)
	w.RegisterActivity(&workflows.CoverageActivities{
		Coverage:  usecases.NewAggregationService(repo, nil),
		Publisher: publisher,
	})

	slog.Info("coverage reporter started",
		"task_queue", cfg.Temporal.TaskQueue,
		"interval", cfg.Temporal.Interval().String(),
	)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

// ensureSchedule registers the periodic coverage report. An existing
// schedule is left as is.
func ensureSchedule(ctx context.Context, c client.Client, t config.TemporalConfig) error {
	_, err := c.ScheduleClient().Create(ctx, client.ScheduleOptions{
		ID: scheduleID,
		Spec: client.ScheduleSpec{
			Intervals: []client.ScheduleIntervalSpec{{Every: t.Interval()}},
		},
		Action: &client.ScheduleWorkflowAction{
			ID:                       scheduleID + "-run",
			Workflow:                 workflows.CoverageReportWorkflow,
			Args:                     []interface{}{workflows.CoverageReportInput{WindowDays: t.WindowDays}},
			TaskQueue:                t.TaskQueue,
			WorkflowExecutionTimeout: 5 * time.Minute,
		},
	})
	if errors.Is(err, temporal.ErrScheduleAlreadyRunning) {
		slog.Info("coverage schedule already registered", "id", scheduleID)
		return nil
	}
	return err
}
