package daemon_test

import (
	"context"
	"testing"
	"time"

	"stencil/internal/daemon"
	"stencil/internal/logging"
	"stencil/internal/stage"
	"stencil/internal/testsupport"
	"stencil/internal/workflow"
)

type idleStage struct{}

func (idleStage) Name() string { return "idle" }

func (idleStage) Run(context.Context) (stage.Summary, error) { return stage.Summary{}, nil }

func (idleStage) HealthCheck(context.Context) stage.Health { return stage.Healthy("idle") }

func newDaemon(t *testing.T) *daemon.Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	manager := workflow.NewManagerWithStages(cfg, store, logging.NewNop(), []workflow.ScheduledStage{
		{Runner: idleStage{}, Interval: time.Hour},
	})
	d, err := daemon.New(cfg, store, logging.NewNop(), manager)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d
}

func TestStartStopReportsStatus(t *testing.T) {
	d := newDaemon(t)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	status := d.Status(ctx)
	if !status.Running || !status.Workflow.Running {
		t.Fatalf("expected running daemon, got %#v", status)
	}
	if status.QueueDBPath == "" || status.LockFilePath == "" {
		t.Fatalf("expected paths in status, got %#v", status)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("double Start must fail")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected stopped daemon")
	}
}

func TestSecondInstanceIsRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	newManager := func() *workflow.Manager {
		return workflow.NewManagerWithStages(cfg, store, logging.NewNop(), []workflow.ScheduledStage{
			{Runner: idleStage{}, Interval: time.Hour},
		})
	}

	first, err := daemon.New(cfg, store, logging.NewNop(), newManager())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second, err := daemon.New(cfg, store, logging.NewNop(), newManager())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance must not acquire the lock")
	}
}
