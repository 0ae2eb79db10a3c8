package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hostwise/guestline-ai-platform/pkg/logging"
)

// Reconciler periodically sweeps the job table and wakes every property
// that still owns queued jobs. In-process timers are lost on restart;
// the sweep restores them and also catches jobs whose timer fire was
// missed while the process was down.
type Reconciler struct {
	service *Service
	cron    *cron.Cron
	logger  *logging.Logger
}

// NewReconciler schedules the sweep at the given interval.
func NewReconciler(service *Service, interval time.Duration, logger *logging.Logger) (*Reconciler, error) {
	if service == nil {
		panic("scheduler: service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if interval <= 0 {
		interval = 2 * time.Minute
	}

	r := &Reconciler{
		service: service,
		cron:    cron.New(),
		logger:  logger,
	}
	if _, err := r.cron.AddFunc(fmt.Sprintf("@every %s", interval), r.sweep); err != nil {
		return nil, fmt.Errorf("scheduler: register sweep: %w", err)
	}
	return r, nil
}

// Start launches the sweep schedule and runs one sweep immediately so
// pending jobs regain their timers right after boot.
func (r *Reconciler) Start() {
	r.sweep()
	r.cron.Start()
}

// Stop halts the sweep schedule and waits for a running sweep.
func (r *Reconciler) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *Reconciler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	properties, err := r.service.jobs.PropertiesWithQueuedJobs(ctx)
	if err != nil {
		r.logger.Error("reminder sweep failed", "error", err)
		return
	}

	for _, propertyID := range properties {
		r.service.Wake(propertyID)
	}
	if len(properties) > 0 {
		r.logger.Debug("reminder sweep woke properties", "count", len(properties))
	}
}
