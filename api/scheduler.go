/*
scheduler.go - Automated billing scheduler

PURPOSE:
  Runs the recurring billing jobs on cron schedules:
  - Monthly schedule generation: on the 1st, generate the month's rent
    obligations for every active tenancy (catches tenants whose owners
    never triggered generation manually)
  - Overdue sweep: hourly, flip pending obligations past their due date
    to overdue so list queries and dashboards stay accurate

DESIGN:
  - robfig/cron drives the timing; jobs are plain closures
  - Generation is idempotent, so overlapping manual and scheduled runs
    are safe: existing months are skipped
  - The sweep tolerates compare-and-swap conflicts; a lost row is picked
    up by the next run

CONFIGURATION:
  - GenerateSpec: cron spec for generation (default "0 2 1 * *")
  - SweepSpec:    cron spec for the overdue sweep (default "@hourly")

USAGE:
  sched := NewBillingScheduler(stores, handler.Schedule, log)
  sched.Start()
  // ... later
  sched.Stop()

SEE ALSO:
  - billing/schedule.go: Generation logic
  - billing/payment.go: ReclassifyOverdue
*/
package api

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/warp/property-engine/billing"
)

// BillingScheduler owns the cron runner for recurring billing jobs.
type BillingScheduler struct {
	Stores   Stores
	Schedule *billing.ScheduleGenerator

	// GenerateSpec and SweepSpec are cron expressions; empty means the
	// default.
	GenerateSpec string
	SweepSpec    string

	Log  logrus.FieldLogger
	cron *cron.Cron
}

const (
	defaultGenerateSpec = "0 2 1 * *"
	defaultSweepSpec    = "@hourly"

	jobTimeout = 5 * time.Minute
)

// NewBillingScheduler creates a scheduler over the given stores.
func NewBillingScheduler(stores Stores, schedule *billing.ScheduleGenerator, log logrus.FieldLogger) *BillingScheduler {
	return &BillingScheduler{
		Stores:   stores,
		Schedule: schedule,
		Log:      log,
	}
}

// Start registers the jobs and begins the cron runner.
func (s *BillingScheduler) Start() error {
	s.cron = cron.New()

	generateSpec := s.GenerateSpec
	if generateSpec == "" {
		generateSpec = defaultGenerateSpec
	}
	sweepSpec := s.SweepSpec
	if sweepSpec == "" {
		sweepSpec = defaultSweepSpec
	}

	if _, err := s.cron.AddFunc(generateSpec, s.runGeneration); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(sweepSpec, s.runOverdueSweep); err != nil {
		return err
	}

	s.cron.Start()
	s.Log.WithFields(logrus.Fields{
		"generate_spec": generateSpec,
		"sweep_spec":    sweepSpec,
	}).Info("billing scheduler started")
	return nil
}

// Stop halts the cron runner and waits for running jobs.
func (s *BillingScheduler) Stop() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.Log.Info("billing scheduler stopped")
}

// runGeneration generates the remaining obligations for every tenancy of
// every admin. Per-tenancy failures are logged and counted, never fatal.
func (s *BillingScheduler) runGeneration() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	now := billing.Today()
	admins, err := s.Stores.Properties.ListAdmins(ctx)
	if err != nil {
		s.Log.WithError(err).Error("schedule generation: failed to list admins")
		return
	}

	total := billing.ScheduleResult{}
	for _, admin := range admins {
		plots, err := s.Stores.Properties.ListPlots(ctx, admin.ID)
		if err != nil {
			s.Log.WithError(err).WithField("admin", admin.ID).Warn("schedule generation: failed to list plots")
			continue
		}
		plotIDs := make([]billing.PlotID, 0, len(plots))
		for _, p := range plots {
			plotIDs = append(plotIDs, p.ID)
		}

		tenants, err := s.Stores.Properties.ListTenants(ctx, plotIDs)
		if err != nil {
			s.Log.WithError(err).WithField("admin", admin.ID).Warn("schedule generation: failed to list tenants")
			continue
		}

		tenancies := make([]billing.Tenancy, 0, len(tenants))
		for _, t := range tenants {
			tenancies = append(tenancies, t.Tenancy(admin.ID))
		}
		total = total.Add(s.Schedule.GenerateAll(ctx, tenancies, now))
	}

	s.Log.WithFields(logrus.Fields{
		"created": total.Created,
		"updated": total.Updated,
		"skipped": total.Skipped,
	}).Info("scheduled generation complete")
}

// runOverdueSweep reclassifies pending obligations past their due date.
func (s *BillingScheduler) runOverdueSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	flipped, err := billing.ReclassifyOverdue(ctx, s.Stores.Obligations, billing.Aggregator{}, billing.Today())
	if err != nil {
		s.Log.WithError(err).Error("overdue sweep failed")
		return
	}
	if flipped > 0 {
		s.Log.WithField("flipped", flipped).Info("overdue sweep complete")
	}
}
