// Package scheduler owns the recurring collection, reporting, alerting and
// cleanup jobs. Each job carries its own mutual-exclusion lock and a
// consecutive-failure counter that escalates to an operational notification.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"goldwatch/internal/alert"
	"goldwatch/internal/logging"
	"goldwatch/internal/models"
	"goldwatch/internal/notify"
	"goldwatch/internal/quote"
	"goldwatch/internal/shop"
	"goldwatch/internal/stats"
	"goldwatch/internal/store"
	"goldwatch/internal/timeref"
)

// Job names.
const (
	JobCollectQuote      = "collect-quote"
	JobHourlyReport      = "hourly-report"
	JobDailyReport       = "daily-report"
	JobCheckAlert        = "check-alert"
	JobCleanupSnapshots  = "cleanup-snapshots"
	JobCollectShopPrices = "collect-shop-prices"
	JobCleanupShopPrices = "cleanup-shop-batches"
)

// maxFailures is the consecutive-failure threshold that triggers one
// escalation notification, after which the counter starts a fresh streak.
const maxFailures = 3

// jobTimeout bounds a single job invocation.
const jobTimeout = 30 * time.Second

// escalationTimeout bounds the escalation notification. The job's own
// context may already be expired by the time a failure is recorded, so the
// escalation never reuses it.
const escalationTimeout = 10 * time.Second

// jobState is the process-local bookkeeping for one job. It is not
// persisted; a restart resets every counter.
type jobState struct {
	running  bool
	failures int
}

// Orchestrator registers and runs the recurring jobs. All state lives on
// the struct; it is constructed once at process start.
type Orchestrator struct {
	store   store.Store
	quote   *quote.Fetcher
	shop    *shop.Scraper
	agg     *stats.Aggregator
	sender  notify.Sender
	logger  zerolog.Logger
	enabled bool

	retentionDays int

	mu   sync.Mutex
	jobs map[string]*jobState
	cron *cron.Cron

	// now is injectable for tests; defaults to timeref.Now.
	now func() time.Time
}

// Options configures an Orchestrator.
type Options struct {
	Store         store.Store
	Quote         *quote.Fetcher
	Shop          *shop.Scraper
	Aggregator    *stats.Aggregator
	Sender        notify.Sender
	Logger        zerolog.Logger
	Enabled       bool
	RetentionDays int
}

// New creates an orchestrator. Jobs are not scheduled until Start.
func New(opts Options) *Orchestrator {
	retention := opts.RetentionDays
	if retention <= 0 {
		retention = 35
	}
	return &Orchestrator{
		store:         opts.Store,
		quote:         opts.Quote,
		shop:          opts.Shop,
		agg:           opts.Aggregator,
		sender:        opts.Sender,
		logger:        opts.Logger,
		enabled:       opts.Enabled,
		retentionDays: retention,
		jobs:          make(map[string]*jobState),
		now:           timeref.Now,
	}
}

// SetClock overrides the orchestrator's clock. Used by tests.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}

// Start registers the cron entries and starts the timer loop. When the
// scheduler is disabled, nothing is registered at all.
func (o *Orchestrator) Start() error {
	if !o.enabled {
		o.logger.Info().Msg("Scheduler disabled, no jobs registered")
		return nil
	}

	c := cron.New(cron.WithLocation(timeref.Location))

	entries := []struct {
		spec string
		name string
		fn   func(ctx context.Context) error
	}{
		{"*/5 * * * *", JobCollectQuote, o.collectQuote},
		{"0 8-23 * * *", JobHourlyReport, o.hourlyReport},
		{"0 0 * * *", JobDailyReport, o.dailyReport},
		{"*/5 * * * *", JobCheckAlert, o.checkAlert},
		{"0 2 * * *", JobCleanupSnapshots, o.cleanupSnapshots},
		{"30 7 * * *", JobCollectShopPrices, o.collectShopPrices},
		{"5 2 * * *", JobCleanupShopPrices, o.cleanupShopBatches},
	}

	for _, e := range entries {
		name, fn := e.name, e.fn
		if _, err := c.AddFunc(e.spec, func() { o.run(name, fn) }); err != nil {
			return fmt.Errorf("scheduling %s: %w", name, err)
		}
		o.logger.Info().Str("job", name).Str("spec", e.spec).Msg("Job scheduled")
	}

	c.Start()
	o.cron = c
	o.logger.Info().Int("jobs", len(entries)).Msg("Scheduler started")
	return nil
}

// Stop halts the timer loop. In-flight job invocations run to completion.
func (o *Orchestrator) Stop() {
	if o.cron != nil {
		o.cron.Stop()
		o.logger.Info().Msg("Scheduler stopped")
	}
}

// Status reports whether the timer loop is running and which jobs it owns.
type Status struct {
	Running bool     `json:"running"`
	Jobs    []string `json:"jobs"`
}

// Status returns the scheduler state for the status endpoint.
func (o *Orchestrator) Status() Status {
	if o.cron == nil {
		return Status{Running: false, Jobs: []string{}}
	}
	return Status{
		Running: true,
		Jobs: []string{
			JobCollectQuote, JobHourlyReport, JobDailyReport, JobCheckAlert,
			JobCleanupSnapshots, JobCollectShopPrices, JobCleanupShopPrices,
		},
	}
}

// run executes one job invocation under the job's lock. A job already
// running skips the tick (logged, never queued). Failure increments the
// job's counter and escalates at the threshold; success resets it.
func (o *Orchestrator) run(name string, fn func(ctx context.Context) error) {
	jobLogger := logging.WithJob(o.logger, name)
	if !o.tryAcquire(name) {
		jobLogger.Warn().Msg("Job already running, skipping tick")
		return
	}
	defer o.release(name)

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	started := time.Now()
	err := o.invoke(ctx, fn)
	duration := time.Since(started)

	logging.LogJobRun(o.logger, name, duration, err)

	if err != nil {
		o.recordFailure(name, err)
		return
	}
	o.resetFailures(name)
}

// invoke calls the job body and converts a panic into an ordinary error,
// so one bad tick feeds the failure counter instead of killing the
// process.
func (o *Orchestrator) invoke(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return fn(ctx)
}

func (o *Orchestrator) tryAcquire(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	state := o.state(name)
	if state.running {
		return false
	}
	state.running = true
	return true
}

func (o *Orchestrator) release(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state(name).running = false
}

// state returns the bookkeeping entry for a job; callers must hold o.mu.
func (o *Orchestrator) state(name string) *jobState {
	s, ok := o.jobs[name]
	if !ok {
		s = &jobState{}
		o.jobs[name] = s
	}
	return s
}

func (o *Orchestrator) resetFailures(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state(name).failures = 0
}

// recordFailure bumps the job's consecutive-failure counter. Reaching the
// threshold sends exactly one escalation notification and resets the
// counter to zero whether or not the notification itself was delivered, so
// escalation happens once per failure streak.
func (o *Orchestrator) recordFailure(name string, jobErr error) {
	o.mu.Lock()
	state := o.state(name)
	state.failures++
	count := state.failures
	escalate := count >= maxFailures
	if escalate {
		state.failures = 0
	}
	o.mu.Unlock()

	o.logger.Warn().
		Str("job", name).
		Int("failures", count).
		Int("threshold", maxFailures).
		Msg("Job failure recorded")

	if !escalate {
		return
	}

	var content string
	if name == JobCollectShopPrices {
		content = notify.FormatShopFailureAlert(jobErr.Error(), o.now())
	} else {
		content = notify.FormatFailureAlert(name, jobErr.Error(), o.now())
	}

	ctx, cancel := context.WithTimeout(context.Background(), escalationTimeout)
	defer cancel()
	o.sender.Send(ctx, models.PushError, content)
}

// FailureCount reports a job's current consecutive-failure count.
func (o *Orchestrator) FailureCount(name string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state(name).failures
}

// --- job bodies ---

// collectQuote fetches, validates and stores one price snapshot.
func (o *Orchestrator) collectQuote(ctx context.Context) error {
	snap, err := o.quote.Fetch(ctx)
	if err != nil {
		return err
	}
	if err := o.store.SaveSnapshot(ctx, snap); err != nil {
		return err
	}
	logging.LogSnapshot(o.logger, snap.Price, snap.CollectedAt)
	return nil
}

// hourlyReport sends today's stats. A day with no snapshots yet is a quiet
// skip, not a failure.
func (o *Orchestrator) hourlyReport(ctx context.Context) error {
	now := o.now()
	todayStats, err := o.agg.TodayStats(ctx, now)
	if err != nil {
		return err
	}
	if todayStats == nil {
		o.logger.Warn().Msg("No snapshots today, skipping hourly report")
		return nil
	}

	content := notify.FormatHourlyReport(todayStats, now)
	if !o.sender.Send(ctx, models.PushHourly, content) {
		return fmt.Errorf("hourly report delivery failed")
	}
	return nil
}

// dailyReport aggregates the full prior day and sends the daily message.
func (o *Orchestrator) dailyReport(ctx context.Context) error {
	// The job fires at 00:00, so the report covers the day that just ended.
	day := o.now().Add(-12 * time.Hour)
	summary, err := o.agg.DailySummary(ctx, day)
	if err != nil {
		return err
	}
	if summary == nil {
		o.logger.Warn().Msg("No snapshots for prior day, skipping daily report")
		return nil
	}

	content := notify.FormatDailyReport(summary)
	if !o.sender.Send(ctx, models.PushDaily, content) {
		return fmt.Errorf("daily report delivery failed")
	}
	return nil
}

// checkAlert evaluates the latest snapshot against the configured
// thresholds and conditionally sends an alert. Disabled config or missing
// data is a quiet skip.
func (o *Orchestrator) checkAlert(ctx context.Context) error {
	cfg, err := o.store.AlertConfig(ctx)
	if err != nil {
		return err
	}
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	latest, err := o.store.LatestSnapshot(ctx)
	if err != nil {
		return err
	}
	if latest == nil {
		return nil
	}

	decision := alert.Evaluate(latest.Price, cfg)
	if !decision.Fire {
		return nil
	}

	o.logger.Info().
		Str("kind", string(decision.Kind)).
		Float64("price", latest.Price).
		Float64("target", decision.Target).
		Msg("Price alert triggered")

	content := notify.FormatAlert(latest.Price, decision.Target, decision.Kind == alert.KindHigh, o.now())
	if !o.sender.Send(ctx, models.PushAlert, content) {
		return fmt.Errorf("alert delivery failed")
	}
	return nil
}

// cleanupSnapshots deletes snapshots older than the retention window,
// measured from an absolute now.
func (o *Orchestrator) cleanupSnapshots(ctx context.Context) error {
	cutoff := timeref.DaysAgo(o.now(), o.retentionDays)
	deleted, err := o.store.DeleteSnapshotsBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	o.logger.Info().Int64("deleted", deleted).Int("retention_days", o.retentionDays).
		Msg("Old snapshots cleaned up")
	return nil
}

// collectShopPrices fetches the shop table, keeps valid rows and upserts
// the day's batch.
func (o *Orchestrator) collectShopPrices(ctx context.Context) error {
	batch, err := o.shop.Fetch(ctx)
	if err != nil {
		return err
	}

	valid := shop.FilterValid(batch.Prices)
	if len(valid) == 0 {
		return fmt.Errorf("no valid shop price rows")
	}
	batch.Prices = valid

	if err := o.store.UpsertShopBatch(ctx, batch); err != nil {
		return err
	}
	o.logger.Info().Str("date", batch.Date).Int("brands", len(valid)).
		Msg("Shop prices collected")
	return nil
}

// cleanupShopBatches deletes shop batches older than the retention window.
func (o *Orchestrator) cleanupShopBatches(ctx context.Context) error {
	cutoff := timeref.DaysAgo(o.now(), o.retentionDays)
	deleted, err := o.store.DeleteShopBatchesBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	o.logger.Info().Int64("deleted", deleted).Int("retention_days", o.retentionDays).
		Msg("Old shop batches cleaned up")
	return nil
}

// --- manual triggers (HTTP/CLI) ---

// TriggerCollectQuote runs the quote collection job once, honoring its lock
// and failure accounting.
func (o *Orchestrator) TriggerCollectQuote() {
	o.run(JobCollectQuote, o.collectQuote)
}

// TriggerCollectShopPrices runs the shop collection job once.
func (o *Orchestrator) TriggerCollectShopPrices() {
	o.run(JobCollectShopPrices, o.collectShopPrices)
}

// TriggerCheckAlert runs the alert check job once.
func (o *Orchestrator) TriggerCheckAlert() {
	o.run(JobCheckAlert, o.checkAlert)
}
