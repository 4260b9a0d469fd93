// Package scheduler materializes recurring expenses and loan auto-debits
// through the ledger engine, at most once per template per month.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/expense-ledger/internal/ledger"
	"github.com/Dan9191/expense-ledger/internal/models"
	"github.com/Dan9191/expense-ledger/internal/repository"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job names
const (
	JobRecurringExpenses = "recurring-expenses"
	JobLoanAutoDebits    = "loan-auto-debits"
)

// Notifier is told about auto-debits and failed items.
type Notifier interface {
	SendAutoDebitNotice(loan models.Loan, exp *models.Expense) error
	SendJobFailures(job, period string, failures []string) error
}

// Failure is one template or loan that could not be materialized.
type Failure struct {
	SourceID int64
	UserID   int64
	Rule     ledger.Rule
	Err      error
}

func (f Failure) String() string {
	return fmt.Sprintf("source %d (user %d, rule %s): %v", f.SourceID, f.UserID, f.Rule, f.Err)
}

// RunReport summarises one job run.
type RunReport struct {
	Job          string
	Period       string
	Due          int
	Materialized []int64 // expense ids
	Skipped      int
	Failures     []Failure
}

// Scheduler runs the daily jobs
type Scheduler struct {
	engine   *ledger.Engine
	repo     *repository.Repository
	log      *logrus.Logger
	notifier Notifier
	loc      *time.Location
	spec     string
	cron     *cron.Cron
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithNotifier sets the notifier for auto-debits and failures.
func WithNotifier(n Notifier) Option {
	return func(s *Scheduler) { s.notifier = n }
}

// WithLocation sets the time zone that decides "today".
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.loc = loc }
}

// WithSpec sets the cron schedule (with seconds field).
func WithSpec(spec string) Option {
	return func(s *Scheduler) { s.spec = spec }
}

// NewScheduler initializes a new scheduler
func NewScheduler(engine *ledger.Engine, repo *repository.Repository, log *logrus.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		engine: engine,
		repo:   repo,
		log:    log,
		loc:    time.UTC,
		spec:   "0 5 0 * * *",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers the daily run with cron and starts it. Overlapping runs
// are skipped and panics are recovered.
func (s *Scheduler) Start() error {
	logger := cron.PrintfLogger(s.log)
	s.cron = cron.New(
		cron.WithSeconds(),
		cron.WithLocation(s.loc),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := s.cron.AddFunc(s.spec, func() {
		s.RunDaily(context.Background(), time.Now())
	}); err != nil {
		return fmt.Errorf("failed to schedule daily run %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.log.Infof("Scheduler started with spec %q in %s", s.spec, s.loc)
	return nil
}

// Stop stops the cron trigger and returns a context done when a running
// job has finished.
func (s *Scheduler) Stop() context.Context {
	if s.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return s.cron.Stop()
}

// RunDaily runs both jobs one after the other.
func (s *Scheduler) RunDaily(ctx context.Context, now time.Time) []RunReport {
	var reports []RunReport
	for _, job := range []func(context.Context, time.Time) (RunReport, error){
		s.RunRecurringExpenses,
		s.RunLoanAutoDebits,
	} {
		report, err := job(ctx, now)
		if err != nil {
			s.log.Errorf("Scheduler job %s failed: %v", report.Job, err)
		}
		reports = append(reports, report)
	}
	return reports
}

func (s *Scheduler) today(now time.Time) time.Time {
	t := now.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Scheduler) finish(report RunReport) RunReport {
	s.log.WithFields(logrus.Fields{
		"job":          report.Job,
		"period":       report.Period,
		"due":          report.Due,
		"materialized": len(report.Materialized),
		"skipped":      report.Skipped,
		"failed":       len(report.Failures),
	}).Info("Scheduler job finished")

	if len(report.Failures) > 0 && s.notifier != nil {
		lines := make([]string, len(report.Failures))
		for i, f := range report.Failures {
			lines[i] = f.String()
		}
		if err := s.notifier.SendJobFailures(report.Job, report.Period, lines); err != nil {
			s.log.Errorf("Failed to send %s failure notice: %v", report.Job, err)
		}
	}
	return report
}

// dueOn reports whether a monthly charge on day falls on today. Days past
// the end of a short month fall on its last day.
func dueOn(day int, today time.Time) bool {
	last := time.Date(today.Year(), today.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	return today.Day() == day
}

// claim returns a hook that records the materialization in the creating
// transaction, so a second run for the same period rolls back.
func claim(kind string, sourceID int64, period string) ledger.AfterCreate {
	return func(ctx context.Context, tx *repository.Tx, exp *models.Expense) error {
		return tx.InsertMaterialization(ctx, &models.Materialization{
			UserID:     exp.UserID,
			SourceKind: kind,
			SourceID:   sourceID,
			Period:     period,
			ExpenseID:  &exp.ID,
		})
	}
}
