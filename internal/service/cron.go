package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/devricklin/weekcheck/internal/biz/domain"
)

// Reporter runs the weekly report
type Reporter interface {
	RunWeeklyReport(ctx context.Context, now time.Time) []domain.GroupReport
}

// DirectoryRefresher re-reads the group directory
type DirectoryRefresher interface {
	Refresh(ctx context.Context) []*domain.Group
}

// CronRunner triggers the weekly report and periodic directory refreshes
type CronRunner struct {
	cron      *cron.Cron
	schedule  cron.Schedule
	loc       *time.Location
	reporter  Reporter
	directory DirectoryRefresher
	logger    *zap.Logger
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// NewCronRunner creates a new cron runner. reportSpec is a standard five-field
// cron expression evaluated in loc; refreshEvery <= 0 disables refreshes.
func NewCronRunner(
	reportSpec string,
	refreshEvery time.Duration,
	loc *time.Location,
	reporter Reporter,
	directory DirectoryRefresher,
	logger *zap.Logger,
) (*CronRunner, error) {
	r := &CronRunner{
		reporter:  reporter,
		directory: directory,
		loc:       loc,
		logger:    logger.Named("cron"),
		now:       time.Now,
		ctx:       context.Background(),
	}
	log := cronLogger{r.logger.Sugar()}
	r.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(log),
		cron.WithChain(cron.SkipIfStillRunning(log)),
	)

	schedule, err := cron.ParseStandard(reportSpec)
	if err != nil {
		return nil, fmt.Errorf("invalid report schedule %q: %w", reportSpec, err)
	}
	r.schedule = schedule
	r.cron.Schedule(schedule, cron.NewChain(cron.SkipIfStillRunning(log)).Then(cron.FuncJob(r.RunReport)))
	if refreshEvery > 0 && directory != nil {
		spec := fmt.Sprintf("@every %s", refreshEvery)
		if _, err := r.cron.AddFunc(spec, r.refreshDirectory); err != nil {
			return nil, fmt.Errorf("invalid refresh interval: %w", err)
		}
	}
	return r, nil
}

// Start starts the scheduler
func (r *CronRunner) Start(ctx context.Context) {
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.cron.Start()

	for _, e := range r.cron.Entries() {
		r.logger.Info("job scheduled", zap.Time("next", e.Next))
	}
}

// Stop stops the scheduler and waits for running jobs
func (r *CronRunner) Stop() {
	done := r.cron.Stop()
	if r.cancel != nil {
		r.cancel()
	}
	<-done.Done()
	r.logger.Info("cron stopped")
}

// RunReport runs the weekly report once
func (r *CronRunner) RunReport() {
	runID := uuid.NewString()
	r.logger.Info("weekly report triggered", zap.String("trigger_id", runID))

	reports := r.reporter.RunWeeklyReport(r.ctx, r.now())
	r.logger.Info("weekly report done", zap.String("trigger_id", runID), zap.Int("groups", len(reports)))
}

func (r *CronRunner) refreshDirectory() {
	groups := r.directory.Refresh(r.ctx)
	r.logger.Debug("directory refreshed", zap.Int("groups", len(groups)))
}

// NextReport returns the first report time after t, in the reference timezone
func (r *CronRunner) NextReport(t time.Time) time.Time {
	return r.schedule.Next(t.In(r.loc))
}

// cronLogger adapts zap to the cron.Logger interface
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
