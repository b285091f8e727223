// Package orchestrator coordinates ingestion jobs across sources.
// It serializes runs per job, applies the run timeout and records run metrics.
// Cron schedules, the trigger endpoint and cmd/ingest all go through it.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/ingestion"
	"insider-pipeline/internal/observability"
)

// Job names a schedulable unit of work.
type Job string

const (
	JobBSEInsider          Job = "bse_insider"
	JobNSEInsider          Job = "nse_insider"
	JobBSEBulkDeals        Job = "bse_bulk_deals"
	JobBSECorporateActions Job = "bse_corporate_actions"
	JobReindexVectors      Job = "reindex_vectors"
	JobAll                 Job = "all"
)

// Jobs lists the concrete jobs in the order JobAll runs them.
var Jobs = []Job{JobBSEInsider, JobNSEInsider, JobBSEBulkDeals, JobBSECorporateActions}

// MaintenanceJobs run only when named; JobAll leaves them out.
var MaintenanceJobs = []Job{JobReindexVectors}

// ParseJob validates a job name.
func ParseJob(s string) (Job, error) {
	j := Job(s)
	if j == JobAll {
		return j, nil
	}
	for _, known := range AllJobs() {
		if j == known {
			return j, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownJob, s)
}

// AllJobs returns Jobs followed by MaintenanceJobs.
func AllJobs() []Job {
	return append(append([]Job{}, Jobs...), MaintenanceJobs...)
}

var (
	// ErrRunInProgress is returned when the same job is already running.
	ErrRunInProgress = errors.New("run already in progress")
	// ErrUnknownJob is returned for job names that are not scheduled.
	ErrUnknownJob = errors.New("unknown job")
)

// Run statuses recorded in metrics and summaries.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// IngestionRunner executes single runs. *ingestion.Runner implements it.
type IngestionRunner interface {
	RunIngestion(ctx context.Context, exchange domain.Exchange, filter domain.RowFilter) (*ingestion.RunResult, error)
	RunBulkDeals(ctx context.Context) (*ingestion.MarketRunResult, error)
	RunCorporateActions(ctx context.Context) (*ingestion.MarketRunResult, error)
	RunReindex(ctx context.Context) (*ingestion.ReindexResult, error)
}

// JobRun is the outcome of one concrete job.
type JobRun struct {
	Job      Job                        `json:"job"`
	Status   string                     `json:"status"`
	Insider  *ingestion.RunResult       `json:"insider,omitempty"`
	Market   *ingestion.MarketRunResult `json:"market,omitempty"`
	Reindex  *ingestion.ReindexResult   `json:"reindex,omitempty"`
	Error    string                     `json:"error,omitempty"`
	Duration time.Duration              `json:"duration"`
}

// Summary aggregates the runs triggered by one Run call.
type Summary struct {
	Job      Job           `json:"job"`
	Runs     []JobRun      `json:"runs"`
	Inserted int           `json:"inserted"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Indexed  int           `json:"indexed"`
	Duration time.Duration `json:"duration"`
}

// Orchestrator coordinates ingestion runs.
type Orchestrator struct {
	runner  IngestionRunner
	timeout time.Duration
	clock   func() time.Time
	logger  *zap.Logger

	locks map[Job]*sync.Mutex
}

// Options for creating Orchestrator.
type Options struct {
	Runner     IngestionRunner
	RunTimeout time.Duration // per job; 0 means no timeout
	Clock      func() time.Time
	Logger     *zap.Logger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	jobs := AllJobs()
	locks := make(map[Job]*sync.Mutex, len(jobs))
	for _, j := range jobs {
		locks[j] = &sync.Mutex{}
	}

	return &Orchestrator{
		runner:  opts.Runner,
		timeout: opts.RunTimeout,
		clock:   clock,
		logger:  logger.Named("orchestrator"),
		locks:   locks,
	}
}

// Run executes job with no row filter.
func (o *Orchestrator) Run(ctx context.Context, job Job) (*Summary, error) {
	return o.RunWithFilter(ctx, job, domain.RowFilter{})
}

// RunWithFilter executes job. The filter applies to insider jobs only.
// A single job that is already running returns ErrRunInProgress; under
// JobAll a busy job is recorded as skipped and the others still run.
// Job failures are reported in the summary; the returned error is non-nil
// only when every job failed or the job could not start.
func (o *Orchestrator) RunWithFilter(ctx context.Context, job Job, filter domain.RowFilter) (*Summary, error) {
	if _, err := ParseJob(string(job)); err != nil {
		return nil, err
	}

	start := o.clock()
	summary := &Summary{Job: job}

	jobs := []Job{job}
	if job == JobAll {
		jobs = Jobs
	}

	var lastErr error
	for _, j := range jobs {
		run, err := o.runOne(ctx, j, filter)
		if errors.Is(err, ErrRunInProgress) && job != JobAll {
			return nil, err
		}
		if err != nil {
			lastErr = err
		}
		summary.add(run)
	}
	summary.Duration = o.clock().Sub(start)

	o.logger.Info("orchestrated run completed",
		zap.String("job", string(job)),
		zap.Int("inserted", summary.Inserted),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("indexed", summary.Indexed),
		zap.Duration("duration", summary.Duration),
	)

	if summary.Failed == len(jobs) && lastErr != nil {
		return summary, lastErr
	}
	return summary, nil
}

func (o *Orchestrator) runOne(ctx context.Context, job Job, filter domain.RowFilter) (JobRun, error) {
	run := JobRun{Job: job}

	lock := o.locks[job]
	if !lock.TryLock() {
		run.Status = StatusSkipped
		run.Error = ErrRunInProgress.Error()
		observability.RecordRun(string(job), StatusSkipped, 0)
		o.logger.Warn("job already running", zap.String("job", string(job)))
		return run, ErrRunInProgress
	}
	defer lock.Unlock()

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := o.clock()
	var err error
	switch job {
	case JobBSEInsider:
		run.Insider, err = o.runner.RunIngestion(ctx, domain.ExchangeBSE, filter)
	case JobNSEInsider:
		run.Insider, err = o.runner.RunIngestion(ctx, domain.ExchangeNSE, filter)
	case JobBSEBulkDeals:
		run.Market, err = o.runner.RunBulkDeals(ctx)
	case JobBSECorporateActions:
		run.Market, err = o.runner.RunCorporateActions(ctx)
	case JobReindexVectors:
		run.Reindex, err = o.runner.RunReindex(ctx)
	}
	run.Duration = o.clock().Sub(start)

	run.Status = StatusSuccess
	if err != nil {
		run.Status = StatusFailed
		run.Error = err.Error()
		o.logger.Error("job failed", zap.String("job", string(job)), zap.Error(err))
	}
	observability.RecordRun(string(job), run.Status, run.Duration.Seconds())
	if err != nil {
		return run, fmt.Errorf("%s: %w", job, err)
	}
	return run, nil
}

func (s *Summary) add(run JobRun) {
	s.Runs = append(s.Runs, run)
	if run.Status == StatusFailed {
		s.Failed++
	}
	switch {
	case run.Insider != nil:
		s.Inserted += run.Insider.Inserted
		s.Skipped += run.Insider.Skipped
	case run.Market != nil:
		s.Inserted += run.Market.Inserted
		s.Skipped += run.Market.Skipped
	case run.Reindex != nil:
		s.Indexed += run.Reindex.Indexed
		s.Skipped += run.Reindex.Skipped
	}
}
