// Package runner drives an archive load end to end. One producer walks the
// given paths line by line while a pool of workers writes each record in its
// own transaction. Undecodable and malformed records are logged and skipped,
// a storage failure costs only the record that hit it, and a dimension
// resolution failure stops the whole run, since every later record would keep
// failing against the same dimension table.
package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/tbourn/go-post-archive/internal/archive"
	"github.com/tbourn/go-post-archive/internal/extract"
	"github.com/tbourn/go-post-archive/internal/ingest"
	"github.com/tbourn/go-post-archive/internal/metrics"
	"github.com/tbourn/go-post-archive/internal/record"
	"github.com/tbourn/go-post-archive/internal/repo"
)

const (
	defaultWorkers       = 4
	defaultQueueDepth    = 256
	defaultProgressEvery = 10_000
)

// Options tune one run. Zero values fall back to the package defaults.
type Options struct {
	Workers       int     // concurrent ingest workers (default 4)
	QueueDepth    int     // lines buffered between producer and workers (default 256)
	RateRPS       float64 // records per second admitted to the pool, 0 = unthrottled
	ProgressEvery int64   // log a progress line every N processed records (default 10000)
}

// Summary extends the final snapshot with throughput and the table counts
// observed after the run.
type Summary struct {
	Snapshot
	RecordsPerSecond float64           `json:"records_per_second"`
	Tables           *repo.TableCounts `json:"tables,omitempty"`
}

type job struct {
	src  archive.Source
	line []byte
}

// Runner owns one load against a database handle. Create it with New, start
// it with Run; Progress can be polled from other goroutines while Run is
// live.
type Runner struct {
	db       *gorm.DB
	opts     Options
	progress *Progress
	printer  *message.Printer
}

// New prepares a run over db with the given options.
func New(db *gorm.DB, opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = defaultQueueDepth
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = defaultProgressEvery
	}
	return &Runner{
		db:       db,
		opts:     opts,
		progress: newProgress(uuid.NewString()),
		printer:  message.NewPrinter(language.English),
	}
}

// Progress exposes the live counters for the monitoring server.
func (r *Runner) Progress() *Progress { return r.progress }

// Run loads every archive in paths and blocks until the corpus is exhausted
// or the run dies. The returned summary reflects whatever was processed; the
// error is the first fatal condition (walk failure, context cancellation, or
// a dimension resolution failure raised by a worker).
func (r *Runner) Run(ctx context.Context, paths []string) (*Summary, error) {
	lg := log.With().Str("run_id", r.progress.runID).Logger()
	lg.Info().
		Int("workers", r.opts.Workers).
		Float64("rate_rps", r.opts.RateRPS).
		Strs("paths", paths).
		Msg("run starting")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var limiter *rate.Limiter
	if r.opts.RateRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.opts.RateRPS), 1)
	}

	jobs := make(chan job, r.opts.QueueDepth)

	var (
		wg       sync.WaitGroup
		once     sync.Once
		fatalErr error
	)
	fail := func(err error) {
		once.Do(func() {
			fatalErr = err
			cancel()
		})
	}

	for i := 0; i < r.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case j, ok := <-jobs:
					if !ok {
						return
					}
					if err := r.handle(ctx, lg, j); err != nil {
						fail(err)
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	walkErr := archive.Walk(ctx, paths, func(src archive.Source, line []byte) error {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}
		r.progress.lines.Add(1)
		metrics.LineRead()

		// Walk reuses the line buffer between calls.
		cp := append([]byte(nil), line...)
		select {
		case jobs <- job{src: src, line: cp}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	close(jobs)
	wg.Wait()

	s := r.summary()
	switch {
	case fatalErr != nil:
		lg.Error().Err(fatalErr).Int64("processed", s.Processed).Msg("run aborted")
		return s, fatalErr
	case walkErr != nil:
		lg.Error().Err(walkErr).Int64("processed", s.Processed).Msg("run aborted")
		return s, walkErr
	}

	lg.Info().
		Str("processed", r.printer.Sprintf("%d", s.Processed)).
		Str("inserted", r.printer.Sprintf("%d", s.Inserted)).
		Str("already_present", r.printer.Sprintf("%d", s.AlreadyPresent)).
		Int64("malformed", s.Malformed).
		Int64("failed", s.Failed).
		Str("elapsed", s.Elapsed).
		Float64("records_per_second", s.RecordsPerSecond).
		Msg("run complete")
	return s, nil
}

// handle writes one queued line. Only fatal errors come back; everything
// record-scoped is counted, logged and absorbed here.
func (r *Runner) handle(ctx context.Context, lg zerolog.Logger, j job) error {
	if ctx.Err() != nil {
		return nil
	}
	idle := metrics.WorkerBusy()
	defer idle()
	start := time.Now()

	rec, err := record.Decode(j.line)
	if err != nil {
		r.progress.malformed.Add(1)
		metrics.ObserveRecord("malformed", time.Since(start))
		lg.Warn().Str("source", j.src.String()).Err(err).Msg("skipping undecodable line")
		r.noteProcessed(lg)
		return nil
	}

	outcome, err := ingest.Ingest(ctx, r.db, rec)
	var malformed *extract.MalformedRecordError
	var resolution *repo.ResolutionError
	switch {
	case err == nil:
		switch outcome {
		case ingest.OutcomeInserted:
			r.progress.inserted.Add(1)
		case ingest.OutcomeAlreadyPresent:
			r.progress.alreadyPresent.Add(1)
		}
		metrics.ObserveRecord(outcome.String(), time.Since(start))
	case errors.As(err, &malformed):
		r.progress.malformed.Add(1)
		metrics.ObserveRecord("malformed", time.Since(start))
		lg.Warn().Str("source", j.src.String()).Err(err).Msg("skipping malformed record")
	case errors.As(err, &resolution):
		r.progress.failed.Add(1)
		metrics.ObserveRecord("failed", time.Since(start))
		lg.Error().Str("source", j.src.String()).Err(err).Msg("dimension resolution failed, stopping run")
		r.noteProcessed(lg)
		return err
	default:
		r.progress.failed.Add(1)
		metrics.ObserveRecord("failed", time.Since(start))
		lg.Error().Str("source", j.src.String()).Err(err).Msg("record failed")
	}
	r.noteProcessed(lg)
	return nil
}

// noteProcessed advances the processed counter and logs a progress line at
// the configured interval. Add returns a unique value per call, so each
// interval boundary logs exactly once.
func (r *Runner) noteProcessed(lg zerolog.Logger) {
	n := r.progress.processed.Add(1)
	if n%r.opts.ProgressEvery != 0 {
		return
	}
	snap := r.progress.Snapshot()
	lg.Info().
		Str("processed", r.printer.Sprintf("%d", n)).
		Str("inserted", r.printer.Sprintf("%d", snap.Inserted)).
		Str("already_present", r.printer.Sprintf("%d", snap.AlreadyPresent)).
		Int64("malformed", snap.Malformed).
		Int64("failed", snap.Failed).
		Str("elapsed", snap.Elapsed).
		Msg("progress")
}

func (r *Runner) summary() *Summary {
	s := &Summary{Snapshot: r.progress.Snapshot()}
	if elapsed := time.Since(r.progress.start).Seconds(); elapsed > 0 {
		s.RecordsPerSecond = float64(s.Processed) / elapsed
	}
	// Count with a fresh context so an aborted run still reports table sizes.
	countCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if counts, err := repo.CountRows(countCtx, r.db); err == nil {
		s.Tables = counts
	}
	return s
}
