package runner

import (
	"sync/atomic"
	"time"
)

// Progress holds the live counters of one run. Workers bump them
// concurrently and Snapshot reads them without locking, so a snapshot
// taken mid-run can be off by the records still in flight.
type Progress struct {
	runID string
	start time.Time

	lines          atomic.Int64
	processed      atomic.Int64
	inserted       atomic.Int64
	alreadyPresent atomic.Int64
	malformed      atomic.Int64
	failed         atomic.Int64
}

func newProgress(runID string) *Progress {
	return &Progress{runID: runID, start: time.Now()}
}

// Snapshot is the JSON view served by the monitoring endpoint and embedded
// in the completion summary.
type Snapshot struct {
	RunID          string `json:"run_id"`
	LinesRead      int64  `json:"lines_read"`
	Processed      int64  `json:"processed"`
	Inserted       int64  `json:"inserted"`
	AlreadyPresent int64  `json:"already_present"`
	Malformed      int64  `json:"malformed"`
	Failed         int64  `json:"failed"`
	Elapsed        string `json:"elapsed"`
}

// Snapshot returns the counters as they stand right now.
func (p *Progress) Snapshot() Snapshot {
	return Snapshot{
		RunID:          p.runID,
		LinesRead:      p.lines.Load(),
		Processed:      p.processed.Load(),
		Inserted:       p.inserted.Load(),
		AlreadyPresent: p.alreadyPresent.Load(),
		Malformed:      p.malformed.Load(),
		Failed:         p.failed.Load(),
		Elapsed:        time.Since(p.start).Round(time.Millisecond).String(),
	}
}
