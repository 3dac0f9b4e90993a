package importer

import (
	"runtime"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Run statuses.
const (
	StatusRunning             = "running"
	StatusCompleted           = "completed"
	StatusCompletedWithErrors = "completed with errors"
	StatusInterrupted         = "interrupted"
	StatusFailed              = "failed"
)

// Stats are the counters of one run.
type Stats struct {
	RunID         string         `json:"runId"`
	File          string         `json:"file"`
	StartedAt     time.Time      `json:"startedAt"`
	StartOffset   int64          `json:"startOffset"`
	Offset        int64          `json:"offset"`
	RowsRead      int64          `json:"rowsRead"`
	Created       int            `json:"created"`
	Updated       int            `json:"updated"`
	Skipped       int            `json:"skipped"`
	Malformed     int            `json:"malformed"`
	FailedBatches int            `json:"failedBatches"`
	FailedRows    int            `json:"failedRows"`
	Warnings      int            `json:"warnings"`
	MediaFailures int            `json:"mediaFailures"`
	TermFailures  int            `json:"termFailures"`
	Batches       int            `json:"batches"`
	Elapsed       time.Duration  `json:"-"`
	PeakMemory    uint64         `json:"peakMemoryBytes"`
	Completed     bool           `json:"completed"`
	Interrupted   bool           `json:"interrupted"`
	FatalError    string         `json:"fatalError,omitempty"`
	SkipReasons   map[string]int `json:"skipReasons,omitempty"`
}

// Errors is the number of recovered errors.
func (s Stats) Errors() int {
	return s.Malformed + s.FailedRows + s.MediaFailures + s.TermFailures
}

func (s Stats) Status() string {
	switch {
	case s.FatalError != "":
		return StatusFailed
	case s.Interrupted:
		return StatusInterrupted
	case s.Completed && s.Errors() == 0:
		return StatusCompleted
	case s.Completed:
		return StatusCompletedWithErrors
	default:
		return StatusRunning
	}
}

// Reporter accumulates run statistics. It is safe for concurrent readers.
type Reporter struct {
	mu     sync.Mutex
	stats  Stats
	logger *zap.Logger
	now    func() time.Time
	done   bool
}

func NewReporter(file string, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reporter{logger: logger, now: time.Now}
	r.stats = Stats{
		RunID:       uuid.NewString(),
		File:        file,
		StartedAt:   r.now(),
		SkipReasons: map[string]int{},
	}
	return r
}

func (r *Reporter) RunID() string { return r.stats.RunID }

func (r *Reporter) Resumed(offset int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.StartOffset = offset
	r.stats.Offset = offset
}

func (r *Reporter) Malformed(err *MalformedRowError) {
	r.mu.Lock()
	r.stats.Malformed++
	r.mu.Unlock()
	r.logger.Warn("malformed row skipped", zap.Int("line", err.Line), zap.Error(err))
}

func (r *Reporter) Skipped(rows ...SkippedRow) {
	r.mu.Lock()
	for _, s := range rows {
		r.stats.Skipped++
		r.stats.SkipReasons[s.Reason]++
	}
	r.mu.Unlock()
	for _, s := range rows {
		r.logger.Debug("row skipped", zap.Int("line", s.Line), zap.String("sku", s.SKU), zap.String("reason", s.Reason))
	}
}

func (r *Reporter) Warning(w ValidationWarning) {
	r.mu.Lock()
	r.stats.Warnings++
	r.mu.Unlock()
	r.logger.Warn("value coerced", zap.String("detail", w.String()))
}

func (r *Reporter) TermFailure(err error) {
	r.mu.Lock()
	r.stats.TermFailures++
	r.mu.Unlock()
	r.logger.Error("term resolution failed", zap.Error(err))
}

func (r *Reporter) MediaFailure(err error) {
	r.mu.Lock()
	r.stats.MediaFailures++
	r.mu.Unlock()
	r.logger.Error("media resolution failed", zap.Error(err))
}

// BatchDone records a committed batch.
func (r *Reporter) BatchDone(b *Batch, created, updated int) {
	r.mu.Lock()
	r.stats.Batches++
	r.stats.Created += created
	r.stats.Updated += updated
	r.stats.Offset = b.EndOffset
	r.mu.Unlock()
	r.sampleMemory()
	r.logger.Info("batch committed",
		zap.Int("batch", b.Seq),
		zap.Int("rows", len(b.Rows)),
		zap.Int("created", created),
		zap.Int("updated", updated),
		zap.Int64("offset", b.EndOffset),
	)
}

// BatchFailed records a rolled back batch of rows rows.
func (r *Reporter) BatchFailed(b *Batch, rows int, err error) {
	r.mu.Lock()
	r.stats.Batches++
	r.stats.FailedBatches++
	r.stats.FailedRows += rows
	r.stats.Offset = b.EndOffset
	r.mu.Unlock()
	r.sampleMemory()
	r.logger.Error("batch failed", zap.Int("batch", b.Seq), zap.Int("rows", rows), zap.Error(err))
}

// Consumed sets the number of data records read by this run.
func (r *Reporter) Consumed(n int64) {
	r.mu.Lock()
	r.stats.RowsRead = n
	r.mu.Unlock()
}

func (r *Reporter) Interrupted() {
	r.mu.Lock()
	r.stats.Interrupted = true
	r.mu.Unlock()
}

func (r *Reporter) Completed() {
	r.mu.Lock()
	r.stats.Completed = true
	r.mu.Unlock()
}

func (r *Reporter) Fatal(err error) {
	r.mu.Lock()
	r.stats.FatalError = err.Error()
	r.mu.Unlock()
	r.logger.Error("import aborted", zap.Error(err))
}

func (r *Reporter) sampleMemory() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	r.mu.Lock()
	if ms.HeapAlloc > r.stats.PeakMemory {
		r.stats.PeakMemory = ms.HeapAlloc
	}
	r.mu.Unlock()
}

// Snapshot returns a copy of the current statistics.
func (r *Reporter) Snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stats
	if !r.done {
		s.Elapsed = r.now().Sub(s.StartedAt)
	}
	s.SkipReasons = make(map[string]int, len(r.stats.SkipReasons))
	for k, v := range r.stats.SkipReasons {
		s.SkipReasons[k] = v
	}
	return s
}

// Finalize freezes the elapsed time, logs the summary and returns the final
// statistics. Further calls return the same values.
func (r *Reporter) Finalize() Stats {
	r.sampleMemory()
	r.mu.Lock()
	first := !r.done
	if first {
		r.stats.Elapsed = r.now().Sub(r.stats.StartedAt)
		r.done = true
	}
	r.mu.Unlock()

	s := r.Snapshot()
	if first {
		r.logger.Info("import finished",
			zap.String("run_id", s.RunID),
			zap.String("status", s.Status()),
			zap.Int64("rows_read", s.RowsRead),
			zap.Int("created", s.Created),
			zap.Int("updated", s.Updated),
			zap.Int("skipped", s.Skipped),
			zap.Int("malformed", s.Malformed),
			zap.Int("failed_batches", s.FailedBatches),
			zap.Int("failed_rows", s.FailedRows),
			zap.Int("warnings", s.Warnings),
			zap.Int("media_failures", s.MediaFailures),
			zap.Int("term_failures", s.TermFailures),
			zap.Int("errors", s.Errors()),
			zap.Duration("elapsed", s.Elapsed),
			zap.String("peak_memory", humanize.IBytes(s.PeakMemory)),
		)
	}
	return s
}
