package importer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStats_Status(t *testing.T) {
	assert.Equal(t, StatusRunning, Stats{}.Status())
	assert.Equal(t, StatusCompleted, Stats{Completed: true, Skipped: 3, Warnings: 2}.Status())
	assert.Equal(t, StatusCompletedWithErrors, Stats{Completed: true, MediaFailures: 1}.Status())
	assert.Equal(t, StatusInterrupted, Stats{Interrupted: true}.Status())
	assert.Equal(t, StatusFailed, Stats{Completed: true, FatalError: "boom"}.Status())
}

func TestReporter_Counts(t *testing.T) {
	r := NewReporter("feed.csv", nil)
	r.Malformed(&MalformedRowError{Line: 3})
	r.Skipped(SkippedRow{Line: 4, Reason: SkipEmptyKey}, SkippedRow{Line: 5, Reason: SkipEmptyKey})
	r.BatchDone(&Batch{Seq: 1, EndOffset: 10}, 4, 3)
	r.BatchFailed(&Batch{Seq: 2, EndOffset: 20}, 10, errors.New("deadlock"))
	r.TermFailure(errors.New("x"))
	r.Completed()

	s := r.Finalize()
	assert.NotEmpty(t, s.RunID)
	assert.Equal(t, "feed.csv", s.File)
	assert.Equal(t, 2, s.Skipped)
	assert.Equal(t, 2, s.SkipReasons[SkipEmptyKey])
	assert.Equal(t, 4, s.Created)
	assert.Equal(t, 3, s.Updated)
	assert.Equal(t, 2, s.Batches)
	assert.Equal(t, 1, s.FailedBatches)
	assert.Equal(t, 1+10+1, s.Errors())
	assert.Equal(t, StatusCompletedWithErrors, s.Status())
	assert.NotZero(t, s.PeakMemory)

	assert.Equal(t, s.Elapsed, r.Finalize().Elapsed, "finalize is idempotent")
}
