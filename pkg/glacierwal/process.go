package glacierwal

import (
	"fmt"
	"os"

	"github.com/gofrs/flock"
	"github.com/nsfscore/nsfsctl/internal/logger"
)

// ProcessFunc handles one sealed segment at a time, given the segment's
// current (processing-state) path. It returns true to signal the segment
// was fully handled and may be retired, false to retain it as inactive
// for a future pass — at-least-once delivery: ProcessFunc must be safe to
// run again in full against the same segment.
type ProcessFunc func(segmentPath string) bool

// ProcessInactive visits every currently sealed segment, oldest
// generation first, and runs fn against each under its own exclusive
// advisory lock. A segment whose lock is already held by a concurrent
// processor is skipped for this pass, not waited on; every other segment
// is still attempted.
func (w *WAL) ProcessInactive(fn ProcessFunc) error {
	segments, err := w.ListInactiveSegments()
	if err != nil {
		return err
	}
	for _, inactivePath := range segments {
		if err := w.processSegment(inactivePath, fn); err != nil {
			return err
		}
	}
	return nil
}

func (w *WAL) processSegment(inactivePath string, fn ProcessFunc) error {
	generation, ok := w.segmentGeneration(inactivePath)
	if !ok {
		return fmt.Errorf("glacierwal: %s does not match a segment of WAL %s", inactivePath, w.name)
	}

	lockPath := inactivePath + ".lock"
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("glacierwal: try lock %s: %w", lockPath, err)
	}
	if !locked {
		logger.Info("glacierwal segment locked by another processor, skipping", logger.WAL(w.name), logger.Segment(inactivePath))
		return nil
	}
	defer lock.Unlock()

	processingPath := w.segmentPath(StateProcessing, generation)
	if err := os.Rename(inactivePath, processingPath); err != nil {
		return fmt.Errorf("glacierwal: rename %s -> %s: %w", inactivePath, processingPath, err)
	}

	if !fn(processingPath) {
		// Retained: put the segment back as inactive so the next pass
		// retries it in full.
		if err := os.Rename(processingPath, inactivePath); err != nil {
			return fmt.Errorf("glacierwal: restore %s -> %s: %w", processingPath, inactivePath, err)
		}
		return nil
	}

	retiredPath := w.segmentPath(StateRetired, generation)
	if err := os.Rename(processingPath, retiredPath); err != nil {
		return fmt.Errorf("glacierwal: retire %s -> %s: %w", processingPath, retiredPath, err)
	}
	logger.Info("glacierwal segment processed", logger.WAL(w.name), logger.Segment(retiredPath))
	return nil
}
