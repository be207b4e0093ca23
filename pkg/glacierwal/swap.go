package glacierwal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Swap atomically renames the active segment to a newly generationed
// inactive segment and opens a fresh, empty active segment in its place,
// so a processor can work through any number of sealed segments while
// new records keep landing in active without contention. Unlike a
// single fixed inactive slot, Swap never blocks on a prior inactive
// segment still awaiting processing — each call produces its own
// segment, named by a strictly increasing generation number.
//
// If the active segment is empty, Swap is a silent no-op: it neither
// renames anything nor leaves behind an empty inactive segment for a
// processor to needlessly stat. Calling Swap twice in a row with no
// intervening Append is therefore idempotent. Swap returns the path of
// the new inactive segment, or "" on the empty no-op case.
func (w *WAL) Swap() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return "", ErrClosed
	}

	info, err := w.active.Stat()
	if err != nil {
		return "", fmt.Errorf("glacierwal: stat active segment %s: %w", w.name, err)
	}
	if info.Size() == 0 {
		return "", nil
	}

	if err := w.active.Sync(); err != nil {
		return "", fmt.Errorf("glacierwal: sync before swap %s: %w", w.name, err)
	}
	if err := w.active.Close(); err != nil {
		return "", fmt.Errorf("glacierwal: close active before swap %s: %w", w.name, err)
	}

	generation, err := w.nextGeneration()
	if err != nil {
		return "", err
	}

	activePath := w.activeSegmentPath()
	inactivePath := w.segmentPath(StateInactive, generation)

	if err := os.Rename(activePath, inactivePath); err != nil {
		return "", fmt.Errorf("glacierwal: rename %s -> %s: %w", activePath, inactivePath, err)
	}

	f, err := os.OpenFile(activePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return "", fmt.Errorf("glacierwal: reopen active segment %s: %w", activePath, err)
	}
	w.active = f
	return inactivePath, nil
}

// ListInactiveSegments returns every sealed-but-unprocessed segment's
// path, ordered oldest generation first.
func (w *WAL) ListInactiveSegments() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("glacierwal: list %s: %w", w.dir, err)
	}

	type found struct {
		path       string
		generation uint64
	}
	var segments []found
	prefix := fmt.Sprintf("%s.%s.", w.name, StateInactive)
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		path := filepath.Join(w.dir, e.Name())
		if gen, ok := w.segmentGeneration(path); ok {
			segments = append(segments, found{path: path, generation: gen})
		}
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i].generation < segments[j].generation })

	out := make([]string, len(segments))
	for i, s := range segments {
		out[i] = s.path
	}
	return out, nil
}

