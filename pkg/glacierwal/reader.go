package glacierwal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// ReadRecords reads every complete (newline-terminated) record from path
// and invokes fn once per record. A final, unterminated partial line —
// which can occur if a writer crashed mid-append — is treated as
// corruption of that last record only: it is reported via ErrCorrupted
// but every record read before it is still delivered to fn.
func ReadRecords(path string, fn func(record []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("glacierwal: open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		line, err := r.ReadBytes('\n')
		switch {
		case err == nil:
			if ferr := fn(line[:len(line)-1]); ferr != nil {
				return ferr
			}
		case err == io.EOF:
			if len(line) > 0 {
				// Trailing bytes with no terminating newline: a crash
				// mid-write. Every prior record was already delivered.
				return fmt.Errorf("%s: %w", path, ErrCorrupted)
			}
			return nil
		default:
			return fmt.Errorf("glacierwal: read %s: %w", path, err)
		}
	}
}

// CountRecords returns the number of complete records in path, ignoring
// (but not erroring on) a trailing partial record.
func CountRecords(path string) (int, error) {
	n := 0
	err := ReadRecords(path, func(record []byte) error {
		n++
		return nil
	})
	if errors.Is(err, ErrCorrupted) {
		// A trailing-partial-record error still leaves n accurate for
		// everything read before it.
		return n, nil
	}
	return n, err
}
