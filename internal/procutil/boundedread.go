// Package procutil provides small, defensive helpers for reading files
// under /proc: bounded reads with a context deadline so a stuck or
// adversarial /proc entry cannot hang a caller. No package in this module
// imports it; the pipeline's /proc reads use os.ReadFile and bufio directly.
package procutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

const (
	DefaultMaxBytes = 1 << 20 // 1 MiB ceiling per /proc file read
	DefaultMaxLines = 1 << 16
)

// TruncatedError indicates a read stopped at a size or context-deadline
// boundary before reaching EOF. Callers treat this as "use what we have"
// rather than a hard failure, matching spec.md §7's per-PID transient
// error policy.
type TruncatedError struct {
	Reason string
}

func (e TruncatedError) Error() string { return "procutil: truncated read: " + e.Reason }

// ReadAllBounded reads r until EOF, ctx cancellation, or maxBytes,
// whichever comes first. It never returns a nil error together with a
// partial read silently; truncation is always reported via TruncatedError
// so callers can decide whether a partial view is still usable.
func ReadAllBounded(ctx context.Context, r io.Reader, maxBytes int) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	var buf bytes.Buffer
	chunk := make([]byte, 4096)

	for {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return buf.Bytes(), TruncatedError{Reason: "deadline exceeded"}
			}
			return buf.Bytes(), err
		}

		if buf.Len() >= maxBytes {
			return buf.Bytes()[:maxBytes], TruncatedError{Reason: fmt.Sprintf("maxBytes=%d", maxBytes)}
		}

		want := len(chunk)
		if remain := maxBytes - buf.Len(); remain < want {
			want = remain
		}
		n, err := r.Read(chunk[:want])
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return buf.Bytes(), err
		}
	}
}

// SplitNonEmpty splits data on sep and drops empty fields, the pattern
// used for both NUL-separated /proc/[pid]/environ and /proc/[pid]/cmdline.
func SplitNonEmpty(data []byte, sep byte) []string {
	if len(data) == 0 {
		return nil
	}
	parts := bytes.Split(data, []byte{sep})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if len(p) == 0 {
			continue
		}
		out = append(out, string(p))
	}
	return out
}
