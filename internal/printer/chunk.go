package printer

import (
	"context"
	"time"
)

// WriteChunked sends data through write in strict buffer order, at most
// policy.Size bytes per call, pausing policy.Delay between calls. Each call
// completes before the next begins. It returns the number of calls made.
//
// The pause waits on ctx, so a cancelled context ends the send early with a
// partial transmission.
func WriteChunked(ctx context.Context, policy ChunkPolicy, data []byte, write func(context.Context, []byte) error) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	size := policy.Size
	if size <= 0 || size > len(data) {
		size = len(data)
	}

	calls := 0
	for off := 0; off < len(data); off += size {
		if calls > 0 && policy.Delay > 0 {
			if err := pause(ctx, policy.Delay); err != nil {
				return calls, err
			}
		}
		end := off + size
		if end > len(data) {
			end = len(data)
		}
		calls++
		if err := write(ctx, data[off:end]); err != nil {
			return calls, err
		}
	}
	return calls, nil
}

// Chunks returns how many writes WriteChunked issues for n bytes
func (p ChunkPolicy) Chunks(n int) int {
	if n <= 0 {
		return 0
	}
	if p.Size <= 0 {
		return 1
	}
	return (n + p.Size - 1) / p.Size
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
