package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/dataclean/internal/logging"
)

// processChunked runs large inputs chunk by chunk. head holds the rows
// already read while deciding to chunk; the rest come from src. Only one
// chunk of raw rows is buffered at a time, while the dedupe set in r spans
// the whole run.
func (e *Engine) processChunked(ctx context.Context, src Source, head [][]string, size int, r *run) error {
	logger := logging.WithFields(ctx, "chunk_size", size)

	pending := head
	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("chunk %d: %w", r.chunks+1, err)
		}

		n := min(size, len(pending))
		chunk := pending[:n]
		carry := pending[n:]

		for _, row := range chunk {
			r.processRow(row)
		}
		r.chunks++

		logger.Debug("chunk processed",
			"chunk", r.chunks,
			"rows_in", r.rowsIn,
			"rows_kept", len(r.rows),
		)

		more, err := readRows(src, size-len(carry))
		if err != nil {
			return fmt.Errorf("chunk %d: %w", r.chunks+1, err)
		}
		pending = append(carry[:len(carry):len(carry)], more...)
	}
	return nil
}
