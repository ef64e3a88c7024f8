package sweep

import (
	"context"
	"slices"

	"github.com/pkg/errors"

	"github.com/atsweep/atsweep/bsky"
)

// DeleteMarked deletes every record the caller marked for deletion in the
// given mode, one applyWrites delete op per record keyed by the record
// URI's rkey, in chunks of at most DeleteChunkSize submitted sequentially.
// Each chunk is pruned from the collection as it lands, so a mid-run
// failure leaves only the undeleted remainder marked and a rerun never
// re-issues a delete for a record already removed; the returned count
// reports what actually went through. On full success the mode's record
// set is cleared.
func (e *Engine) DeleteMarked(ctx context.Context, mode Mode) (int, error) {
	e.mu.Lock()
	records := e.results[mode]
	e.mu.Unlock()

	marked := make([]*AccountRecord, 0, len(records))
	for _, r := range records {
		if r.ToDelete {
			marked = append(marked, r)
		}
	}
	if len(marked) == 0 {
		return 0, nil
	}

	deleted := 0
	done := make(map[*AccountRecord]struct{}, len(marked))
	for chunk := range slices.Chunk(marked, DeleteChunkSize) {
		writes := make([]bsky.DeleteOp, 0, len(chunk))
		for _, rec := range chunk {
			writes = append(writes, bsky.NewDeleteOp(rec.URI.Collection(), rec.URI.RecordKey()))
		}
		if err := e.api.ApplyWrites(ctx, e.self, writes); err != nil {
			e.prune(mode, done)
			return deleted, errors.Wrapf(err,
				"batch delete failed after %d of %d records", deleted, len(marked))
		}
		deleted += len(writes)
		for _, rec := range chunk {
			done[rec] = struct{}{}
		}
	}

	e.mu.Lock()
	e.results[mode] = nil
	e.mu.Unlock()
	e.logger.Info("batch delete complete",
		"mode", mode.String(), "deleted", deleted)
	return deleted, nil
}

func (e *Engine) prune(mode Mode, done map[*AccountRecord]struct{}) {
	if len(done) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	kept := e.results[mode][:0]
	for _, rec := range e.results[mode] {
		if _, ok := done[rec]; !ok {
			kept = append(kept, rec)
		}
	}
	e.results[mode] = kept
}
