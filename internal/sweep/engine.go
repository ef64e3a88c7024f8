package sweep

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/atsweep/atsweep/bsky"
)

// API is the slice of the protocol the engine consumes.
type API interface {
	ProfileSource
	GetBlocks(ctx context.Context, limit int, cursor string) (*bsky.BlockList, error)
	ListRecords(ctx context.Context, repo syntax.DID, collection syntax.NSID, limit int, cursor string) (*bsky.RecordList[bsky.GraphRecord], error)
	ApplyWrites(ctx context.Context, repo syntax.DID, writes []bsky.DeleteOp) error
}

const (
	pageSize       = 100
	probeBatchSize = 10

	// DeleteChunkSize bounds one applyWrites call.
	DeleteChunkSize = bsky.MaxWrites

	defaultPacingThreshold = 1000
	defaultPause           = time.Second
)

// Engine drives one authenticated user's reconciliation runs. Construct
// one per session; it exclusively owns the per-mode record collections and
// keeps them in memory only.
type Engine struct {
	api        API
	classifier *Classifier
	self       syntax.DID
	logger     *slog.Logger

	// PacingThreshold is the candidate count past which follow-mode probe
	// batches are paced with Pause between them.
	PacingThreshold int
	Pause           time.Duration

	sleep func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	results map[Mode][]*AccountRecord

	total     atomic.Int64
	remaining atomic.Int64
}

func New(api API, fallback HandleSource, self syntax.DID, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		api:  api,
		self: self,
		classifier: &Classifier{
			Profiles: api,
			Fallback: fallback,
			Self:     self,
			Logger:   logger,
		},
		logger:          logger,
		PacingThreshold: defaultPacingThreshold,
		Pause:           defaultPause,
		sleep:           sleep,
		results:         make(map[Mode][]*AccountRecord),
	}
}

// Progress reports how many candidates of the current run are classified.
// The remaining count is decremented toward zero on every completion, so
// done == total is a reliable end signal no matter how batch completions
// interleave.
func (e *Engine) Progress() (done, total int64) {
	t := e.total.Load()
	return t - e.remaining.Load(), t
}

// Records returns the engine-owned record set for a mode. Callers may
// only flip ToDelete and read the other fields.
func (e *Engine) Records(m Mode) []*AccountRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.results[m]
}

// ApplyToggles recomputes visibility under the given toggle state.
func (e *Engine) ApplyToggles(m Mode, t ToggleState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t.Apply(e.results[m])
}

// MarkVisible selects every currently visible record for deletion and
// reports how many were marked.
func (e *Engine) MarkVisible(m Mode) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, r := range e.results[m] {
		if r.Visible {
			r.ToDelete = true
			n++
		}
	}
	return n
}

type candidate struct {
	Subject syntax.DID
	URI     syntax.ATURI
}

// SweepFollows enumerates every follow record and classifies each one,
// keeping only the ones with an actionable status. Probes run in batches
// of 10 awaited as a unit, so record order in the result is not
// guaranteed.
func (e *Engine) SweepFollows(ctx context.Context) ([]*AccountRecord, error) {
	records, err := e.listRecords(ctx, ModeFollows)
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate follow records")
	}
	cands := e.candidates(records)
	e.total.Store(int64(len(cands)))
	e.remaining.Store(int64(len(cands)))

	var (
		mu    sync.Mutex
		out   = make([]*AccountRecord, 0)
		paced = len(cands) > e.PacingThreshold
	)
	for batch := range slices.Chunk(cands, probeBatchSize) {
		if err := ctx.Err(); err != nil {
			return nil, errors.WithStack(err)
		}
		if paced {
			if err := e.sleep(ctx, e.Pause); err != nil {
				return nil, err
			}
		}
		g, gctx := errgroup.WithContext(ctx)
		for _, cand := range batch {
			g.Go(func() error {
				probe := e.classifier.Classify(gctx, cand.Subject)
				e.remaining.Add(-1)
				if probe.Err != nil {
					e.logger.Debug("probe recovered from error",
						"did", cand.Subject.String(),
						"status", probe.Status.Label(),
						"error", probe.Err)
				}
				if !probe.Flagged() {
					return nil
				}
				rec := &AccountRecord{
					Subject: cand.Subject,
					Handle:  probe.Handle,
					URI:     cand.URI,
					Status:  probe.Status,
				}
				mu.Lock()
				out = append(out, rec)
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	DefaultToggles(ModeFollows).Apply(out)
	e.setRecords(ModeFollows, out)
	return out, nil
}

// SweepBlocks reconciles the repository's block records against the live
// outgoing-block view and classifies only the stale subset. Every stale
// record is kept regardless of probe outcome: by construction it is
// already known to not be an active block. Probes run strictly
// sequentially, preserving record order, with a pause after every 10.
func (e *Engine) SweepBlocks(ctx context.Context) ([]*AccountRecord, error) {
	active, err := e.activeBlocks(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate active blocks")
	}
	records, err := e.listRecords(ctx, ModeBlocks)
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate block records")
	}
	blocks := make([]BlockRecord, 0, len(records))
	for _, cand := range e.candidates(records) {
		blocks = append(blocks, BlockRecord(cand))
	}
	stale := StaleBlocks(blocks, active)
	e.total.Store(int64(len(stale)))
	e.remaining.Store(int64(len(stale)))

	out := make([]*AccountRecord, 0, len(stale))
	for i, rec := range stale {
		if i > 0 && i%probeBatchSize == 0 {
			if err := e.sleep(ctx, e.Pause); err != nil {
				return nil, err
			}
		}
		probe := e.classifier.Classify(ctx, rec.Subject)
		e.remaining.Add(-1)
		if probe.Err != nil {
			e.logger.Debug("probe recovered from error",
				"did", rec.Subject.String(),
				"status", probe.Status.Label(),
				"error", probe.Err)
		}
		out = append(out, &AccountRecord{
			Subject: rec.Subject,
			Handle:  probe.Handle,
			URI:     rec.URI,
			Status:  blockStatus(probe.Status),
		})
	}
	DefaultToggles(ModeBlocks).Apply(out)
	e.setRecords(ModeBlocks, out)
	return out, nil
}

// blockStatus normalizes a probe result for block mode: a stale block is
// already known to not be an active outgoing block, so anything that is
// not an account-gone signal collapses to unknown.
func blockStatus(s RepoStatus) RepoStatus {
	switch s {
	case StatusDeleted, StatusDeactivated, StatusSuspended:
		return s
	}
	return StatusUnknown
}

func (e *Engine) listRecords(ctx context.Context, mode Mode) ([]bsky.Record[bsky.GraphRecord], error) {
	pager := Pager[bsky.Record[bsky.GraphRecord]]{
		Fetch: func(ctx context.Context, cursor string, limit int) ([]bsky.Record[bsky.GraphRecord], string, error) {
			list, err := e.api.ListRecords(ctx, e.self, mode.Collection(), limit, cursor)
			if err != nil {
				return nil, "", err
			}
			return list.Records, list.Cursor, nil
		},
		Limit:  pageSize,
		Logger: e.logger,
	}
	switch mode {
	case ModeFollows:
		pager.StopOnShortPage = true
	case ModeBlocks:
		// partial repository listings still allow a best-effort cleanup
		pager.KeepPartial = true
	}
	return pager.All(ctx)
}

func (e *Engine) activeBlocks(ctx context.Context) (map[syntax.DID]struct{}, error) {
	pager := Pager[bsky.ProfileView]{
		Fetch: func(ctx context.Context, cursor string, limit int) ([]bsky.ProfileView, string, error) {
			list, err := e.api.GetBlocks(ctx, limit, cursor)
			if err != nil {
				return nil, "", err
			}
			return list.Blocks, list.Cursor, nil
		},
		Limit:  pageSize,
		Logger: e.logger,
	}
	blocks, err := pager.All(ctx)
	if err != nil {
		return nil, err
	}
	active := make(map[syntax.DID]struct{}, len(blocks))
	for _, b := range blocks {
		active[b.DID] = struct{}{}
	}
	return active, nil
}

func (e *Engine) candidates(records []bsky.Record[bsky.GraphRecord]) []candidate {
	out := make([]candidate, 0, len(records))
	for _, rec := range records {
		did, err := syntax.ParseDID(rec.Value.Subject.DID)
		if err != nil {
			e.logger.Warn("relationship record has malformed subject",
				"uri", rec.URI.String(), "error", err)
			continue
		}
		out = append(out, candidate{Subject: did, URI: rec.URI})
	}
	return out
}

func (e *Engine) setRecords(m Mode, records []*AccountRecord) {
	e.mu.Lock()
	e.results[m] = records
	e.mu.Unlock()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	case <-t.C:
		return nil
	}
}
