package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/matryer/is"
	"github.com/pkg/errors"

	"github.com/atsweep/atsweep/internal/sweep"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMergeToggles(t *testing.T) {
	is := is.New(t)
	toggles, err := mergeToggles(sweep.ModeFollows, []string{"unknown"}, []string{"blocked-by"})
	is.NoErr(err)
	is.True(toggles[sweep.StatusUnknown])
	is.True(!toggles[sweep.StatusBlockedBy])

	_, err = mergeToggles(sweep.ModeFollows, []string{"bogus"}, nil)
	is.True(err != nil)
	_, err = mergeToggles(sweep.ModeBlocks, nil, []string{"bogus"})
	is.True(err != nil)
}

type countingHandles struct {
	calls int
	h     syntax.Handle
	err   error
}

func (c *countingHandles) LookupDIDHandle(ctx context.Context, did syntax.DID) (syntax.Handle, error) {
	c.calls++
	return c.h, c.err
}

func TestHandleCache(t *testing.T) {
	is := is.New(t)
	inner := countingHandles{h: "someone.example.com"}
	hc := newHandleCache(&inner, t.TempDir(), discardLogger())

	h, err := hc.LookupDIDHandle(t.Context(), "did:plc:abc")
	is.NoErr(err)
	is.Equal(h, syntax.Handle("someone.example.com"))
	is.Equal(inner.calls, 1)

	// second lookup is served from disk
	h, err = hc.LookupDIDHandle(t.Context(), "did:plc:abc")
	is.NoErr(err)
	is.Equal(h, syntax.Handle("someone.example.com"))
	is.Equal(inner.calls, 1)

	is.NoErr(hc.purge())
	_, err = hc.LookupDIDHandle(t.Context(), "did:plc:abc")
	is.NoErr(err)
	is.Equal(inner.calls, 2)
}

func TestHandleCache_ErrorNotCached(t *testing.T) {
	is := is.New(t)
	inner := countingHandles{h: syntax.HandleInvalid, err: errors.New("resolution failed")}
	hc := newHandleCache(&inner, t.TempDir(), discardLogger())

	_, err := hc.LookupDIDHandle(t.Context(), "did:plc:abc")
	is.True(err != nil)
	_, err = hc.LookupDIDHandle(t.Context(), "did:plc:abc")
	is.True(err != nil)
	is.Equal(inner.calls, 2)
}
