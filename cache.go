package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"

	"github.com/atsweep/atsweep/internal/sweep"
)

const handleCacheLifetime = 24 * time.Hour

// handleCache memoizes did-to-handle lookups on disk. Handles churn
// slowly, so a day-old answer is good enough for display purposes.
type handleCache struct {
	inner    sweep.HandleSource
	dir      string
	lifetime time.Duration
	logger   *slog.Logger
}

func newHandleCache(inner sweep.HandleSource, basedir string, logger *slog.Logger) *handleCache {
	return &handleCache{
		inner:    inner,
		dir:      filepath.Join(basedir, "handles"),
		lifetime: handleCacheLifetime,
		logger:   logger,
	}
}

func (hc *handleCache) LookupDIDHandle(ctx context.Context, did syntax.DID) (syntax.Handle, error) {
	path := hc.path(did)
	if h, ok := hc.get(path); ok {
		return h, nil
	}
	h, err := hc.inner.LookupDIDHandle(ctx, did)
	if err != nil {
		return h, err
	}
	hc.put(path, h)
	return h, nil
}

func (hc *handleCache) get(path string) (syntax.Handle, bool) {
	stat, err := os.Stat(path)
	if err != nil || time.Since(stat.ModTime()) > hc.lifetime {
		return syntax.HandleInvalid, false
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return syntax.HandleInvalid, false
	}
	h, err := syntax.ParseHandle(strings.TrimSpace(string(raw)))
	if err != nil {
		return syntax.HandleInvalid, false
	}
	return h, true
}

func (hc *handleCache) put(path string, h syntax.Handle) {
	if err := os.MkdirAll(hc.dir, 0755); err != nil {
		hc.logger.Warn("failed to create handle cache dir", "error", err)
		return
	}
	if err := os.WriteFile(path, []byte(h.String()), 0644); err != nil {
		hc.logger.Warn("failed to write handle cache entry", "error", err)
	}
}

func (hc *handleCache) path(did syntax.DID) string {
	// did methods use ':' which is unfriendly to some filesystems
	name := strings.ReplaceAll(did.String(), ":", "_")
	return filepath.Join(hc.dir, name)
}

// purge removes every cached handle entry.
func (hc *handleCache) purge() error {
	err := os.RemoveAll(hc.dir)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
