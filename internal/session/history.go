// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/caurisai/cauris-tui/internal/model"
)

// HistoryFetcher returns the full server history, oldest first.
type HistoryFetcher interface {
	History(ctx context.Context) ([]model.HistoryEntry, error)
}

// =============================================================================
// HISTORY SYNCHRONIZER
// =============================================================================

// HistorySynchronizer keeps a full-replace cache of the server history. A
// refresh never blocks the loop; its result is applied only if it answers
// a newer request than the last applied one. A failed refresh keeps the
// previous cache and is not retried: the next open or inbound message
// refreshes again.
type HistorySynchronizer struct {
	fetcher HistoryFetcher
	timeout time.Duration
	logger  *zap.Logger
	post    func(func()) bool
	ctx     context.Context

	seq     uint64
	applied uint64
	entries []model.HistoryEntry
	lastErr error
	loaded  bool
}

func newHistorySynchronizer(ctx context.Context, fetcher HistoryFetcher, timeout time.Duration,
	logger *zap.Logger, post func(func()) bool) *HistorySynchronizer {
	return &HistorySynchronizer{
		ctx:     ctx,
		fetcher: fetcher,
		timeout: timeout,
		logger:  logger.Named("history"),
		post:    post,
	}
}

// Refresh starts a fetch.
func (h *HistorySynchronizer) Refresh() {
	if h.fetcher == nil {
		return
	}
	h.seq++
	seq := h.seq

	go func() {
		ctx, cancel := context.WithTimeout(h.ctx, h.timeout)
		defer cancel()
		entries, err := h.fetcher.History(ctx)
		h.post(func() { h.apply(seq, entries, err) })
	}()
}

func (h *HistorySynchronizer) apply(seq uint64, entries []model.HistoryEntry, err error) {
	// A response older than the applied list says nothing about it
	if seq <= h.applied {
		h.logger.Debug("dropping stale history response",
			zap.Uint64("seq", seq),
			zap.Uint64("applied", h.applied),
			zap.Error(err))
		return
	}
	if err != nil {
		h.lastErr = err
		h.logger.Warn("history refresh failed, keeping previous list",
			zap.Uint64("seq", seq),
			zap.Int("cached", len(h.entries)),
			zap.Error(err))
		return
	}
	h.applied = seq
	h.entries = entries
	h.lastErr = nil
	h.loaded = true
	h.logger.Debug("history refreshed", zap.Uint64("seq", seq), zap.Int("entries", len(entries)))
}

// Entries returns the cache most-recent-first.
func (h *HistorySynchronizer) Entries() []model.HistoryEntry {
	return model.MostRecentFirst(h.entries)
}

// Requests returns how many refreshes have been issued.
func (h *HistorySynchronizer) Requests() uint64 {
	return h.seq
}

// Stale reports whether the last refresh failed, i.e. the cache may be out
// of date.
func (h *HistorySynchronizer) Stale() bool {
	return h.lastErr != nil
}
