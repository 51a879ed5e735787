// Package searchhistory keeps the user's recent search queries.
package searchhistory

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/harmony/internal/infra/store"
)

// Limit is the maximum number of remembered queries.
const Limit = 50

// History is a most-recent-first list of search queries.
type History struct {
	mu      sync.RWMutex
	queries []string
	kv      store.KV
}

// New creates an empty history backed by kv.
func New(kv store.KV) *History {
	return &History{queries: []string{}, kv: kv}
}

// Load restores the history from the store.
func (h *History) Load(ctx context.Context) error {
	var loaded []string
	if _, err := h.kv.Get(ctx, store.KeySearchHistory, &loaded); err != nil {
		return errors.Wrap(err, "failed to load search history")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.queries = lo.Compact(loaded)
	if len(h.queries) > Limit {
		h.queries = h.queries[:Limit]
	}
	return nil
}

func (h *History) saveLocked(ctx context.Context) error {
	if err := h.kv.Set(ctx, store.KeySearchHistory, h.queries); err != nil {
		zlog.Error().Err(err).Msg("searchhistory: failed to save")
		return errors.Wrap(err, "failed to save search history")
	}
	return nil
}

// Add records a query at the front. Blank queries are ignored and an
// existing entry differing only in case is moved rather than duplicated.
func (h *History) Add(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	rest := lo.Reject(h.queries, func(q string, _ int) bool { return strings.EqualFold(q, query) })
	h.queries = append([]string{query}, rest...)
	if len(h.queries) > Limit {
		h.queries = h.queries[:Limit]
	}
	return h.saveLocked(ctx)
}

// Remove deletes an exact query.
func (h *History) Remove(ctx context.Context, query string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !lo.Contains(h.queries, query) {
		return nil
	}
	h.queries = lo.Without(h.queries, query)
	return h.saveLocked(ctx)
}

// Clear forgets every query.
func (h *History) Clear(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queries = []string{}
	return h.saveLocked(ctx)
}

// List returns the queries, most recent first.
func (h *History) List() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string{}, h.queries...)
}
