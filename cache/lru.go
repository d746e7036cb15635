// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package cache holds the read cache of committed ledger slots.
package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// LRU is a bounded golang-lru cache that counts the hits and misses of
// GetOrLoad.
type LRU struct {
	*lru.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// NewLRU fails unless maxSize is positive.
func NewLRU(maxSize int) (*LRU, error) {
	c, err := lru.New(maxSize)
	if err != nil {
		return nil, errors.Wrap(err, "new lru")
	}
	return &LRU{Cache: c}, nil
}

// Loader reads a value missing from the cache.
type Loader func(key any) (any, error)

// GetOrLoad returns the cached value of key, loading and caching it on a
// miss. Failed loads are not cached.
func (l *LRU) GetOrLoad(key any, loader Loader) (any, error) {
	if v, ok := l.Get(key); ok {
		l.hits.Add(1)
		return v, nil
	}
	l.misses.Add(1)
	v, err := loader(key)
	if err != nil {
		return nil, err
	}
	l.Add(key, v)
	return v, nil
}

// Stats returns the hit and miss counts of GetOrLoad so far.
func (l *LRU) Stats() (hit, miss int64) {
	return l.hits.Load(), l.misses.Load()
}
