// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"sync/atomic"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/multiversx/mx-delegation-sc-sub000/cache"
	"github.com/multiversx/mx-delegation-sc-sub000/common"
	"github.com/multiversx/mx-delegation-sc-sub000/kv"
	"github.com/multiversx/mx-delegation-sc-sub000/log"
)

const storeName = "s."

var logger = log.WithContext("pkg", "state")

// Stater is the state creator.
// It owns the slot store and a cache of committed slot values shared by all
// states it creates.
type Stater struct {
	store kv.Store
	cache *cache.LRU

	hitRate atomic.Int32 // permille at the last CacheStats
}

// NewStater create a new stater over db. cacheSize is the number of slots
// kept in the read cache.
func NewStater(db kv.Store, cacheSize int) (*Stater, error) {
	c, err := cache.NewLRU(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Stater{
		store: kv.Bucket(storeName).NewStore(db),
		cache: c,
	}, nil
}

// NewState create a new state object.
func (s *Stater) NewState() *State {
	return newState(s)
}

func (s *Stater) load(key common.Bytes32) (rlp.RawValue, error) {
	v, err := s.cache.GetOrLoad(key, func(any) (any, error) {
		data, err := s.store.Get(key[:])
		if err != nil {
			if s.store.IsNotFound(err) {
				return rlp.RawValue(nil), nil
			}
			return nil, err
		}
		metricSlotAccess().AddWithLabel(1, map[string]string{"type": "load"})
		return rlp.RawValue(data), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(rlp.RawValue), nil
}

// CacheStats returns the slot cache counters and logs them when the hit
// rate moved by at least a permille since the last call.
func (s *Stater) CacheStats() (hit, miss int64) {
	hit, miss = s.cache.Stats()
	var rate int32
	if hit+miss > 0 {
		rate = int32(hit * 1000 / (hit + miss))
	}
	if s.hitRate.Swap(rate) != rate {
		logger.Debug("slot cache stats", "hit", hit, "miss", miss, "rate", rate)
	}
	return hit, miss
}
