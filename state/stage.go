// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/multiversx/mx-delegation-sc-sub000/common"
)

// Stage abstracts the changes of a state ready to be committed.
type Stage struct {
	stater  *Stater
	changes map[common.Bytes32]rlp.RawValue
}

// Len returns the count of slots changed.
func (s *Stage) Len() int {
	return len(s.changes)
}

// Commit writes all changes in a single batch. Cleared slots are deleted.
// The shared cache is updated only after the batch succeeded.
func (s *Stage) Commit() error {
	bulk := s.stater.store.Bulk()
	for key, value := range s.changes {
		var err error
		if len(value) == 0 {
			err = bulk.Delete(key[:])
		} else {
			err = bulk.Put(key[:], value)
		}
		if err != nil {
			return &Error{err}
		}
	}
	if err := bulk.Write(); err != nil {
		return &Error{err}
	}

	for key, value := range s.changes {
		s.stater.cache.Add(key, value)
	}
	metricSlotAccess().AddWithLabel(int64(len(s.changes)), map[string]string{"type": "commit"})
	return nil
}
