// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package kv is the key/value surface the ledger state is persisted through.
package kv

// Getter reads committed slots.
type Getter interface {
	Get(key []byte) ([]byte, error)
	// IsNotFound reports whether err from Get means the key is absent.
	IsNotFound(err error) bool
}

// Putter writes or removes slots.
type Putter interface {
	Put(key, val []byte) error
	Delete(key []byte) error
}

// Bulk buffers puts and deletes until Write applies them in one batch.
// A stage commit is one Bulk, so a crash never leaves half a commit.
type Bulk interface {
	Putter
	Len() int
	Write() error
}

type Store interface {
	Getter
	Putter
	Bulk() Bulk
}

type StoreCloser interface {
	Store
	Close() error
}
