// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package state manages the persisted storage slots of the ledger.
// It follows the flow as bellow:
//
//	         o
//	         |
//	[ revertable state ]
//	         |
//	  [ stacked map ] -> [ journal ] -> [ stage ] -> [ bulk write ]
//	         |
//	    [ lru cache ]
//	         |
//	    [ kv store ]
//
// A State lives for one invocation. Checkpoints taken with NewCheckpoint can
// be reverted with RevertTo; whatever survives is staged and committed in
// one batch.
package state
