// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"math/big"

	"github.com/multiversx/mx-delegation-sc-sub000/common"
)

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

// Event is a committed ledger event.
// Seq is the sequence of the invocation that emitted it and Index its
// position inside that invocation.
type Event struct {
	Seq    uint64
	Index  uint32
	Time   uint64
	Kind   string
	Owner  *common.Address
	Amount *big.Int
	Detail string
}

// Range is an inclusive range of invocation sequences.
type Range struct {
	From uint64
	To   uint64
}

type Options struct {
	Offset uint64
	Limit  uint64
}

// EventCriteria matches events by kind and owner. Nil fields match anything.
type EventCriteria struct {
	Kind  *string
	Owner *common.Address
}

// EventFilter filter
type EventFilter struct {
	CriteriaSet []*EventCriteria
	Range       *Range
	Options     *Options
	Order       Order // default asc
}
