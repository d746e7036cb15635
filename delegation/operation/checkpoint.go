// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package operation

import (
	"fmt"
	"math/big"

	"github.com/multiversx/mx-delegation-sc-sub000/delegation/rewards"
)

// Kind of a global operation.
type Kind uint8

const (
	KindModifyCapacity Kind = iota + 1
	KindChangeFee
)

func (k Kind) String() string {
	switch k {
	case KindModifyCapacity:
		return "modify-capacity"
	case KindChangeFee:
		return "change-fee"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Step of a capacity change.
type Step uint8

const (
	StepComputeAllRewards Step = iota
	StepQueueToActive
	StepUnstakedToDeferred
	StepActiveToDeferred
)

func (s Step) String() string {
	switch s {
	case StepComputeAllRewards:
		return "compute-all-rewards"
	case StepQueueToActive:
		return "queue-to-active"
	case StepUnstakedToDeferred:
		return "unstaked-to-deferred"
	case StepActiveToDeferred:
		return "active-to-deferred"
	}
	return fmt.Sprintf("step(%d)", uint8(s))
}

// Status reports whether an operation ran to its end.
type Status uint8

const (
	Completed Status = iota
	Interrupted
)

func (s Status) String() string {
	switch s {
	case Completed:
		return "completed"
	case Interrupted:
		return "interrupted"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// ModifyCapacity is the continuation of a capacity change.
type ModifyCapacity struct {
	NewCapacity                 *big.Int
	RemainingQueueToActive      *big.Int
	RemainingActiveToDeferred   *big.Int
	RemainingUnstakedToDeferred *big.Int
	// Unfilled is set when the pool holds less than the new capacity, the
	// capacity then changes without moving any stake.
	Unfilled bool
	// Settled is the counter the last completed sweep settled against.
	Settled  *big.Int
	Step     Step
	Progress *rewards.Progress `rlp:"nil"`
}

// ChangeFee is the continuation of a service fee change.
type ChangeFee struct {
	NewFee   uint64
	Progress *rewards.Progress `rlp:"nil"`
}

// Checkpoint is the stored global operation. Exactly one of the variants
// matching Kind is set.
type Checkpoint struct {
	Kind           Kind
	ModifyCapacity *ModifyCapacity `rlp:"nil"`
	ChangeFee      *ChangeFee      `rlp:"nil"`
}

func newModifyCapacity(newCap *big.Int) *Checkpoint {
	return &Checkpoint{
		Kind: KindModifyCapacity,
		ModifyCapacity: &ModifyCapacity{
			NewCapacity:                 new(big.Int).Set(newCap),
			RemainingQueueToActive:      new(big.Int),
			RemainingActiveToDeferred:   new(big.Int),
			RemainingUnstakedToDeferred: new(big.Int),
			Settled:                     new(big.Int),
			Step:                        StepComputeAllRewards,
		},
	}
}

func newChangeFee(fee uint64) *Checkpoint {
	return &Checkpoint{Kind: KindChangeFee, ChangeFee: &ChangeFee{NewFee: fee}}
}

func (c *Checkpoint) String() string {
	switch c.Kind {
	case KindModifyCapacity:
		if m := c.ModifyCapacity; m != nil {
			return fmt.Sprintf("%v(cap=%v step=%v queue=%v unstaked=%v active=%v)",
				c.Kind, m.NewCapacity, m.Step,
				m.RemainingQueueToActive, m.RemainingUnstakedToDeferred, m.RemainingActiveToDeferred)
		}
	case KindChangeFee:
		if f := c.ChangeFee; f != nil {
			return fmt.Sprintf("%v(fee=%d)", c.Kind, f.NewFee)
		}
	}
	return c.Kind.String()
}
