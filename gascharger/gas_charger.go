// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package gascharger

import (
	"fmt"
	"math"
)

// Gas of storage access, per 32 bytes word.
const (
	SloadGas       uint64 = 200
	SstoreSetGas   uint64 = 20000
	SstoreResetGas uint64 = 5000
)

// Test hook - only used during testing
var testHook func(*Charger) = nil

// Charger meters the resource budget of one invocation.
// The budget never blocks a charge; it is up to the caller to check Exceeded
// after the invocation and to honour ShouldYield between units of work.
type Charger struct {
	limit          uint64
	reserve        uint64
	sloadOps       uint64
	sstoreSetOps   uint64
	sstoreResetOps uint64
	customGas      uint64
	totalGas       uint64
}

// New creates a charger with the given limit. ShouldYield reports true once
// less than reserve is left.
func New(limit, reserve uint64) *Charger {
	charger := &Charger{
		limit:   limit,
		reserve: reserve,
	}

	// Call test hook if it exists
	if testHook != nil {
		testHook(charger)
	}

	return charger
}

// Unlimited creates a charger that never asks to yield.
func Unlimited() *Charger {
	return New(math.MaxUint64, 0)
}

func (c *Charger) Charge(gas uint64) {
	if c.totalGas > math.MaxUint64-gas {
		c.totalGas = math.MaxUint64
	} else {
		c.totalGas += gas
	}

	switch {
	// Handle multiples and single operations
	case gas%SstoreSetGas == 0 && gas > 0:
		c.sstoreSetOps += gas / SstoreSetGas

	case gas%SstoreResetGas == 0 && gas > 0:
		c.sstoreResetOps += gas / SstoreResetGas

	case gas%SloadGas == 0 && gas > 0:
		c.sloadOps += gas / SloadGas

	default:
		// Unknown/custom gas amount
		c.customGas += gas
	}
}

// Remaining returns the budget left, zero once exceeded.
func (c *Charger) Remaining() uint64 {
	if c.totalGas >= c.limit {
		return 0
	}
	return c.limit - c.totalGas
}

// ShouldYield reports whether the remaining budget fell below the reserve.
func (c *Charger) ShouldYield() bool {
	return c.Remaining() < c.reserve
}

// Exceeded reports whether more than the limit was charged.
func (c *Charger) Exceeded() bool {
	return c.totalGas > c.limit
}

func (c *Charger) Breakdown() string {
	return fmt.Sprintf(
		"SLOAD: %d ops (%d gas) | SSTORE_SET: %d ops (%d gas) | SSTORE_RESET: %d ops (%d gas) | CUSTOM: %d gas | TOTAL: %d gas",
		c.sloadOps,
		c.sloadOps*SloadGas,
		c.sstoreSetOps,
		c.sstoreSetOps*SstoreSetGas,
		c.sstoreResetOps,
		c.sstoreResetOps*SstoreResetGas,
		c.customGas,
		c.totalGas,
	)
}

func (c *Charger) TotalGas() uint64 {
	return c.totalGas
}

// Test helper functions

func SetTestHook(hook func(*Charger)) {
	testHook = hook
}

func ClearTestHook() {
	testHook = nil
}
