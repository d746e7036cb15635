// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package gascharger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChargerBreakdown(t *testing.T) {
	c := New(1_000_000, 0)

	c.Charge(SloadGas * 3)
	c.Charge(SstoreSetGas)
	c.Charge(SstoreResetGas * 2)
	c.Charge(7)

	assert.Equal(t, uint64(600+20000+10000+7), c.TotalGas())
	assert.Equal(t,
		"SLOAD: 3 ops (600 gas) | SSTORE_SET: 1 ops (20000 gas) | SSTORE_RESET: 2 ops (10000 gas) | CUSTOM: 7 gas | TOTAL: 30607 gas",
		c.Breakdown())
}

func TestChargerYield(t *testing.T) {
	c := New(50_000, 20_000)
	assert.False(t, c.ShouldYield())
	assert.Equal(t, uint64(50_000), c.Remaining())

	c.Charge(SstoreSetGas)
	assert.False(t, c.ShouldYield())

	c.Charge(SstoreResetGas * 3)
	assert.Equal(t, uint64(15_000), c.Remaining())
	assert.True(t, c.ShouldYield())
	assert.False(t, c.Exceeded())

	c.Charge(SstoreSetGas)
	assert.Equal(t, uint64(0), c.Remaining())
	assert.True(t, c.Exceeded())
}

func TestUnlimited(t *testing.T) {
	c := Unlimited()
	for i := 0; i < 100; i++ {
		c.Charge(SstoreSetGas)
	}
	assert.False(t, c.ShouldYield())
	assert.False(t, c.Exceeded())
}

func TestTestHook(t *testing.T) {
	var seen *Charger
	SetTestHook(func(c *Charger) { seen = c })
	defer ClearTestHook()

	c := New(1, 1)
	assert.Same(t, c, seen)
}
