// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package storage maps typed values onto state slots, charging the
// resource budget for every slot word read or written.
package storage

import (
	"github.com/multiversx/mx-delegation-sc-sub000/gascharger"
	"github.com/multiversx/mx-delegation-sc-sub000/state"
)

type UseGasFunc func(gas uint64)

type Context struct {
	state   *state.State
	charger UseGasFunc
}

func NewContext(state *state.State, charger UseGasFunc) *Context {
	return &Context{
		state:   state,
		charger: charger,
	}
}

func (c *Context) State() *state.State {
	return c.state
}

func (c *Context) UseGas(gas uint64) {
	if c.charger != nil {
		c.charger(gas)
	}
}

func (c *Context) chargeLoad(raw []byte) {
	c.UseGas(toWordSize(len(raw)) * gascharger.SloadGas)
}

func (c *Context) chargeStore(raw []byte, newValue bool) {
	if newValue {
		c.UseGas(toWordSize(len(raw)) * gascharger.SstoreSetGas)
	} else {
		c.UseGas(toWordSize(len(raw)) * gascharger.SstoreResetGas)
	}
}

// toWordSize converts bytes length to 32 bytes words, at least one.
func toWordSize(length int) uint64 {
	if length <= 32 {
		return 1
	}
	return (uint64(length) + 31) / 32
}
