// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/multiversx/mx-delegation-sc-sub000/common"
)

// BigInt is a slot holding an arbitrary precision, non-negative integer.
// Zero is stored as an empty slot.
type BigInt struct {
	raw *Raw[*big.Int]
}

func NewBigInt(context *Context, pos common.Bytes32) *BigInt {
	return &BigInt{raw: NewRaw[*big.Int](context, pos)}
}

// Get returns the stored value, never nil.
func (b *BigInt) Get() (*big.Int, error) {
	v, err := b.raw.Get()
	if err != nil {
		return nil, err
	}
	if v == nil {
		return new(big.Int), nil
	}
	return v, nil
}

func (b *BigInt) Set(value *big.Int) error {
	if value.Sign() < 0 {
		return errors.Errorf("negative value %v", value)
	}
	if value.Sign() == 0 {
		b.raw.Delete()
		return nil
	}
	return b.raw.Upsert(value)
}

func (b *BigInt) Add(value *big.Int) error {
	v, err := b.Get()
	if err != nil {
		return err
	}
	return b.Set(v.Add(v, value))
}

// Sub subtracts value, failing when the result would be negative.
func (b *BigInt) Sub(value *big.Int) error {
	v, err := b.Get()
	if err != nil {
		return err
	}
	return b.Set(v.Sub(v, value))
}
