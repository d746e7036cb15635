// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/multiversx/mx-delegation-sc-sub000/common"
)

// Raw is a single slot holding an rlp encoded value.
// Reading an empty slot yields the zero value of V, nil for pointer types.
type Raw[V any] struct {
	context *Context
	pos     common.Bytes32
}

func NewRaw[V any](context *Context, pos common.Bytes32) *Raw[V] {
	return &Raw[V]{context: context, pos: pos}
}

func (r *Raw[V]) Get() (value V, err error) {
	err = r.context.state.DecodeStorage(r.pos, func(raw []byte) error {
		r.context.chargeLoad(raw)
		if len(raw) == 0 {
			return nil
		}
		if reflect.TypeOf(value) != nil && reflect.TypeOf(value).Kind() == reflect.Ptr {
			value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
			return rlp.DecodeBytes(raw, value)
		}
		return rlp.DecodeBytes(raw, &value)
	})
	return
}

// Insert writes a value to a slot expected to be empty.
func (r *Raw[V]) Insert(value V) error {
	return r.set(value, true)
}

// Update writes a value to a slot expected to be set.
func (r *Raw[V]) Update(value V) error {
	return r.set(value, false)
}

// Upsert writes a value, charging as Insert or Update by the slot content.
func (r *Raw[V]) Upsert(value V) error {
	raw, err := r.context.state.GetRawStorage(r.pos)
	if err != nil {
		return err
	}
	r.context.chargeLoad(raw)
	return r.set(value, len(raw) == 0)
}

// Delete clears the slot.
func (r *Raw[V]) Delete() {
	r.context.chargeStore(nil, false)
	r.context.state.SetRawStorage(r.pos, nil)
}

func (r *Raw[V]) set(value V, newValue bool) error {
	return r.context.state.EncodeStorage(r.pos, func() ([]byte, error) {
		val, err := rlp.EncodeToBytes(value)
		if err != nil {
			return nil, errors.Wrap(err, "encode slot value")
		}
		r.context.chargeStore(val, newValue)
		return val, nil
	})
}
