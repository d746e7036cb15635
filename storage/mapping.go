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

// Mapping is a key/value storage abstraction: every value lives rlp encoded
// at blake2b(key, base).
// Reading an absent key yields the zero value of V, nil for pointer types.
type Mapping[K Key, V any] struct {
	context *Context
	basePos common.Bytes32
}

func NewMapping[K Key, V any](context *Context, pos common.Bytes32) *Mapping[K, V] {
	return &Mapping[K, V]{context: context, basePos: pos}
}

func (m *Mapping[K, V]) position(key K) common.Bytes32 {
	return common.Blake2b(key.Bytes(), m.basePos.Bytes())
}

func (m *Mapping[K, V]) Get(key K) (value V, err error) {
	err = m.context.state.DecodeStorage(m.position(key), func(raw []byte) error {
		m.context.chargeLoad(raw)
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

// Exists reports whether key holds a value.
func (m *Mapping[K, V]) Exists(key K) (bool, error) {
	raw, err := m.context.state.GetRawStorage(m.position(key))
	if err != nil {
		return false, err
	}
	m.context.chargeLoad(raw)
	return len(raw) > 0, nil
}

// Insert writes a value to a slot expected to be empty.
func (m *Mapping[K, V]) Insert(key K, value V) error {
	return m.set(key, value, true)
}

// Update writes a value to a slot expected to be set.
func (m *Mapping[K, V]) Update(key K, value V) error {
	return m.set(key, value, false)
}

// Upsert writes a value, charging as Insert or Update by the slot content.
func (m *Mapping[K, V]) Upsert(key K, value V) error {
	exists, err := m.Exists(key)
	if err != nil {
		return err
	}
	return m.set(key, value, !exists)
}

// Delete clears the slot of key.
func (m *Mapping[K, V]) Delete(key K) error {
	m.context.chargeStore(nil, false)
	m.context.state.SetRawStorage(m.position(key), nil)
	return nil
}

func (m *Mapping[K, V]) set(key K, value V, newValue bool) error {
	return m.context.state.EncodeStorage(m.position(key), func() ([]byte, error) {
		val, err := rlp.EncodeToBytes(value)
		if err != nil {
			return nil, errors.Wrap(err, "encode mapping value")
		}
		m.context.chargeStore(val, newValue)
		return val, nil
	})
}
