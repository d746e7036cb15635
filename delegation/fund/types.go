// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fund

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// Type is the state a bucket of value is in.
type Type uint8

const (
	WithdrawOnly Type = iota
	Waiting
	Active
	UnStaked
	DeferredPayment
)

// Types lists every fund type in storage order.
var Types = [...]Type{WithdrawOnly, Waiting, Active, UnStaked, DeferredPayment}

func (t Type) String() string {
	switch t {
	case WithdrawOnly:
		return "withdraw-only"
	case Waiting:
		return "waiting"
	case Active:
		return "active"
	case UnStaked:
		return "unstaked"
	case DeferredPayment:
		return "deferred-payment"
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Valid reports whether t is one of Types.
func (t Type) Valid() bool {
	return t <= DeferredPayment
}

// coalescable reports whether buckets of t may be merged. Only types whose
// buckets need no individually distinguishable age are.
func (t Type) coalescable() bool {
	switch t {
	case WithdrawOnly, DeferredPayment:
		return true
	case Waiting, Active, UnStaked:
		return false
	}
	panic(fmt.Sprintf("unknown fund type %d", uint8(t)))
}

// Description tags a bucket. Created is the time the value entered the
// type, kept for Waiting, UnStaked and DeferredPayment and zero otherwise.
type Description struct {
	Type    Type
	Created uint64
}

func NewWithdrawOnly() Description { return Description{Type: WithdrawOnly} }

func NewWaiting(created uint64) Description { return Description{Type: Waiting, Created: created} }

func NewActive() Description { return Description{Type: Active} }

func NewUnStaked(created uint64) Description { return Description{Type: UnStaked, Created: created} }

func NewDeferredPayment(created uint64) Description {
	return Description{Type: DeferredPayment, Created: created}
}

func (d Description) String() string {
	switch d.Type {
	case WithdrawOnly, Active:
		return d.Type.String()
	case Waiting, UnStaked, DeferredPayment:
		return fmt.Sprintf("%v@%d", d.Type, d.Created)
	}
	return d.Type.String()
}

// Direction of a list walk.
type Direction uint8

const (
	// Forwards walks from the oldest bucket.
	Forwards Direction = iota
	// Backwards walks from the newest bucket.
	Backwards
)

// Rewrite decides the new description of a bucket taking part in a
// conversion. Buckets for which it returns false are skipped.
type Rewrite func(owner uint64, desc Description) (Description, bool)

// Predicate selects buckets in traversals.
type Predicate func(b *Bucket) bool

// body is the stored form of a bucket. Links are bucket ids, zero ends a chain.
type body struct {
	Description Description
	Owner       uint64
	Balance     *big.Int
	TypePrev    uint64
	TypeNext    uint64
	UserPrev    uint64
	UserNext    uint64
}

// Bucket is a balance of one owner in one fund type.
type Bucket struct {
	id   uint64
	body *body
}

// zeroBucket is returned for ids that never existed or were destroyed.
func zeroBucket(id uint64) *Bucket {
	return &Bucket{id: id, body: &body{Balance: new(big.Int)}}
}

func (b *Bucket) ID() uint64               { return b.id }
func (b *Bucket) Description() Description { return b.body.Description }
func (b *Bucket) Owner() uint64            { return b.body.Owner }

// Balance returns a copy of the bucket balance.
func (b *Bucket) Balance() *big.Int { return new(big.Int).Set(b.body.Balance) }

// Exists reports whether the bucket is live.
func (b *Bucket) Exists() bool { return b.body.Balance.Sign() > 0 }

// ListHeader heads a chain of buckets: all buckets of one type, or of one
// owner in one type.
type ListHeader struct {
	Total *big.Int
	First uint64
	Last  uint64
	Count uint64
}

func newListHeader() *ListHeader {
	return &ListHeader{Total: new(big.Int)}
}

// Amounts holds one amount per fund type, indexed by Type.
type Amounts [len(Types)]*big.Int

// Sum returns the total over all types.
func (a *Amounts) Sum() *big.Int {
	sum := new(big.Int)
	for _, v := range a {
		if v != nil {
			sum.Add(sum, v)
		}
	}
	return sum
}

// SplitResult reports a conversion.
type SplitResult struct {
	// Touched lists the distinct owners whose buckets were converted, in walk order.
	Touched []uint64
	// Converted is the amount moved out of the walked type.
	Converted *big.Int
	// Remaining is the part of the cap left unconverted, nil without cap.
	Remaining *big.Int
	// Yielded is set when the walk stopped on the yield predicate.
	Yielded bool
}

type typeKey Type

func (k typeKey) Bytes() []byte { return []byte{byte(k)} }

type userTypeKey struct {
	owner uint64
	typ   Type
}

func (k userTypeKey) Bytes() []byte {
	var b [9]byte
	binary.BigEndian.PutUint64(b[:8], k.owner)
	b[8] = byte(k.typ)
	return b[:]
}
