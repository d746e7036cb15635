// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fund

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/multiversx/mx-delegation-sc-sub000/delegation/reverts"
	"github.com/multiversx/mx-delegation-sc-sub000/log"
	"github.com/multiversx/mx-delegation-sc-sub000/storage"
)

var logger = log.WithContext("pkg", "fund")

// Service keeps the ledger of buckets. Every total it reports is kept in
// the list headers and never recomputed by walking.
type Service struct {
	storage *Storage
}

func New(sctx *storage.Context) *Service {
	return &Service{storage: NewStorage(sctx)}
}

// Bucket returns the bucket with id, a zero bucket if it does not exist.
func (s *Service) Bucket(id uint64) (*Bucket, error) {
	b, err := s.storage.getBucket(id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return zeroBucket(id), nil
	}
	return &Bucket{id: id, body: b}, nil
}

func (s *Service) TypeList(t Type) (*ListHeader, error) {
	return s.storage.getTypeList(t)
}

func (s *Service) UserList(owner uint64, t Type) (*ListHeader, error) {
	return s.storage.getUserList(owner, t)
}

func (s *Service) SumByType(t Type) (*big.Int, error) {
	h, err := s.storage.getTypeList(t)
	if err != nil {
		return nil, err
	}
	return h.Total, nil
}

func (s *Service) SumByUserType(owner uint64, t Type) (*big.Int, error) {
	h, err := s.storage.getUserList(owner, t)
	if err != nil {
		return nil, err
	}
	return h.Total, nil
}

func (s *Service) CountByType(t Type) (uint64, error) {
	h, err := s.storage.getTypeList(t)
	if err != nil {
		return 0, err
	}
	return h.Count, nil
}

func (s *Service) CountByUserType(owner uint64, t Type) (uint64, error) {
	h, err := s.storage.getUserList(owner, t)
	if err != nil {
		return 0, err
	}
	return h.Count, nil
}

// Totals returns the sum of every type.
func (s *Service) Totals() (*Amounts, error) {
	var a Amounts
	for _, t := range Types {
		sum, err := s.SumByType(t)
		if err != nil {
			return nil, err
		}
		a[t] = sum
	}
	return &a, nil
}

// UserTotals returns the sums of every type held by owner.
func (s *Service) UserTotals(owner uint64) (*Amounts, error) {
	var a Amounts
	for _, t := range Types {
		sum, err := s.SumByUserType(owner, t)
		if err != nil {
			return nil, err
		}
		a[t] = sum
	}
	return &a, nil
}

// IterateType walks all buckets of t. The callback stops the walk by
// returning false and must not modify the ledger.
func (s *Service) IterateType(t Type, dir Direction, cb func(*Bucket) (bool, error)) error {
	h, err := s.storage.getTypeList(t)
	if err != nil {
		return err
	}
	return s.iterate(h, typeChain, dir, cb)
}

// IterateUserType walks the buckets of t held by owner.
func (s *Service) IterateUserType(owner uint64, t Type, dir Direction, cb func(*Bucket) (bool, error)) error {
	h, err := s.storage.getUserList(owner, t)
	if err != nil {
		return err
	}
	return s.iterate(h, userChain, dir, cb)
}

func (s *Service) iterate(h *ListHeader, c chain, dir Direction, cb func(*Bucket) (bool, error)) error {
	for id := h.start(dir); id != 0; {
		b, err := s.storage.mustGetBucket(id)
		if err != nil {
			return err
		}
		next := b.step(c, dir)
		if cont, err := cb(&Bucket{id: id, body: b}); err != nil || !cont {
			return err
		}
		id = next
	}
	return nil
}

func (s *Service) SumByTypeWhere(t Type, pred Predicate) (*big.Int, error) {
	sum := new(big.Int)
	err := s.IterateType(t, Forwards, func(b *Bucket) (bool, error) {
		if pred(b) {
			sum.Add(sum, b.body.Balance)
		}
		return true, nil
	})
	return sum, err
}

func (s *Service) SumByUserTypeWhere(owner uint64, t Type, pred Predicate) (*big.Int, error) {
	sum := new(big.Int)
	err := s.IterateUserType(owner, t, Forwards, func(b *Bucket) (bool, error) {
		if pred(b) {
			sum.Add(sum, b.body.Balance)
		}
		return true, nil
	})
	return sum, err
}

func (s *Service) CountByTypeWhere(t Type, pred Predicate) (uint64, error) {
	var n uint64
	err := s.IterateType(t, Forwards, func(b *Bucket) (bool, error) {
		if pred(b) {
			n++
		}
		return true, nil
	})
	return n, err
}

func (s *Service) CountByUserTypeWhere(owner uint64, t Type, pred Predicate) (uint64, error) {
	var n uint64
	err := s.IterateUserType(owner, t, Forwards, func(b *Bucket) (bool, error) {
		if pred(b) {
			n++
		}
		return true, nil
	})
	return n, err
}

func checkEntry(owner uint64, desc Description, amount *big.Int) error {
	if owner == 0 {
		return errors.New("bucket owner is zero")
	}
	if !desc.Type.Valid() {
		return errors.Errorf("invalid fund type %d", uint8(desc.Type))
	}
	if amount == nil || amount.Sign() < 0 {
		return errors.Errorf("invalid bucket amount %v", amount)
	}
	return nil
}

// Create appends a new bucket and returns its id. A zero amount creates
// nothing and returns id 0.
func (s *Service) Create(owner uint64, desc Description, amount *big.Int) (uint64, error) {
	if err := checkEntry(owner, desc, amount); err != nil {
		return 0, err
	}
	if amount.Sign() == 0 {
		return 0, nil
	}

	id, err := s.storage.newBucketID()
	if err != nil {
		return 0, err
	}
	b := &body{Description: desc, Owner: owner, Balance: new(big.Int).Set(amount)}

	th, err := s.storage.getTypeList(desc.Type)
	if err != nil {
		return 0, err
	}
	uh, err := s.storage.getUserList(owner, desc.Type)
	if err != nil {
		return 0, err
	}
	if err := s.storage.appendTo(th, typeChain, id, b); err != nil {
		return 0, err
	}
	if err := s.storage.appendTo(uh, userChain, id, b); err != nil {
		return 0, err
	}
	if err := s.storage.insertBucket(id, b); err != nil {
		return 0, err
	}
	if err := s.storage.setTypeList(desc.Type, th); err != nil {
		return 0, err
	}
	return id, s.storage.setUserList(owner, desc.Type, uh)
}

// Increase credits owner with amount of desc. For coalescable types the
// owner's newest bucket absorbs the amount when its description is
// identical, otherwise a new bucket is created.
func (s *Service) Increase(owner uint64, desc Description, amount *big.Int) error {
	if err := checkEntry(owner, desc, amount); err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return nil
	}
	if !desc.Type.coalescable() {
		_, err := s.Create(owner, desc, amount)
		return err
	}

	uh, err := s.storage.getUserList(owner, desc.Type)
	if err != nil {
		return err
	}
	if uh.Last == 0 {
		_, err := s.Create(owner, desc, amount)
		return err
	}
	tail, err := s.storage.mustGetBucket(uh.Last)
	if err != nil {
		return err
	}
	if tail.Description != desc {
		_, err := s.Create(owner, desc, amount)
		return err
	}

	th, err := s.storage.getTypeList(desc.Type)
	if err != nil {
		return err
	}
	tail.Balance.Add(tail.Balance, amount)
	th.Total.Add(th.Total, amount)
	uh.Total.Add(uh.Total, amount)
	if err := s.storage.updateBucket(uh.Last, tail); err != nil {
		return err
	}
	if err := s.storage.setTypeList(desc.Type, th); err != nil {
		return err
	}
	return s.storage.setUserList(owner, desc.Type, uh)
}

// Decrease takes min(amountRef, balance) out of b, destroying b once it is
// empty. amountRef is reduced by the amount taken, which is also returned.
// A removed bucket yields zero and leaves amountRef as is.
func (s *Service) Decrease(amountRef *big.Int, b *Bucket) (*big.Int, error) {
	if !b.Exists() {
		return new(big.Int), nil
	}
	return s.decrease(amountRef, b.id, b.body)
}

func (s *Service) decrease(amountRef *big.Int, id uint64, b *body) (*big.Int, error) {
	taken := new(big.Int).Set(amountRef)
	if taken.Cmp(b.Balance) > 0 {
		taken.Set(b.Balance)
	}
	if taken.Sign() <= 0 {
		return new(big.Int), nil
	}

	t := b.Description.Type
	th, err := s.storage.getTypeList(t)
	if err != nil {
		return nil, err
	}
	uh, err := s.storage.getUserList(b.Owner, t)
	if err != nil {
		return nil, err
	}

	if taken.Cmp(b.Balance) == 0 {
		if err := s.storage.unlink(th, typeChain, b); err != nil {
			return nil, err
		}
		if err := s.storage.unlink(uh, userChain, b); err != nil {
			return nil, err
		}
		b.Balance.SetUint64(0)
		if err := s.storage.deleteBucket(id); err != nil {
			return nil, err
		}
	} else {
		b.Balance.Sub(b.Balance, taken)
		th.Total.Sub(th.Total, taken)
		uh.Total.Sub(uh.Total, taken)
		if err := s.storage.updateBucket(id, b); err != nil {
			return nil, err
		}
	}

	if err := s.storage.setTypeList(t, th); err != nil {
		return nil, err
	}
	if err := s.storage.setUserList(b.Owner, t, uh); err != nil {
		return nil, err
	}
	amountRef.Sub(amountRef, taken)
	return taken, nil
}

// SplitConvertByType walks all buckets of t in dir and moves each selected
// bucket, or the part of it still allowed by limit, into the description
// returned by rewrite. A nil limit converts without cap.
//
// Before every bucket after the first converted one, shouldYield is asked
// whether to stop. With dryRun set nothing is written, the result reports
// what a real run would do.
func (s *Service) SplitConvertByType(
	t Type,
	dir Direction,
	limit *big.Int,
	rewrite Rewrite,
	shouldYield func() bool,
	dryRun bool,
) (*SplitResult, error) {
	h, err := s.storage.getTypeList(t)
	if err != nil {
		return nil, err
	}
	return s.splitConvert(h, typeChain, t, dir, limit, rewrite, shouldYield, dryRun)
}

// SplitConvertByUser converts within the buckets of t held by owner. It
// never yields.
func (s *Service) SplitConvertByUser(
	owner uint64,
	t Type,
	dir Direction,
	limit *big.Int,
	rewrite Rewrite,
) (*SplitResult, error) {
	h, err := s.storage.getUserList(owner, t)
	if err != nil {
		return nil, err
	}
	return s.splitConvert(h, userChain, t, dir, limit, rewrite, nil, false)
}

func (s *Service) splitConvert(
	h *ListHeader,
	c chain,
	t Type,
	dir Direction,
	limit *big.Int,
	rewrite Rewrite,
	shouldYield func() bool,
	dryRun bool,
) (*SplitResult, error) {
	if limit != nil && limit.Sign() < 0 {
		return nil, errors.Errorf("negative conversion cap %v", limit)
	}

	res := &SplitResult{Converted: new(big.Int)}
	var remaining *big.Int
	if limit != nil {
		remaining = new(big.Int).Set(limit)
	}
	seen := make(map[uint64]struct{})
	progressed := false

	for id := h.start(dir); id != 0; {
		if remaining != nil && remaining.Sign() == 0 {
			break
		}
		if progressed && shouldYield != nil && shouldYield() {
			res.Yielded = true
			break
		}

		b, err := s.storage.mustGetBucket(id)
		if err != nil {
			return nil, err
		}
		next := b.step(c, dir)

		desc, ok := rewrite(b.Owner, b.Description)
		if !ok {
			id = next
			continue
		}
		if desc.Type == t {
			return nil, reverts.NewInvariant("conversion of %v bucket %d into the same type", t, id)
		}

		amount := new(big.Int).Set(b.Balance)
		if remaining != nil && remaining.Cmp(amount) < 0 {
			amount.Set(remaining)
		}
		owner := b.Owner
		if !dryRun {
			if _, err := s.decrease(new(big.Int).Set(amount), id, b); err != nil {
				return nil, err
			}
			if err := s.Increase(owner, desc, amount); err != nil {
				return nil, err
			}
		}

		res.Converted.Add(res.Converted, amount)
		if remaining != nil {
			remaining.Sub(remaining, amount)
		}
		if _, ok := seen[owner]; !ok {
			seen[owner] = struct{}{}
			res.Touched = append(res.Touched, owner)
		}
		progressed = true
		id = next
	}

	res.Remaining = remaining
	logger.Debug("split convert",
		"type", t,
		"converted", res.Converted,
		"owners", len(res.Touched),
		"yielded", res.Yielded,
		"dryRun", dryRun,
	)
	return res, nil
}

// DestroyMaxForOwner takes up to limit out of owner's buckets of t, oldest
// first, and returns the amount taken.
func (s *Service) DestroyMaxForOwner(owner uint64, t Type, limit *big.Int) (*big.Int, error) {
	h, err := s.storage.getUserList(owner, t)
	if err != nil {
		return nil, err
	}
	remaining := new(big.Int).Set(h.Total)
	if limit != nil && limit.Cmp(remaining) < 0 {
		remaining.Set(limit)
	}
	destroyed := new(big.Int)

	for id := h.First; id != 0 && remaining.Sign() > 0; {
		b, err := s.storage.mustGetBucket(id)
		if err != nil {
			return nil, err
		}
		next := b.UserNext
		taken, err := s.decrease(remaining, id, b)
		if err != nil {
			return nil, err
		}
		destroyed.Add(destroyed, taken)
		id = next
	}
	return destroyed, nil
}

// DestroyAllForOwner empties owner's buckets of t.
func (s *Service) DestroyAllForOwner(owner uint64, t Type) (*big.Int, error) {
	return s.DestroyMaxForOwner(owner, t, nil)
}

// CheckLists walks every list and verifies links, counts and totals
// against the headers. owners is the highest registered owner id.
func (s *Service) CheckLists(owners uint64) error {
	for _, t := range Types {
		th, err := s.storage.getTypeList(t)
		if err != nil {
			return err
		}
		if err := s.checkList(th, typeChain, func(b *body) bool {
			return b.Description.Type == t
		}); err != nil {
			return errors.WithMessagef(err, "%v list", t)
		}

		userSum := new(big.Int)
		for owner := uint64(1); owner <= owners; owner++ {
			uh, err := s.storage.getUserList(owner, t)
			if err != nil {
				return err
			}
			if err := s.checkList(uh, userChain, func(b *body) bool {
				return b.Description.Type == t && b.Owner == owner
			}); err != nil {
				return errors.WithMessagef(err, "%v list of user %d", t, owner)
			}
			userSum.Add(userSum, uh.Total)
		}
		if userSum.Cmp(th.Total) != 0 {
			return reverts.NewInvariant("%v user totals %v differ from type total %v", t, userSum, th.Total)
		}
	}
	return nil
}

func (s *Service) checkList(h *ListHeader, c chain, match func(b *body) bool) error {
	var (
		prev  uint64
		count uint64
		total = new(big.Int)
	)
	for id := h.First; id != 0; {
		b, err := s.storage.getBucket(id)
		if err != nil {
			return err
		}
		if b == nil {
			return reverts.NewInvariant("dangling link to bucket %d", id)
		}
		p, n := b.links(c)
		if p != prev {
			return reverts.NewInvariant("bucket %d links back to %d, expected %d", id, p, prev)
		}
		if b.Balance.Sign() <= 0 {
			return reverts.NewInvariant("bucket %d has balance %v", id, b.Balance)
		}
		if !match(b) {
			return reverts.NewInvariant("bucket %d (%v, owner %d) is on the wrong list", id, b.Description, b.Owner)
		}
		count++
		if count > h.Count {
			return reverts.NewInvariant("list longer than its count %d", h.Count)
		}
		total.Add(total, b.Balance)
		prev, id = id, n
	}
	if prev != h.Last {
		return reverts.NewInvariant("list ends at %d, header says %d", prev, h.Last)
	}
	if count != h.Count {
		return reverts.NewInvariant("list has %d buckets, header says %d", count, h.Count)
	}
	if total.Cmp(h.Total) != 0 {
		return reverts.NewInvariant("list sums to %v, header says %v", total, h.Total)
	}
	return nil
}
