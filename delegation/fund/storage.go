// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fund

import (
	"github.com/pkg/errors"

	"github.com/multiversx/mx-delegation-sc-sub000/common"
	"github.com/multiversx/mx-delegation-sc-sub000/storage"
)

var (
	slotBuckets       = common.NameToSlot("fund-buckets")
	slotTypeLists     = common.NameToSlot("fund-type-lists")
	slotUserLists     = common.NameToSlot("fund-user-lists")
	slotBucketCounter = common.NameToSlot("fund-bucket-counter")
)

type Storage struct {
	buckets   *storage.Mapping[storage.IDKey, *body]
	typeLists *storage.Mapping[typeKey, *ListHeader]
	userLists *storage.Mapping[userTypeKey, *ListHeader]
	counter   *storage.Raw[uint64]
}

func NewStorage(sctx *storage.Context) *Storage {
	return &Storage{
		buckets:   storage.NewMapping[storage.IDKey, *body](sctx, slotBuckets),
		typeLists: storage.NewMapping[typeKey, *ListHeader](sctx, slotTypeLists),
		userLists: storage.NewMapping[userTypeKey, *ListHeader](sctx, slotUserLists),
		counter:   storage.NewRaw[uint64](sctx, slotBucketCounter),
	}
}

// getBucket returns nil for an absent id.
func (s *Storage) getBucket(id uint64) (*body, error) {
	b, err := s.buckets.Get(storage.IDKey(id))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get bucket")
	}
	return b, nil
}

// mustGetBucket loads a bucket that a list links to.
func (s *Storage) mustGetBucket(id uint64) (*body, error) {
	b, err := s.getBucket(id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, errors.Errorf("linked bucket %d is missing", id)
	}
	return b, nil
}

func (s *Storage) insertBucket(id uint64, b *body) error {
	if err := s.buckets.Insert(storage.IDKey(id), b); err != nil {
		return errors.Wrap(err, "failed to insert bucket")
	}
	return nil
}

func (s *Storage) updateBucket(id uint64, b *body) error {
	if err := s.buckets.Update(storage.IDKey(id), b); err != nil {
		return errors.Wrap(err, "failed to update bucket")
	}
	return nil
}

func (s *Storage) deleteBucket(id uint64) error {
	return s.buckets.Delete(storage.IDKey(id))
}

func (s *Storage) getTypeList(t Type) (*ListHeader, error) {
	h, err := s.typeLists.Get(typeKey(t))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get type list")
	}
	if h == nil {
		return newListHeader(), nil
	}
	return h, nil
}

// setTypeList stores h, clearing the slot once the list is empty.
func (s *Storage) setTypeList(t Type, h *ListHeader) error {
	if h.Count == 0 {
		return s.typeLists.Delete(typeKey(t))
	}
	if err := s.typeLists.Upsert(typeKey(t), h); err != nil {
		return errors.Wrap(err, "failed to set type list")
	}
	return nil
}

func (s *Storage) getUserList(owner uint64, t Type) (*ListHeader, error) {
	h, err := s.userLists.Get(userTypeKey{owner, t})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user list")
	}
	if h == nil {
		return newListHeader(), nil
	}
	return h, nil
}

func (s *Storage) setUserList(owner uint64, t Type, h *ListHeader) error {
	if h.Count == 0 {
		return s.userLists.Delete(userTypeKey{owner, t})
	}
	if err := s.userLists.Upsert(userTypeKey{owner, t}, h); err != nil {
		return errors.Wrap(err, "failed to set user list")
	}
	return nil
}

// newBucketID returns the next id. Ids are never reused.
func (s *Storage) newBucketID() (uint64, error) {
	id, err := s.counter.Get()
	if err != nil {
		return 0, err
	}
	id++
	if err := s.counter.Upsert(id); err != nil {
		return 0, err
	}
	return id, nil
}
