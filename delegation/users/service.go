// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package users

import (
	"github.com/pkg/errors"

	"github.com/multiversx/mx-delegation-sc-sub000/common"
	"github.com/multiversx/mx-delegation-sc-sub000/storage"
)

var (
	slotUserIDs      = common.BytesToBytes32([]byte("user-ids"))
	slotUserAddrs    = common.BytesToBytes32([]byte("user-addresses"))
	slotUsersCounter = common.BytesToBytes32([]byte("users-counter"))
)

// Service registers participants. Ids are dense and ascend from 1.
type Service struct {
	ids     *storage.Mapping[common.Address, uint64]
	addrs   *storage.Mapping[storage.IDKey, common.Address]
	counter *storage.Raw[uint64]
}

func New(sctx *storage.Context) *Service {
	return &Service{
		ids:     storage.NewMapping[common.Address, uint64](sctx, slotUserIDs),
		addrs:   storage.NewMapping[storage.IDKey, common.Address](sctx, slotUserAddrs),
		counter: storage.NewRaw[uint64](sctx, slotUsersCounter),
	}
}

// ID returns the id of addr, 0 if it is not registered.
func (s *Service) ID(addr common.Address) (uint64, error) {
	id, err := s.ids.Get(addr)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get user id")
	}
	return id, nil
}

// Address returns the address registered under id.
func (s *Service) Address(id uint64) (common.Address, error) {
	addr, err := s.addrs.Get(storage.IDKey(id))
	if err != nil {
		return common.Address{}, errors.Wrap(err, "failed to get user address")
	}
	return addr, nil
}

// Count returns the number of registered users, which is also the highest id.
func (s *Service) Count() (uint64, error) {
	return s.counter.Get()
}

// GetOrCreate returns the id of addr, registering it when unknown.
func (s *Service) GetOrCreate(addr common.Address) (id uint64, created bool, err error) {
	if addr.IsZero() {
		return 0, false, errors.New("zero address")
	}
	if id, err = s.ID(addr); err != nil || id != 0 {
		return id, false, err
	}

	count, err := s.counter.Get()
	if err != nil {
		return 0, false, err
	}
	id = count + 1
	if err := s.counter.Upsert(id); err != nil {
		return 0, false, err
	}
	if err := s.ids.Insert(addr, id); err != nil {
		return 0, false, errors.Wrap(err, "failed to set user id")
	}
	if err := s.addrs.Insert(storage.IDKey(id), addr); err != nil {
		return 0, false, errors.Wrap(err, "failed to set user address")
	}
	return id, true, nil
}
