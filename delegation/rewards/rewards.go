// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package rewards accrues the global reward counter to participants
// lazily. Each participant keeps the counter value it was last settled
// against, and its share of everything distributed since is computed from
// its current active stake.
package rewards

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/multiversx/mx-delegation-sc-sub000/common"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/fund"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/reverts"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/settings"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/users"
	"github.com/multiversx/mx-delegation-sc-sub000/log"
	"github.com/multiversx/mx-delegation-sc-sub000/storage"
)

var logger = log.WithContext("pkg", "rewards")

var (
	slotRecords = common.NameToSlot("reward-records")
	slotCounter = common.NameToSlot("reward-counter")
	slotSent    = common.NameToSlot("rewards-sent")
)

// Record is the reward state of one participant.
type Record struct {
	Checkpoint *big.Int
	Unclaimed  *big.Int
}

func newRecord(checkpoint *big.Int) *Record {
	return &Record{Checkpoint: new(big.Int).Set(checkpoint), Unclaimed: new(big.Int)}
}

// Progress is the continuation of a sweep over all participants.
type Progress struct {
	LastProcessedID uint64
	RunningSum      *big.Int
	CounterSnapshot *big.Int
}

type Service struct {
	records  *storage.Mapping[storage.IDKey, *Record]
	counter  *storage.BigInt
	sent     *storage.BigInt
	fund     *fund.Service
	settings *settings.Service
	users    *users.Service
}

func New(sctx *storage.Context, fundService *fund.Service, settingsService *settings.Service, usersService *users.Service) *Service {
	return &Service{
		records:  storage.NewMapping[storage.IDKey, *Record](sctx, slotRecords),
		counter:  storage.NewBigInt(sctx, slotCounter),
		sent:     storage.NewBigInt(sctx, slotSent),
		fund:     fundService,
		settings: settingsService,
		users:    usersService,
	}
}

// Counter returns the cumulative amount of rewards ever distributed.
func (s *Service) Counter() (*big.Int, error) {
	return s.counter.Get()
}

// TotalSent returns the cumulative amount of rewards ever claimed.
func (s *Service) TotalSent() (*big.Int, error) {
	return s.sent.Get()
}

// Distribute advances the global counter by amount.
func (s *Service) Distribute(amount *big.Int) error {
	if amount.Sign() <= 0 {
		return reverts.New("reward amount must be positive")
	}
	return s.counter.Add(amount)
}

// Register starts the reward record of a new participant at the current
// counter, so it earns nothing distributed before it joined.
func (s *Service) Register(user uint64) error {
	counter, err := s.counter.Get()
	if err != nil {
		return err
	}
	if err := s.records.Insert(storage.IDKey(user), newRecord(counter)); err != nil {
		return errors.Wrap(err, "failed to register reward record")
	}
	return nil
}

// Record returns the stored record of user, a zero record if there is none.
func (s *Service) Record(user uint64) (*Record, error) {
	rec, err := s.records.Get(storage.IDKey(user))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get reward record")
	}
	if rec == nil {
		return newRecord(new(big.Int)), nil
	}
	return rec, nil
}

// Refresh returns the record of user settled against the current counter.
// Nothing is written.
func (s *Service) Refresh(user uint64) (*Record, error) {
	rec, err := s.Record(user)
	if err != nil {
		return nil, err
	}
	counter, err := s.counter.Get()
	if err != nil {
		return nil, err
	}
	delta := new(big.Int).Sub(counter, rec.Checkpoint)
	switch delta.Sign() {
	case 0:
		return rec, nil
	case -1:
		return nil, reverts.NewInvariant("user %d checkpoint %v is ahead of counter %v", user, rec.Checkpoint, counter)
	}

	earned, err := s.earned(user, delta)
	if err != nil {
		return nil, err
	}
	rec.Unclaimed.Add(rec.Unclaimed, earned)
	rec.Checkpoint.Set(counter)
	return rec, nil
}

// earned computes the share of user in delta. The service share and the
// pool share are floored separately, the dust is recovered by ComputeAll.
func (s *Service) earned(user uint64, delta *big.Int) (*big.Int, error) {
	fee, err := s.settings.ServiceFee()
	if err != nil {
		return nil, err
	}
	capacity, err := s.settings.Capacity()
	if err != nil {
		return nil, err
	}
	totalActive, err := s.fund.SumByType(fund.Active)
	if err != nil {
		return nil, err
	}

	denom := new(big.Int).SetUint64(settings.Denominator)
	serviceShare := new(big.Int).Mul(delta, new(big.Int).SetUint64(fee))
	serviceShare.Div(serviceShare, denom)
	poolShare := new(big.Int).Mul(delta, new(big.Int).SetUint64(settings.Denominator-fee))
	poolShare.Div(poolShare, denom)

	earned := new(big.Int)
	if user == s.settings.RewardDestination() {
		earned.Add(earned, serviceShare)
		if totalActive.Cmp(capacity) < 0 {
			unfilled := new(big.Int).Sub(capacity, totalActive)
			bonus := unfilled.Mul(poolShare, unfilled)
			earned.Add(earned, bonus.Div(bonus, capacity))
		}
	}

	userActive, err := s.fund.SumByUserType(user, fund.Active)
	if err != nil {
		return nil, err
	}
	if userActive.Sign() > 0 {
		// shares are relative to the capacity; while a capacity increase is
		// activating stake the active total may exceed it for a while
		reference := capacity
		if totalActive.Cmp(reference) > 0 {
			reference = totalActive
		}
		share := new(big.Int).Mul(poolShare, userActive)
		earned.Add(earned, share.Div(share, reference))
	}
	return earned, nil
}

// Update refreshes the record of user and stores it.
func (s *Service) Update(user uint64) (*Record, error) {
	rec, err := s.Refresh(user)
	if err != nil {
		return nil, err
	}
	if err := s.records.Upsert(storage.IDKey(user), rec); err != nil {
		return nil, errors.Wrap(err, "failed to store reward record")
	}
	return rec, nil
}

// UpdateAll refreshes every given user once, and the reward destination.
func (s *Service) UpdateAll(ids []uint64) error {
	dest := s.settings.RewardDestination()
	if _, err := s.Update(dest); err != nil {
		return err
	}
	for _, id := range ids {
		if id == dest {
			continue
		}
		if _, err := s.Update(id); err != nil {
			return err
		}
	}
	return nil
}

// ComputeAll settles every participant against the counter, ascending by
// id, and credits the dust left by the floor divisions to the reward
// destination. It returns the progress to resume from when shouldYield
// fires, nil once the sweep is complete. A sweep started against another
// counter value starts over.
func (s *Service) ComputeAll(progress *Progress, shouldYield func() bool) (*Progress, error) {
	counter, err := s.counter.Get()
	if err != nil {
		return nil, err
	}
	p := &Progress{RunningSum: new(big.Int), CounterSnapshot: new(big.Int).Set(counter)}
	if progress != nil && progress.CounterSnapshot != nil && progress.CounterSnapshot.Cmp(counter) == 0 {
		p.LastProcessedID = progress.LastProcessedID
		if progress.RunningSum != nil {
			p.RunningSum.Set(progress.RunningSum)
		}
	} else if progress != nil {
		logger.Debug("reward sweep restarts", "snapshot", progress.CounterSnapshot, "counter", counter)
	}

	count, err := s.users.Count()
	if err != nil {
		return nil, err
	}
	processed := 0
	for id := p.LastProcessedID + 1; id <= count; id++ {
		if processed > 0 && shouldYield != nil && shouldYield() {
			logger.Debug("reward sweep yields", "last", p.LastProcessedID, "users", count)
			return p, nil
		}
		rec, err := s.Update(id)
		if err != nil {
			return nil, err
		}
		p.RunningSum.Add(p.RunningSum, rec.Unclaimed)
		p.LastProcessedID = id
		processed++
	}

	sent, err := s.sent.Get()
	if err != nil {
		return nil, err
	}
	remainder := new(big.Int).Sub(counter, p.RunningSum)
	remainder.Sub(remainder, sent)
	switch remainder.Sign() {
	case -1:
		return nil, reverts.NewInvariant("rewards over-allocated by %v", new(big.Int).Neg(remainder))
	case 1:
		dest := s.settings.RewardDestination()
		rec, err := s.Update(dest)
		if err != nil {
			return nil, err
		}
		rec.Unclaimed.Add(rec.Unclaimed, remainder)
		if err := s.records.Upsert(storage.IDKey(dest), rec); err != nil {
			return nil, errors.Wrap(err, "failed to store reward record")
		}
	}
	logger.Debug("reward sweep complete", "users", count, "dust", remainder)
	return nil, nil
}

// Claimable returns what user could claim now.
func (s *Service) Claimable(user uint64) (*big.Int, error) {
	rec, err := s.Refresh(user)
	if err != nil {
		return nil, err
	}
	return rec.Unclaimed, nil
}

// Claim settles user, zeroes its unclaimed rewards and returns them for
// payout.
func (s *Service) Claim(user uint64) (*big.Int, error) {
	rec, err := s.Update(user)
	if err != nil {
		return nil, err
	}
	amount := new(big.Int).Set(rec.Unclaimed)
	if amount.Sign() == 0 {
		return amount, nil
	}
	rec.Unclaimed.SetUint64(0)
	if err := s.records.Update(storage.IDKey(user), rec); err != nil {
		return nil, errors.Wrap(err, "failed to store reward record")
	}
	if err := s.sent.Add(amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// CheckCheckpoints verifies that no checkpoint of users 1..count is ahead
// of the counter.
func (s *Service) CheckCheckpoints(count uint64) error {
	counter, err := s.counter.Get()
	if err != nil {
		return err
	}
	for id := uint64(1); id <= count; id++ {
		rec, err := s.Record(id)
		if err != nil {
			return err
		}
		if rec.Checkpoint.Cmp(counter) > 0 {
			return reverts.NewInvariant("user %d checkpoint %v is ahead of counter %v", id, rec.Checkpoint, counter)
		}
	}
	return nil
}
