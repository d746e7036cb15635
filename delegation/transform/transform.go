// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package transform holds the permitted edges of the fund type state
// machine. Every conversion between fund types goes through one of them.
package transform

import (
	"math/big"

	"github.com/multiversx/mx-delegation-sc-sub000/delegation/fund"
)

// Clock supplies the time stamped into bucket descriptions.
type Clock interface {
	Now() uint64
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() uint64

func (f ClockFunc) Now() uint64 { return f() }

type Service struct {
	fund  *fund.Service
	clock Clock
}

func New(fundService *fund.Service, clock Clock) *Service {
	return &Service{fund: fundService, clock: clock}
}

func (s *Service) Now() uint64 {
	return s.clock.Now()
}

// CreateWaiting queues a new deposit.
func (s *Service) CreateWaiting(owner uint64, amount *big.Int) (uint64, error) {
	return s.fund.Create(owner, fund.NewWaiting(s.clock.Now()), amount)
}

// WaitingToActive activates queued stake, oldest first.
func (s *Service) WaitingToActive(limit *big.Int, shouldYield func() bool, dryRun bool) (*fund.SplitResult, error) {
	return s.fund.SplitConvertByType(fund.Waiting, fund.Forwards, limit,
		func(_ uint64, _ fund.Description) (fund.Description, bool) {
			return fund.NewActive(), true
		},
		shouldYield, dryRun)
}

// UserWaitingToWithdrawOnly takes queued stake of owner back, newest first.
func (s *Service) UserWaitingToWithdrawOnly(owner uint64, limit *big.Int) (*fund.SplitResult, error) {
	return s.fund.SplitConvertByUser(owner, fund.Waiting, fund.Backwards, limit,
		func(_ uint64, _ fund.Description) (fund.Description, bool) {
			return fund.NewWithdrawOnly(), true
		})
}

// UserActiveToUnstaked marks active stake of owner for unstaking, newest first.
func (s *Service) UserActiveToUnstaked(owner uint64, limit *big.Int) (*fund.SplitResult, error) {
	now := s.clock.Now()
	return s.fund.SplitConvertByUser(owner, fund.Active, fund.Backwards, limit,
		func(_ uint64, _ fund.Description) (fund.Description, bool) {
			return fund.NewUnStaked(now), true
		})
}

// UnstakedToDeferredPayment schedules unstaked stake for payout. The
// unstake time is kept as the payment creation time.
func (s *Service) UnstakedToDeferredPayment(limit *big.Int, shouldYield func() bool, dryRun bool) (*fund.SplitResult, error) {
	return s.fund.SplitConvertByType(fund.UnStaked, fund.Forwards, limit,
		func(_ uint64, d fund.Description) (fund.Description, bool) {
			return fund.NewDeferredPayment(d.Created), true
		},
		shouldYield, dryRun)
}

// ActiveToDeferredPayment schedules active stake for payout, newest first.
func (s *Service) ActiveToDeferredPayment(limit *big.Int, shouldYield func() bool, dryRun bool) (*fund.SplitResult, error) {
	now := s.clock.Now()
	return s.fund.SplitConvertByType(fund.Active, fund.Backwards, limit,
		func(_ uint64, _ fund.Description) (fund.Description, bool) {
			return fund.NewDeferredPayment(now), true
		},
		shouldYield, dryRun)
}

// EligibleDeferredToWithdrawOnly releases the payments of owner that are
// at least age old.
func (s *Service) EligibleDeferredToWithdrawOnly(owner uint64, age uint64) (*fund.SplitResult, error) {
	now := s.clock.Now()
	return s.fund.SplitConvertByUser(owner, fund.DeferredPayment, fund.Forwards, nil,
		func(_ uint64, d fund.Description) (fund.Description, bool) {
			if now < age || d.Created > now-age {
				return fund.Description{}, false
			}
			return fund.NewWithdrawOnly(), true
		})
}

// LiquidateAllWithdrawOnly removes every withdrawable bucket of owner and
// returns the amount to pay out.
func (s *Service) LiquidateAllWithdrawOnly(owner uint64) (*big.Int, error) {
	return s.fund.DestroyAllForOwner(owner, fund.WithdrawOnly)
}

// LiquidateWithdrawOnly removes up to limit of owner's withdrawable stake.
func (s *Service) LiquidateWithdrawOnly(owner uint64, limit *big.Int) (*big.Int, error) {
	return s.fund.DestroyMaxForOwner(owner, fund.WithdrawOnly, limit)
}
