// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delegation

import (
	"math/big"

	"github.com/multiversx/mx-delegation-sc-sub000/common"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/fund"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/operation"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/reverts"
)

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) < 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

// Deposit queues amount of stake for addr, registering it when new.
func (d *Delegation) Deposit(addr common.Address, amount *big.Int) error {
	if err := d.ensureIdle(); err != nil {
		return err
	}
	if err := positive(amount, "deposit amount"); err != nil {
		return err
	}
	minDeposit, err := d.settingsService.MinDeposit()
	if err != nil {
		return err
	}
	if amount.Cmp(minDeposit) < 0 {
		return reverts.Errorf("deposit %v is below the minimum %v", amount, minDeposit)
	}

	id, created, err := d.usersService.GetOrCreate(addr)
	if err != nil {
		return err
	}
	if created {
		if err := d.rewardsService.Register(id); err != nil {
			return err
		}
		logger.Debug("participant registered", "user", id, "addr", addr)
	}
	if _, err := d.transformService.CreateWaiting(id, amount); err != nil {
		return err
	}
	d.emit(EventDeposit, &addr, amount, "")
	return nil
}

// ActivateWaiting confirms the activation of queued stake, oldest first,
// up to limit and the free capacity. A nil limit activates all that fits.
// It returns the amount activated.
func (d *Delegation) ActivateWaiting(limit *big.Int) (*big.Int, error) {
	if err := d.ensureIdle(); err != nil {
		return nil, err
	}
	if limit != nil && limit.Sign() <= 0 {
		return nil, reverts.New("activation limit must be positive")
	}

	capacity, err := d.settingsService.Capacity()
	if err != nil {
		return nil, err
	}
	totals, err := d.fundService.Totals()
	if err != nil {
		return nil, err
	}
	free := new(big.Int).Sub(capacity, totals[fund.Active])
	free.Sub(free, totals[fund.UnStaked])
	amount := minBig(free, totals[fund.Waiting])
	if limit != nil {
		amount = minBig(amount, limit)
	}
	if amount.Sign() <= 0 {
		return new(big.Int), nil
	}

	res, err := operation.SettleAndRun(d.rewardsService, d.transformService.WaitingToActive, amount, nil)
	if err != nil {
		return nil, err
	}
	d.emit(EventActivate, nil, res.Converted, "")
	logger.Debug("waiting stake activated", "amount", res.Converted, "owners", len(res.Touched))
	return res.Converted, nil
}

// RequestUnstake takes amount of addr out of the pool. Queued stake is
// returned first, newest first, the rest of the amount is unstaked from
// active stake. Queued stake of others then replaces the unstaked stake.
func (d *Delegation) RequestUnstake(addr common.Address, amount *big.Int) error {
	if err := d.ensureIdle(); err != nil {
		return err
	}
	id, err := d.knownUser(addr)
	if err != nil {
		return err
	}
	if err := positive(amount, "unstake amount"); err != nil {
		return err
	}

	waiting, err := d.fundService.SumByUserType(id, fund.Waiting)
	if err != nil {
		return err
	}
	active, err := d.fundService.SumByUserType(id, fund.Active)
	if err != nil {
		return err
	}
	available := new(big.Int).Add(waiting, active)
	if amount.Cmp(available) > 0 {
		return reverts.Errorf("unstake %v exceeds waiting and active stake %v", amount, available)
	}
	if id == d.settingsService.RewardDestination() {
		if err := d.checkOwnerStake(new(big.Int).Sub(available, amount)); err != nil {
			return err
		}
	}

	fromWaiting := minBig(amount, waiting)
	if fromWaiting.Sign() > 0 {
		if _, err := d.transformService.UserWaitingToWithdrawOnly(id, fromWaiting); err != nil {
			return err
		}
	}
	if rest := new(big.Int).Sub(amount, fromWaiting); rest.Sign() > 0 {
		if err := d.rewardsService.UpdateAll([]uint64{id}); err != nil {
			return err
		}
		if _, err := d.transformService.UserActiveToUnstaked(id, rest); err != nil {
			return err
		}
	}
	if err := d.swapUnstaked(); err != nil {
		return err
	}

	d.emit(EventUnstake, &addr, amount, "")
	return nil
}

func (d *Delegation) checkOwnerStake(remaining *big.Int) error {
	capacity, err := d.settingsService.Capacity()
	if err != nil {
		return err
	}
	minStake, err := d.settingsService.OwnerMinStake(capacity)
	if err != nil {
		return err
	}
	if remaining.Cmp(minStake) < 0 {
		return reverts.Errorf("owner must keep at least %v staked", minStake)
	}
	return nil
}

// swapUnstaked activates queued stake in place of unstaked stake, which
// is then scheduled for payout. Active plus unstaked stays unchanged.
func (d *Delegation) swapUnstaked() error {
	waiting, err := d.fundService.SumByType(fund.Waiting)
	if err != nil {
		return err
	}
	unstaked, err := d.fundService.SumByType(fund.UnStaked)
	if err != nil {
		return err
	}
	amount := minBig(waiting, unstaked)
	if amount.Sign() == 0 {
		return nil
	}

	res, err := operation.SettleAndRun(d.rewardsService, d.transformService.WaitingToActive, amount, nil)
	if err != nil {
		return err
	}
	if res.Converted.Cmp(amount) != 0 {
		return reverts.NewInvariant("swap activated %v of %v", res.Converted, amount)
	}
	res, err = d.transformService.UnstakedToDeferredPayment(amount, nil, false)
	if err != nil {
		return err
	}
	if res.Converted.Cmp(amount) != 0 {
		return reverts.NewInvariant("swap deferred %v of %v", res.Converted, amount)
	}
	logger.Debug("unstaked stake swapped", "amount", amount)
	return nil
}

// matured releases the deferred payments of id old enough to withdraw.
func (d *Delegation) matured(id uint64) error {
	age, err := d.settingsService.DeferredPaymentAge()
	if err != nil {
		return err
	}
	_, err = d.transformService.EligibleDeferredToWithdrawOnly(id, age)
	return err
}

// Withdraw pays out amount of the withdrawable stake of addr.
func (d *Delegation) Withdraw(addr common.Address, amount *big.Int) (*big.Int, error) {
	if err := d.ensureIdle(); err != nil {
		return nil, err
	}
	id, err := d.knownUser(addr)
	if err != nil {
		return nil, err
	}
	if err := positive(amount, "withdraw amount"); err != nil {
		return nil, err
	}
	if err := d.matured(id); err != nil {
		return nil, err
	}
	available, err := d.fundService.SumByUserType(id, fund.WithdrawOnly)
	if err != nil {
		return nil, err
	}
	if amount.Cmp(available) > 0 {
		return nil, reverts.Errorf("withdraw %v exceeds withdrawable %v", amount, available)
	}

	paid, err := d.transformService.LiquidateWithdrawOnly(id, amount)
	if err != nil {
		return nil, err
	}
	d.emit(EventWithdraw, &addr, paid, "")
	return paid, nil
}

// WithdrawAll pays out all withdrawable stake of addr.
func (d *Delegation) WithdrawAll(addr common.Address) (*big.Int, error) {
	if err := d.ensureIdle(); err != nil {
		return nil, err
	}
	id, err := d.knownUser(addr)
	if err != nil {
		return nil, err
	}
	if err := d.matured(id); err != nil {
		return nil, err
	}
	paid, err := d.transformService.LiquidateAllWithdrawOnly(id)
	if err != nil {
		return nil, err
	}
	if paid.Sign() > 0 {
		d.emit(EventWithdraw, &addr, paid, "")
	}
	return paid, nil
}
