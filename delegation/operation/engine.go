// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package operation runs ledger wide parameter changes that may need more
// than one invocation. The continuation is stored as a Checkpoint and
// resumed by ContinueProgress.
package operation

import (
	"math/big"

	"github.com/multiversx/mx-delegation-sc-sub000/common"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/fund"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/reverts"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/rewards"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/settings"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/transform"
	"github.com/multiversx/mx-delegation-sc-sub000/log"
	"github.com/multiversx/mx-delegation-sc-sub000/storage"
)

var logger = log.WithContext("pkg", "operation")

var slotCheckpoint = common.NameToSlot("global-operation")

// Convert is a fund transformation bounded by a cap and a yield predicate.
type Convert func(limit *big.Int, shouldYield func() bool, dryRun bool) (*fund.SplitResult, error)

// SettleAndRun settles the reward records of the owners run is about to
// touch, found by a dry run, and of the reward destination, then runs it.
// Every conversion that changes active stake goes through here.
func SettleAndRun(rw *rewards.Service, run Convert, limit *big.Int, shouldYield func() bool) (*fund.SplitResult, error) {
	dry, err := run(limit, shouldYield, true)
	if err != nil {
		return nil, err
	}
	if err := rw.UpdateAll(dry.Touched); err != nil {
		return nil, err
	}
	planned := make(map[uint64]struct{}, len(dry.Touched))
	for _, id := range dry.Touched {
		planned[id] = struct{}{}
	}

	res, err := run(limit, shouldYield, false)
	if err != nil {
		return nil, err
	}
	for _, id := range res.Touched {
		if _, ok := planned[id]; !ok {
			return nil, reverts.NewInvariant("user %d converted without reward settlement", id)
		}
	}
	return res, nil
}

type Engine struct {
	checkpoint  *storage.Raw[*Checkpoint]
	fund        *fund.Service
	transform   *transform.Service
	rewards     *rewards.Service
	settings    *settings.Service
	shouldYield func() bool
}

func New(
	sctx *storage.Context,
	fundService *fund.Service,
	transformService *transform.Service,
	rewardsService *rewards.Service,
	settingsService *settings.Service,
	shouldYield func() bool,
) *Engine {
	return &Engine{
		checkpoint:  storage.NewRaw[*Checkpoint](sctx, slotCheckpoint),
		fund:        fundService,
		transform:   transformService,
		rewards:     rewardsService,
		settings:    settingsService,
		shouldYield: shouldYield,
	}
}

func (e *Engine) yield() bool {
	return e.shouldYield != nil && e.shouldYield()
}

// Current returns the stored operation, nil when idle.
func (e *Engine) Current() (*Checkpoint, error) {
	cp, err := e.checkpoint.Get()
	if err != nil {
		return nil, err
	}
	if cp == nil {
		return nil, nil
	}
	if err := cp.validate(); err != nil {
		return nil, err
	}
	return cp, nil
}

func (e *Engine) InProgress() (bool, error) {
	cp, err := e.Current()
	return cp != nil, err
}

// EnsureIdle fails with a conflict while an operation is stored.
func (e *Engine) EnsureIdle() error {
	cp, err := e.Current()
	if err != nil {
		return err
	}
	if cp != nil {
		return reverts.NewConflict("global operation " + cp.Kind.String() + " in progress")
	}
	return nil
}

func (c *Checkpoint) validate() error {
	switch c.Kind {
	case KindModifyCapacity:
		if c.ModifyCapacity == nil || c.ChangeFee != nil {
			return reverts.NewInvariant("malformed %v checkpoint", c.Kind)
		}
	case KindChangeFee:
		if c.ChangeFee == nil || c.ModifyCapacity != nil {
			return reverts.NewInvariant("malformed %v checkpoint", c.Kind)
		}
	default:
		return reverts.NewInvariant("unknown operation %v", c.Kind)
	}
	return nil
}

func (e *Engine) store(cp *Checkpoint) error {
	if cp == nil {
		e.checkpoint.Delete()
		return nil
	}
	return e.checkpoint.Upsert(cp)
}

// AdvanceStep runs the current step of cp. It returns Completed with the
// checkpoint of the next step, nil once the operation is finished, or
// Interrupted with the checkpoint to resume the same step from.
func (e *Engine) AdvanceStep(cp *Checkpoint) (Status, *Checkpoint, error) {
	if err := cp.validate(); err != nil {
		return Completed, nil, err
	}
	switch cp.Kind {
	case KindModifyCapacity:
		return e.advanceModifyCapacity(cp)
	case KindChangeFee:
		return e.advanceChangeFee(cp)
	}
	return Completed, nil, reverts.NewInvariant("unknown operation %v", cp.Kind)
}

func (e *Engine) advanceChangeFee(cp *Checkpoint) (Status, *Checkpoint, error) {
	f := cp.ChangeFee
	progress, err := e.rewards.ComputeAll(f.Progress, e.shouldYield)
	if err != nil {
		return Completed, nil, err
	}
	if progress != nil {
		f.Progress = progress
		return Interrupted, cp, nil
	}
	if err := e.settings.SetServiceFee(f.NewFee); err != nil {
		return Completed, nil, err
	}
	logger.Info("service fee changed", "fee", f.NewFee)
	return Completed, nil, nil
}

func (e *Engine) advanceModifyCapacity(cp *Checkpoint) (Status, *Checkpoint, error) {
	m := cp.ModifyCapacity
	switch m.Step {
	case StepComputeAllRewards:
		progress, err := e.rewards.ComputeAll(m.Progress, e.shouldYield)
		if err != nil {
			return Completed, nil, err
		}
		if progress != nil {
			m.Progress = progress
			return Interrupted, cp, nil
		}
		m.Progress = nil
		settled, err := e.rewards.Counter()
		if err != nil {
			return Completed, nil, err
		}
		m.Settled = settled
		if m.RemainingQueueToActive.Sign() > 0 {
			m.Step = StepQueueToActive
		} else {
			m.Step = StepUnstakedToDeferred
		}
		return Completed, cp, nil

	case StepQueueToActive:
		done, err := e.convertStep(m.RemainingQueueToActive, e.transform.WaitingToActive, true)
		if err != nil || !done {
			return Interrupted, cp, err
		}
		return e.finishModifyCapacity(cp)

	case StepUnstakedToDeferred:
		// active stake is unchanged, no reward settlement needed
		done, err := e.convertStep(m.RemainingUnstakedToDeferred, e.transform.UnstakedToDeferredPayment, false)
		if err != nil || !done {
			return Interrupted, cp, err
		}
		m.Step = StepActiveToDeferred
		return Completed, cp, nil

	case StepActiveToDeferred:
		done, err := e.convertStep(m.RemainingActiveToDeferred, e.transform.ActiveToDeferredPayment, true)
		if err != nil || !done {
			return Interrupted, cp, err
		}
		return e.finishModifyCapacity(cp)
	}
	return Completed, nil, reverts.NewInvariant("unknown capacity step %v", m.Step)
}

// convertStep moves up to remaining with run and lowers remaining by what
// was moved. With settle set, rewards are settled first.
func (e *Engine) convertStep(remaining *big.Int, run Convert, settle bool) (bool, error) {
	if remaining.Sign() == 0 {
		return true, nil
	}

	var (
		res *fund.SplitResult
		err error
	)
	if settle {
		res, err = SettleAndRun(e.rewards, run, remaining, e.shouldYield)
	} else {
		res, err = run(remaining, e.shouldYield, false)
	}
	if err != nil {
		return false, err
	}

	remaining.Set(res.Remaining)
	if remaining.Sign() > 0 && !res.Yielded {
		return false, reverts.NewInvariant("stake exhausted with %v left to convert", remaining)
	}
	return remaining.Sign() == 0, nil
}

// finishModifyCapacity applies the new capacity. Rewards distributed since
// the sweep would be shared against the new capacity, so they are settled
// by another sweep first.
func (e *Engine) finishModifyCapacity(cp *Checkpoint) (Status, *Checkpoint, error) {
	m := cp.ModifyCapacity
	counter, err := e.rewards.Counter()
	if err != nil {
		return Completed, nil, err
	}
	if m.Settled == nil || counter.Cmp(m.Settled) != 0 {
		logger.Debug("rewards distributed during capacity change, settling again", "counter", counter)
		m.Step = StepComputeAllRewards
		m.Progress = nil
		return Completed, cp, nil
	}

	if err := e.settings.SetCapacity(m.NewCapacity); err != nil {
		return Completed, nil, err
	}
	if !m.Unfilled {
		totals, err := e.fund.Totals()
		if err != nil {
			return Completed, nil, err
		}
		base := new(big.Int).Add(totals[fund.Active], totals[fund.UnStaked])
		if base.Cmp(m.NewCapacity) != 0 {
			return Completed, nil, reverts.NewInvariant("capacity %v differs from active plus unstaked %v", m.NewCapacity, base)
		}
	}
	logger.Info("capacity changed", "capacity", m.NewCapacity)
	return Completed, nil, nil
}

// Drive advances cp until it finishes or the budget runs low, and stores
// what is left. The budget is not probed before the first step so every
// invocation makes progress.
func (e *Engine) Drive(cp *Checkpoint) (Status, error) {
	status := Completed
	for first := true; cp != nil; first = false {
		if !first && e.yield() {
			status = Interrupted
			break
		}
		var err error
		if status, cp, err = e.AdvanceStep(cp); err != nil {
			if reverts.IsInvariantErr(err) {
				logger.Error("operation failed", "err", err)
			}
			return Completed, err
		}
		if status == Interrupted {
			break
		}
	}
	if err := e.store(cp); err != nil {
		return Completed, err
	}
	if status == Interrupted {
		logger.Warn("operation interrupted", "op", cp)
	}
	return status, nil
}

// RequestModifyCapacity starts changing the capacity to newCap.
func (e *Engine) RequestModifyCapacity(newCap *big.Int) (Status, error) {
	if err := e.EnsureIdle(); err != nil {
		return Completed, err
	}
	if newCap == nil || newCap.Sign() <= 0 {
		return Completed, reverts.New("capacity must be positive")
	}
	oldCap, err := e.settings.Capacity()
	if err != nil {
		return Completed, err
	}
	if newCap.Cmp(oldCap) == 0 {
		return Completed, nil
	}

	cp, err := e.planModifyCapacity(oldCap, newCap)
	if err != nil {
		return Completed, err
	}
	logger.Info("capacity change accepted", "from", oldCap, "op", cp)
	return e.Drive(cp)
}

func (e *Engine) planModifyCapacity(oldCap, newCap *big.Int) (*Checkpoint, error) {
	if newCap.Cmp(oldCap) > 0 {
		dest := e.settings.RewardDestination()
		waiting, err := e.fund.SumByUserType(dest, fund.Waiting)
		if err != nil {
			return nil, err
		}
		active, err := e.fund.SumByUserType(dest, fund.Active)
		if err != nil {
			return nil, err
		}
		minStake, err := e.settings.OwnerMinStake(newCap)
		if err != nil {
			return nil, err
		}
		if waiting.Add(waiting, active).Cmp(minStake) < 0 {
			return nil, reverts.Errorf("owner stake does not cover %v required for capacity %v", minStake, newCap)
		}
	}

	totals, err := e.fund.Totals()
	if err != nil {
		return nil, err
	}
	unstaked := totals[fund.UnStaked]
	base := new(big.Int).Add(totals[fund.Active], unstaked)
	total := new(big.Int).Add(base, totals[fund.Waiting])

	cp := newModifyCapacity(newCap)
	m := cp.ModifyCapacity
	switch {
	case total.Cmp(newCap) < 0:
		m.Unfilled = true
	case newCap.Cmp(base) > 0:
		if newCap.Cmp(oldCap) > 0 && unstaked.Sign() > 0 {
			return nil, reverts.New("capacity cannot grow while stake is unstaking")
		}
		m.RemainingQueueToActive.Sub(newCap, base)
	case newCap.Cmp(base) < 0:
		shortfall := new(big.Int).Sub(base, newCap)
		fromUnstaked := m.RemainingUnstakedToDeferred
		if shortfall.Cmp(unstaked) < 0 {
			fromUnstaked.Set(shortfall)
		} else {
			fromUnstaked.Set(unstaked)
		}
		m.RemainingActiveToDeferred.Sub(shortfall, fromUnstaked)
	}
	return cp, nil
}

// RequestFeeChange starts changing the service fee. Rewards accrued so far
// are settled at the old fee first.
func (e *Engine) RequestFeeChange(fee uint64) (Status, error) {
	if err := settings.ValidateFee(fee); err != nil {
		return Completed, err
	}
	if err := e.EnsureIdle(); err != nil {
		return Completed, err
	}
	current, err := e.settings.ServiceFee()
	if err != nil {
		return Completed, err
	}
	if current == fee {
		return Completed, nil
	}

	active, err := e.fund.SumByType(fund.Active)
	if err != nil {
		return Completed, err
	}
	if active.Sign() == 0 {
		// only the reward destination accrues without active stake
		if _, err := e.rewards.Update(e.settings.RewardDestination()); err != nil {
			return Completed, err
		}
		if err := e.settings.SetServiceFee(fee); err != nil {
			return Completed, err
		}
		logger.Info("service fee changed", "fee", fee)
		return Completed, nil
	}

	cp := newChangeFee(fee)
	logger.Info("fee change accepted", "from", current, "op", cp)
	return e.Drive(cp)
}

// ContinueProgress resumes the stored operation, if any.
func (e *Engine) ContinueProgress() (Status, error) {
	cp, err := e.Current()
	if err != nil || cp == nil {
		return Completed, err
	}
	return e.Drive(cp)
}
