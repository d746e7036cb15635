// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package delegation is the entry point of the pooled stake ledger. A
// Delegation is built over the state of one invocation and exposes the
// deposit, unstake, reward and global operation calls.
package delegation

import (
	"math/big"

	"github.com/multiversx/mx-delegation-sc-sub000/common"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/fund"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/operation"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/reverts"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/rewards"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/settings"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/transform"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/users"
	"github.com/multiversx/mx-delegation-sc-sub000/gascharger"
	"github.com/multiversx/mx-delegation-sc-sub000/log"
	"github.com/multiversx/mx-delegation-sc-sub000/state"
	"github.com/multiversx/mx-delegation-sc-sub000/storage"
)

var logger = log.WithContext("pkg", "delegation")

func SetLogger(l log.Logger) {
	logger = l
}

// Delegation implements the ledger calls over one state.
type Delegation struct {
	usersService     *users.Service
	settingsService  *settings.Service
	fundService      *fund.Service
	transformService *transform.Service
	rewardsService   *rewards.Service
	engine           *operation.Engine

	events []*Event
}

// New creates a ledger over st. Storage access is charged to charger,
// which also decides when a global operation yields. A nil charger never
// yields.
func New(st *state.State, charger *gascharger.Charger, clock transform.Clock) *Delegation {
	var (
		useGas      storage.UseGasFunc
		shouldYield func() bool
	)
	if charger != nil {
		useGas = charger.Charge
		shouldYield = charger.ShouldYield
	}
	sctx := storage.NewContext(st, useGas)

	d := &Delegation{
		usersService:    users.New(sctx),
		settingsService: settings.New(sctx),
		fundService:     fund.New(sctx),
	}
	d.transformService = transform.New(d.fundService, clock)
	d.rewardsService = rewards.New(sctx, d.fundService, d.settingsService, d.usersService)
	d.engine = operation.New(sctx, d.fundService, d.transformService, d.rewardsService, d.settingsService, shouldYield)
	return d
}

//
// Getters - no state change
//

// Initialized reports whether Init has run.
func (d *Delegation) Initialized() (bool, error) {
	return d.settingsService.Initialized()
}

// UserID returns the id of addr, 0 when unknown.
func (d *Delegation) UserID(addr common.Address) (uint64, error) {
	return d.usersService.ID(addr)
}

func (d *Delegation) Capacity() (*big.Int, error) {
	return d.settingsService.Capacity()
}

func (d *Delegation) ServiceFee() (uint64, error) {
	return d.settingsService.ServiceFee()
}

// RewardCounter returns the cumulative amount of rewards distributed.
func (d *Delegation) RewardCounter() (*big.Int, error) {
	return d.rewardsService.Counter()
}

// StakeByType returns the amounts held by addr in every fund type.
func (d *Delegation) StakeByType(addr common.Address) (*fund.Amounts, error) {
	id, err := d.usersService.ID(addr)
	if err != nil {
		return nil, err
	}
	if id == 0 {
		var zero fund.Amounts
		for i := range zero {
			zero[i] = new(big.Int)
		}
		return &zero, nil
	}
	return d.fundService.UserTotals(id)
}

// TotalByType returns the ledger totals of every fund type.
func (d *Delegation) TotalByType() (*fund.Amounts, error) {
	return d.fundService.Totals()
}

// Claimable returns the rewards addr could claim now.
func (d *Delegation) Claimable(addr common.Address) (*big.Int, error) {
	id, err := d.usersService.ID(addr)
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return new(big.Int), nil
	}
	return d.rewardsService.Claimable(id)
}

func (d *Delegation) OperationInProgress() (bool, error) {
	return d.engine.InProgress()
}

// CurrentOperation returns the stored global operation, nil when idle.
func (d *Delegation) CurrentOperation() (*operation.Checkpoint, error) {
	return d.engine.Current()
}

// Events returns the events emitted by the calls made so far.
func (d *Delegation) Events() []*Event {
	return d.events
}

//
// Setters - state change
//

// Init stores the ledger parameters and registers the owner as the reward
// destination.
func (d *Delegation) Init(p *settings.Params) error {
	if err := d.settingsService.Init(p); err != nil {
		return err
	}
	id, _, err := d.usersService.GetOrCreate(p.Owner)
	if err != nil {
		return err
	}
	if id != d.settingsService.RewardDestination() {
		return reverts.NewInvariant("owner registered as user %d", id)
	}
	if err := d.rewardsService.Register(id); err != nil {
		return err
	}
	logger.Info("ledger initialized", "owner", p.Owner, "capacity", p.Capacity, "fee", p.ServiceFee)
	return nil
}

// ensureReady fails until Init has run.
func (d *Delegation) ensureReady() error {
	ok, err := d.settingsService.Initialized()
	if err != nil {
		return err
	}
	if !ok {
		return reverts.New("ledger not initialized")
	}
	return nil
}

// ensureIdle fails until Init has run and while a global operation is in
// progress.
func (d *Delegation) ensureIdle() error {
	if err := d.ensureReady(); err != nil {
		return err
	}
	return d.engine.EnsureIdle()
}

func (d *Delegation) knownUser(addr common.Address) (uint64, error) {
	id, err := d.usersService.ID(addr)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, reverts.Errorf("unknown participant %v", addr)
	}
	return id, nil
}

func positive(amount *big.Int, what string) error {
	if amount == nil || amount.Sign() <= 0 {
		return reverts.Errorf("%s must be positive", what)
	}
	return nil
}

// DistributeRewards credits amount of new rewards to the pool. It is
// accepted while a global operation is in progress.
func (d *Delegation) DistributeRewards(amount *big.Int) error {
	if err := d.ensureReady(); err != nil {
		return err
	}
	if err := positive(amount, "reward amount"); err != nil {
		return err
	}
	if err := d.rewardsService.Distribute(amount); err != nil {
		return err
	}
	d.emit(EventRewards, nil, amount, "")
	return nil
}

// ClaimRewards pays out the settled rewards of addr. Unknown participants
// claim zero.
func (d *Delegation) ClaimRewards(addr common.Address) (*big.Int, error) {
	if err := d.ensureIdle(); err != nil {
		return nil, err
	}
	id, err := d.usersService.ID(addr)
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return new(big.Int), nil
	}
	amount, err := d.rewardsService.Claim(id)
	if err != nil {
		return nil, err
	}
	if amount.Sign() > 0 {
		d.emit(EventClaim, &addr, amount, "")
		logger.Debug("rewards claimed", "user", id, "amount", amount)
	}
	return amount, nil
}

// RequestModifyCapacity starts a capacity change.
func (d *Delegation) RequestModifyCapacity(newCap *big.Int) (operation.Status, error) {
	if err := d.ensureReady(); err != nil {
		return operation.Completed, err
	}
	status, err := d.engine.RequestModifyCapacity(newCap)
	if err != nil {
		return status, err
	}
	d.emit(EventOperation, nil, newCap, operation.KindModifyCapacity.String()+" "+status.String())
	return status, nil
}

// RequestFeeChange starts a service fee change.
func (d *Delegation) RequestFeeChange(fee uint64) (operation.Status, error) {
	if err := d.ensureReady(); err != nil {
		return operation.Completed, err
	}
	status, err := d.engine.RequestFeeChange(fee)
	if err != nil {
		return status, err
	}
	d.emit(EventOperation, nil, new(big.Int).SetUint64(fee), operation.KindChangeFee.String()+" "+status.String())
	return status, nil
}

// ContinueProgress resumes the global operation in progress.
func (d *Delegation) ContinueProgress() (operation.Status, error) {
	if err := d.ensureReady(); err != nil {
		return operation.Completed, err
	}
	cp, err := d.engine.Current()
	if err != nil || cp == nil {
		return operation.Completed, err
	}
	status, err := d.engine.Drive(cp)
	if err != nil {
		return status, err
	}
	d.emit(EventOperation, nil, nil, cp.Kind.String()+" "+status.String())
	return status, nil
}
