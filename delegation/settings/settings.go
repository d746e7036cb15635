// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package settings

import (
	"math/big"

	"github.com/multiversx/mx-delegation-sc-sub000/common"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/reverts"
	"github.com/multiversx/mx-delegation-sc-sub000/storage"
)

const (
	// Denominator of fee and share parameters, which are in basis points.
	Denominator uint64 = 10000

	// RewardDestinationID is the user id of the owner, registered first.
	RewardDestinationID uint64 = 1
)

var (
	slotInitialized   = common.NameToSlot("initialized")
	slotCapacity      = common.NameToSlot("total-capacity")
	slotServiceFee    = common.NameToSlot("service-fee")
	slotMinDeposit    = common.NameToSlot("min-deposit")
	slotOwnerMinShare = common.NameToSlot("owner-min-share")
	slotDeferredAge   = common.NameToSlot("deferred-payment-age")
)

// Params are the ledger parameters set once at Init.
type Params struct {
	Owner              common.Address
	Capacity           *big.Int
	ServiceFee         uint64
	MinDeposit         *big.Int
	OwnerMinShare      uint64
	DeferredPaymentAge uint64
}

// Validate checks the ranges of all parameters.
func (p *Params) Validate() error {
	if p.Owner.IsZero() {
		return reverts.New("owner address is required")
	}
	if p.Capacity == nil || p.Capacity.Sign() < 0 {
		return reverts.New("capacity must not be negative")
	}
	if err := ValidateFee(p.ServiceFee); err != nil {
		return err
	}
	if p.MinDeposit != nil && p.MinDeposit.Sign() < 0 {
		return reverts.New("minimum deposit must not be negative")
	}
	if p.OwnerMinShare > Denominator {
		return reverts.Errorf("owner minimum share %d exceeds %d", p.OwnerMinShare, Denominator)
	}
	return nil
}

// ValidateFee checks a service fee in basis points.
func ValidateFee(fee uint64) error {
	if fee > Denominator {
		return reverts.Errorf("service fee %d exceeds %d", fee, Denominator)
	}
	return nil
}

// Service persists the ledger parameters.
type Service struct {
	initialized   *storage.Raw[bool]
	capacity      *storage.BigInt
	serviceFee    *storage.Raw[uint64]
	minDeposit    *storage.BigInt
	ownerMinShare *storage.Raw[uint64]
	deferredAge   *storage.Raw[uint64]
}

func New(sctx *storage.Context) *Service {
	return &Service{
		initialized:   storage.NewRaw[bool](sctx, slotInitialized),
		capacity:      storage.NewBigInt(sctx, slotCapacity),
		serviceFee:    storage.NewRaw[uint64](sctx, slotServiceFee),
		minDeposit:    storage.NewBigInt(sctx, slotMinDeposit),
		ownerMinShare: storage.NewRaw[uint64](sctx, slotOwnerMinShare),
		deferredAge:   storage.NewRaw[uint64](sctx, slotDeferredAge),
	}
}

// Init stores params. It can only succeed once.
func (s *Service) Init(p *Params) error {
	done, err := s.initialized.Get()
	if err != nil {
		return err
	}
	if done {
		return reverts.New("already initialized")
	}
	if err := p.Validate(); err != nil {
		return err
	}

	if err := s.initialized.Insert(true); err != nil {
		return err
	}
	if err := s.capacity.Set(p.Capacity); err != nil {
		return err
	}
	if err := s.serviceFee.Insert(p.ServiceFee); err != nil {
		return err
	}
	if p.MinDeposit != nil {
		if err := s.minDeposit.Set(p.MinDeposit); err != nil {
			return err
		}
	}
	if err := s.ownerMinShare.Insert(p.OwnerMinShare); err != nil {
		return err
	}
	return s.deferredAge.Insert(p.DeferredPaymentAge)
}

func (s *Service) Initialized() (bool, error) {
	return s.initialized.Get()
}

func (s *Service) Capacity() (*big.Int, error) {
	return s.capacity.Get()
}

func (s *Service) SetCapacity(capacity *big.Int) error {
	return s.capacity.Set(capacity)
}

func (s *Service) ServiceFee() (uint64, error) {
	return s.serviceFee.Get()
}

func (s *Service) SetServiceFee(fee uint64) error {
	if err := ValidateFee(fee); err != nil {
		return err
	}
	return s.serviceFee.Upsert(fee)
}

func (s *Service) MinDeposit() (*big.Int, error) {
	return s.minDeposit.Get()
}

func (s *Service) OwnerMinShare() (uint64, error) {
	return s.ownerMinShare.Get()
}

func (s *Service) DeferredPaymentAge() (uint64, error) {
	return s.deferredAge.Get()
}

// RewardDestination returns the user id receiving service fees and dust.
func (s *Service) RewardDestination() uint64 {
	return RewardDestinationID
}

// OwnerMinStake returns the Waiting+Active stake the owner must keep for
// the given capacity.
func (s *Service) OwnerMinStake(capacity *big.Int) (*big.Int, error) {
	share, err := s.ownerMinShare.Get()
	if err != nil {
		return nil, err
	}
	minStake := new(big.Int).Mul(capacity, new(big.Int).SetUint64(share))
	return minStake.Div(minStake, new(big.Int).SetUint64(Denominator)), nil
}
