// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delegation

import (
	"math/big"

	"github.com/multiversx/mx-delegation-sc-sub000/delegation/fund"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/reverts"
)

// CheckInvariants walks the whole ledger. It is meant for tests and
// offline verification, its cost grows with the number of buckets.
func (d *Delegation) CheckInvariants() (err error) {
	defer func() {
		if err != nil && reverts.IsInvariantErr(err) {
			logger.Error("ledger invariant violated", "err", err)
		}
	}()

	count, err := d.usersService.Count()
	if err != nil {
		return err
	}
	if err := d.fundService.CheckLists(count); err != nil {
		return err
	}
	if err := d.rewardsService.CheckCheckpoints(count); err != nil {
		return err
	}

	inProgress, err := d.engine.InProgress()
	if err != nil || inProgress {
		return err
	}
	capacity, err := d.settingsService.Capacity()
	if err != nil {
		return err
	}
	totals, err := d.fundService.Totals()
	if err != nil {
		return err
	}
	base := new(big.Int).Add(totals[fund.Active], totals[fund.UnStaked])
	if base.Cmp(capacity) > 0 {
		return reverts.NewInvariant("active plus unstaked %v exceeds capacity %v", base, capacity)
	}
	return nil
}
