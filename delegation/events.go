// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delegation

import (
	"math/big"

	"github.com/multiversx/mx-delegation-sc-sub000/common"
)

// Event kinds.
const (
	EventDeposit   = "deposit"
	EventUnstake   = "unstake"
	EventClaim     = "claim"
	EventWithdraw  = "withdraw"
	EventActivate  = "activate"
	EventRewards   = "rewards"
	EventOperation = "operation"
)

// Event records a ledger change, journaled once its invocation commits.
type Event struct {
	Kind   string
	Owner  *common.Address
	Amount *big.Int
	Detail string
}

func (d *Delegation) emit(kind string, owner *common.Address, amount *big.Int, detail string) {
	ev := &Event{Kind: kind, Detail: detail}
	if owner != nil {
		addr := *owner
		ev.Owner = &addr
	}
	if amount != nil {
		ev.Amount = new(big.Int).Set(amount)
	}
	d.events = append(d.events, ev)
}
