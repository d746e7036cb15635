// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delegation

import (
	"fmt"
	"math/big"
	"testing"
	"testing/quick"

	"github.com/davecgh/go-spew/spew"
	fuzz "github.com/google/gofuzz"

	"github.com/multiversx/mx-delegation-sc-sub000/common"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/reverts"
	"github.com/multiversx/mx-delegation-sc-sub000/gascharger"
	"github.com/multiversx/mx-delegation-sc-sub000/lvldb"
	"github.com/multiversx/mx-delegation-sc-sub000/state"
)

const (
	opDeposit = iota
	opActivate
	opUnstake
	opDistribute
	opClaim
	opWithdraw
	opModifyCapacity
	opChangeFee
	opContinue
	opCount
)

type randomOp struct {
	Kind   uint8
	User   uint8
	Amount uint16
	Tight  bool
}

func (op randomOp) String() string {
	return fmt.Sprintf("op(kind=%d user=%d amount=%d tight=%v)", op.Kind%opCount, op.User%4, op.Amount, op.Tight)
}

// randomRun replays a generated sequence of invocations, each reverted on
// failure, and checks the ledger after every committed one.
type randomRun struct {
	state *state.State
	clock *testClock

	deposited *big.Int
	withdrawn *big.Int
	claimed   *big.Int
}

var participants = []common.Address{owner, alice, bob, carol}

func (r *randomRun) ledger(tight bool) *Delegation {
	if tight {
		return New(r.state, gascharger.New(1_000_000_000, 1_000_000_000), r.clock)
	}
	return New(r.state, nil, r.clock)
}

func (r *randomRun) apply(op randomOp) error {
	d := r.ledger(op.Tight)
	who := participants[int(op.User)%len(participants)]
	amount := big.NewInt(int64(op.Amount % 1000))

	switch op.Kind % opCount {
	case opDeposit:
		if err := d.Deposit(who, amount); err != nil {
			return err
		}
		r.deposited.Add(r.deposited, amount)
	case opActivate:
		_, err := d.ActivateWaiting(nil)
		return err
	case opUnstake:
		return d.RequestUnstake(who, amount)
	case opDistribute:
		return d.DistributeRewards(amount)
	case opClaim:
		paid, err := d.ClaimRewards(who)
		if err != nil {
			return err
		}
		r.claimed.Add(r.claimed, paid)
	case opWithdraw:
		r.clock.now += uint64(op.Amount % 64)
		paid, err := d.WithdrawAll(who)
		if err != nil {
			return err
		}
		r.withdrawn.Add(r.withdrawn, paid)
	case opModifyCapacity:
		_, err := d.RequestModifyCapacity(big.NewInt(int64(op.Amount % 3000)))
		return err
	case opChangeFee:
		_, err := d.RequestFeeChange(uint64(op.Amount % 12000))
		return err
	case opContinue:
		_, err := d.ContinueProgress()
		return err
	}
	return nil
}

func (r *randomRun) check() error {
	d := r.ledger(false)
	if err := d.CheckInvariants(); err != nil {
		return err
	}

	totals, err := d.TotalByType()
	if err != nil {
		return err
	}
	held := new(big.Int).Sub(r.deposited, r.withdrawn)
	if totals.Sum().Cmp(held) != 0 {
		return fmt.Errorf("ledger holds %v, deposits minus withdrawals are %v", totals.Sum(), held)
	}

	owed := new(big.Int).Set(r.claimed)
	for _, who := range participants {
		claimable, err := d.Claimable(who)
		if err != nil {
			return err
		}
		owed.Add(owed, claimable)
	}
	counter, err := d.RewardCounter()
	if err != nil {
		return err
	}
	if owed.Cmp(counter) > 0 {
		return fmt.Errorf("rewards owed %v exceed rewards received %v", owed, counter)
	}
	return nil
}

func runRandomOps(seed int64) bool {
	var ops []randomOp
	fuzz.NewWithSeed(seed).NilChance(0).NumElements(20, 80).Fuzz(&ops)

	db, err := lvldb.NewMem()
	if err != nil {
		panic(err)
	}
	defer db.Close()
	stater, err := state.NewStater(db, 64)
	if err != nil {
		panic(err)
	}

	r := &randomRun{
		state:     stater.NewState(),
		clock:     &testClock{now: 1},
		deposited: new(big.Int),
		withdrawn: new(big.Int),
		claimed:   new(big.Int),
	}
	if err := r.ledger(false).Init(defaultParams()); err != nil {
		panic(err)
	}

	for i, op := range ops {
		revision := r.state.NewCheckpoint()
		if err := r.apply(op); err != nil {
			if reverts.IsInvariantErr(err) {
				fmt.Printf("step %d %v: %v\n", i, op, err)
				return false
			}
			r.state.RevertTo(revision)
			continue
		}
		if err := r.check(); err != nil {
			fmt.Printf("step %d %v: %v\n", i, op, err)
			return false
		}
	}
	return true
}

func TestRandomInvocations(t *testing.T) {
	config := &quick.Config{MaxCount: 50}
	if testing.Short() {
		config.MaxCount = 10
	}
	if err := quick.Check(runRandomOps, config); err != nil {
		if cerr, ok := err.(*quick.CheckError); ok {
			t.Fatalf("random test iteration %d failed: %s", cerr.Count, spew.Sdump(cerr.In))
		}
		t.Fatal(err)
	}
}
