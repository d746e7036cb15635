// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delegation

import (
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multiversx/mx-delegation-sc-sub000/common"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/fund"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/operation"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/settings"
	"github.com/multiversx/mx-delegation-sc-sub000/gascharger"
	"github.com/multiversx/mx-delegation-sc-sub000/lvldb"
	"github.com/multiversx/mx-delegation-sc-sub000/state"
)

var (
	owner = addr("owner")
	alice = addr("alice")
	bob   = addr("bob")
	carol = addr("carol")
)

func addr(name string) common.Address {
	return common.BytesToAddress([]byte(name))
}

type testClock struct{ now uint64 }

func (c *testClock) Now() uint64 { return c.now }

type testLedger struct {
	state *state.State
	clock *testClock
}

func defaultParams() *settings.Params {
	return &settings.Params{
		Owner:              owner,
		Capacity:           big.NewInt(1500),
		ServiceFee:         1000,
		MinDeposit:         big.NewInt(10),
		DeferredPaymentAge: 100,
	}
}

func newTestLedger(t *testing.T, params *settings.Params) *testLedger {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	stater, err := state.NewStater(db, 64)
	require.NoError(t, err)

	l := &testLedger{state: stater.NewState(), clock: &testClock{now: 1}}
	require.NoError(t, l.open().Init(params))
	return l
}

// open returns a ledger that never yields.
func (l *testLedger) open() *Delegation {
	return New(l.state, nil, l.clock)
}

// tight returns a ledger whose budget asks to yield after any work.
func (l *testLedger) tight() *Delegation {
	return New(l.state, gascharger.New(1_000_000_000, 1_000_000_000), l.clock)
}

type TestFunc func(t *testing.T)

type TestSequence struct {
	ledger *testLedger

	funcs []TestFunc
	mu    sync.Mutex
}

func NewSequence(ledger *testLedger) *TestSequence {
	return &TestSequence{funcs: make([]TestFunc, 0), ledger: ledger}
}

func (st *TestSequence) AddFunc(f TestFunc) *TestSequence {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.funcs = append(st.funcs, f)
	return st
}

func (st *TestSequence) Deposit(who common.Address, amount int64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		if err := st.ledger.open().Deposit(who, big.NewInt(amount)); err != nil {
			t.Fatalf("failed to deposit %d for %s: %v", amount, who, err)
		}
		t.Logf("deposited %d for %s", amount, who)
	})
}

func (st *TestSequence) Activate() *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		amount, err := st.ledger.open().ActivateWaiting(nil)
		if err != nil {
			t.Fatalf("failed to activate waiting stake: %v", err)
		}
		t.Logf("activated %s", amount)
	})
}

func (st *TestSequence) Unstake(who common.Address, amount int64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		if err := st.ledger.open().RequestUnstake(who, big.NewInt(amount)); err != nil {
			t.Fatalf("failed to unstake %d for %s: %v", amount, who, err)
		}
		t.Logf("unstaked %d for %s", amount, who)
	})
}

func (st *TestSequence) Distribute(amount int64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		if err := st.ledger.open().DistributeRewards(big.NewInt(amount)); err != nil {
			t.Fatalf("failed to distribute %d: %v", amount, err)
		}
		t.Logf("distributed %d", amount)
	})
}

func (st *TestSequence) Claim(who common.Address, expected int64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		amount, err := st.ledger.open().ClaimRewards(who)
		if err != nil {
			t.Fatalf("failed to claim for %s: %v", who, err)
		}
		assert.Equal(t, big.NewInt(expected).String(), amount.String(), "claim of %s", who)
	})
}

func (st *TestSequence) WithdrawAll(who common.Address, expected int64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		amount, err := st.ledger.open().WithdrawAll(who)
		if err != nil {
			t.Fatalf("failed to withdraw for %s: %v", who, err)
		}
		assert.Equal(t, big.NewInt(expected).String(), amount.String(), "withdrawal of %s", who)
	})
}

func (st *TestSequence) Tick(now uint64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		st.ledger.clock.now = now
	})
}

// ModifyCapacity requests the change under a tight budget and resumes it
// until it completes.
func (st *TestSequence) ModifyCapacity(capacity int64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		status, err := st.ledger.tight().RequestModifyCapacity(big.NewInt(capacity))
		if err != nil {
			t.Fatalf("failed to request capacity %d: %v", capacity, err)
		}
		calls := 1
		for ; status == operation.Interrupted; calls++ {
			if status, err = st.ledger.tight().ContinueProgress(); err != nil {
				t.Fatalf("failed to continue capacity change: %v", err)
			}
		}
		t.Logf("capacity changed to %d in %d calls", capacity, calls)
	})
}

func (st *TestSequence) CheckInvariants() *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		if err := st.ledger.open().CheckInvariants(); err != nil {
			t.Fatalf("invariants violated: %v", err)
		}
	})
}

func (st *TestSequence) Run(t *testing.T) {
	st.mu.Lock()
	defer st.mu.Unlock()

	for _, f := range st.funcs {
		f(t)
	}

	t.Logf("All test functions executed successfully")
}

type StakeAssertions struct {
	ledger *testLedger
	who    common.Address

	amounts   map[fund.Type]*big.Int
	claimable *big.Int
}

func AssertStake(ledger *testLedger, who common.Address) *StakeAssertions {
	return &StakeAssertions{ledger: ledger, who: who, amounts: make(map[fund.Type]*big.Int)}
}

func (sa *StakeAssertions) Type(typ fund.Type, expected int64) *StakeAssertions {
	sa.amounts[typ] = big.NewInt(expected)
	return sa
}

func (sa *StakeAssertions) Claimable(expected int64) *StakeAssertions {
	sa.claimable = big.NewInt(expected)
	return sa
}

func (sa *StakeAssertions) Assert(t *testing.T) {
	d := sa.ledger.open()
	stake, err := d.StakeByType(sa.who)
	assert.NoError(t, err, "failed to get stake of %s", sa.who)

	for typ, expected := range sa.amounts {
		assert.Equal(t, expected.String(), stake[typ].String(), "%s %v stake mismatch", sa.who, typ)
	}

	if sa.claimable != nil {
		claimable, err := d.Claimable(sa.who)
		assert.NoError(t, err)
		assert.Equal(t, sa.claimable.String(), claimable.String(), "%s claimable mismatch", sa.who)
	}
}
