// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package operation

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multiversx/mx-delegation-sc-sub000/common"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/fund"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/reverts"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/rewards"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/settings"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/transform"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/users"
	"github.com/multiversx/mx-delegation-sc-sub000/lvldb"
	"github.com/multiversx/mx-delegation-sc-sub000/state"
	"github.com/multiversx/mx-delegation-sc-sub000/storage"
)

type env struct {
	fund     *fund.Service
	settings *settings.Service
	users    *users.Service
	rewards  *rewards.Service
	engine   *Engine
	yielding bool
}

func newEnv(t *testing.T, capacity int64, fee uint64) *env {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	stater, err := state.NewStater(db, 16)
	require.NoError(t, err)

	sctx := storage.NewContext(stater.NewState(), nil)
	e := &env{
		fund:     fund.New(sctx),
		settings: settings.New(sctx),
		users:    users.New(sctx),
	}
	e.rewards = rewards.New(sctx, e.fund, e.settings, e.users)
	clock := transform.ClockFunc(func() uint64 { return 1000 })
	e.engine = New(sctx, e.fund, transform.New(e.fund, clock), e.rewards, e.settings, func() bool { return e.yielding })

	require.NoError(t, e.settings.Init(&settings.Params{
		Owner:      common.BytesToAddress([]byte("owner")),
		Capacity:   big.NewInt(capacity),
		ServiceFee: fee,
	}))
	e.join(t, "owner")
	return e
}

func (e *env) join(t *testing.T, name string) uint64 {
	id, _, err := e.users.GetOrCreate(common.BytesToAddress([]byte(name)))
	require.NoError(t, err)
	require.NoError(t, e.rewards.Register(id))
	return id
}

func (e *env) fundWith(t *testing.T, name string, typ fund.Type, amount int64) uint64 {
	id := e.join(t, name)
	_, err := e.fund.Create(id, fund.Description{Type: typ}, big.NewInt(amount))
	require.NoError(t, err)
	return id
}

func (e *env) total(t *testing.T, typ fund.Type) string {
	v, err := e.fund.SumByType(typ)
	require.NoError(t, err)
	return v.String()
}

func (e *env) capacity(t *testing.T) string {
	v, err := e.settings.Capacity()
	require.NoError(t, err)
	return v.String()
}

// finish resumes the stored operation until it completes and returns the
// number of invocations it took.
func (e *env) finish(t *testing.T, status Status) int {
	calls := 1
	for status == Interrupted {
		var err error
		status, err = e.engine.ContinueProgress()
		require.NoError(t, err)
		calls++
		require.Less(t, calls, 100, "operation does not converge")
	}
	inProgress, err := e.engine.InProgress()
	require.NoError(t, err)
	assert.False(t, inProgress)
	return calls
}

func TestReduceCapacityDefersActive(t *testing.T) {
	e := newEnv(t, 1500, 1000)
	for _, name := range []string{"x", "y", "z"} {
		e.fundWith(t, name, fund.Active, 500)
	}

	status, err := e.engine.RequestModifyCapacity(big.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, Completed, status)

	assert.Equal(t, "1000", e.total(t, fund.Active))
	assert.Equal(t, "500", e.total(t, fund.DeferredPayment))
	assert.Equal(t, "1000", e.capacity(t))
	assert.NoError(t, e.fund.CheckLists(4))
}

func TestReduceCapacityUnderTightBudget(t *testing.T) {
	e := newEnv(t, 1500, 1000)
	for _, name := range []string{"x", "y", "z"} {
		e.fundWith(t, name, fund.Active, 500)
	}
	require.NoError(t, e.rewards.Distribute(big.NewInt(300)))
	e.yielding = true

	status, err := e.engine.RequestModifyCapacity(big.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, Interrupted, status)

	cp, err := e.engine.Current()
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, StepComputeAllRewards, cp.ModifyCapacity.Step)
	assert.Equal(t, uint64(1), cp.ModifyCapacity.Progress.LastProcessedID, "one participant per invocation")

	calls := e.finish(t, status)
	assert.Greater(t, calls, 4)

	assert.Equal(t, "1000", e.total(t, fund.Active))
	assert.Equal(t, "500", e.total(t, fund.DeferredPayment))
	assert.Equal(t, "1000", e.capacity(t))

	claimable, err := e.rewards.Claimable(4)
	require.NoError(t, err)
	assert.Equal(t, "90", claimable.String(), "settled before its stake was deferred")
}

func TestRequestWhileInterruptedConflicts(t *testing.T) {
	e := newEnv(t, 1500, 1000)
	for _, name := range []string{"x", "y", "z"} {
		e.fundWith(t, name, fund.Active, 500)
	}
	e.yielding = true

	status, err := e.engine.RequestModifyCapacity(big.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, Interrupted, status)
	before, err := e.engine.Current()
	require.NoError(t, err)

	_, err = e.engine.RequestModifyCapacity(big.NewInt(1200))
	assert.True(t, reverts.IsConflictErr(err))
	_, err = e.engine.RequestFeeChange(500)
	assert.True(t, reverts.IsConflictErr(err))

	after, err := e.engine.Current()
	require.NoError(t, err)
	assert.Equal(t, before.String(), after.String())
	assert.Equal(t, before.ModifyCapacity.Progress.LastProcessedID, after.ModifyCapacity.Progress.LastProcessedID)
}

func TestReduceCapacityTakesUnstakedFirst(t *testing.T) {
	e := newEnv(t, 1000, 0)
	e.fundWith(t, "x", fund.Active, 800)
	e.fundWith(t, "y", fund.UnStaked, 200)

	status, err := e.engine.RequestModifyCapacity(big.NewInt(700))
	require.NoError(t, err)
	assert.Equal(t, Completed, status)

	assert.Equal(t, "0", e.total(t, fund.UnStaked))
	assert.Equal(t, "700", e.total(t, fund.Active))
	assert.Equal(t, "300", e.total(t, fund.DeferredPayment))
}

func TestGrowCapacityActivatesQueue(t *testing.T) {
	e := newEnv(t, 1000, 0)
	e.fundWith(t, "x", fund.Active, 1000)
	e.fundWith(t, "y", fund.Waiting, 300)

	status, err := e.engine.RequestModifyCapacity(big.NewInt(1200))
	require.NoError(t, err)
	assert.Equal(t, Completed, status)

	assert.Equal(t, "1200", e.total(t, fund.Active))
	assert.Equal(t, "100", e.total(t, fund.Waiting))
	assert.Equal(t, "1200", e.capacity(t))
}

func TestGrowCapacityRejectedWhileUnstaking(t *testing.T) {
	e := newEnv(t, 1000, 0)
	e.fundWith(t, "x", fund.Active, 900)
	e.fundWith(t, "y", fund.UnStaked, 100)
	e.fundWith(t, "z", fund.Waiting, 300)

	_, err := e.engine.RequestModifyCapacity(big.NewInt(1200))
	assert.True(t, reverts.IsRevertErr(err))

	inProgress, err := e.engine.InProgress()
	require.NoError(t, err)
	assert.False(t, inProgress)
}

func TestUnfilledCapacityChange(t *testing.T) {
	e := newEnv(t, 1000, 0)
	e.fundWith(t, "x", fund.Active, 200)

	status, err := e.engine.RequestModifyCapacity(big.NewInt(500))
	require.NoError(t, err)
	assert.Equal(t, Completed, status)
	assert.Equal(t, "500", e.capacity(t))
	assert.Equal(t, "200", e.total(t, fund.Active))

	status, err = e.engine.RequestModifyCapacity(big.NewInt(500))
	require.NoError(t, err)
	assert.Equal(t, Completed, status, "equal capacity is a no-op")

	_, err = e.engine.RequestModifyCapacity(new(big.Int))
	assert.True(t, reverts.IsRevertErr(err))
}

func TestChangeFee(t *testing.T) {
	e := newEnv(t, 1000, 1000)
	x := e.fundWith(t, "x", fund.Active, 1000)
	require.NoError(t, e.rewards.Distribute(big.NewInt(100)))

	status, err := e.engine.RequestFeeChange(5000)
	require.NoError(t, err)
	assert.Equal(t, Completed, status)

	fee, err := e.settings.ServiceFee()
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), fee)

	rec, err := e.rewards.Record(x)
	require.NoError(t, err)
	assert.Equal(t, "90", rec.Unclaimed.String(), "settled at the old fee")

	require.NoError(t, e.rewards.Distribute(big.NewInt(100)))
	claimable, err := e.rewards.Claimable(x)
	require.NoError(t, err)
	assert.Equal(t, "140", claimable.String())

	_, err = e.engine.RequestFeeChange(settings.Denominator + 1)
	assert.True(t, reverts.IsRevertErr(err))
}

func TestChangeFeeWithoutActiveStake(t *testing.T) {
	e := newEnv(t, 1000, 1000)
	require.NoError(t, e.rewards.Distribute(big.NewInt(100)))
	e.yielding = true

	status, err := e.engine.RequestFeeChange(0)
	require.NoError(t, err)
	assert.Equal(t, Completed, status, "applies at once")

	rec, err := e.rewards.Record(settings.RewardDestinationID)
	require.NoError(t, err)
	assert.Equal(t, "100", rec.Unclaimed.String(), "owner took service share and unfilled bonus")
}

func TestChangeFeeUnderTightBudget(t *testing.T) {
	e := newEnv(t, 1000, 0)
	e.fundWith(t, "x", fund.Active, 600)
	e.fundWith(t, "y", fund.Active, 400)
	e.yielding = true

	status, err := e.engine.RequestFeeChange(2500)
	require.NoError(t, err)
	assert.Equal(t, Interrupted, status)

	fee, err := e.settings.ServiceFee()
	require.NoError(t, err)
	assert.Zero(t, fee, "fee changes only after the sweep")

	e.finish(t, status)
	fee, err = e.settings.ServiceFee()
	require.NoError(t, err)
	assert.Equal(t, uint64(2500), fee)

	status, err = e.engine.ContinueProgress()
	require.NoError(t, err)
	assert.Equal(t, Completed, status, "idle engine")
}

func TestCheckpointValidation(t *testing.T) {
	_, _, err := (&Engine{}).AdvanceStep(&Checkpoint{Kind: KindChangeFee})
	assert.True(t, reverts.IsInvariantErr(err))

	cp := newModifyCapacity(big.NewInt(5))
	assert.NoError(t, cp.validate())
	assert.Equal(t, "modify-capacity(cap=5 step=compute-all-rewards queue=0 unstaked=0 active=0)", cp.String())
	assert.Equal(t, "change-fee(fee=7)", newChangeFee(7).String())
}

func TestCapacityChangeSettlesLateRewards(t *testing.T) {
	e := newEnv(t, 1500, 0)
	y := e.fundWith(t, "y", fund.Active, 1000)
	x := e.fundWith(t, "x", fund.Active, 500)
	e.yielding = true

	status, err := e.engine.RequestModifyCapacity(big.NewInt(1000))
	require.NoError(t, err)
	for {
		cp, err := e.engine.Current()
		require.NoError(t, err)
		require.NotNil(t, cp)
		if cp.ModifyCapacity.Step != StepComputeAllRewards {
			break
		}
		status, err = e.engine.ContinueProgress()
		require.NoError(t, err)
	}

	// rewards arrive after the sweep, before the capacity is applied
	require.NoError(t, e.rewards.Distribute(big.NewInt(300)))
	e.finish(t, status)
	assert.Equal(t, "1000", e.capacity(t))

	claimable, err := e.rewards.Claimable(x)
	require.NoError(t, err)
	assert.Equal(t, "100", claimable.String())
	claimable, err = e.rewards.Claimable(y)
	require.NoError(t, err)
	assert.Equal(t, "200", claimable.String(), "shared against the capacity the rewards arrived under")

	progress, err := e.rewards.ComputeAll(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, progress)
}
