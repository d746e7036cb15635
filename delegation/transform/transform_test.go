// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package transform

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multiversx/mx-delegation-sc-sub000/delegation/fund"
	"github.com/multiversx/mx-delegation-sc-sub000/lvldb"
	"github.com/multiversx/mx-delegation-sc-sub000/state"
	"github.com/multiversx/mx-delegation-sc-sub000/storage"
)

type fixedClock struct{ now uint64 }

func (c *fixedClock) Now() uint64 { return c.now }

func newServices(t *testing.T) (*Service, *fund.Service, *fixedClock) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	stater, err := state.NewStater(db, 16)
	require.NoError(t, err)

	fs := fund.New(storage.NewContext(stater.NewState(), nil))
	clock := &fixedClock{now: 100}
	return New(fs, clock), fs, clock
}

func sum(t *testing.T, fs *fund.Service, owner uint64, typ fund.Type) string {
	t.Helper()
	v, err := fs.SumByUserType(owner, typ)
	require.NoError(t, err)
	return v.String()
}

func TestQueueAndActivate(t *testing.T) {
	svc, fs, clock := newServices(t)

	_, err := svc.CreateWaiting(1, big.NewInt(1000))
	require.NoError(t, err)
	clock.now = 101
	_, err = svc.CreateWaiting(2, big.NewInt(500))
	require.NoError(t, err)

	res, err := svc.WaitingToActive(big.NewInt(1500), nil, false)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, res.Touched)
	assert.Equal(t, "1500", res.Converted.String())

	total, err := fs.SumByType(fund.Active)
	require.NoError(t, err)
	assert.Equal(t, "1500", total.String())
	total, err = fs.SumByType(fund.Waiting)
	require.NoError(t, err)
	assert.Equal(t, "0", total.String())
}

func TestUserWaitingToWithdrawOnlyTakesNewestFirst(t *testing.T) {
	svc, fs, clock := newServices(t)

	_, err := svc.CreateWaiting(1, big.NewInt(10))
	require.NoError(t, err)
	clock.now = 200
	_, err = svc.CreateWaiting(1, big.NewInt(20))
	require.NoError(t, err)

	_, err = svc.UserWaitingToWithdrawOnly(1, big.NewInt(25))
	require.NoError(t, err)

	var left []fund.Description
	require.NoError(t, fs.IterateUserType(1, fund.Waiting, fund.Forwards, func(b *fund.Bucket) (bool, error) {
		left = append(left, b.Description())
		return true, nil
	}))
	assert.Equal(t, []fund.Description{fund.NewWaiting(100)}, left)
	assert.Equal(t, "5", sum(t, fs, 1, fund.Waiting))
	assert.Equal(t, "25", sum(t, fs, 1, fund.WithdrawOnly))

	n, err := fs.CountByUserType(1, fund.WithdrawOnly)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n, "withdraw-only coalesces")
}

func TestUnstakeAndDefer(t *testing.T) {
	svc, fs, clock := newServices(t)

	_, err := svc.CreateWaiting(1, big.NewInt(100))
	require.NoError(t, err)
	_, err = svc.WaitingToActive(nil, nil, false)
	require.NoError(t, err)

	clock.now = 150
	_, err = svc.UserActiveToUnstaked(1, big.NewInt(40))
	require.NoError(t, err)
	assert.Equal(t, "60", sum(t, fs, 1, fund.Active))

	clock.now = 170
	res, err := svc.UnstakedToDeferredPayment(big.NewInt(40), nil, false)
	require.NoError(t, err)
	assert.Equal(t, "0", res.Remaining.String())

	var created []uint64
	require.NoError(t, fs.IterateUserType(1, fund.DeferredPayment, fund.Forwards, func(b *fund.Bucket) (bool, error) {
		created = append(created, b.Description().Created)
		return true, nil
	}))
	assert.Equal(t, []uint64{150}, created, "payment keeps the unstake time")

	res, err = svc.ActiveToDeferredPayment(big.NewInt(10), nil, false)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, res.Touched)
	assert.Equal(t, "50", sum(t, fs, 1, fund.Active))
	assert.Equal(t, "50", sum(t, fs, 1, fund.DeferredPayment))
}

func TestEligibleDeferredToWithdrawOnly(t *testing.T) {
	svc, fs, clock := newServices(t)

	_, err := fs.Create(1, fund.NewDeferredPayment(10), big.NewInt(1))
	require.NoError(t, err)
	_, err = fs.Create(1, fund.NewDeferredPayment(50), big.NewInt(2))
	require.NoError(t, err)
	_, err = fs.Create(1, fund.NewDeferredPayment(90), big.NewInt(4))
	require.NoError(t, err)

	clock.now = 100
	res, err := svc.EligibleDeferredToWithdrawOnly(1, 50)
	require.NoError(t, err)
	assert.Equal(t, "3", res.Converted.String(), "created+age <= now")
	assert.Equal(t, "4", sum(t, fs, 1, fund.DeferredPayment))

	res, err = svc.EligibleDeferredToWithdrawOnly(1, 1000)
	require.NoError(t, err)
	assert.Equal(t, "0", res.Converted.String(), "age beyond now matures nothing")

	paid, err := svc.LiquidateAllWithdrawOnly(1)
	require.NoError(t, err)
	assert.Equal(t, "3", paid.String())
	assert.Equal(t, "0", sum(t, fs, 1, fund.WithdrawOnly))

	assert.NoError(t, fs.CheckLists(1))
}
