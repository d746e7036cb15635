// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multiversx/mx-delegation-sc-sub000/common"
	"github.com/multiversx/mx-delegation-sc-sub000/lvldb"
	"github.com/multiversx/mx-delegation-sc-sub000/state"
	"github.com/multiversx/mx-delegation-sc-sub000/storage"
)

func newService(t *testing.T) *Service {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	stater, err := state.NewStater(db, 16)
	require.NoError(t, err)
	return New(storage.NewContext(stater.NewState(), nil))
}

func TestGetOrCreate(t *testing.T) {
	svc := newService(t)
	owner := common.BytesToAddress([]byte("owner"))
	alice := common.BytesToAddress([]byte("alice"))

	id, created, err := svc.GetOrCreate(owner)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, uint64(1), id)

	id, created, err = svc.GetOrCreate(alice)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, uint64(2), id)

	id, created, err = svc.GetOrCreate(owner)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, uint64(1), id)

	count, err := svc.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	addr, err := svc.Address(2)
	require.NoError(t, err)
	assert.Equal(t, alice, addr)

	id, err = svc.ID(common.BytesToAddress([]byte("nobody")))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)

	_, _, err = svc.GetOrCreate(common.Address{})
	assert.Error(t, err)
}
