// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func Test_Reverts(t *testing.T) {
	revert := New("test")
	assert.Equal(t, "test", revert.message)
	assert.Equal(t, revert.Error(), revert.message)

	assert.True(t, IsRevertErr(revert))
	assert.True(t, IsRevertErr(errors.Wrap(revert, "wrapped")))
	assert.False(t, IsRevertErr(nil))
	assert.False(t, IsRevertErr(fmt.Errorf("test")))
	assert.False(t, IsRevertErr(big.NewInt(0)))
	assert.False(t, IsRevertErr(NewConflict("busy")))

	assert.Equal(t, "amount 5 too low", Errorf("amount %d too low", 5).Error())
}

func Test_Conflict(t *testing.T) {
	conflict := NewConflict("operation in progress")
	assert.True(t, IsConflictErr(conflict))
	assert.False(t, IsConflictErr(New("x")))
	assert.False(t, IsRevertErr(conflict))
}

func Test_Invariant(t *testing.T) {
	inv := NewInvariant("capacity %d != %d", 1, 2)
	assert.Equal(t, "invariant violation: capacity 1 != 2", inv.Error())
	assert.True(t, IsInvariantErr(errors.WithMessage(inv, "ctx")))
	assert.False(t, IsInvariantErr(New("x")))
	assert.False(t, IsInvariantErr("not an error"))
}
