// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multiversx/mx-delegation-sc-sub000/common"
)

var (
	alice = common.BytesToAddress([]byte("alice"))
	bob   = common.BytesToAddress([]byte("bob"))
)

func strPtr(s string) *string { return &s }

func newEvent(seq uint64, index uint32, kind string, owner *common.Address, amount int64) *Event {
	return &Event{
		Seq:    seq,
		Index:  index,
		Time:   1000 + seq,
		Kind:   kind,
		Owner:  owner,
		Amount: big.NewInt(amount),
		Detail: "",
	}
}

func seedEvents(t *testing.T, db *LogDB) []*Event {
	events := []*Event{
		newEvent(1, 0, "deposit", &alice, 1000),
		newEvent(1, 1, "deposit", &bob, 500),
		newEvent(2, 0, "activate", nil, 1500),
		newEvent(3, 0, "rewards", nil, 150),
		newEvent(4, 0, "claim", &alice, 90),
	}
	require.NoError(t, NewRecorder(db).Record(events))
	return events
}

func TestFilterEvents(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	all := seedEvents(t, db)
	ctx := context.Background()

	got, err := db.FilterEvents(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, all, got)

	got, err = db.FilterEvents(ctx, &EventFilter{
		CriteriaSet: []*EventCriteria{{Owner: &alice}},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "deposit", got[0].Kind)
	assert.Equal(t, "claim", got[1].Kind)

	got, err = db.FilterEvents(ctx, &EventFilter{
		CriteriaSet: []*EventCriteria{{Kind: strPtr("deposit"), Owner: &bob}, {Kind: strPtr("rewards")}},
		Order:       DESC,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "rewards", got[0].Kind)
	assert.Equal(t, &bob, got[1].Owner)

	got, err = db.FilterEvents(ctx, &EventFilter{
		Range:   &Range{From: 2, To: 4},
		Options: &Options{Offset: 1, Limit: 1},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(3), got[0].Seq)
	assert.Nil(t, got[0].Owner)
	assert.Equal(t, big.NewInt(150), got[0].Amount)

	seq, err := db.NewestSeq()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), seq)
}

func TestWriterRollback(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	defer db.Close()

	seq, err := db.NewestSeq()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), seq)

	w := db.NewWriter()
	require.NoError(t, w.Write([]*Event{newEvent(9, 0, "withdraw", &bob, 10)}))
	assert.Equal(t, 1, w.UncommittedCount())
	require.NoError(t, w.Rollback())
	assert.Equal(t, 0, w.UncommittedCount())

	got, err := db.FilterEvents(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	// duplicated (seq, index) is rejected and nothing of the batch is kept
	rec := NewRecorder(db)
	assert.Error(t, rec.Record([]*Event{
		newEvent(1, 0, "deposit", &alice, 1),
		newEvent(1, 0, "deposit", &alice, 2),
	}))
	got, err = db.FilterEvents(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.NotEmpty(t, db.DriverVersion())
	assert.Contains(t, db.Path(), "events.db")
}

func TestNoopRecorder(t *testing.T) {
	rec := NewNoopRecorder()
	assert.NoError(t, rec.Record([]*Event{newEvent(1, 0, "deposit", &alice, 1)}))
	assert.NoError(t, rec.Close())
}
