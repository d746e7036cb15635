// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"context"
	"database/sql"
	"math/big"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/multiversx/mx-delegation-sc-sub000/common"
)

type LogDB struct {
	path          string
	db            *sql.DB
	driverVersion string
}

// New create or open log db at given path.
func New(path string) (logDB *LogDB, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open event db")
	}
	defer func() {
		if logDB == nil {
			db.Close()
		}
	}()
	// a memory db lives as long as its only connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(eventTableSchema); err != nil {
		return nil, errors.Wrap(err, "create event schema")
	}

	driverVer, _, _ := sqlite3.Version()
	return &LogDB{
		path,
		db,
		driverVer,
	}, nil
}

// NewMem create a log db in ram.
func NewMem() (*LogDB, error) {
	return New(":memory:")
}

// Close close the log db.
func (db *LogDB) Close() error {
	return db.db.Close()
}

func (db *LogDB) Path() string {
	return db.path
}

// DriverVersion returns the version of the linked sqlite library.
func (db *LogDB) DriverVersion() string {
	return db.driverVersion
}

// NewestSeq returns the highest invocation sequence written, 0 if none.
func (db *LogDB) NewestSeq() (uint64, error) {
	var seq sql.NullInt64
	if err := db.db.QueryRow("SELECT MAX(seq) FROM event").Scan(&seq); err != nil {
		return 0, errors.Wrap(err, "query newest seq")
	}
	if !seq.Valid {
		return 0, nil
	}
	return uint64(seq.Int64), nil
}

func (db *LogDB) FilterEvents(ctx context.Context, filter *EventFilter) ([]*Event, error) {
	const query = "SELECT seq, eventIndex, time, kind, owner, amount, detail FROM event"
	if filter == nil {
		return db.queryEvents(ctx, query+" ORDER BY seq ASC, eventIndex ASC")
	}
	metricsHandleEventsFilter(filter)

	var args []any
	stmt := query + " WHERE 1"
	if filter.Range != nil {
		args = append(args, filter.Range.From)
		stmt += " AND seq >= ? "
		if filter.Range.To >= filter.Range.From {
			args = append(args, filter.Range.To)
			stmt += " AND seq <= ? "
		}
	}
	for i, criteria := range filter.CriteriaSet {
		if i == 0 {
			stmt += " AND (( 1"
		} else {
			stmt += " OR ( 1"
		}
		if criteria.Kind != nil {
			args = append(args, *criteria.Kind)
			stmt += " AND kind = ? "
		}
		if criteria.Owner != nil {
			args = append(args, criteria.Owner.Bytes())
			stmt += " AND owner = ? "
		}
		stmt += ")"
	}
	if len(filter.CriteriaSet) > 0 {
		stmt += ")"
	}

	if filter.Order == DESC {
		stmt += " ORDER BY seq DESC, eventIndex DESC "
	} else {
		stmt += " ORDER BY seq ASC, eventIndex ASC "
	}

	if filter.Options != nil {
		stmt += " LIMIT ?, ? "
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return db.queryEvents(ctx, stmt, args...)
}

func (db *LogDB) queryEvents(ctx context.Context, stmt string, args ...any) ([]*Event, error) {
	rows, err := db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query events")
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var (
			seq    uint64
			index  uint32
			time   uint64
			kind   string
			owner  []byte
			amount string
			detail string
		)
		if err := rows.Scan(&seq, &index, &time, &kind, &owner, &amount, &detail); err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		value, ok := new(big.Int).SetString(amount, 10)
		if !ok {
			return nil, errors.Errorf("malformed amount %q", amount)
		}
		event := &Event{
			Seq:    seq,
			Index:  index,
			Time:   time,
			Kind:   kind,
			Amount: value,
			Detail: detail,
		}
		if len(owner) > 0 {
			addr := common.BytesToAddress(owner)
			event.Owner = &addr
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate events")
	}
	return events, nil
}

// NewWriter creates a writer that buffers events in one sql transaction.
func (db *LogDB) NewWriter() *Writer {
	return &Writer{db: db.db}
}

// Writer writes events of committed invocations.
type Writer struct {
	db  *sql.DB
	tx  *sql.Tx
	len int
}

// Write appends events.
func (w *Writer) Write(events []*Event) error {
	if len(events) == 0 {
		return nil
	}
	if w.tx == nil {
		tx, err := w.db.Begin()
		if err != nil {
			return errors.Wrap(err, "begin event tx")
		}
		w.tx = tx
	}
	for _, ev := range events {
		var owner []byte
		if ev.Owner != nil {
			owner = ev.Owner.Bytes()
		}
		amount := "0"
		if ev.Amount != nil {
			amount = ev.Amount.String()
		}
		if _, err := w.tx.Exec(
			"INSERT INTO event(seq, eventIndex, time, kind, owner, amount, detail) VALUES(?,?,?,?,?,?,?)",
			ev.Seq, ev.Index, ev.Time, ev.Kind, owner, amount, ev.Detail,
		); err != nil {
			return errors.Wrap(err, "insert event")
		}
		w.len++
	}
	return nil
}

// Commit commits accumulated events.
func (w *Writer) Commit() error {
	if w.tx == nil {
		return nil
	}
	defer func() { w.tx, w.len = nil, 0 }()
	n := w.len
	if err := w.tx.Commit(); err != nil {
		return errors.Wrap(err, "commit events")
	}
	metricEventsWritten().Add(int64(n))
	return nil
}

// Rollback rollbacks all uncommitted events.
func (w *Writer) Rollback() error {
	if w.tx == nil {
		return nil
	}
	defer func() { w.tx, w.len = nil, 0 }()
	return w.tx.Rollback()
}

// UncommittedCount returns the count of uncommitted events.
func (w *Writer) UncommittedCount() int {
	return w.len
}
