// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

// Recorder persists the events of committed invocations.
type Recorder interface {
	Record(events []*Event) error
	Close() error
}

type noopRecorder struct{}

// NewNoopRecorder returns a recorder that drops every event.
func NewNoopRecorder() Recorder { return noopRecorder{} }

func (noopRecorder) Record([]*Event) error { return nil }
func (noopRecorder) Close() error          { return nil }

type dbRecorder struct {
	db *LogDB
}

// NewRecorder returns a recorder writing each batch of events in its own
// sql transaction. Closing the recorder closes db.
func NewRecorder(db *LogDB) Recorder {
	return &dbRecorder{db: db}
}

func (r *dbRecorder) Record(events []*Event) error {
	w := r.db.NewWriter()
	if err := w.Write(events); err != nil {
		_ = w.Rollback()
		return err
	}
	return w.Commit()
}

func (r *dbRecorder) Close() error {
	return r.db.Close()
}
