// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

// create a table for ledger events
const eventTableSchema = `
create table if not exists event (
	seq integer not null,
	eventIndex integer not null,
	time integer not null,
	kind text not null,
	owner blob(20),
	amount text not null,
	detail text not null,
	primary key (seq, eventIndex)
);

CREATE INDEX if not exists kindIndex on event(kind);
CREATE INDEX if not exists ownerIndex on event(owner);
`
