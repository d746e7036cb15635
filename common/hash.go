// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package common

import "golang.org/x/crypto/blake2b"

// Blake2b hashes the concatenation of parts with blake2b-256. Mapping
// slots are derived this way from a key and the mapping's base slot.
func Blake2b(parts ...[]byte) (h Bytes32) {
	d, _ := blake2b.New256(nil)
	for _, p := range parts {
		d.Write(p)
	}
	d.Sum(h[:0])
	return h
}
