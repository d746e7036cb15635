// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fund

// Every bucket is linked into two doubly linked lists: the list of all
// buckets of its type, and the list of its owner's buckets of that type.
// Both are ordered by insertion, so the head is the oldest bucket.
// Neighbours are always re-read from storage, since the two lists share
// buckets and a neighbour may have been rewritten by the other list.

type chain uint8

const (
	typeChain chain = iota
	userChain
)

func (b *body) links(c chain) (prev, next uint64) {
	if c == typeChain {
		return b.TypePrev, b.TypeNext
	}
	return b.UserPrev, b.UserNext
}

func (b *body) setPrev(c chain, id uint64) {
	if c == typeChain {
		b.TypePrev = id
	} else {
		b.UserPrev = id
	}
}

func (b *body) setNext(c chain, id uint64) {
	if c == typeChain {
		b.TypeNext = id
	} else {
		b.UserNext = id
	}
}

// step returns the id following b in dir along c.
func (b *body) step(c chain, dir Direction) uint64 {
	prev, next := b.links(c)
	if dir == Backwards {
		return prev
	}
	return next
}

// start returns the id a walk in dir begins at.
func (h *ListHeader) start(dir Direction) uint64 {
	if dir == Backwards {
		return h.Last
	}
	return h.First
}

// appendTo links b as the tail of h along c. The tail bucket is rewritten,
// b and h are left for the caller to store.
func (s *Storage) appendTo(h *ListHeader, c chain, id uint64, b *body) error {
	b.setNext(c, 0)
	if h.Last == 0 {
		b.setPrev(c, 0)
		h.First = id
	} else {
		tail, err := s.mustGetBucket(h.Last)
		if err != nil {
			return err
		}
		tail.setNext(c, id)
		if err := s.updateBucket(h.Last, tail); err != nil {
			return err
		}
		b.setPrev(c, h.Last)
	}
	h.Last = id
	h.Count++
	h.Total.Add(h.Total, b.Balance)
	return nil
}

// unlink removes b from h along c, rewriting its neighbours.
func (s *Storage) unlink(h *ListHeader, c chain, b *body) error {
	prev, next := b.links(c)
	if prev == 0 {
		h.First = next
	} else {
		p, err := s.mustGetBucket(prev)
		if err != nil {
			return err
		}
		p.setNext(c, next)
		if err := s.updateBucket(prev, p); err != nil {
			return err
		}
	}
	if next == 0 {
		h.Last = prev
	} else {
		n, err := s.mustGetBucket(next)
		if err != nil {
			return err
		}
		n.setPrev(c, prev)
		if err := s.updateBucket(next, n); err != nil {
			return err
		}
	}
	b.setPrev(c, 0)
	b.setNext(c, 0)
	h.Count--
	h.Total.Sub(h.Total, b.Balance)
	return nil
}
