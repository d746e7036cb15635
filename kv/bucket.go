// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

// Bucket is a key prefix. Stores built from the same backend with
// different buckets never see each other's keys.
type Bucket string

func (b Bucket) key(k []byte) []byte {
	prefixed := make([]byte, len(b)+len(k))
	copy(prefixed, b)
	copy(prefixed[len(b):], k)
	return prefixed
}

// NewStore returns src restricted to the keys under b.
func (b Bucket) NewStore(src Store) Store {
	return &bucketStore{bucket: b, src: src}
}

type bucketStore struct {
	bucket Bucket
	src    Store
}

func (s *bucketStore) Get(key []byte) ([]byte, error) { return s.src.Get(s.bucket.key(key)) }
func (s *bucketStore) IsNotFound(err error) bool      { return s.src.IsNotFound(err) }
func (s *bucketStore) Put(key, val []byte) error      { return s.src.Put(s.bucket.key(key), val) }
func (s *bucketStore) Delete(key []byte) error        { return s.src.Delete(s.bucket.key(key)) }

func (s *bucketStore) Bulk() Bulk {
	return &bucketBulk{bucket: s.bucket, Bulk: s.src.Bulk()}
}

// bucketBulk prefixes writes and leaves Len and Write to the inner bulk.
type bucketBulk struct {
	Bulk
	bucket Bucket
}

func (b *bucketBulk) Put(key, val []byte) error { return b.Bulk.Put(b.bucket.key(key), val) }
func (b *bucketBulk) Delete(key []byte) error   { return b.Bulk.Delete(b.bucket.key(key)) }
