package store

import (
	"bytes"

	"github.com/cespare/xxhash/v2"
)

// Hasher supplies the key operations the table needs.
//
// Valid reports whether a key may be stored. The zero value of K must not be
// valid since it marks empty slots.
type Hasher[K any] interface {
	Hash(key K) uint64
	Equal(a, b K) bool
	Valid(key K) bool
}

// BytesHasher hashes byte blobs with xxhash. A nil blob is invalid.
type BytesHasher[K ~[]byte] struct{}

func (BytesHasher[K]) Hash(key K) uint64 { return xxhash.Sum64([]byte(key)) }

func (BytesHasher[K]) Equal(a, b K) bool { return bytes.Equal([]byte(a), []byte(b)) }

func (BytesHasher[K]) Valid(key K) bool { return key != nil }
