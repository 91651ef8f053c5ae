package storage

import (
	"context"
	"iter"
	"time"
)

// Key prefixes of the persisted layout.
const (
	PrefixCertificates = "certificates/"
	PrefixKeys         = "keys/"
	PrefixConfigs      = "configs/"
	AccountKey         = "account.json"
)

// Object describes a stored key.
type Object struct {
	Key          string
	LastModified time.Time
}

// Backend is a byte-oriented key/value object store.
type Backend interface {
	// Get returns the stored bytes or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes data, overwriting any existing value.
	Put(ctx context.Context, key string, data []byte) error
	// Delete removes key. Removing a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List lazily enumerates objects whose key starts with prefix,
	// following pagination as the sequence is consumed.
	List(ctx context.Context, prefix string) iter.Seq2[Object, error]
}
