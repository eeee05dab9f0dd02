// Package kvstore provides string key/value stores shaped like browser
// localStorage: flat keys, string values, enumeration by key.
package kvstore

import "errors"

// ErrClosed is returned by operations on a store after Close.
var ErrClosed = errors.New("kvstore: store closed")

// Store is a goroutine-safe string key/value store. Individual calls are
// atomic; there are no multi-key transactions.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
	Keys() ([]string, error)
}
