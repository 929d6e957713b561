package store

import "errors"

var (
	// The table would have to grow past its configured maximum size
	ErrResourceExhausted = errors.New("store: resource exhausted")
	// The key is the empty-slot marker and cannot be stored
	ErrInvalidKey = errors.New("store: invalid key")
)
