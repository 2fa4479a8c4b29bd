package types

import (
	"errors"
	"fmt"
)

// Column value errors.
var (
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrInvalidColumnData = errors.New("invalid column data")
	ErrColumnParse       = errors.New("unparsable column value")
)

// Record errors.
var (
	ErrSchemaMismatch   = errors.New("declared column not found in item data")
	ErrIncompleteRecord = errors.New("incomplete record")
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrNotSearchable    = errors.New("column kind is not searchable")
	ErrItemNotFound     = errors.New("item not found upstream")
)

// Cache and upstream errors.
var (
	ErrCacheMiss = errors.New("cache miss")
	ErrUpstream  = errors.New("upstream API error")
)

// UpstreamError wraps a failure of the board API with the record context the
// operator needs to act on it.
type UpstreamError struct {
	RecordType string
	ID         string
	Op         string
	Err        error
}

func (e *UpstreamError) Error() string {
	id := e.ID
	if id == "" {
		id = "<new>"
	}
	return fmt.Sprintf("%s %s(%s): %v", e.Op, e.RecordType, id, e.Err)
}

// Unwrap returns the original cause.
func (e *UpstreamError) Unwrap() error { return e.Err }

// Is makes every UpstreamError match ErrUpstream.
func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// CacheMissError reports the key that had no entry in the cache store.
type CacheMissError struct {
	Key string
}

func (e *CacheMissError) Error() string { return fmt.Sprintf("cache miss: %s", e.Key) }

// Is makes every CacheMissError match ErrCacheMiss.
func (e *CacheMissError) Is(target error) bool { return target == ErrCacheMiss }
