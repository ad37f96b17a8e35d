// Package id defines TypeID-based identity types for itemcast entities.
//
// Tasks, dead-letter entries, workers and harness batches share a single
// ID struct whose prefix names the entity type. IDs are K-sortable
// (UUIDv7-based), globally unique, and URL-safe in the format
// "prefix_suffix".
package id

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for all itemcast entity types.
const (
	PrefixTask   Prefix = "task"
	PrefixDLQ    Prefix = "dlq"
	PrefixWorker Prefix = "wkr"
	PrefixBatch  Prefix = "batch"
)

// ID wraps a TypeID. The zero value is Nil.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receiver for UnmarshalText.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new globally unique ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}
	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string such as "task_01h2xcejqtf2nbrexx3vqjhp41".
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses s and checks that its prefix is expected.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}
	return parsed, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded values.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}
	return parsed
}

// TaskID identifies a dispatched task (prefix: "task").
type TaskID = ID

// DLQID identifies a dead-letter entry (prefix: "dlq").
type DLQID = ID

// WorkerID identifies a worker pool (prefix: "wkr").
type WorkerID = ID

// BatchID identifies one harness run (prefix: "batch").
type BatchID = ID

// NewTaskID generates a new unique task ID.
func NewTaskID() ID { return New(PrefixTask) }

// NewDLQID generates a new unique dead-letter entry ID.
func NewDLQID() ID { return New(PrefixDLQ) }

// NewWorkerID generates a new unique worker ID.
func NewWorkerID() ID { return New(PrefixWorker) }

// NewBatchID generates a new unique batch ID.
func NewBatchID() ID { return New(PrefixBatch) }

// ParseTaskID parses a string and validates the "task" prefix.
func ParseTaskID(s string) (ID, error) { return ParseWithPrefix(s, PrefixTask) }

// ParseDLQID parses a string and validates the "dlq" prefix.
func ParseDLQID(s string) (ID, error) { return ParseWithPrefix(s, PrefixDLQ) }

// ParseWorkerID parses a string and validates the "wkr" prefix.
func ParseWorkerID(s string) (ID, error) { return ParseWithPrefix(s, PrefixWorker) }

// ParseBatchID parses a string and validates the "batch" prefix.
func ParseBatchID(s string) (ID, error) { return ParseWithPrefix(s, PrefixBatch) }

// String returns "prefix_suffix", or "" for Nil.
func (i ID) String() string {
	if !i.valid {
		return ""
	}
	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}
	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool { return !i.valid }

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}
	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
