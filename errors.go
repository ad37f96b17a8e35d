package itemcast

import "errors"

var (
	// Partition errors.
	ErrEmptyPartition     = errors.New("itemcast: empty partition")
	ErrMalformedPartition = errors.New("itemcast: malformed partition")
	ErrInvalidRecord      = errors.New("itemcast: invalid record")

	// Model errors.
	ErrModelFit       = errors.New("itemcast: model fit failed")
	ErrUnknownFamily  = errors.New("itemcast: unknown model family")
	ErrNotEnoughData  = errors.New("itemcast: not enough data for model")
	ErrInvalidSetting = errors.New("itemcast: invalid setting")

	// Backend errors.
	ErrNoStore       = errors.New("itemcast: no store configured")
	ErrStoreClosed   = errors.New("itemcast: store closed")
	ErrNotOpen       = errors.New("itemcast: engine not open")
	ErrNoHandler     = errors.New("itemcast: no handler registered")
	ErrTaskFailed    = errors.New("itemcast: task failed")
	ErrTaskCancelled = errors.New("itemcast: task cancelled")

	// Not found errors.
	ErrTaskNotFound = errors.New("itemcast: task not found")
	ErrDLQNotFound  = errors.New("itemcast: dlq entry not found")

	// Conflict errors.
	ErrTaskAlreadyExists = errors.New("itemcast: task already exists")

	// State errors.
	ErrInvalidState = errors.New("itemcast: invalid state transition")
)
