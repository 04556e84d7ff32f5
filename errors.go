package submitq

import "errors"

// Package errors for submitq.
var (
	// ErrStopped is returned when operations are called on a closed queue.
	ErrStopped = errors.New("submitq: queue stopped")

	// ErrNilDevice is returned when constructing a queue without a device.
	ErrNilDevice = errors.New("submitq: device is nil")

	// ErrNilCommandList is returned when submitting without a command list.
	ErrNilCommandList = errors.New("submitq: command list is nil")

	// ErrNilPresenter is returned when presenting without a presenter.
	ErrNilPresenter = errors.New("submitq: presenter is nil")

	// ErrNilStatus is returned when a status reference is required but nil.
	ErrNilStatus = errors.New("submitq: status is nil")
)
