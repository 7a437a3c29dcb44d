package store

import "errors"

var (
	// ErrRevisionSetNotFound is returned when a revision set does not exist.
	ErrRevisionSetNotFound = errors.New("revision set not found")
	// ErrRevisionInfoNotFound is returned when a revision info does not exist.
	ErrRevisionInfoNotFound = errors.New("revision info not found")
	// ErrStatusTaken is returned when a save would create a second PRIMARY_DRAFT
	// or LATEST_RELEASE in the same revision set.
	ErrStatusTaken = errors.New("status is only allowed once per revision set")
)
