package service

import (
	"errors"
	"fmt"

	"github.com/Natural-Intelligence/be-revisable/internal/model"
	"github.com/Natural-Intelligence/be-revisable/internal/store"
)

// IllegalStateError is returned when an operation is invoked on a revision
// that is not in the required status. Nothing has been mutated; the caller
// may retry with a valid operation.
type IllegalStateError struct {
	Op         string
	RevisionID string
	Status     model.Status
}

func (e *IllegalStateError) Error() string {
	return fmt.Sprintf("%s is not allowed for revision %s in status %s", e.Op, e.RevisionID, e.Status)
}

// InvariantError is returned when a mutation would violate a revision-set
// invariant, e.g. a second PRIMARY_DRAFT or LATEST_RELEASE, or an expiry
// before the release time. The surrounding transaction has been aborted.
type InvariantError struct {
	RevisionSetID string
	Err           error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("revision set %s: %v", e.RevisionSetID, e.Err)
}

func (e *InvariantError) Unwrap() error {
	return e.Err
}

// MissingPrerequisiteError is returned when an operation needs state that
// does not exist, e.g. materializing a primary draft in an empty set or
// operating on an unregistered entity type.
type MissingPrerequisiteError struct {
	RevisionSetID string
	Reason        string
}

func (e *MissingPrerequisiteError) Error() string {
	if e.RevisionSetID == "" {
		return e.Reason
	}
	return fmt.Sprintf("revision set %s: %s", e.RevisionSetID, e.Reason)
}

// NotificationError reports a post-commit delivery failure. The timeline
// mutation has committed and stands; only the change event was lost.
type NotificationError struct {
	RevisionSetID string
	Err           error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("change to revision set %s committed but notification delivery failed: %v", e.RevisionSetID, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

// wrapInvariant converts the store's uniqueness guard failure and model
// validation failures into typed invariant violations; other errors pass
// through untouched.
func wrapInvariant(setID string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrStatusTaken) || errors.Is(err, model.ErrInvariant) {
		return &InvariantError{RevisionSetID: setID, Err: err}
	}
	return err
}
