package store

import (
	"context"
	"time"

	"github.com/Natural-Intelligence/be-revisable/internal/model"
)

type Store interface {
	RevisionSetStore
	RevisionInfoStore
	RevisionChangeStore
	Transaction(ctx context.Context, f func(tx Store) error) error
	Migrate() error
}

type RevisionSetStore interface {
	// CreateRevisionSet creates a new revision set.
	CreateRevisionSet(ctx context.Context, set *model.RevisionSet) error
	// GetRevisionSet retrieves a revision set by ID.
	GetRevisionSet(ctx context.Context, id string) (*model.RevisionSet, error)
	// DeleteRevisionSet deletes a revision set and its revision infos.
	DeleteRevisionSet(ctx context.Context, id string) error
}

type RevisionInfoStore interface {
	// CreateRevisionInfo creates a new revision info after validating it.
	CreateRevisionInfo(ctx context.Context, info *model.RevisionInfo) error
	// SaveRevisionInfo persists changes to an existing revision info.
	SaveRevisionInfo(ctx context.Context, info *model.RevisionInfo) error
	// GetRevisionInfo retrieves a revision info by ID.
	GetRevisionInfo(ctx context.Context, id string) (*model.RevisionInfo, error)
	// GetRevisionInfoByPayload retrieves the revision info referencing a payload entity.
	GetRevisionInfoByPayload(ctx context.Context, revisionType, revisionID string) (*model.RevisionInfo, error)
	// ListRevisionsByStatus retrieves a set's revision infos holding any of the given statuses.
	ListRevisionsByStatus(ctx context.Context, setID string, statuses ...model.Status) ([]*model.RevisionInfo, error)
	// RevisionsBetween retrieves the released revisions whose validity intersects the interval,
	// ordered by released_at ascending (ties broken by ID).
	RevisionsBetween(ctx context.Context, setID string, interval model.Interval) ([]*model.RevisionInfo, error)
	// DeleteRevisionInfo deletes a revision info by ID.
	DeleteRevisionInfo(ctx context.Context, id string) error
	// EraseDiscardedBefore permanently removes discarded revision infos older than the cutoff.
	EraseDiscardedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// AddDeprecations records deprecation edges from each deprecator to the deprecated revision.
	AddDeprecations(ctx context.Context, deprecatedID string, deprecatorIDs []string) error
	// ListDeprecatorOf retrieves the revisions the given one deprecates, in edge insertion order.
	ListDeprecatorOf(ctx context.Context, id string) ([]*model.RevisionInfo, error)
	// ListDeprecatedBy retrieves the revisions that deprecate the given one, in edge insertion order.
	ListDeprecatedBy(ctx context.Context, id string) ([]*model.RevisionInfo, error)
}

type RevisionChangeStore interface {
	// CreateRevisionChange appends an audit entry to a revision's change log.
	CreateRevisionChange(ctx context.Context, change *model.RevisionChange) error
	// ListRevisionChanges retrieves a revision's audit entries, newest first.
	ListRevisionChanges(ctx context.Context, revisionInfoID string) ([]*model.RevisionChange, error)
	// DeleteRevisionChangesBefore removes audit entries older than the cutoff.
	DeleteRevisionChangesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
