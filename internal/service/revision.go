package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Natural-Intelligence/be-revisable/internal/model"
	"github.com/Natural-Intelligence/be-revisable/internal/registry"
	"github.com/Natural-Intelligence/be-revisable/internal/store"
)

// NewRevisionService creates a new RevisionService.
func NewRevisionService(store store.Store, registry *registry.Registry) *RevisionService {
	return &RevisionService{
		store:    store,
		registry: registry,
	}
}

// RevisionService implements the per-revision lifecycle and the revision-set
// queries. Multi-step operations run inside a single store transaction so a
// failure leaves no partial effect.
type RevisionService struct {
	store    store.Store
	registry *registry.Registry
}

// AttachRevision wires a payload entity into the revision machinery: the
// first call creates the revision set and a PRIMARY_DRAFT revision info for
// the payload, later calls return the existing info. Sets are never built as
// a side effect of a read anywhere else.
func (s *RevisionService) AttachRevision(ctx context.Context, entityType, payloadID string) (*model.RevisionInfo, error) {
	if _, err := s.registry.Lookup(entityType); err != nil {
		return nil, &MissingPrerequisiteError{Reason: err.Error()}
	}

	existing, err := s.store.GetRevisionInfoByPayload(ctx, entityType, payloadID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrRevisionInfoNotFound) {
		return nil, err
	}

	set := &model.RevisionSet{ID: uuid.New().String(), EntityType: entityType}
	info := model.NewRevisionInfo(uuid.New().String(), set.ID, entityType, payloadID)

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.CreateRevisionSet(ctx, set); err != nil {
			return err
		}
		return tx.CreateRevisionInfo(ctx, info)
	})
	if err != nil {
		return nil, wrapInvariant(set.ID, err)
	}

	return info, nil
}

// GetRevision retrieves a revision info by ID.
func (s *RevisionService) GetRevision(ctx context.Context, id string) (*model.RevisionInfo, error) {
	return s.store.GetRevisionInfo(ctx, id)
}

// PrimaryDraft returns the set's edit target, materializing one from the
// latest release when no draft exists.
func (s *RevisionService) PrimaryDraft(ctx context.Context, setID string) (*model.RevisionInfo, error) {
	drafts, err := s.store.ListRevisionsByStatus(ctx, setID, model.StatusPrimaryDraft)
	if err != nil {
		return nil, err
	}
	if len(drafts) > 0 {
		return drafts[0], nil
	}

	release, err := s.LatestRelease(ctx, setID)
	if err != nil {
		return nil, err
	}
	if release == nil {
		return nil, &MissingPrerequisiteError{
			RevisionSetID: setID,
			Reason:        "no primary draft or latest release in the revision set",
		}
	}

	var draft *model.RevisionInfo
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		draft, err = s.createDuplicatedRevision(ctx, tx, release, nil)
		return err
	})
	if err != nil {
		return nil, wrapInvariant(setID, err)
	}

	logrus.Infof("materialized primary draft %s from release %s", draft.ID, release.ID)

	return draft, nil
}

// TemporaryDrafts returns the set's staged alternate edits.
func (s *RevisionService) TemporaryDrafts(ctx context.Context, setID string) ([]*model.RevisionInfo, error) {
	return s.store.ListRevisionsByStatus(ctx, setID, model.StatusTemporaryDraft)
}

// LatestRelease returns the currently authoritative release, or nil when the
// set has never been released.
func (s *RevisionService) LatestRelease(ctx context.Context, setID string) (*model.RevisionInfo, error) {
	return s.latestRelease(ctx, s.store, setID)
}

func (s *RevisionService) latestRelease(ctx context.Context, tx store.Store, setID string) (*model.RevisionInfo, error) {
	releases, err := tx.ListRevisionsByStatus(ctx, setID, model.StatusLatestRelease)
	if err != nil {
		return nil, err
	}
	if len(releases) == 0 {
		return nil, nil
	}
	return releases[0], nil
}

// Releases returns all published revisions of the set, current and expired.
func (s *RevisionService) Releases(ctx context.Context, setID string) ([]*model.RevisionInfo, error) {
	return s.store.ListRevisionsByStatus(ctx, setID, model.StatusLatestRelease, model.StatusExpired)
}

// ExpiredReleases returns the set's superseded releases.
func (s *RevisionService) ExpiredReleases(ctx context.Context, setID string) ([]*model.RevisionInfo, error) {
	return s.store.ListRevisionsByStatus(ctx, setID, model.StatusExpired)
}

// RevisionsBetween returns the released revisions whose validity interval
// intersects the given interval, ordered by release time.
func (s *RevisionService) RevisionsBetween(ctx context.Context, setID string, interval model.Interval) ([]*model.RevisionInfo, error) {
	return s.store.RevisionsBetween(ctx, setID, interval)
}

// RevisionAt returns the revision that was authoritative at the given
// instant, or nil when none was.
func (s *RevisionService) RevisionAt(ctx context.Context, setID string, instant time.Time) (*model.RevisionInfo, error) {
	revisions, err := s.store.RevisionsBetween(ctx, setID, model.At(instant))
	if err != nil {
		return nil, err
	}
	if len(revisions) == 0 {
		return nil, nil
	}
	return revisions[0], nil
}

// EarliestReleaseDate returns the released_at of the set's first release, or
// nil when nothing has been released.
func (s *RevisionService) EarliestReleaseDate(ctx context.Context, setID string) (*time.Time, error) {
	releases, err := s.Releases(ctx, setID)
	if err != nil {
		return nil, err
	}

	var earliest *time.Time
	for _, release := range releases {
		if release.ReleasedAt == nil {
			continue
		}
		if earliest == nil || release.ReleasedAt.Before(*earliest) {
			earliest = release.ReleasedAt
		}
	}

	return earliest, nil
}

// CreateTemporaryDraft clones the revision into a new TEMPORARY_DRAFT
// attached to the same set.
func (s *RevisionService) CreateTemporaryDraft(ctx context.Context, revisionID string) (*model.RevisionInfo, error) {
	source, err := s.store.GetRevisionInfo(ctx, revisionID)
	if err != nil {
		return nil, err
	}

	var draft *model.RevisionInfo
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		draft, err = s.createDuplicatedRevision(ctx, tx, source, func(info *model.RevisionInfo) {
			info.SetAsTemporaryDraft()
		})
		return err
	})
	if err != nil {
		return nil, wrapInvariant(source.RevisionSetID, err)
	}

	return draft, nil
}

// Release publishes the primary draft: the current latest release (if any)
// expires, the draft becomes the latest release stamped with the actor, and a
// fresh primary draft is cloned from it. All three steps commit together.
func (s *RevisionService) Release(ctx context.Context, revisionID, releasedBy string) error {
	info, err := s.store.GetRevisionInfo(ctx, revisionID)
	if err != nil {
		return err
	}
	if !info.PrimaryDraft() {
		return &IllegalStateError{Op: "release", RevisionID: info.ID, Status: info.Status}
	}

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		now := time.Now()

		toExpire, err := s.latestRelease(ctx, tx, info.RevisionSetID)
		if err != nil {
			return err
		}
		if toExpire != nil {
			toExpire.SetAsExpired(now)
			if err := tx.SaveRevisionInfo(ctx, toExpire); err != nil {
				return err
			}
		}

		info.SetAsLatestRelease(&releasedBy, now, true)
		if err := tx.SaveRevisionInfo(ctx, info); err != nil {
			return err
		}

		_, err = s.createDuplicatedRevision(ctx, tx, info, nil)
		return err
	})

	return wrapInvariant(info.RevisionSetID, err)
}

// Rollback undoes the most recent release: the primary draft is destroyed,
// the latest release returns to PRIMARY_DRAFT with its release metadata
// cleared, and the most recently expired release (if any) is promoted back to
// LATEST_RELEASE keeping its original release metadata.
func (s *RevisionService) Rollback(ctx context.Context, revisionID string) error {
	info, err := s.store.GetRevisionInfo(ctx, revisionID)
	if err != nil {
		return err
	}
	if !info.LatestRelease() {
		return &IllegalStateError{Op: "rollback", RevisionID: info.ID, Status: info.Status}
	}

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := s.destroyPrimaryDraft(ctx, tx, info.RevisionSetID); err != nil {
			return err
		}

		info.SetAsPrimaryDraft()
		info.ReleasedAt = nil
		info.ReleasedBy = nil
		if err := tx.SaveRevisionInfo(ctx, info); err != nil {
			return err
		}

		expired, err := tx.ListRevisionsByStatus(ctx, info.RevisionSetID, model.StatusExpired)
		if err != nil {
			return err
		}

		var toPromote *model.RevisionInfo
		for _, candidate := range expired {
			if candidate.ExpiredAt == nil {
				continue
			}
			if toPromote == nil || candidate.ExpiredAt.After(*toPromote.ExpiredAt) {
				toPromote = candidate
			}
		}
		if toPromote == nil {
			return nil
		}

		toPromote.SetAsLatestRelease(nil, time.Time{}, false)
		return tx.SaveRevisionInfo(ctx, toPromote)
	})

	return wrapInvariant(info.RevisionSetID, err)
}

// OverwritePrimaryDraft destroys the current primary draft and promotes the
// temporary draft in its place.
func (s *RevisionService) OverwritePrimaryDraft(ctx context.Context, revisionID string) error {
	info, err := s.store.GetRevisionInfo(ctx, revisionID)
	if err != nil {
		return err
	}
	if !info.TemporaryDraft() {
		return &IllegalStateError{Op: "overwrite primary draft", RevisionID: info.ID, Status: info.Status}
	}

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		return s.overwritePrimaryDraft(ctx, tx, info)
	})

	return wrapInvariant(info.RevisionSetID, err)
}

func (s *RevisionService) overwritePrimaryDraft(ctx context.Context, tx store.Store, info *model.RevisionInfo) error {
	if err := s.destroyPrimaryDraft(ctx, tx, info.RevisionSetID); err != nil {
		return err
	}

	info.SetAsPrimaryDraft()
	return tx.SaveRevisionInfo(ctx, info)
}

// DiscardDraft marks a staged draft DELETED. The reaper job erases discarded
// revisions after the retention window.
func (s *RevisionService) DiscardDraft(ctx context.Context, revisionID string) error {
	info, err := s.store.GetRevisionInfo(ctx, revisionID)
	if err != nil {
		return err
	}
	if !info.TemporaryDraft() && !info.DeprecatingDraft() {
		return &IllegalStateError{Op: "discard", RevisionID: info.ID, Status: info.Status}
	}

	info.SetAsDeleted()
	return wrapInvariant(info.RevisionSetID, s.store.SaveRevisionInfo(ctx, info))
}

// CreateDuplicatedRevision clones the revision's payload and attaches a fresh
// revision info to the same set. The clone's status and timestamps are reset
// to draft defaults regardless of the source's state; mutate, when given,
// adjusts the clone before it is persisted.
func (s *RevisionService) CreateDuplicatedRevision(ctx context.Context, revisionID string, mutate func(*model.RevisionInfo)) (*model.RevisionInfo, error) {
	source, err := s.store.GetRevisionInfo(ctx, revisionID)
	if err != nil {
		return nil, err
	}

	var clone *model.RevisionInfo
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		clone, err = s.createDuplicatedRevision(ctx, tx, source, mutate)
		return err
	})
	if err != nil {
		return nil, wrapInvariant(source.RevisionSetID, err)
	}

	return clone, nil
}

func (s *RevisionService) createDuplicatedRevision(ctx context.Context, tx store.Store, source *model.RevisionInfo, mutate func(*model.RevisionInfo)) (*model.RevisionInfo, error) {
	binding, err := s.registry.Lookup(source.RevisionType)
	if err != nil {
		return nil, &MissingPrerequisiteError{RevisionSetID: source.RevisionSetID, Reason: err.Error()}
	}

	payloadID, err := binding.Payloads.Clone(ctx, source.RevisionID)
	if err != nil {
		return nil, err
	}

	clone := model.NewRevisionInfo(uuid.New().String(), source.RevisionSetID, source.RevisionType, payloadID)
	if mutate != nil {
		mutate(clone)
	}

	if err := tx.CreateRevisionInfo(ctx, clone); err != nil {
		return nil, err
	}

	return clone, nil
}

// destroyPrimaryDraft removes the set's current primary draft and its payload.
// A set without a primary draft is left untouched.
func (s *RevisionService) destroyPrimaryDraft(ctx context.Context, tx store.Store, setID string) error {
	drafts, err := tx.ListRevisionsByStatus(ctx, setID, model.StatusPrimaryDraft)
	if err != nil {
		return err
	}
	if len(drafts) == 0 {
		return nil
	}

	draft := drafts[0]
	binding, err := s.registry.Lookup(draft.RevisionType)
	if err != nil {
		return &MissingPrerequisiteError{RevisionSetID: setID, Reason: err.Error()}
	}

	if err := binding.Payloads.Destroy(ctx, draft.RevisionID); err != nil {
		return err
	}

	return tx.DeleteRevisionInfo(ctx, draft.ID)
}
