package service

import (
	"context"
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"

	"github.com/Natural-Intelligence/be-revisable/internal/cache"
	"github.com/Natural-Intelligence/be-revisable/internal/model"
	"github.com/Natural-Intelligence/be-revisable/internal/notifier"
	"github.com/Natural-Intelligence/be-revisable/internal/registry"
	"github.com/Natural-Intelligence/be-revisable/internal/store"
)

// NewDeprecationService creates a new DeprecationService. The cache is
// optional; the notifier is required (use notifier.NewNop when no listeners
// exist).
func NewDeprecationService(store store.Store, registry *registry.Registry, notify notifier.Notifier, revisionCache cache.RevisionCache, revisions *RevisionService) *DeprecationService {
	return &DeprecationService{
		store:     store,
		registry:  registry,
		notifier:  notify,
		cache:     revisionCache,
		revisions: revisions,
	}
}

// DeprecationService implements retroactive changes: a revision prepared as a
// deprecating draft with a historical validity range is inserted into past
// time, and the timeline is reshaped so at most one revision stays
// authoritative for any instant.
type DeprecationService struct {
	store     store.Store
	registry  *registry.Registry
	notifier  notifier.Notifier
	cache     cache.RevisionCache
	revisions *RevisionService
}

// CreateDeprecatingDraft clones the revision into a DEPRECATING_DRAFT
// carrying the source's validity range. A deprecating draft always has a
// released-at time; cloning an unreleased revision starts the range now.
func (s *DeprecationService) CreateDeprecatingDraft(ctx context.Context, revisionID string) (*model.RevisionInfo, error) {
	source, err := s.store.GetRevisionInfo(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireDeprecatable(source); err != nil {
		return nil, err
	}

	var draft *model.RevisionInfo
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		draft, err = s.revisions.createDuplicatedRevision(ctx, tx, source, func(info *model.RevisionInfo) {
			info.SetAsDeprecatingDraft()
			releasedAt := time.Now()
			if source.ReleasedAt != nil {
				releasedAt = *source.ReleasedAt
			}
			info.ReleasedAt = &releasedAt
			info.ExpiredAt = source.ExpiredAt
		})
		return err
	})
	if err != nil {
		return nil, wrapInvariant(source.RevisionSetID, err)
	}

	return draft, nil
}

// UpdateDeprecatingDraftRange replaces the draft's target validity range.
// Future or not-yet-expired ranges are allowed; expiredAt may be nil for an
// open-ended change.
func (s *DeprecationService) UpdateDeprecatingDraftRange(ctx context.Context, revisionID string, releasedAt time.Time, expiredAt *time.Time) error {
	info, err := s.store.GetRevisionInfo(ctx, revisionID)
	if err != nil {
		return err
	}
	if !info.DeprecatingDraft() {
		return &IllegalStateError{Op: "update datetime range", RevisionID: info.ID, Status: info.Status}
	}
	if releasedAt.IsZero() {
		return &InvariantError{
			RevisionSetID: info.RevisionSetID,
			Err:           fmt.Errorf("a deprecating draft must have a released-at time"),
		}
	}

	info.ReleasedAt = &releasedAt
	info.ExpiredAt = expiredAt

	return wrapInvariant(info.RevisionSetID, s.store.SaveRevisionInfo(ctx, info))
}

// AffectedRevisions returns the released revisions the draft's range
// intersects, the direct target included. The upper bound is pulled in by one
// second so a release ending exactly where the draft begins is untouched.
func (s *DeprecationService) AffectedRevisions(ctx context.Context, revisionID string) ([]*model.RevisionInfo, error) {
	draft, err := s.store.GetRevisionInfo(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	if !draft.DeprecatingDraft() {
		return nil, &IllegalStateError{Op: "affected revisions", RevisionID: draft.ID, Status: draft.Status}
	}

	return s.affectedRevisions(ctx, s.store, draft)
}

func (s *DeprecationService) affectedRevisions(ctx context.Context, tx store.Store, draft *model.RevisionInfo) ([]*model.RevisionInfo, error) {
	if draft.ReleasedAt == nil {
		return nil, &InvariantError{
			RevisionSetID: draft.RevisionSetID,
			Err:           fmt.Errorf("deprecating draft %s has no released-at time", draft.ID),
		}
	}

	end := time.Now()
	if draft.ExpiredAt != nil {
		end = *draft.ExpiredAt
	}

	interval := model.Interval{Start: *draft.ReleasedAt, End: end.Add(-time.Second)}
	return tx.RevisionsBetween(ctx, draft.RevisionSetID, interval)
}

// ApplyDeprecatingChange applies the retroactive change: every affected
// revision is deprecated, split revisions are created where the draft covers
// only part of an interval, the deprecation graph is extended, and the draft
// itself is released. Everything commits in one transaction; afterwards the
// cache is invalidated and a change event is dispatched. The returned IDs
// cover every revision the change touched (originals, the draft, splits).
//
// A NotificationError reports a failed dispatch after a successful commit;
// the timeline mutation stands.
func (s *DeprecationService) ApplyDeprecatingChange(ctx context.Context, revisionID, actor string, avoidOverwritingPrimaryDraft bool) ([]string, error) {
	draft, err := s.store.GetRevisionInfo(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	if !draft.DeprecatingDraft() {
		return nil, &IllegalStateError{Op: "apply deprecating change", RevisionID: draft.ID, Status: draft.Status}
	}
	if err := s.requireDeprecatable(draft); err != nil {
		return nil, err
	}

	set, err := s.store.GetRevisionSet(ctx, draft.RevisionSetID)
	if err != nil {
		return nil, err
	}

	var affectedIDs []string
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		affectedIDs, err = s.applyAffectedRevisions(ctx, tx, draft, actor)
		if err != nil {
			return err
		}

		if err := s.applyAsReleased(ctx, tx, draft, actor); err != nil {
			return err
		}

		if !avoidOverwritingPrimaryDraft && draft.Ongoing() {
			return s.overwritePrimaryDraftWith(ctx, tx, draft)
		}
		return nil
	})
	if err != nil {
		return nil, wrapInvariant(draft.RevisionSetID, err)
	}

	logrus.Infof("applied deprecating change %s to revision set %s, %d revisions affected",
		draft.ID, draft.RevisionSetID, len(affectedIDs))

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, affectedIDs); err != nil {
			logrus.Warnf("failed to invalidate revision cache for set %s: %v", draft.RevisionSetID, err)
		}
	}

	event := notifier.ChangeEvent{
		EntityType:          set.EntityType,
		RevisionSetID:       set.ID,
		AffectedRevisionIDs: affectedIDs,
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		return affectedIDs, &NotificationError{RevisionSetID: set.ID, Err: err}
	}

	return affectedIDs, nil
}

// applyAffectedRevisions resolves the draft's overlap with every affected
// revision. For each pair exactly one of four cases holds, classified by
// whether the draft starts after the revision and ends before it:
//
//	fully included    — split into a before and an after revision
//	fully overwritten — deprecate outright
//	overwrites end    — keep a before revision
//	overwrites begin  — keep an after revision
func (s *DeprecationService) applyAffectedRevisions(ctx context.Context, tx store.Store, draft *model.RevisionInfo, actor string) ([]string, error) {
	affected, err := s.affectedRevisions(ctx, tx, draft)
	if err != nil {
		return nil, err
	}

	allIDs := make([]string, 0, len(affected)+1)
	for _, revision := range affected {
		allIDs = append(allIDs, revision.ID)
	}
	allIDs = append(allIDs, draft.ID)

	for _, revision := range affected {
		originalStatus := revision.Status
		originalExpiredAt := revision.ExpiredAt

		releasedAfter := draft.ReleasedAfter(revision)
		expiresBefore := draft.ExpiresBefore(revision)

		if err := s.deprecateRevision(ctx, tx, revision); err != nil {
			return nil, err
		}

		switch {
		case releasedAfter && expiresBefore:
			before, err := s.createSplitRevision(ctx, tx, revision, *revision.ReleasedAt, draft.ReleasedAt, model.StatusExpired, actor)
			if err != nil {
				return nil, err
			}
			after, err := s.createSplitRevision(ctx, tx, revision, *draft.ExpiredAt, originalExpiredAt, originalStatus, actor)
			if err != nil {
				return nil, err
			}
			if err := tx.AddDeprecations(ctx, revision.ID, []string{draft.ID, before.ID, after.ID}); err != nil {
				return nil, err
			}
			allIDs = append(allIDs, before.ID, after.ID)

		case !releasedAfter && !expiresBefore:
			if err := tx.AddDeprecations(ctx, revision.ID, []string{draft.ID}); err != nil {
				return nil, err
			}

		case releasedAfter && !expiresBefore:
			before, err := s.createSplitRevision(ctx, tx, revision, *revision.ReleasedAt, draft.ReleasedAt, model.StatusExpired, actor)
			if err != nil {
				return nil, err
			}
			if err := tx.AddDeprecations(ctx, revision.ID, []string{draft.ID, before.ID}); err != nil {
				return nil, err
			}
			allIDs = append(allIDs, before.ID)

		case !releasedAfter && expiresBefore:
			after, err := s.createSplitRevision(ctx, tx, revision, *draft.ExpiredAt, originalExpiredAt, originalStatus, actor)
			if err != nil {
				return nil, err
			}
			if err := tx.AddDeprecations(ctx, revision.ID, []string{draft.ID, after.ID}); err != nil {
				return nil, err
			}
			allIDs = append(allIDs, after.ID)
		}
	}

	return allIDs, nil
}

// deprecateRevision retires a released revision that the draft replaces.
// An ongoing revision is expired now so its interval closes.
func (s *DeprecationService) deprecateRevision(ctx context.Context, tx store.Store, revision *model.RevisionInfo) error {
	now := time.Now()
	if revision.ExpiredAt == nil {
		revision.ExpiredAt = &now
	}
	revision.Status = model.StatusDeprecated
	revision.DeprecatedAt = &now

	return tx.SaveRevisionInfo(ctx, revision)
}

// createSplitRevision duplicates the deprecated revision's payload into a new
// released revision covering the part of its interval the draft leaves
// intact. expiredAt may be nil when the tail of an ongoing revision survives.
func (s *DeprecationService) createSplitRevision(ctx context.Context, tx store.Store, revision *model.RevisionInfo, releasedAt time.Time, expiredAt *time.Time, status model.Status, actor string) (*model.RevisionInfo, error) {
	return s.revisions.createDuplicatedRevision(ctx, tx, revision, func(info *model.RevisionInfo) {
		info.Status = status
		info.ReleasedAt = &releasedAt
		info.ExpiredAt = expiredAt
		info.ReleasedBy = &actor
	})
}

// applyAsReleased publishes the draft itself: EXPIRED when its range has an
// end, LATEST_RELEASE when it is open-ended.
func (s *DeprecationService) applyAsReleased(ctx context.Context, tx store.Store, draft *model.RevisionInfo, actor string) error {
	draft.ReleasedBy = &actor
	if draft.ExpiredAt != nil {
		draft.Status = model.StatusExpired
	} else {
		draft.Status = model.StatusLatestRelease
	}

	return tx.SaveRevisionInfo(ctx, draft)
}

// overwritePrimaryDraftWith replaces the set's edit target with the draft's
// content, so an ongoing retroactive change is reflected in future edits.
func (s *DeprecationService) overwritePrimaryDraftWith(ctx context.Context, tx store.Store, draft *model.RevisionInfo) error {
	temp, err := s.revisions.createDuplicatedRevision(ctx, tx, draft, func(info *model.RevisionInfo) {
		info.SetAsTemporaryDraft()
	})
	if err != nil {
		return err
	}

	return s.revisions.overwritePrimaryDraft(ctx, tx, temp)
}

// DeprecatedBy returns the actor of the revision's first deprecator, or nil
// when the revision was never deprecated.
func (s *DeprecationService) DeprecatedBy(ctx context.Context, revisionID string) (*string, error) {
	deprecators, err := s.store.ListDeprecatedBy(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	if len(deprecators) == 0 {
		return nil, nil
	}
	return deprecators[0].ReleasedBy, nil
}

// DeprecatorOfChain returns every revision the given one deprecates, directly
// or through further deprecations, ordered from the direct edge outwards.
func (s *DeprecationService) DeprecatorOfChain(ctx context.Context, revisionID string) ([]*model.RevisionInfo, error) {
	return s.deprecationChain(ctx, revisionID, s.store.ListDeprecatorOf)
}

// DeprecatedByChain returns every revision that deprecates the given one,
// directly or transitively, from the initial deprecator to the latest.
func (s *DeprecationService) DeprecatedByChain(ctx context.Context, revisionID string) ([]*model.RevisionInfo, error) {
	return s.deprecationChain(ctx, revisionID, s.store.ListDeprecatedBy)
}

// deprecationChain walks the edge relation depth first: each direct edge is
// collected, then its own chain. A node reachable over several paths is kept
// at its first position only, and the visited set keeps an accidental cycle
// from recursing forever.
func (s *DeprecationService) deprecationChain(ctx context.Context, revisionID string, edges func(context.Context, string) ([]*model.RevisionInfo, error)) ([]*model.RevisionInfo, error) {
	visited := mapset.NewSet[string]()
	visited.Add(revisionID)

	var collected []*model.RevisionInfo
	var walk func(id string) error
	walk = func(id string) error {
		nodes, err := edges(ctx, id)
		if err != nil {
			return err
		}
		for _, node := range nodes {
			collected = append(collected, node)
			if visited.Contains(node.ID) {
				continue
			}
			visited.Add(node.ID)
			if err := walk(node.ID); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(revisionID); err != nil {
		return nil, err
	}

	seen := mapset.NewSet[string]()
	chain := make([]*model.RevisionInfo, 0, len(collected))
	for _, node := range collected {
		if seen.Contains(node.ID) {
			continue
		}
		seen.Add(node.ID)
		chain = append(chain, node)
	}

	return chain, nil
}

func (s *DeprecationService) requireDeprecatable(info *model.RevisionInfo) error {
	binding, err := s.registry.Lookup(info.RevisionType)
	if err != nil {
		return &MissingPrerequisiteError{RevisionSetID: info.RevisionSetID, Reason: err.Error()}
	}
	if !binding.Deprecatable {
		return &MissingPrerequisiteError{
			RevisionSetID: info.RevisionSetID,
			Reason:        fmt.Sprintf("entity type %s is not registered as deprecatable", info.RevisionType),
		}
	}
	return nil
}
