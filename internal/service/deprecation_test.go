package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Natural-Intelligence/be-revisable/internal/model"
	"github.com/Natural-Intelligence/be-revisable/internal/notifier"
	"github.com/Natural-Intelligence/be-revisable/internal/store"
	"github.com/Natural-Intelligence/be-revisable/internal/tester"
)

// recordingNotifier captures dispatched events so tests can assert on the
// post-commit notification without an external broker.
type recordingNotifier struct {
	events []notifier.ChangeEvent
	err    error
}

func (n *recordingNotifier) Notify(ctx context.Context, event notifier.ChangeEvent) error {
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, event)
	return nil
}

func newDeprecationService(notify notifier.Notifier) (store.Store, *RevisionService, *DeprecationService) {
	gormStore := store.NewGormStore(tester.TestDB())
	revisions := NewRevisionService(gormStore, tester.Registry())
	deprecations := NewDeprecationService(gormStore, tester.Registry(), notify, nil, revisions)

	return gormStore, revisions, deprecations
}

func revisionIDs(infos []*model.RevisionInfo) []string {
	ids := make([]string, 0, len(infos))
	for _, info := range infos {
		ids = append(ids, info.ID)
	}
	return ids
}

func TestDeprecationService_CreateDeprecatingDraft(t *testing.T) {
	s, _, deprecations := newDeprecationService(notifier.NewNop())
	set := seedSet(t, s)
	release := seedRevision(t, s, set.ID, model.StatusLatestRelease, timePtr(date(2024, 1, 1)), nil, "released")

	draft, err := deprecations.CreateDeprecatingDraft(context.TODO(), release.ID)
	assert.NoError(t, err)
	assert.Equal(t, model.StatusDeprecatingDraft, draft.Status)
	assert.True(t, draft.ReleasedAt.Equal(date(2024, 1, 1)))
	assert.Nil(t, draft.ExpiredAt)
	assert.NotEqual(t, release.RevisionID, draft.RevisionID)
	assert.Equal(t, "released", tester.ExampleRecordValue(draft.RevisionID))
}

func TestDeprecationService_CreateDeprecatingDraftNotDeprecatable(t *testing.T) {
	s, _, deprecations := newDeprecationService(notifier.NewNop())

	set := &model.RevisionSet{ID: uuid.New().String(), EntityType: tester.BasicEntityType}
	assert.NoError(t, s.CreateRevisionSet(context.TODO(), set))

	payloadID := tester.CreateExampleRecord("basic")
	info := model.NewRevisionInfo(uuid.New().String(), set.ID, tester.BasicEntityType, payloadID)
	info.Status = model.StatusLatestRelease
	info.ReleasedAt = timePtr(date(2024, 1, 1))
	assert.NoError(t, s.CreateRevisionInfo(context.TODO(), info))

	_, err := deprecations.CreateDeprecatingDraft(context.TODO(), info.ID)

	var missing *MissingPrerequisiteError
	assert.ErrorAs(t, err, &missing)
	assert.Contains(t, missing.Reason, "not registered as deprecatable")
}

func TestDeprecationService_UpdateDeprecatingDraftRange(t *testing.T) {
	s, _, deprecations := newDeprecationService(notifier.NewNop())
	set := seedSet(t, s)
	release := seedRevision(t, s, set.ID, model.StatusLatestRelease, timePtr(date(2024, 1, 1)), nil, "released")

	draft, err := deprecations.CreateDeprecatingDraft(context.TODO(), release.ID)
	assert.NoError(t, err)

	err = deprecations.UpdateDeprecatingDraftRange(context.TODO(), draft.ID, date(2024, 2, 1), timePtr(date(2024, 3, 1)))
	assert.NoError(t, err)

	updated, err := s.GetRevisionInfo(context.TODO(), draft.ID)
	assert.NoError(t, err)
	assert.True(t, updated.ReleasedAt.Equal(date(2024, 2, 1)))
	assert.True(t, updated.ExpiredAt.Equal(date(2024, 3, 1)))

	// only a deprecating draft carries a target range
	err = deprecations.UpdateDeprecatingDraftRange(context.TODO(), release.ID, date(2024, 2, 1), nil)
	var illegal *IllegalStateError
	assert.ErrorAs(t, err, &illegal)

	// the range start is mandatory
	err = deprecations.UpdateDeprecatingDraftRange(context.TODO(), draft.ID, time.Time{}, nil)
	var invariant *InvariantError
	assert.ErrorAs(t, err, &invariant)
}

func TestDeprecationService_AffectedRevisionsBoundary(t *testing.T) {
	s, _, deprecations := newDeprecationService(notifier.NewNop())
	set := seedSet(t, s)
	seedRevision(t, s, set.ID, model.StatusExpired, timePtr(date(2024, 1, 1)), timePtr(date(2024, 2, 1)), "jan")
	second := seedRevision(t, s, set.ID, model.StatusExpired, timePtr(date(2024, 2, 1)), timePtr(date(2024, 3, 1)), "feb")

	draft, err := deprecations.CreateDeprecatingDraft(context.TODO(), second.ID)
	assert.NoError(t, err)

	// the draft starts exactly where the first revision ends, so only the
	// second revision is affected
	affected, err := deprecations.AffectedRevisions(context.TODO(), draft.ID)
	assert.NoError(t, err)
	assert.Equal(t, []string{second.ID}, revisionIDs(affected))
}

func TestDeprecationService_ApplyFullyIncluded(t *testing.T) {
	s, _, deprecations := newDeprecationService(notifier.NewNop())
	set := seedSet(t, s)
	release := seedRevision(t, s, set.ID, model.StatusExpired, timePtr(date(2024, 1, 1)), timePtr(date(2024, 3, 1)), "original")

	draft, err := deprecations.CreateDeprecatingDraft(context.TODO(), release.ID)
	assert.NoError(t, err)
	assert.NoError(t, deprecations.UpdateDeprecatingDraftRange(context.TODO(), draft.ID, date(2024, 2, 1), timePtr(date(2024, 2, 15))))

	affectedIDs, err := deprecations.ApplyDeprecatingChange(context.TODO(), draft.ID, "carol", false)
	assert.NoError(t, err)
	assert.Len(t, affectedIDs, 4)
	assert.Equal(t, release.ID, affectedIDs[0])
	assert.Equal(t, draft.ID, affectedIDs[1])

	// the original is retired with its expiry untouched
	deprecated, err := s.GetRevisionInfo(context.TODO(), release.ID)
	assert.NoError(t, err)
	assert.Equal(t, model.StatusDeprecated, deprecated.Status)
	assert.NotNil(t, deprecated.DeprecatedAt)
	assert.True(t, deprecated.ExpiredAt.Equal(date(2024, 3, 1)))

	// the draft covers the middle of the interval as an expired release
	applied, err := s.GetRevisionInfo(context.TODO(), draft.ID)
	assert.NoError(t, err)
	assert.Equal(t, model.StatusExpired, applied.Status)
	assert.Equal(t, "carol", *applied.ReleasedBy)

	// the retired revision is deprecated by the draft and both splits, in
	// that order
	chain, err := deprecations.DeprecatedByChain(context.TODO(), release.ID)
	assert.NoError(t, err)
	assert.Len(t, chain, 3)
	assert.Equal(t, draft.ID, chain[0].ID)

	before, after := chain[1], chain[2]
	assert.Equal(t, model.StatusExpired, before.Status)
	assert.True(t, before.ReleasedAt.Equal(date(2024, 1, 1)))
	assert.True(t, before.ExpiredAt.Equal(date(2024, 2, 1)))
	assert.Equal(t, "original", tester.ExampleRecordValue(before.RevisionID))

	assert.Equal(t, model.StatusExpired, after.Status)
	assert.True(t, after.ReleasedAt.Equal(date(2024, 2, 15)))
	assert.True(t, after.ExpiredAt.Equal(date(2024, 3, 1)))
	assert.Equal(t, "original", tester.ExampleRecordValue(after.RevisionID))

	assert.ElementsMatch(t, affectedIDs, []string{release.ID, draft.ID, before.ID, after.ID})
}

func TestDeprecationService_ApplyFullyOverwritten(t *testing.T) {
	recorder := &recordingNotifier{}
	s, _, deprecations := newDeprecationService(recorder)
	set := seedSet(t, s)
	release := seedRevision(t, s, set.ID, model.StatusExpired, timePtr(date(2024, 1, 1)), timePtr(date(2024, 3, 1)), "original")

	draft, err := deprecations.CreateDeprecatingDraft(context.TODO(), release.ID)
	assert.NoError(t, err)

	// the draft keeps the source's exact range, so the original is replaced
	// outright without splits
	affectedIDs, err := deprecations.ApplyDeprecatingChange(context.TODO(), draft.ID, "carol", false)
	assert.NoError(t, err)
	assert.Equal(t, []string{release.ID, draft.ID}, affectedIDs)

	chain, err := deprecations.DeprecatedByChain(context.TODO(), release.ID)
	assert.NoError(t, err)
	assert.Equal(t, []string{draft.ID}, revisionIDs(chain))

	actor, err := deprecations.DeprecatedBy(context.TODO(), release.ID)
	assert.NoError(t, err)
	assert.Equal(t, "carol", *actor)

	assert.Len(t, recorder.events, 1)
	assert.Equal(t, tester.ExampleEntityType, recorder.events[0].EntityType)
	assert.Equal(t, set.ID, recorder.events[0].RevisionSetID)
	assert.Equal(t, affectedIDs, recorder.events[0].AffectedRevisionIDs)
}

func TestDeprecationService_ApplyOverwritesEndOngoing(t *testing.T) {
	s, revisions, deprecations := newDeprecationService(notifier.NewNop())
	set := seedSet(t, s)
	release := seedRevision(t, s, set.ID, model.StatusLatestRelease, timePtr(date(2024, 1, 1)), nil, "original")
	oldDraft := seedRevision(t, s, set.ID, model.StatusPrimaryDraft, nil, nil, "stale draft")

	draft, err := deprecations.CreateDeprecatingDraft(context.TODO(), release.ID)
	assert.NoError(t, err)
	assert.NoError(t, deprecations.UpdateDeprecatingDraftRange(context.TODO(), draft.ID, date(2024, 2, 1), nil))

	err = tester.TestDB().Model(&tester.ExampleRecord{}).
		Where("id = ?", draft.RevisionID).
		Update("value", "corrected").Error
	assert.NoError(t, err)

	affectedIDs, err := deprecations.ApplyDeprecatingChange(context.TODO(), draft.ID, "carol", false)
	assert.NoError(t, err)
	assert.Len(t, affectedIDs, 3)

	// the open-ended draft becomes the latest release
	applied, err := s.GetRevisionInfo(context.TODO(), draft.ID)
	assert.NoError(t, err)
	assert.Equal(t, model.StatusLatestRelease, applied.Status)
	assert.Nil(t, applied.ExpiredAt)

	// only the head of the original interval survives as a split
	chain, err := deprecations.DeprecatedByChain(context.TODO(), release.ID)
	assert.NoError(t, err)
	assert.Len(t, chain, 2)
	before := chain[1]
	assert.Equal(t, model.StatusExpired, before.Status)
	assert.True(t, before.ReleasedAt.Equal(date(2024, 1, 1)))
	assert.True(t, before.ExpiredAt.Equal(date(2024, 2, 1)))

	// the ongoing change replaces the edit target with the corrected content
	_, err = s.GetRevisionInfo(context.TODO(), oldDraft.ID)
	assert.ErrorIs(t, err, store.ErrRevisionInfoNotFound)

	newDraft, err := revisions.PrimaryDraft(context.TODO(), set.ID)
	assert.NoError(t, err)
	assert.Equal(t, "corrected", tester.ExampleRecordValue(newDraft.RevisionID))
}

func TestDeprecationService_ApplyOverwritesBeginning(t *testing.T) {
	s, _, deprecations := newDeprecationService(notifier.NewNop())
	set := seedSet(t, s)
	release := seedRevision(t, s, set.ID, model.StatusExpired, timePtr(date(2024, 1, 1)), timePtr(date(2024, 3, 1)), "original")

	draft, err := deprecations.CreateDeprecatingDraft(context.TODO(), release.ID)
	assert.NoError(t, err)
	assert.NoError(t, deprecations.UpdateDeprecatingDraftRange(context.TODO(), draft.ID, date(2024, 1, 1), timePtr(date(2024, 2, 1))))

	affectedIDs, err := deprecations.ApplyDeprecatingChange(context.TODO(), draft.ID, "carol", false)
	assert.NoError(t, err)
	assert.Len(t, affectedIDs, 3)

	// the tail of the original interval survives with the original status
	chain, err := deprecations.DeprecatedByChain(context.TODO(), release.ID)
	assert.NoError(t, err)
	assert.Len(t, chain, 2)
	after := chain[1]
	assert.Equal(t, model.StatusExpired, after.Status)
	assert.True(t, after.ReleasedAt.Equal(date(2024, 2, 1)))
	assert.True(t, after.ExpiredAt.Equal(date(2024, 3, 1)))
}

func TestDeprecationService_ApplyAvoidOverwritingPrimaryDraft(t *testing.T) {
	s, _, deprecations := newDeprecationService(notifier.NewNop())
	set := seedSet(t, s)
	release := seedRevision(t, s, set.ID, model.StatusLatestRelease, timePtr(date(2024, 1, 1)), nil, "original")
	oldDraft := seedRevision(t, s, set.ID, model.StatusPrimaryDraft, nil, nil, "work in progress")

	draft, err := deprecations.CreateDeprecatingDraft(context.TODO(), release.ID)
	assert.NoError(t, err)

	_, err = deprecations.ApplyDeprecatingChange(context.TODO(), draft.ID, "carol", true)
	assert.NoError(t, err)

	// the edit target is left alone
	kept, err := s.GetRevisionInfo(context.TODO(), oldDraft.ID)
	assert.NoError(t, err)
	assert.Equal(t, model.StatusPrimaryDraft, kept.Status)
	assert.Equal(t, "work in progress", tester.ExampleRecordValue(kept.RevisionID))
}

func TestDeprecationService_ApplyMultipleAffected(t *testing.T) {
	s, _, deprecations := newDeprecationService(notifier.NewNop())
	set := seedSet(t, s)
	first := seedRevision(t, s, set.ID, model.StatusExpired, timePtr(date(2024, 1, 1)), timePtr(date(2024, 2, 1)), "jan")
	second := seedRevision(t, s, set.ID, model.StatusExpired, timePtr(date(2024, 2, 1)), timePtr(date(2024, 3, 1)), "feb")

	draft, err := deprecations.CreateDeprecatingDraft(context.TODO(), first.ID)
	assert.NoError(t, err)
	assert.NoError(t, deprecations.UpdateDeprecatingDraftRange(context.TODO(), draft.ID, date(2024, 1, 1), timePtr(date(2024, 3, 1))))

	// both revisions are fully overwritten, ordered by release time
	affectedIDs, err := deprecations.ApplyDeprecatingChange(context.TODO(), draft.ID, "carol", false)
	assert.NoError(t, err)
	assert.Equal(t, []string{first.ID, second.ID, draft.ID}, affectedIDs)

	for _, id := range []string{first.ID, second.ID} {
		deprecated, err := s.GetRevisionInfo(context.TODO(), id)
		assert.NoError(t, err)
		assert.Equal(t, model.StatusDeprecated, deprecated.Status)
	}
}

func TestDeprecationService_ApplyIllegalState(t *testing.T) {
	s, _, deprecations := newDeprecationService(notifier.NewNop())
	set := seedSet(t, s)
	release := seedRevision(t, s, set.ID, model.StatusLatestRelease, timePtr(date(2024, 1, 1)), nil, "released")

	_, err := deprecations.ApplyDeprecatingChange(context.TODO(), release.ID, "carol", false)

	var illegal *IllegalStateError
	assert.ErrorAs(t, err, &illegal)
	assert.Equal(t, model.StatusLatestRelease, illegal.Status)
}

func TestDeprecationService_ApplyNotificationFailure(t *testing.T) {
	recorder := &recordingNotifier{err: errors.New("broker unavailable")}
	s, _, deprecations := newDeprecationService(recorder)
	set := seedSet(t, s)
	release := seedRevision(t, s, set.ID, model.StatusExpired, timePtr(date(2024, 1, 1)), timePtr(date(2024, 3, 1)), "original")

	draft, err := deprecations.CreateDeprecatingDraft(context.TODO(), release.ID)
	assert.NoError(t, err)

	affectedIDs, err := deprecations.ApplyDeprecatingChange(context.TODO(), draft.ID, "carol", false)

	// the change is committed even though delivery failed
	var notification *NotificationError
	assert.ErrorAs(t, err, &notification)
	assert.Equal(t, set.ID, notification.RevisionSetID)
	assert.Equal(t, []string{release.ID, draft.ID}, affectedIDs)

	deprecated, getErr := s.GetRevisionInfo(context.TODO(), release.ID)
	assert.NoError(t, getErr)
	assert.Equal(t, model.StatusDeprecated, deprecated.Status)
}

func TestDeprecationService_ChainDiamond(t *testing.T) {
	s, _, deprecations := newDeprecationService(notifier.NewNop())
	set := seedSet(t, s)

	d1 := model.NewRevisionInfo(uuid.New().String(), set.ID, tester.ExampleEntityType, tester.CreateExampleRecord("d1"))
	d1.Status = model.StatusDeprecated
	d1.ReleasedAt = timePtr(date(2024, 1, 1))
	d1.ExpiredAt = timePtr(date(2024, 2, 1))
	d1.DeprecatedAt = timePtr(date(2024, 2, 1))
	assert.NoError(t, s.CreateRevisionInfo(context.TODO(), d1))
	d2 := seedRevision(t, s, set.ID, model.StatusExpired, timePtr(date(2024, 2, 1)), timePtr(date(2024, 3, 1)), "d2")
	d3 := seedRevision(t, s, set.ID, model.StatusExpired, timePtr(date(2024, 3, 1)), timePtr(date(2024, 4, 1)), "d3")
	d4 := seedRevision(t, s, set.ID, model.StatusLatestRelease, timePtr(date(2024, 4, 1)), nil, "d4")

	assert.NoError(t, s.AddDeprecations(context.TODO(), d1.ID, []string{d2.ID, d3.ID}))
	assert.NoError(t, s.AddDeprecations(context.TODO(), d2.ID, []string{d4.ID}))
	assert.NoError(t, s.AddDeprecations(context.TODO(), d3.ID, []string{d4.ID}))

	// depth first from the direct edges, every node once at its first position
	chain, err := deprecations.DeprecatedByChain(context.TODO(), d1.ID)
	assert.NoError(t, err)
	assert.Equal(t, []string{d2.ID, d4.ID, d3.ID}, revisionIDs(chain))

	reverse, err := deprecations.DeprecatorOfChain(context.TODO(), d4.ID)
	assert.NoError(t, err)
	assert.Equal(t, []string{d2.ID, d1.ID, d3.ID}, revisionIDs(reverse))
}

func TestDeprecationService_ChainCycleTerminates(t *testing.T) {
	s, _, deprecations := newDeprecationService(notifier.NewNop())
	set := seedSet(t, s)

	a := seedRevision(t, s, set.ID, model.StatusExpired, timePtr(date(2024, 1, 1)), timePtr(date(2024, 2, 1)), "a")
	b := seedRevision(t, s, set.ID, model.StatusExpired, timePtr(date(2024, 2, 1)), timePtr(date(2024, 3, 1)), "b")

	assert.NoError(t, s.AddDeprecations(context.TODO(), a.ID, []string{b.ID}))
	assert.NoError(t, s.AddDeprecations(context.TODO(), b.ID, []string{a.ID}))

	chain, err := deprecations.DeprecatedByChain(context.TODO(), a.ID)
	assert.NoError(t, err)
	assert.Equal(t, []string{b.ID, a.ID}, revisionIDs(chain))
}
