package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// RevisionInfo carries the lifecycle metadata of a single revision. The
// revision content itself (the payload) lives in the host entity table and is
// referenced by the RevisionType/RevisionID pair.
type RevisionInfo struct {
	gorm.Model
	ID     string `gorm:"primaryKey;uuid;not null"`
	Status Status `gorm:"not null;index:idx_revision_infos_set_status,priority:2"`

	ReleasedAt   *time.Time
	ReleasedBy   *string `gorm:"uuid"`
	ExpiredAt    *time.Time
	DeprecatedAt *time.Time

	RevisionSetID string       `gorm:"uuid;not null;index:idx_revision_infos_set_status,priority:1"`
	RevisionSet   *RevisionSet `gorm:"foreignKey:RevisionSetID"`

	// Tagged reference to the externally owned payload entity.
	RevisionType string `gorm:"not null;index:idx_revision_infos_payload,priority:1"`
	RevisionID   string `gorm:"uuid;not null;index:idx_revision_infos_payload,priority:2"`
}

func (RevisionInfo) TableName() string {
	return "revision_infos"
}

// NewRevisionInfo returns an unreleased revision info attached to the given
// set and payload. PRIMARY_DRAFT is the default status of a fresh revision.
func NewRevisionInfo(id, setID, revisionType, revisionID string) *RevisionInfo {
	return &RevisionInfo{
		ID:            id,
		Status:        StatusPrimaryDraft,
		RevisionSetID: setID,
		RevisionType:  revisionType,
		RevisionID:    revisionID,
	}
}

func (r *RevisionInfo) PrimaryDraft() bool {
	return r.Status == StatusPrimaryDraft
}

func (r *RevisionInfo) TemporaryDraft() bool {
	return r.Status == StatusTemporaryDraft
}

func (r *RevisionInfo) LatestRelease() bool {
	return r.Status == StatusLatestRelease
}

func (r *RevisionInfo) Expired() bool {
	return r.Status == StatusExpired
}

func (r *RevisionInfo) Deprecated() bool {
	return r.Status == StatusDeprecated
}

func (r *RevisionInfo) DeprecatingDraft() bool {
	return r.Status == StatusDeprecatingDraft
}

func (r *RevisionInfo) Deleted() bool {
	return r.Status == StatusDeleted
}

// Released reports whether the revision has been published, i.e. it is either
// the latest release or an expired one.
func (r *RevisionInfo) Released() bool {
	return r.Status == StatusLatestRelease || r.Status == StatusExpired
}

// Ongoing reports whether the revision's validity interval is open-ended.
func (r *RevisionInfo) Ongoing() bool {
	return r.ExpiredAt == nil
}

// ReleasedRange returns the validity interval [released_at, expired_at) of a
// released revision, with the upper bound clamped to now while ongoing.
// Returns nil for unreleased revisions.
func (r *RevisionInfo) ReleasedRange() *Interval {
	if !r.Released() || r.ReleasedAt == nil {
		return nil
	}
	end := time.Now()
	if r.ExpiredAt != nil {
		end = *r.ExpiredAt
	}
	return &Interval{Start: *r.ReleasedAt, End: end}
}

// SetAsExpired marks the revision expired at the given time.
func (r *RevisionInfo) SetAsExpired(expiredAt time.Time) *RevisionInfo {
	r.Status = StatusExpired
	r.ExpiredAt = &expiredAt
	return r
}

// SetAsPrimaryDraft marks the revision as the set's edit target.
func (r *RevisionInfo) SetAsPrimaryDraft() *RevisionInfo {
	r.Status = StatusPrimaryDraft
	return r
}

// SetAsTemporaryDraft marks the revision as a staged alternate edit.
func (r *RevisionInfo) SetAsTemporaryDraft() *RevisionInfo {
	r.Status = StatusTemporaryDraft
	return r
}

// SetAsDeprecatingDraft marks the revision as a retroactive-change draft.
func (r *RevisionInfo) SetAsDeprecatingDraft() *RevisionInfo {
	r.Status = StatusDeprecatingDraft
	return r
}

// SetAsDeleted marks the revision as discarded.
func (r *RevisionInfo) SetAsDeleted() *RevisionInfo {
	r.Status = StatusDeleted
	return r
}

// SetAsLatestRelease marks the revision as the current release and clears its
// expiry. Release metadata is only stamped when setMetadata is true; rollback
// re-promotes an expired release without touching who/when it was released.
func (r *RevisionInfo) SetAsLatestRelease(releasedBy *string, releasedAt time.Time, setMetadata bool) *RevisionInfo {
	if setMetadata {
		r.ReleasedAt = &releasedAt
		r.ReleasedBy = releasedBy
	}
	r.ExpiredAt = nil
	r.Status = StatusLatestRelease
	return r
}

// ReleasedAfter reports whether r starts strictly after other.
func (r *RevisionInfo) ReleasedAfter(other *RevisionInfo) bool {
	if r.ReleasedAt == nil || other.ReleasedAt == nil {
		return false
	}
	return r.ReleasedAt.After(*other.ReleasedAt)
}

// ExpiresBefore reports whether r's validity ends strictly before other's. An
// unset expiry compares as infinitely far in the future, so two ongoing
// revisions are equal and an ongoing one never expires before anything.
func (r *RevisionInfo) ExpiresBefore(other *RevisionInfo) bool {
	switch {
	case r.ExpiredAt == nil && other.ExpiredAt == nil:
		return false
	case r.ExpiredAt == nil:
		return false
	case other.ExpiredAt == nil:
		return true
	default:
		return r.ExpiredAt.Before(*other.ExpiredAt)
	}
}

// ErrInvariant marks a validation failure that would corrupt the timeline.
var ErrInvariant = errors.New("revision invariant violated")

// Validate checks the invariants a revision info must hold before any save.
func (r *RevisionInfo) Validate() error {
	if r.RevisionSetID == "" {
		return fmt.Errorf("revision info %s: revision set is required: %w", r.ID, ErrInvariant)
	}
	if r.RevisionType == "" || r.RevisionID == "" {
		return fmt.Errorf("revision info %s: payload reference is required: %w", r.ID, ErrInvariant)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("revision info %s: unknown status %q: %w", r.ID, r.Status, ErrInvariant)
	}
	if r.Deprecated() && r.DeprecatedAt == nil {
		return fmt.Errorf("revision info %s: deprecated_at can't be blank when deprecated: %w", r.ID, ErrInvariant)
	}
	if r.ExpiredAt != nil {
		if r.ReleasedAt == nil {
			return fmt.Errorf("revision info %s: released_at must be set when expired_at is set: %w", r.ID, ErrInvariant)
		}
		if r.ReleasedAt.After(*r.ExpiredAt) {
			return fmt.Errorf("revision info %s: expired_at must come after released_at: %w", r.ID, ErrInvariant)
		}
	}
	return nil
}

func (r *RevisionInfo) MarshalBinary() ([]byte, error) {
	return json.Marshal(r)
}
