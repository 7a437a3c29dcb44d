package model

// Status is the lifecycle state of a revision. A revision set holds at most
// one PRIMARY_DRAFT and at most one LATEST_RELEASE at any time.
type Status string

const (
	// StatusPrimaryDraft is the current edit target of a revision set.
	StatusPrimaryDraft Status = "PRIMARY_DRAFT"
	// StatusTemporaryDraft is a staged alternate edit.
	StatusTemporaryDraft Status = "TEMPORARY_DRAFT"
	// StatusLatestRelease is the currently authoritative released revision.
	StatusLatestRelease Status = "LATEST_RELEASE"
	// StatusExpired is a release superseded by a newer one.
	StatusExpired Status = "EXPIRED"
	// StatusDeprecated is a release retroactively replaced by a deprecating change.
	StatusDeprecated Status = "DEPRECATED"
	// StatusDeprecatingDraft is a draft prepared with a historical validity range.
	StatusDeprecatingDraft Status = "DEPRECATING_DRAFT"
	// StatusDeleted marks a discarded draft awaiting cleanup.
	StatusDeleted Status = "DELETED"
)

var statuses = []Status{
	StatusPrimaryDraft,
	StatusTemporaryDraft,
	StatusLatestRelease,
	StatusExpired,
	StatusDeprecated,
	StatusDeprecatingDraft,
	StatusDeleted,
}

// Valid reports whether s is one of the known lifecycle statuses.
func (s Status) Valid() bool {
	for _, known := range statuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}
