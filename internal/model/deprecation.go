package model

// Deprecation is one edge of the deprecation graph: the deprecator revision
// retroactively superseded the deprecated one. Edges survive the deletion of
// either endpoint unless cascaded explicitly.
type Deprecation struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	DeprecatorID string `gorm:"uuid;not null;uniqueIndex:idx_revision_deprecations_edge,priority:1"`
	DeprecatedID string `gorm:"uuid;not null;uniqueIndex:idx_revision_deprecations_edge,priority:2"`
}

func (Deprecation) TableName() string {
	return "revision_deprecations"
}
