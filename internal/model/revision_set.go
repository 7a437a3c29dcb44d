package model

import "gorm.io/gorm"

// RevisionSet groups all revisions of one logical entity across its history.
// Deleting a set cascades to its revision infos.
type RevisionSet struct {
	gorm.Model
	ID         string `gorm:"primaryKey;uuid;not null"`
	EntityType string `gorm:"not null;index"`

	RevisionInfos []*RevisionInfo `gorm:"foreignKey:RevisionSetID;constraint:OnDelete:CASCADE"`
}

func (RevisionSet) TableName() string {
	return "revision_sets"
}
