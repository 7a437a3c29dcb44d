package model

import (
	"time"

	"gorm.io/gorm"
)

// RevisionChange is one append-only audit entry on a revision. The payload
// snapshot is stored compressed; Compression names the codec used.
type RevisionChange struct {
	gorm.Model
	ID             string `gorm:"primaryKey;uuid;not null"`
	RevisionInfoID string `gorm:"uuid;not null;index"`
	UserID         string `gorm:"uuid"`
	Description    string
	Payload        []byte
	Compression    string
	ChangeDate     time.Time `gorm:"not null"`
}

func (RevisionChange) TableName() string {
	return "revision_changes"
}
