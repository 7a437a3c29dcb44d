package model

import "gorm.io/gorm"

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&RevisionSet{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&RevisionInfo{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&Deprecation{}); err != nil {
		return err
	}

	return db.AutoMigrate(&RevisionChange{})
}
