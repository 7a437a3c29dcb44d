package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Natural-Intelligence/be-revisable/internal/model"
)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db: db,
	}
}

var _ Store = (*GormStore)(nil)

type GormStore struct {
	db *gorm.DB
}

func (g *GormStore) CreateRevisionSet(ctx context.Context, set *model.RevisionSet) error {
	return g.db.WithContext(ctx).Create(set).Error
}

func (g *GormStore) GetRevisionSet(ctx context.Context, id string) (*model.RevisionSet, error) {
	var set model.RevisionSet
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&set).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRevisionSetNotFound
	}
	return &set, err
}

func (g *GormStore) DeleteRevisionSet(ctx context.Context, id string) error {
	return g.Transaction(ctx, func(tx Store) error {
		gtx := tx.(*GormStore)
		if err := gtx.db.Where("revision_set_id = ?", id).Delete(&model.RevisionInfo{}).Error; err != nil {
			return err
		}
		return gtx.db.Where("id = ?", id).Delete(&model.RevisionSet{}).Error
	})
}

func (g *GormStore) CreateRevisionInfo(ctx context.Context, info *model.RevisionInfo) error {
	if err := g.guardRevisionInfo(ctx, info); err != nil {
		return err
	}
	return g.db.WithContext(ctx).Create(info).Error
}

func (g *GormStore) SaveRevisionInfo(ctx context.Context, info *model.RevisionInfo) error {
	if err := g.guardRevisionInfo(ctx, info); err != nil {
		return err
	}
	return g.db.WithContext(ctx).Save(info).Error
}

// guardRevisionInfo validates the revision info and enforces that a set holds
// at most one PRIMARY_DRAFT and one LATEST_RELEASE. The check runs on the
// store's current connection, so inside a transaction it is serialized with
// the save it guards.
func (g *GormStore) guardRevisionInfo(ctx context.Context, info *model.RevisionInfo) error {
	if err := info.Validate(); err != nil {
		return err
	}

	if info.Status != model.StatusPrimaryDraft && info.Status != model.StatusLatestRelease {
		return nil
	}

	var count int64
	err := g.db.WithContext(ctx).Model(&model.RevisionInfo{}).
		Where("revision_set_id = ? AND status = ? AND id != ?", info.RevisionSetID, info.Status, info.ID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%s in revision set %s: %w", info.Status, info.RevisionSetID, ErrStatusTaken)
	}

	return nil
}

func (g *GormStore) GetRevisionInfo(ctx context.Context, id string) (*model.RevisionInfo, error) {
	var info model.RevisionInfo
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&info).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRevisionInfoNotFound
	}
	return &info, err
}

func (g *GormStore) GetRevisionInfoByPayload(ctx context.Context, revisionType, revisionID string) (*model.RevisionInfo, error) {
	var info model.RevisionInfo
	err := g.db.WithContext(ctx).
		Where("revision_type = ? AND revision_id = ?", revisionType, revisionID).
		First(&info).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRevisionInfoNotFound
	}
	return &info, err
}

func (g *GormStore) ListRevisionsByStatus(ctx context.Context, setID string, statuses ...model.Status) ([]*model.RevisionInfo, error) {
	var infos []*model.RevisionInfo
	err := g.db.WithContext(ctx).
		Where("revision_set_id = ? AND status IN ?", setID, statuses).
		Order("created_at asc, id asc").
		Find(&infos).Error
	return infos, err
}

func (g *GormStore) RevisionsBetween(ctx context.Context, setID string, interval model.Interval) ([]*model.RevisionInfo, error) {
	var infos []*model.RevisionInfo
	err := g.db.WithContext(ctx).
		Where("revision_set_id = ? AND status IN ?", setID, []model.Status{model.StatusLatestRelease, model.StatusExpired}).
		Where("released_at <= ?", interval.End).
		Where("(expired_at > ? OR expired_at IS NULL)", interval.Start).
		Order("released_at asc, id asc").
		Find(&infos).Error
	return infos, err
}

func (g *GormStore) DeleteRevisionInfo(ctx context.Context, id string) error {
	return g.db.WithContext(ctx).Where("id = ?", id).Delete(&model.RevisionInfo{}).Error
}

func (g *GormStore) EraseDiscardedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	discarded := g.db.WithContext(ctx).Unscoped().
		Where("status = ? AND updated_at < ?", model.StatusDeleted, cutoff).
		Delete(&model.RevisionInfo{})
	if discarded.Error != nil {
		return 0, discarded.Error
	}

	destroyed := g.db.WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Delete(&model.RevisionInfo{})
	if destroyed.Error != nil {
		return discarded.RowsAffected, destroyed.Error
	}

	return discarded.RowsAffected + destroyed.RowsAffected, nil
}

func (g *GormStore) AddDeprecations(ctx context.Context, deprecatedID string, deprecatorIDs []string) error {
	for _, deprecatorID := range deprecatorIDs {
		edge := &model.Deprecation{
			DeprecatorID: deprecatorID,
			DeprecatedID: deprecatedID,
		}
		if err := g.db.WithContext(ctx).Create(edge).Error; err != nil {
			return err
		}
	}
	return nil
}

func (g *GormStore) ListDeprecatorOf(ctx context.Context, id string) ([]*model.RevisionInfo, error) {
	var infos []*model.RevisionInfo
	err := g.db.WithContext(ctx).
		Joins("JOIN revision_deprecations rd ON rd.deprecated_id = revision_infos.id").
		Where("rd.deprecator_id = ?", id).
		Order("rd.id asc").
		Find(&infos).Error
	return infos, err
}

func (g *GormStore) ListDeprecatedBy(ctx context.Context, id string) ([]*model.RevisionInfo, error) {
	var infos []*model.RevisionInfo
	err := g.db.WithContext(ctx).
		Joins("JOIN revision_deprecations rd ON rd.deprecator_id = revision_infos.id").
		Where("rd.deprecated_id = ?", id).
		Order("rd.id asc").
		Find(&infos).Error
	return infos, err
}

func (g *GormStore) CreateRevisionChange(ctx context.Context, change *model.RevisionChange) error {
	return g.db.WithContext(ctx).Create(change).Error
}

func (g *GormStore) ListRevisionChanges(ctx context.Context, revisionInfoID string) ([]*model.RevisionChange, error) {
	var changes []*model.RevisionChange
	err := g.db.WithContext(ctx).
		Where("revision_info_id = ?", revisionInfoID).
		Order("change_date desc").
		Find(&changes).Error
	return changes, err
}

func (g *GormStore) DeleteRevisionChangesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := g.db.WithContext(ctx).Unscoped().
		Where("change_date < ?", cutoff).
		Delete(&model.RevisionChange{})
	if res.Error != nil {
		return 0, res.Error
	}

	if res.RowsAffected > 0 {
		logrus.Infof("pruned %d revision change entries older than %s", res.RowsAffected, cutoff.Format(time.RFC3339))
	}

	return res.RowsAffected, nil
}

func (g *GormStore) Migrate() error {
	return model.Migrate(g.db)
}

func (g *GormStore) Transaction(ctx context.Context, f func(tx Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return f(&GormStore{db: tx})
	})
}
