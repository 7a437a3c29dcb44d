package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Natural-Intelligence/be-revisable/internal/compress"
	"github.com/Natural-Intelligence/be-revisable/internal/model"
	"github.com/Natural-Intelligence/be-revisable/internal/store"
)

// NewChangeLogService creates a new ChangeLogService. Payload snapshots are
// stored with the given codec; entries remember their codec so the setting
// can change without breaking old entries.
func NewChangeLogService(store store.Store, kind string) (*ChangeLogService, error) {
	codec, err := compress.New(kind)
	if err != nil {
		return nil, err
	}

	return &ChangeLogService{
		store: store,
		codec: codec,
		kind:  kind,
	}, nil
}

// ChangeLogService appends and reads the audit trail of a revision.
type ChangeLogService struct {
	store store.Store
	codec compress.Compress
	kind  string
}

// Change is a decoded audit entry.
type Change struct {
	ID          string
	UserID      string
	Description string
	Payload     string
	ChangeDate  time.Time
}

// LogChange appends an audit entry to the revision's change log.
func (s *ChangeLogService) LogChange(ctx context.Context, revisionInfoID, userID, description, payload string) (*Change, error) {
	if _, err := s.store.GetRevisionInfo(ctx, revisionInfoID); err != nil {
		return nil, err
	}

	encoded, err := s.codec.Encode([]byte(payload))
	if err != nil {
		return nil, err
	}

	change := &model.RevisionChange{
		ID:             uuid.New().String(),
		RevisionInfoID: revisionInfoID,
		UserID:         userID,
		Description:    description,
		Payload:        encoded,
		Compression:    s.kind,
		ChangeDate:     time.Now(),
	}
	if err := s.store.CreateRevisionChange(ctx, change); err != nil {
		return nil, err
	}

	return &Change{
		ID:          change.ID,
		UserID:      change.UserID,
		Description: change.Description,
		Payload:     payload,
		ChangeDate:  change.ChangeDate,
	}, nil
}

// ListChanges returns the revision's audit entries, newest first, with
// payload snapshots decoded.
func (s *ChangeLogService) ListChanges(ctx context.Context, revisionInfoID string) ([]*Change, error) {
	entries, err := s.store.ListRevisionChanges(ctx, revisionInfoID)
	if err != nil {
		return nil, err
	}

	changes := make([]*Change, 0, len(entries))
	for _, entry := range entries {
		codec, err := compress.New(entry.Compression)
		if err != nil {
			return nil, err
		}
		payload, err := codec.Decode(entry.Payload)
		if err != nil {
			return nil, err
		}
		changes = append(changes, &Change{
			ID:          entry.ID,
			UserID:      entry.UserID,
			Description: entry.Description,
			Payload:     string(payload),
			ChangeDate:  entry.ChangeDate,
		})
	}

	return changes, nil
}
