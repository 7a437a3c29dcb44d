package revisable

import (
	"gorm.io/gorm"

	"github.com/Natural-Intelligence/be-revisable/internal/cache"
	"github.com/Natural-Intelligence/be-revisable/internal/notifier"
	"github.com/Natural-Intelligence/be-revisable/internal/registry"
	"github.com/Natural-Intelligence/be-revisable/internal/service"
	"github.com/Natural-Intelligence/be-revisable/internal/store"
)

// Client bundles the revision services over one database connection.
type Client struct {
	// Revisions exposes the per-revision lifecycle and set queries.
	Revisions *service.RevisionService
	// Deprecations exposes the retroactive-change operations.
	Deprecations *service.DeprecationService
	// Changes exposes the audit trail.
	Changes *service.ChangeLogService
	// Store gives direct access to the backing store.
	Store store.Store
}

// Options tunes the collaborators a client is wired with. The zero value is a
// working configuration: no listeners, no cache, uncompressed audit entries.
type Options struct {
	// Notifier receives change events after retroactive changes commit.
	Notifier notifier.Notifier
	// Cache is invalidated for every revision a retroactive change touches.
	Cache cache.RevisionCache
	// Compression names the codec for audit payload snapshots.
	Compression string
}

// NewClient creates a client over the given database and entity registry.
func NewClient(db *gorm.DB, reg *registry.Registry, opts Options) (*Client, error) {
	if opts.Notifier == nil {
		opts.Notifier = notifier.NewNop()
	}

	gormStore := store.NewGormStore(db)
	revisions := service.NewRevisionService(gormStore, reg)
	deprecations := service.NewDeprecationService(gormStore, reg, opts.Notifier, opts.Cache, revisions)
	changes, err := service.NewChangeLogService(gormStore, opts.Compression)
	if err != nil {
		return nil, err
	}

	return &Client{
		Revisions:    revisions,
		Deprecations: deprecations,
		Changes:      changes,
		Store:        gormStore,
	}, nil
}

// Migrate creates or updates the revision tables.
func (c *Client) Migrate() error {
	return c.Store.Migrate()
}
