package notifier

import "context"

// ChangeEvent describes a committed retroactive change. Listeners use the
// affected revision IDs for cache invalidation and reindexing.
type ChangeEvent struct {
	EntityType          string   `json:"entity_type"`
	RevisionSetID       string   `json:"revision_set_id"`
	AffectedRevisionIDs []string `json:"affected_revision_ids"`
}

// Notifier delivers change events to external listeners. Delivery is
// best-effort and happens after the timeline mutation has committed; a
// delivery failure never undoes the change.
type Notifier interface {
	Notify(ctx context.Context, event ChangeEvent) error
}

type Nop struct {
}

func NewNop() Nop {
	return Nop{}
}

func (n Nop) Notify(ctx context.Context, event ChangeEvent) error {
	return nil
}
