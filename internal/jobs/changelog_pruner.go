package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Natural-Intelligence/be-revisable/internal/store"
)

// ChangeLogPruner removes audit entries older than the retention window. The
// change log is append-only; pruning is the only thing that ever shrinks it.
type ChangeLogPruner struct {
	store     store.Store
	retention time.Duration
	schedule  string
}

func NewChangeLogPruner(store store.Store, retention time.Duration, schedule string) *ChangeLogPruner {
	if schedule == "" {
		schedule = "@daily"
	}

	return &ChangeLogPruner{
		store:     store,
		retention: retention,
		schedule:  schedule,
	}
}

func (p *ChangeLogPruner) Schedule() string {
	return p.schedule
}

func (p *ChangeLogPruner) Run() {
	cutoff := time.Now().Add(-p.retention)

	pruned, err := p.store.DeleteRevisionChangesBefore(context.TODO(), cutoff)
	if err != nil {
		logrus.Errorf("failed to prune revision changes: %v", err)
		return
	}

	if pruned > 0 {
		logrus.Infof("pruned %d revision changes older than %s", pruned, cutoff.Format(time.RFC3339))
	}
}
