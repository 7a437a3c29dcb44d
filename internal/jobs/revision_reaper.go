package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Natural-Intelligence/be-revisable/internal/store"
)

// RevisionReaper erases discarded revisions once they have been in the
// DELETED state longer than the retention window. Deprecation-graph edges are
// left in place; provenance outlives its endpoints.
type RevisionReaper struct {
	store     store.Store
	retention time.Duration
	schedule  string
}

func NewRevisionReaper(store store.Store, retention time.Duration, schedule string) *RevisionReaper {
	if schedule == "" {
		schedule = "@hourly"
	}

	return &RevisionReaper{
		store:     store,
		retention: retention,
		schedule:  schedule,
	}
}

func (r *RevisionReaper) Schedule() string {
	return r.schedule
}

func (r *RevisionReaper) Run() {
	cutoff := time.Now().Add(-r.retention)

	reaped, err := r.store.EraseDiscardedBefore(context.TODO(), cutoff)
	if err != nil {
		logrus.Errorf("failed to reap discarded revisions: %v", err)
		return
	}

	if reaped > 0 {
		logrus.Infof("reaped %d discarded revisions older than %s", reaped, cutoff.Format(time.RFC3339))
	}
}
