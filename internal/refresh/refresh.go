// Package refresh keeps a resident snapshot of class groups and lessons,
// reloaded from the backend on a cron schedule.
package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "aulacal/internal/log"
	"aulacal/internal/model"
	"aulacal/internal/store"
)

// Snapshot is one consistent load of the backend. It is never mutated after
// publication; readers may hold on to it freely.
type Snapshot struct {
	Groups   []model.ClassGroup
	Lessons  []model.Lesson
	LoadedAt time.Time
}

// Group returns the class group with the given id.
func (s *Snapshot) Group(id string) (model.ClassGroup, bool) {
	for _, g := range s.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return model.ClassGroup{}, false
}

// Refresher reloads the Snapshot. A failed reload keeps the previous
// snapshot resident.
type Refresher struct {
	backend store.Backend
	timeout time.Duration
	now     func() time.Time

	mu       sync.RWMutex
	snapshot *Snapshot

	// loadMu serializes reloads so a slow cron run and a manual refresh do
	// not race to publish.
	loadMu sync.Mutex

	cron *cron.Cron
}

// New returns a Refresher with an empty snapshot.
func New(backend store.Backend) *Refresher {
	return &Refresher{
		backend:  backend,
		timeout:  30 * time.Second,
		now:      time.Now,
		snapshot: &Snapshot{},
	}
}

// Snapshot returns the resident snapshot.
func (r *Refresher) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// Refresh loads groups and lessons and publishes them as the new snapshot.
func (r *Refresher) Refresh(ctx context.Context) (*Snapshot, error) {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := r.now()
	groups, err := r.backend.FetchClassGroups(ctx)
	if err != nil {
		appLog.Error("refresh: fetch class groups failed", err)
		return r.Snapshot(), err
	}
	lessons, err := r.backend.FetchLessonsByGroups(ctx, nil)
	if err != nil {
		appLog.Error("refresh: fetch lessons failed", err)
		return r.Snapshot(), err
	}

	snap := &Snapshot{Groups: groups, Lessons: lessons, LoadedAt: r.now()}
	r.mu.Lock()
	r.snapshot = snap
	r.mu.Unlock()

	orphans := 0
	for _, l := range lessons {
		if l.Group == nil {
			orphans++
		}
	}
	appLog.Info("refresh completed",
		"groups", len(groups),
		"lessons", len(lessons),
		"orphaned_lessons", orphans,
		"took", r.now().Sub(start),
	)
	return snap, nil
}

// Start schedules Refresh on the given cron spec (standard five fields).
func (r *Refresher) Start(spec string) error {
	if r.cron != nil {
		return errors.New("refresh: already started")
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		// Errors are logged by Refresh; the old snapshot stays in place.
		_, _ = r.Refresh(context.Background())
	})
	if err != nil {
		return err
	}
	r.cron = c
	c.Start()
	appLog.Info("refresh scheduled", "cron", spec)
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
	r.cron = nil
}
