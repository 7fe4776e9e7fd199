package settings

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const defaultRefreshInterval = time.Minute

// Refresher periodically reloads the map settings snapshot from the database.
type Refresher struct {
	store    *Store
	db       *gorm.DB
	interval time.Duration
	paused   func() bool
}

// NewRefresher returns nil when there is no database to poll.
func NewRefresher(store *Store, db *gorm.DB, interval time.Duration) *Refresher {
	if store == nil || db == nil {
		return nil
	}
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &Refresher{store: store, db: db, interval: interval}
}

// SkipWhen makes the refresher skip polls while paused reports true, for example while the
// primary database is known to be down.
func (r *Refresher) SkipWhen(paused func() bool) *Refresher {
	if r == nil {
		return nil
	}
	r.paused = paused
	return r
}

// Start loads the settings once and keeps polling in a background goroutine until ctx ends.
func (r *Refresher) Start(ctx context.Context) {
	if r == nil {
		return
	}
	r.refreshOnce(ctx)
	go r.run(ctx)
	log.Infof("map settings refresher started (interval=%s)", r.interval)
}

func (r *Refresher) run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refreshOnce(ctx)
		}
	}
}

func (r *Refresher) refreshOnce(ctx context.Context) {
	if r.paused != nil && r.paused() {
		return
	}
	before := r.store.UpdatedAt()
	if errRefresh := r.store.Refresh(ctx, r.db); errRefresh != nil {
		if ctx.Err() == nil {
			log.WithError(errRefresh).Warn("map settings refresh failed, keeping previous values")
		}
		return
	}
	if after := r.store.UpdatedAt(); !after.Equal(before) {
		log.Debugf("map settings reloaded (updated_at=%s)", after.Format(time.RFC3339))
	}
}
