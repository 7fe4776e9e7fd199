package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goldenbrick/markermap/internal/models"
	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// Mode names the backend currently serving operations.
type Mode string

// Storage modes.
const (
	ModePrimary  Mode = "primary"
	ModeDegraded Mode = "degraded"
)

const defaultPingTimeout = 3 * time.Second

// SeedFunc prepares a freshly opened substitute store, e.g. by creating the default admin.
type SeedFunc func(ctx context.Context, users UserRepository, markers MarkerRepository) error

// Options configures a Context.
type Options struct {
	// Primary repositories and their health check. Nil repositories mean the
	// database could not be opened and the first operation degrades.
	PrimaryMarkers MarkerRepository
	PrimaryUsers   UserRepository
	Pinger         Pinger

	// SubstitutePath is the JSON document used in degraded mode.
	SubstitutePath string
	// SeedSubstitute runs once after the substitute store is opened.
	SeedSubstitute SeedFunc
	// OnDegrade is called once, by the caller that flips the state.
	OnDegrade func(cause error)
	// PingTimeout bounds each primary health check.
	PingTimeout time.Duration
}

// Context routes repository calls to the primary store while it is reachable and
// to the file-backed substitute afterwards. The switch happens at most once per
// process; a restart tries the primary again.
type Context struct {
	opts Options

	degraded *atomic.Bool

	substituteOnce  sync.Once
	substitute      *FileStore
	substituteErr   error
	openSubstitute  func(path string) (*FileStore, error)
	primaryDisabled bool
}

// NewContext constructs a Context in primary mode.
func NewContext(opts Options) *Context {
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = defaultPingTimeout
	}
	return &Context{
		opts:            opts,
		degraded:        atomic.NewBool(false),
		openSubstitute:  OpenFileStore,
		primaryDisabled: opts.PrimaryMarkers == nil || opts.PrimaryUsers == nil || opts.Pinger == nil,
	}
}

// Mode reports which backend serves operations.
func (s *Context) Mode() Mode {
	if s.degraded.Load() {
		return ModeDegraded
	}
	return ModePrimary
}

// Degraded reports whether the substitute store is in use.
func (s *Context) Degraded() bool {
	return s.degraded.Load()
}

// Markers returns a MarkerRepository that follows the active backend.
func (s *Context) Markers() MarkerRepository {
	return routedMarkers{ctx: s}
}

// Users returns a UserRepository that follows the active backend.
func (s *Context) Users() UserRepository {
	return routedUsers{ctx: s}
}

// Degrade forces the switch to the substitute store.
func (s *Context) Degrade(cause error) {
	if s.degraded.CompareAndSwap(false, true) {
		log.WithError(cause).Warn("storage: primary unavailable, switching to local substitute store")
		if s.opts.OnDegrade != nil {
			s.opts.OnDegrade(cause)
		}
	}
}

// ping checks the primary within the configured timeout.
func (s *Context) ping(ctx context.Context) error {
	if s.primaryDisabled {
		return errors.New("storage: primary not configured")
	}
	pingCtx, cancel := context.WithTimeout(ctx, s.opts.PingTimeout)
	defer cancel()
	return s.opts.Pinger.Ping(pingCtx)
}

// substituteStore opens the substitute exactly once.
func (s *Context) substituteStore(ctx context.Context) (*FileStore, error) {
	s.substituteOnce.Do(func() {
		store, err := s.openSubstitute(s.opts.SubstitutePath)
		if err != nil {
			s.substituteErr = err
			log.WithError(err).Error("storage: open substitute store failed")
			return
		}
		if s.opts.SeedSubstitute != nil {
			if errSeed := s.opts.SeedSubstitute(context.WithoutCancel(ctx), store.Users(), store.Markers()); errSeed != nil {
				log.WithError(errSeed).Error("storage: seed substitute store failed")
			}
		}
		log.Infof("storage: substitute store ready at %s", store.Path())
		s.substitute = store
	})
	return s.substitute, s.substituteErr
}

// isPassThrough reports errors that belong to the caller, not to the backend.
func isPassThrough(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict)
}

// route runs onPrimary while the primary is healthy and onSubstitute otherwise.
func route[T any](ctx context.Context, s *Context, onPrimary func(context.Context) (T, error), onSubstitute func(*FileStore) (T, error)) (T, error) {
	var zero T
	if !s.degraded.Load() {
		errPing := s.ping(ctx)
		if errPing == nil {
			v, err := onPrimary(ctx)
			if err == nil || isPassThrough(err) {
				return v, err
			}
			if errCtx := ctx.Err(); errCtx != nil {
				return zero, errCtx
			}
			errRecheck := s.ping(ctx)
			if errRecheck == nil {
				return zero, err
			}
			s.Degrade(fmt.Errorf("%w (ping: %v)", err, errRecheck))
		} else {
			if errCtx := ctx.Err(); errCtx != nil {
				return zero, errCtx
			}
			s.Degrade(errPing)
		}
	}

	store, errOpen := s.substituteStore(ctx)
	if errOpen != nil {
		return zero, fmt.Errorf("%w: %v", ErrUnavailable, errOpen)
	}
	v, err := onSubstitute(store)
	if err != nil && !isPassThrough(err) && !errors.Is(err, ErrUnavailable) {
		if errCtx := ctx.Err(); errCtx != nil {
			return zero, errCtx
		}
		return zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return v, err
}

type routedMarkers struct {
	ctx *Context
}

func (r routedMarkers) List(ctx context.Context) ([]models.Marker, error) {
	return route(ctx, r.ctx,
		func(ctx context.Context) ([]models.Marker, error) { return r.ctx.opts.PrimaryMarkers.List(ctx) },
		func(fs *FileStore) ([]models.Marker, error) { return fs.Markers().List(ctx) },
	)
}

func (r routedMarkers) Get(ctx context.Context, id uint64) (*models.Marker, error) {
	return route(ctx, r.ctx,
		func(ctx context.Context) (*models.Marker, error) { return r.ctx.opts.PrimaryMarkers.Get(ctx, id) },
		func(fs *FileStore) (*models.Marker, error) { return fs.Markers().Get(ctx, id) },
	)
}

func (r routedMarkers) Create(ctx context.Context, marker *models.Marker) error {
	_, err := route(ctx, r.ctx,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, r.ctx.opts.PrimaryMarkers.Create(ctx, marker)
		},
		func(fs *FileStore) (struct{}, error) { return struct{}{}, fs.Markers().Create(ctx, marker) },
	)
	return err
}

func (r routedMarkers) Delete(ctx context.Context, id uint64) error {
	_, err := route(ctx, r.ctx,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, r.ctx.opts.PrimaryMarkers.Delete(ctx, id)
		},
		func(fs *FileStore) (struct{}, error) { return struct{}{}, fs.Markers().Delete(ctx, id) },
	)
	return err
}

type routedUsers struct {
	ctx *Context
}

func (r routedUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return route(ctx, r.ctx,
		func(ctx context.Context) (*models.User, error) {
			return r.ctx.opts.PrimaryUsers.FindByUsername(ctx, username)
		},
		func(fs *FileStore) (*models.User, error) { return fs.Users().FindByUsername(ctx, username) },
	)
}

func (r routedUsers) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	return route(ctx, r.ctx,
		func(ctx context.Context) (*models.User, error) { return r.ctx.opts.PrimaryUsers.FindByID(ctx, id) },
		func(fs *FileStore) (*models.User, error) { return fs.Users().FindByID(ctx, id) },
	)
}

func (r routedUsers) Create(ctx context.Context, user *models.User) error {
	_, err := route(ctx, r.ctx,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, r.ctx.opts.PrimaryUsers.Create(ctx, user)
		},
		func(fs *FileStore) (struct{}, error) { return struct{}{}, fs.Users().Create(ctx, user) },
	)
	return err
}
