package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/goldenbrick/markermap/internal/models"
)

// fileDocument is the on-disk layout of the substitute store.
type fileDocument struct {
	NextMarkerID uint64          `json:"nextMarkerId"`
	NextUserID   uint64          `json:"nextUserId"`
	Markers      []models.Marker `json:"markers"`
	Users        []models.User   `json:"users"`
}

// FileStore keeps users and markers in a single JSON document on local disk.
// Every mutation rewrites the document before returning. Ids come from persisted
// counters and are never reused.
type FileStore struct {
	path string

	mu  sync.RWMutex
	doc fileDocument
}

// OpenFileStore loads the document at path, creating it when missing.
func OpenFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty substitute path", ErrUnavailable)
	}
	s := &FileStore{path: path}

	data, errRead := os.ReadFile(path)
	switch {
	case errRead == nil && len(bytes.TrimSpace(data)) > 0:
		if errDecode := json.Unmarshal(data, &s.doc); errDecode != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", ErrUnavailable, path, errDecode)
		}
	case errRead == nil, errors.Is(errRead, os.ErrNotExist):
		if errMkdir := os.MkdirAll(filepath.Dir(path), 0o755); errMkdir != nil {
			return nil, fmt.Errorf("%w: create dir: %v", ErrUnavailable, errMkdir)
		}
	default:
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, path, errRead)
	}

	s.normalizeCounters()
	if errPersist := s.persistLocked(); errPersist != nil {
		return nil, errPersist
	}
	return s, nil
}

// Path returns the document location.
func (s *FileStore) Path() string {
	return s.path
}

// Markers returns the marker repository view of the store.
func (s *FileStore) Markers() MarkerRepository {
	return fileMarkers{store: s}
}

// Users returns the user repository view of the store.
func (s *FileStore) Users() UserRepository {
	return fileUsers{store: s}
}

// normalizeCounters keeps counters ahead of every stored id, even for hand-edited documents.
func (s *FileStore) normalizeCounters() {
	if s.doc.NextMarkerID == 0 {
		s.doc.NextMarkerID = 1
	}
	if s.doc.NextUserID == 0 {
		s.doc.NextUserID = 1
	}
	for _, m := range s.doc.Markers {
		if m.ID >= s.doc.NextMarkerID {
			s.doc.NextMarkerID = m.ID + 1
		}
	}
	for _, u := range s.doc.Users {
		if u.ID >= s.doc.NextUserID {
			s.doc.NextUserID = u.ID + 1
		}
	}
	if s.doc.Markers == nil {
		s.doc.Markers = []models.Marker{}
	}
	if s.doc.Users == nil {
		s.doc.Users = []models.User{}
	}
}

// persistLocked writes the document through a temp file and rename. Callers hold mu.
func (s *FileStore) persistLocked() error {
	data, errEncode := json.MarshalIndent(s.doc, "", "  ")
	if errEncode != nil {
		return fmt.Errorf("%w: encode: %v", ErrUnavailable, errEncode)
	}
	tmp := s.path + ".tmp"
	if errWrite := os.WriteFile(tmp, data, 0o600); errWrite != nil {
		return fmt.Errorf("%w: write %s: %v", ErrUnavailable, tmp, errWrite)
	}
	if errRename := os.Rename(tmp, s.path); errRename != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: replace %s: %v", ErrUnavailable, s.path, errRename)
	}
	return nil
}

// mutate applies fn and persists, restoring the previous state when persisting fails.
func (s *FileStore) mutate(ctx context.Context, fn func(doc *fileDocument) error) error {
	if errCtx := ctx.Err(); errCtx != nil {
		return errCtx
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := fileDocument{
		NextMarkerID: s.doc.NextMarkerID,
		NextUserID:   s.doc.NextUserID,
		Markers:      slices.Clone(s.doc.Markers),
		Users:        slices.Clone(s.doc.Users),
	}
	if errApply := fn(&s.doc); errApply != nil {
		s.doc = prev
		return errApply
	}
	if errPersist := s.persistLocked(); errPersist != nil {
		s.doc = prev
		return errPersist
	}
	return nil
}

func cloneMarker(m models.Marker) models.Marker {
	m.ContentItems = bytes.Clone(m.ContentItems)
	return m
}

type fileMarkers struct {
	store *FileStore
}

func (r fileMarkers) List(ctx context.Context) ([]models.Marker, error) {
	if errCtx := ctx.Err(); errCtx != nil {
		return nil, errCtx
	}
	r.store.mu.RLock()
	out := make([]models.Marker, 0, len(r.store.doc.Markers))
	for _, m := range r.store.doc.Markers {
		out = append(out, cloneMarker(m))
	}
	r.store.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r fileMarkers) Get(ctx context.Context, id uint64) (*models.Marker, error) {
	if errCtx := ctx.Err(); errCtx != nil {
		return nil, errCtx
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, m := range r.store.doc.Markers {
		if m.ID == id {
			found := cloneMarker(m)
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (r fileMarkers) Create(ctx context.Context, marker *models.Marker) error {
	return r.store.mutate(ctx, func(doc *fileDocument) error {
		now := time.Now().UTC()
		if marker.CreatedAt.IsZero() {
			marker.CreatedAt = now
		}
		if marker.UpdatedAt.IsZero() {
			marker.UpdatedAt = marker.CreatedAt
		}
		if len(marker.ContentItems) == 0 {
			marker.ContentItems = []byte("[]")
		}
		marker.ID = doc.NextMarkerID
		doc.NextMarkerID++
		doc.Markers = append(doc.Markers, cloneMarker(*marker))
		return nil
	})
}

func (r fileMarkers) Delete(ctx context.Context, id uint64) error {
	return r.store.mutate(ctx, func(doc *fileDocument) error {
		idx := slices.IndexFunc(doc.Markers, func(m models.Marker) bool { return m.ID == id })
		if idx < 0 {
			return ErrNotFound
		}
		doc.Markers = slices.Delete(doc.Markers, idx, idx+1)
		return nil
	})
}

type fileUsers struct {
	store *FileStore
}

func (r fileUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.find(ctx, func(u models.User) bool { return u.Username == username })
}

func (r fileUsers) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	return r.find(ctx, func(u models.User) bool { return u.ID == id })
}

func (r fileUsers) find(ctx context.Context, match func(models.User) bool) (*models.User, error) {
	if errCtx := ctx.Err(); errCtx != nil {
		return nil, errCtx
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, u := range r.store.doc.Users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (r fileUsers) Create(ctx context.Context, user *models.User) error {
	return r.store.mutate(ctx, func(doc *fileDocument) error {
		for _, u := range doc.Users {
			if u.Username == user.Username {
				return ErrConflict
			}
		}
		if user.Role == "" {
			user.Role = models.RoleUser
		}
		if user.CreatedAt.IsZero() {
			user.CreatedAt = time.Now().UTC()
		}
		user.ID = doc.NextUserID
		doc.NextUserID++
		doc.Users = append(doc.Users, *user)
		return nil
	})
}
