package settings

import (
	"bytes"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
)

// snapshot holds the in-memory map settings.
type snapshot struct {
	updatedAt time.Time
	values    map[string]json.RawMessage
}

// Store keeps the latest map settings snapshot for lock-free reads.
type Store struct {
	current atomic.Value // stores snapshot
}

// PublicConfig is what the map client needs before it renders.
type PublicConfig struct {
	SiteName  string     `json:"siteName"`
	Center    [2]float64 `json:"center"`
	Zoom      int        `json:"zoom"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// NewStore constructs a Store holding only defaults.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(snapshot{values: map[string]json.RawMessage{}})
	return s
}

// Replace swaps in a new set of raw values.
func (s *Store) Replace(updatedAt time.Time, values map[string]json.RawMessage) {
	next := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		next[key] = bytes.Clone(v)
	}
	s.current.Store(snapshot{updatedAt: updatedAt.UTC(), values: next})
}

// UpdatedAt returns the newest update time among loaded settings.
func (s *Store) UpdatedAt() time.Time {
	return s.load().updatedAt
}

// Value returns a copy of the raw value for key.
func (s *Store) Value(key string) (json.RawMessage, bool) {
	val, ok := s.load().values[strings.TrimSpace(key)]
	if !ok {
		return nil, false
	}
	return bytes.Clone(val), true
}

// String returns the value for key as a string, or def when absent or not a string.
func (s *Store) String(key, def string) string {
	raw, ok := s.Value(key)
	if !ok {
		return def
	}
	var out string
	if err := json.Unmarshal(raw, &out); err != nil || strings.TrimSpace(out) == "" {
		return def
	}
	return strings.TrimSpace(out)
}

// Float returns the value for key as a number, or def when absent or not numeric.
func (s *Store) Float(key string, def float64) float64 {
	raw, ok := s.Value(key)
	if !ok {
		return def
	}
	var out float64
	if err := json.Unmarshal(raw, &out); err != nil {
		return def
	}
	return out
}

// Public assembles the client-visible map configuration.
func (s *Store) Public() PublicConfig {
	cfg := PublicConfig{
		SiteName: s.String(SiteNameKey, DefaultSiteName),
		Center: [2]float64{
			s.Float(MapCenterLatKey, DefaultMapCenterLat),
			s.Float(MapCenterLngKey, DefaultMapCenterLng),
		},
		Zoom: int(s.Float(MapZoomKey, DefaultMapZoom)),
	}
	if updatedAt := s.UpdatedAt(); !updatedAt.IsZero() {
		cfg.UpdatedAt = &updatedAt
	}
	return cfg
}

func (s *Store) load() snapshot {
	cfg, ok := s.current.Load().(snapshot)
	if !ok || cfg.values == nil {
		return snapshot{values: map[string]json.RawMessage{}}
	}
	return cfg
}
