package alias

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Source produces a fresh table. Store calls it only at reload points.
type Source interface {
	Load(ctx context.Context) (*Table, error)
}

// OverlaySource supplies curated aliases that are merged over the file.
type OverlaySource interface {
	LoadOverlay(ctx context.Context) (Overlay, error)
}

// FileSource reads the YAML table on every load so edits apply at the next reload.
type FileSource struct {
	Path    string
	Overlay OverlaySource // optional
}

func (s FileSource) Load(ctx context.Context) (*Table, error) {
	f, err := ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	t, err := NewTable(f)
	if err != nil {
		return nil, fmt.Errorf("build alias table: %w", err)
	}
	if s.Overlay == nil {
		return t, nil
	}
	o, err := s.Overlay.LoadOverlay(ctx)
	if err != nil {
		return nil, fmt.Errorf("load alias overlay: %w", err)
	}
	return t.WithOverlay(o)
}

// ReadFile parses an alias YAML file.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read alias file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse alias file: %w", err)
	}
	return f, nil
}

// Store holds the current table. Readers take one snapshot per cycle; Reload swaps it between cycles.
type Store struct {
	source  Source
	current atomic.Pointer[Table]

	reloadMu sync.Mutex
	version  uint64
}

func NewStore(source Source) *Store {
	return &Store{source: source}
}

// NewStaticStore wraps an already built table, mostly for tests and one-off tools.
func NewStaticStore(t *Table) *Store {
	s := &Store{}
	s.version = 1
	t.version = 1
	s.current.Store(t)
	return s
}

// Current returns the active table, nil before the first successful reload.
func (s *Store) Current() *Table {
	return s.current.Load()
}

// Reload builds a new table from the source. On failure the previous table stays active.
func (s *Store) Reload(ctx context.Context) (*Table, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	if s.source == nil {
		return s.Current(), nil
	}

	t, err := s.source.Load(ctx)
	if err != nil {
		if prev := s.Current(); prev != nil {
			slog.Warn("Alias reload failed, keeping previous table", "version", prev.Version(), "error", err)
			return prev, err
		}
		return nil, err
	}

	s.version++
	t.version = s.version
	s.current.Store(t)

	st := t.Stats()
	slog.Info("Alias table loaded", "version", st.Version, "teams", st.Teams, "book_aliases", st.BookAliases, "markets", st.Markets)
	return t, nil
}
