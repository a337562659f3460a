package render

import (
	"context"
	"database/sql"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"rowpage/internal/mustachex"
	"rowpage/models"
)

// compiledEntry pairs a split-compiled template with the row version it was
// compiled from, so Resolve recompiles once the raw row's version changes.
type compiledEntry struct {
	version int
	split   *mustachex.SplitTemplate
}

// Store resolves component names to compiled split templates, backed
// permanently by an in-memory map of raw rows (so ReloadAll always has the
// full catalog available even for rarely-used components) and fronted by a
// bounded LRU of compiled templates, since compilation is the expensive part
// and most requests only touch a handful of components.
type Store struct {
	db *sqlx.DB

	mu  sync.RWMutex
	raw map[string]*models.Template

	compiled *lru.Cache[string, *compiledEntry]
}

// NewStore builds a Store with an LRU of the given size for compiled
// templates. A size of 0 falls back to a reasonable default.
func NewStore(db *sqlx.DB, compiledCacheSize int) (*Store, error) {
	if compiledCacheSize <= 0 {
		compiledCacheSize = 256
	}
	cache, err := lru.New[string, *compiledEntry](compiledCacheSize)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, raw: make(map[string]*models.Template), compiled: cache}, nil
}

// LoadAll reads every active template row into the permanent map. Call once
// at startup before serving traffic.
func (s *Store) LoadAll(ctx context.Context) error {
	var templates []models.Template
	if err := s.db.SelectContext(ctx, &templates, `SELECT * FROM templates WHERE status = 1`); err != nil {
		return err
	}

	s.mu.Lock()
	s.raw = make(map[string]*models.Template, len(templates))
	for i := range templates {
		s.raw[templates[i].Name] = &templates[i]
	}
	s.mu.Unlock()

	log.Info().Int("count", len(templates)).Msg("templates loaded")
	return nil
}

// Resolve returns the compiled split template for name, compiling it on
// first use. A result of nil, nil means the component does not exist.
func (s *Store) Resolve(ctx context.Context, name string) (*mustachex.SplitTemplate, error) {
	s.mu.RLock()
	tmpl, found := s.raw[name]
	s.mu.RUnlock()

	if !found {
		tmpl, err := s.loadOne(ctx, name)
		if err != nil {
			return nil, err
		}
		if tmpl == nil {
			return nil, nil
		}
		s.mu.Lock()
		s.raw[name] = tmpl
		s.mu.Unlock()
	}

	s.mu.RLock()
	tmpl = s.raw[name]
	s.mu.RUnlock()

	if entry, ok := s.compiled.Get(name); ok && entry.version == tmpl.Version {
		return entry.split, nil
	}

	split, err := mustachex.CompileSplit(tmpl.Content)
	if err != nil {
		return nil, NewErrorWithErr(ErrTemplateCompile, err)
	}
	s.compiled.Add(name, &compiledEntry{version: tmpl.Version, split: split})
	return split, nil
}

func (s *Store) loadOne(ctx context.Context, name string) (*models.Template, error) {
	tmpl := &models.Template{}
	err := s.db.GetContext(ctx, tmpl, `SELECT * FROM templates WHERE name = ? AND status = 1 LIMIT 1`, name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tmpl, nil
}

// ReloadAll drops the permanent map and every compiled entry, then reloads
// from the database. Wired to the periodic scheduler so template rows
// changed in the database take effect without a restart.
func (s *Store) ReloadAll(ctx context.Context) error {
	s.compiled.Purge()
	return s.LoadAll(ctx)
}

// ReloadByName refreshes a single component, used by the admin template-push
// endpoint to avoid paying for a full catalog reload on every edit.
func (s *Store) ReloadByName(ctx context.Context, name string) error {
	tmpl, err := s.loadOne(ctx, name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if tmpl == nil {
		delete(s.raw, name)
	} else {
		s.raw[name] = tmpl
	}
	s.mu.Unlock()

	s.compiled.Remove(name)
	return nil
}

// Names returns every currently known component name, for warmup or
// diagnostics.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.raw))
	for name := range s.raw {
		names = append(names, name)
	}
	return names
}
