package glossary

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"transmux/internal/fileutil"
)

// cacheSchemaVersion names the on-disk entry layout. Bumping it invalidates
// every existing entry without touching them: old directories simply stop
// being addressed.
const cacheSchemaVersion = "v1"

const (
	cacheMetaFile  = "meta.json"
	cacheTermsFile = "terms.json"
	cacheLockFile  = ".lock"
)

type cacheMeta struct {
	Subject    string    `json:"subject"`
	CreatedAt  time.Time `json:"created_at"`
	TTLSeconds int64     `json:"ttl_seconds"`
}

// Cache is the TTL-bounded disk cache for enrichment-derived terms. Entries
// are keyed by (subject, schema version); a corrupt or expired entry reads as
// a miss, never as an error. Regeneration for one subject is single-flighted
// across processes with a file lock.
type Cache struct {
	root string
	ttl  time.Duration
	now  func() time.Time
}

// CacheOption customizes cache behavior.
type CacheOption func(*Cache)

// WithClock injects the time source; tests pin TTL boundaries with it.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache builds a disk cache rooted at dir with the given entry lifetime.
func NewCache(dir string, ttl time.Duration, opts ...CacheOption) *Cache {
	c := &Cache{root: dir, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// entryDir maps a subject onto its versioned cache directory.
func (c *Cache) entryDir(subject string) string {
	return filepath.Join(c.root, cacheSchemaVersion, sanitizeSubject(subject))
}

func sanitizeSubject(subject string) string {
	subject = strings.ToLower(strings.TrimSpace(subject))
	var b strings.Builder
	b.Grow(len(subject))
	for _, r := range subject {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// Get returns the cached terms for subject, or a miss. Expired entries are
// misses for the full duration [created+ttl, ...): an entry created at T with
// lifetime D serves hits through T+D-1 and misses from T+D on.
func (c *Cache) Get(subject string) ([]Term, bool) {
	dir := c.entryDir(subject)

	metaData, err := os.ReadFile(filepath.Join(dir, cacheMetaFile))
	if err != nil {
		return nil, false
	}
	var meta cacheMeta
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return nil, false
	}
	ttl := time.Duration(meta.TTLSeconds) * time.Second
	if !c.now().Before(meta.CreatedAt.Add(ttl)) {
		return nil, false
	}

	termsData, err := os.ReadFile(filepath.Join(dir, cacheTermsFile))
	if err != nil {
		return nil, false
	}
	var terms []Term
	if err := json.Unmarshal(termsData, &terms); err != nil {
		return nil, false
	}
	return terms, true
}

// Put stores terms for subject, replacing any prior entry. Both files are
// written atomically so a crash never leaves a half-entry that parses.
func (c *Cache) Put(subject string, terms []Term) error {
	dir := c.entryDir(subject)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure cache entry dir: %w", err)
	}

	termsData, err := json.MarshalIndent(terms, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cached terms: %w", err)
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(dir, cacheTermsFile), termsData, 0o644); err != nil {
		return fmt.Errorf("write cached terms: %w", err)
	}

	meta := cacheMeta{
		Subject:    strings.TrimSpace(subject),
		CreatedAt:  c.now().UTC(),
		TTLSeconds: int64(c.ttl / time.Second),
	}
	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache meta: %w", err)
	}
	// Meta last: a readable meta implies the terms file already landed.
	if err := fileutil.WriteFileAtomic(filepath.Join(dir, cacheMetaFile), metaData, 0o644); err != nil {
		return fmt.Errorf("write cache meta: %w", err)
	}
	return nil
}

// GetOrFill returns the cached terms for subject, regenerating through fill
// on a miss. Regeneration holds a per-subject file lock so concurrent jobs
// fill once; the waiters re-read the fresh entry instead of fetching again.
func (c *Cache) GetOrFill(ctx context.Context, subject string, fill func(context.Context) ([]Term, error)) ([]Term, error) {
	if terms, ok := c.Get(subject); ok {
		return terms, nil
	}

	dir := c.entryDir(subject)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache entry dir: %w", err)
	}
	lock := flock.New(filepath.Join(dir, cacheLockFile))
	if _, err := lock.TryLockContext(ctx, 100*time.Millisecond); err != nil {
		return nil, fmt.Errorf("acquire cache lock for %q: %w", subject, err)
	}
	defer func() { _ = lock.Unlock() }()

	// Another holder may have filled while we waited on the lock.
	if terms, ok := c.Get(subject); ok {
		return terms, nil
	}

	terms, err := fill(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.Put(subject, terms); err != nil {
		return nil, err
	}
	return terms, nil
}
