package glossary

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Source loads one tier's term mapping. Sources fail independently: the
// engine degrades a failing tier to empty rather than aborting the cascade.
type Source interface {
	Tier() Tier
	Load(ctx context.Context) (map[string]Term, error)
}

// FileSource reads a TOML term list for the override or master tier.
//
//	[[term]]
//	source = "bombay"
//	translation = "mumbai"
//	aliases = ["bombay city"]
type FileSource struct {
	path string
	tier Tier
}

// NewFileSource builds a file-backed tier source. An empty path yields an
// empty tier.
func NewFileSource(path string, tier Tier) *FileSource {
	return &FileSource{path: path, tier: tier}
}

func (s *FileSource) Tier() Tier { return s.tier }

type termFile struct {
	Terms []struct {
		Source      string   `toml:"source"`
		Translation string   `toml:"translation"`
		Aliases     []string `toml:"aliases"`
	} `toml:"term"`
}

func (s *FileSource) Load(_ context.Context) (map[string]Term, error) {
	if s.path == "" {
		return map[string]Term{}, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]Term{}, nil
		}
		return nil, fmt.Errorf("read term file: %w", err)
	}
	var parsed termFile
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse term file %s: %w", s.path, err)
	}

	terms := make(map[string]Term, len(parsed.Terms))
	for _, entry := range parsed.Terms {
		key := normalizeKey(entry.Source)
		if key == "" || entry.Translation == "" {
			continue
		}
		term := Term{
			Source:      key,
			Translation: entry.Translation,
			Tier:        s.tier,
			Aliases:     entry.Aliases,
		}
		terms[key] = term
		for _, alias := range entry.Aliases {
			if aliasKey := normalizeKey(alias); aliasKey != "" {
				terms[aliasKey] = term
			}
		}
	}
	return terms, nil
}

// StaticSource serves a fixed mapping; used in tests and for seeding.
type StaticSource struct {
	tier  Tier
	terms map[string]Term
	err   error
}

// NewStaticSource builds an in-memory tier source.
func NewStaticSource(tier Tier, terms map[string]Term) *StaticSource {
	indexed := make(map[string]Term, len(terms))
	for key, term := range terms {
		normalized := normalizeKey(key)
		term.Source = normalized
		term.Tier = tier
		indexed[normalized] = term
		for _, alias := range term.Aliases {
			if aliasKey := normalizeKey(alias); aliasKey != "" {
				indexed[aliasKey] = term
			}
		}
	}
	return &StaticSource{tier: tier, terms: indexed}
}

// NewFailingSource builds a source that always fails; used to exercise
// graceful degradation.
func NewFailingSource(tier Tier, err error) *StaticSource {
	return &StaticSource{tier: tier, err: err}
}

func (s *StaticSource) Tier() Tier { return s.tier }

func (s *StaticSource) Load(_ context.Context) (map[string]Term, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]Term, len(s.terms))
	for k, v := range s.terms {
		out[k] = v
	}
	return out, nil
}
