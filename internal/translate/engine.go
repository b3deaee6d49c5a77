package translate

import "context"

// Request carries one segment through an engine.
type Request struct {
	Text       string
	SourceLang string
	TargetLang string
	// Hints are glossary mappings the engine should honor. Engines may
	// ignore them; the router re-applies the glossary after scoring.
	Hints []Hint
}

// Hint is one terminology mapping forwarded to an engine.
type Hint struct {
	Source      string
	Translation string
}

// Result is one engine's candidate translation.
type Result struct {
	Text   string
	Engine string
}

// Engine produces candidate translations. Implementations must be safe for
// concurrent use: the router fans one engine out across target languages.
type Engine interface {
	Name() string
	Translate(ctx context.Context, req Request) (Result, error)
}
