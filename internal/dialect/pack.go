package dialect

import (
	"time"
)

// Pack is a loaded dialect pack: its manifest and keyword dictionary.
type Pack struct {
	// Manifest is the parsed pack metadata
	Manifest *Manifest

	// Keywords maps lowercase keyword to help text
	Keywords map[string]string

	// LoadedAt is the timestamp when the pack was loaded
	LoadedAt time.Time
}

// Name returns the pack name.
func (p *Pack) Name() string {
	return p.Manifest.Name
}

// Engine returns the database engine this pack extends.
func (p *Pack) Engine() string {
	return p.Manifest.Engine
}

// Version returns the pack version.
func (p *Pack) Version() string {
	return p.Manifest.Version
}
