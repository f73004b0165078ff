package dialect

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/woxQAQ/sql-ls/internal/config"
)

// Manifest represents a dialect pack's manifest.yaml.
type Manifest struct {
	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
	Engine   string `yaml:"engine"`
	Keywords string `yaml:"keywords"` // keyword file, relative to the manifest
	Author   string `yaml:"author"`
	License  string `yaml:"license"`

	// Internal fields
	dir string // Directory containing manifest
}

var validEngines = map[string]bool{
	config.DriverMySQL:    true,
	config.DriverPostgres: true,
	config.DriverSQLite:   true,
}

// ParseManifest reads and parses manifest.yaml from a directory.
func ParseManifest(dir string) (*Manifest, error) {
	manifestPath := filepath.Join(dir, "manifest.yaml")

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, &ManifestNotFoundError{
			Dir: dir,
			Err: err,
		}
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ManifestParseError{
			Path: manifestPath,
			Err:  err,
		}
	}

	m.dir = dir

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest fields.
func (m *Manifest) Validate() error {
	required := []struct {
		field, value string
	}{
		{"name", m.Name},
		{"version", m.Version},
		{"engine", m.Engine},
		{"keywords", m.Keywords},
	}
	for _, r := range required {
		if r.value == "" {
			return &ManifestValidationError{
				Path:    m.Path(),
				Field:   r.field,
				Message: "is required",
			}
		}
	}

	if !validEngines[m.Engine] {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "engine",
			Message: fmt.Sprintf("must be one of mysql, postgres, sqlite (got %s)", m.Engine),
		}
	}

	if _, err := os.Stat(m.KeywordsPath()); os.IsNotExist(err) {
		return &KeywordsNotFoundError{
			ManifestPath: m.Path(),
			File:         m.Keywords,
		}
	}

	return nil
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return filepath.Join(m.dir, "manifest.yaml")
}

// KeywordsPath returns the path of the keyword file.
func (m *Manifest) KeywordsPath() string {
	return filepath.Join(m.dir, m.Keywords)
}

// Dir returns the directory containing the manifest.
func (m *Manifest) Dir() string {
	return m.dir
}
