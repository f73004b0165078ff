package dialect

import (
	"fmt"
)

// ManifestNotFoundError reports a pack directory without a readable
// manifest.yaml.
type ManifestNotFoundError struct {
	Dir string
	Err error
}

func (e *ManifestNotFoundError) Error() string {
	return fmt.Sprintf("dialect pack directory '%s' has no readable manifest.yaml: %v", e.Dir, e.Err)
}

func (e *ManifestNotFoundError) Unwrap() error {
	return e.Err
}

// ManifestParseError reports a pack manifest or keyword dictionary that is
// not valid YAML.
type ManifestParseError struct {
	Path string
	Err  error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("dialect pack file '%s' is not valid YAML: %v", e.Path, e.Err)
}

func (e *ManifestParseError) Unwrap() error {
	return e.Err
}

// ManifestValidationError reports a manifest field that is missing or names
// an engine no connection can use.
type ManifestValidationError struct {
	Path    string
	Field   string
	Message string
}

func (e *ManifestValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid dialect pack manifest '%s': %s", e.Path, e.Message)
	}
	return fmt.Sprintf("invalid dialect pack manifest '%s': %s %s", e.Path, e.Field, e.Message)
}

// KeywordsNotFoundError occurs when the keyword file named by a manifest is missing.
type KeywordsNotFoundError struct {
	ManifestPath string
	File         string
}

func (e *KeywordsNotFoundError) Error() string {
	return fmt.Sprintf("keyword file '%s' not found (referenced in manifest '%s')",
		e.File, e.ManifestPath)
}

// PackAlreadyRegisteredError occurs when registering a duplicate pack name.
type PackAlreadyRegisteredError struct {
	Name string
}

func (e *PackAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("dialect pack '%s' is already registered", e.Name)
}

// NoPacksFoundError occurs when no packs are found in the configured paths.
type NoPacksFoundError struct {
	Paths []string
}

func (e *NoPacksFoundError) Error() string {
	return fmt.Sprintf("no dialect packs found in paths: %v", e.Paths)
}
