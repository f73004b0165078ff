package dialect

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Loader handles loading dialect packs from disk.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a new pack loader.
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{
		logger: logger.With(zap.String("component", "dialect-loader")),
	}
}

// LoadPack loads a single pack from a directory.
func (l *Loader) LoadPack(dir string) (*Pack, error) {
	l.logger.Debug("Loading dialect pack", zap.String("dir", dir))

	manifest, err := ParseManifest(dir)
	if err != nil {
		return nil, err
	}

	keywords, err := LoadKeywords(manifest.KeywordsPath())
	if err != nil {
		return nil, err
	}

	pack := &Pack{
		Manifest: manifest,
		Keywords: keywords,
		LoadedAt: time.Now(),
	}
	l.logger.Info("Dialect pack loaded",
		zap.String("name", pack.Name()),
		zap.String("version", pack.Version()),
		zap.String("engine", pack.Engine()),
		zap.Int("keywords", len(keywords)),
	)
	return pack, nil
}

// Discover scans directories for packs, one per subdirectory.
func (l *Loader) Discover(paths []string) ([]*Pack, error) {
	var packs []*Pack
	var errs []error

	for _, basePath := range paths {
		l.logger.Debug("Scanning dialect directory", zap.String("path", basePath))

		entries, err := os.ReadDir(basePath)
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.Debug("Dialect path does not exist", zap.String("path", basePath))
				continue
			}
			return nil, fmt.Errorf("failed to read directory '%s': %w", basePath, err)
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			packDir := filepath.Join(basePath, entry.Name())

			pack, err := l.LoadPack(packDir)
			if err != nil {
				l.logger.Error("Failed to load dialect pack",
					zap.String("dir", packDir),
					zap.Error(err),
				)
				errs = append(errs, err)
				continue
			}

			packs = append(packs, pack)
		}
	}

	if len(packs) > 0 && len(errs) > 0 {
		l.logger.Warn("Some dialect packs failed to load",
			zap.Int("loaded", len(packs)),
			zap.Int("failed", len(errs)),
		)
	}

	if len(packs) == 0 {
		return nil, &NoPacksFoundError{Paths: paths}
	}

	return packs, nil
}
