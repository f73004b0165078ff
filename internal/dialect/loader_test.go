package dialect

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestLoader_LoadPack_Valid(t *testing.T) {
	loader := NewLoader(zaptest.NewLogger(t))
	dir := filepath.Join("testdata", "dialects", "mysql-extras")

	pack, err := loader.LoadPack(dir)
	if err != nil {
		t.Fatalf("LoadPack() failed: %v", err)
	}

	if pack.Name() != "mysql-extras" {
		t.Errorf("expected name 'mysql-extras', got '%s'", pack.Name())
	}

	if pack.Engine() != "mysql" {
		t.Errorf("expected engine 'mysql', got '%s'", pack.Engine())
	}

	if pack.Version() != "1.0.0" {
		t.Errorf("expected version '1.0.0', got '%s'", pack.Version())
	}

	if _, ok := pack.Keywords["straight_join"]; !ok {
		t.Error("expected keyword keys to be lowercased")
	}

	if pack.LoadedAt.IsZero() {
		t.Error("expected LoadedAt to be set")
	}
}

func TestLoader_LoadPack_ManifestNotFound(t *testing.T) {
	loader := NewLoader(zap.NewNop())
	dir := filepath.Join("testdata", "dialects", "nonexistent")

	_, err := loader.LoadPack(dir)
	if err == nil {
		t.Fatal("LoadPack() should fail for nonexistent directory")
	}

	_, ok := err.(*ManifestNotFoundError)
	if !ok {
		t.Errorf("expected ManifestNotFoundError, got %T", err)
	}
}

func TestLoader_Discover_SkipsInvalid(t *testing.T) {
	loader := NewLoader(zap.NewNop())

	packs, err := loader.Discover([]string{filepath.Join("testdata", "dialects")})
	if err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	if len(packs) != 1 {
		t.Fatalf("expected 1 valid pack, got %d", len(packs))
	}

	if packs[0].Name() != "mysql-extras" {
		t.Errorf("expected 'mysql-extras', got '%s'", packs[0].Name())
	}
}

func TestLoader_Discover_PathNotExist(t *testing.T) {
	loader := NewLoader(zap.NewNop())

	_, err := loader.Discover([]string{"/nonexistent/path"})
	if err == nil {
		t.Fatal("Discover() should fail when path doesn't exist")
	}

	_, ok := err.(*NoPacksFoundError)
	if !ok {
		t.Errorf("expected NoPacksFoundError, got %T", err)
	}
}
