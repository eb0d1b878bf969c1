package executor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// Guest is a WASM build of the embedded runtime.
type Guest interface {
	// Name identifies the build. Used as the cache key for compiled modules,
	// so different builds must have different names.
	Name() string

	// Module returns the WASM binary.
	Module() []byte

	// Args returns the command-line arguments passed to the module.
	Args() []string
}

// FileGuest is a guest loaded from a .wasm file.
type FileGuest struct {
	path   string
	module []byte
	name   string
}

// LoadGuest reads a .wasm build from disk.
func LoadGuest(path string) (*FileGuest, error) {
	module, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load guest: %w", err)
	}
	sum := sha256.Sum256(module)
	return &FileGuest{
		path:   path,
		module: module,
		name:   filepath.Base(path) + "@" + hex.EncodeToString(sum[:8]),
	}, nil
}

// Name returns the file name plus a content hash.
func (g *FileGuest) Name() string {
	return g.name
}

// Module returns the file contents.
func (g *FileGuest) Module() []byte {
	return g.module
}

// Args returns the file's base name as argv[0].
func (g *FileGuest) Args() []string {
	return []string{filepath.Base(g.path)}
}
