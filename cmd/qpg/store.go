package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/generalpiston/qpg/internal/settings"
	"github.com/generalpiston/qpg/internal/store"
)

// storePath returns the local store's database file path under the cache
// directory, creating the directory if needed.
func storePath() (string, error) {
	dir := settings.CacheDir()
	if dir == "" {
		return "", errors.New("cannot resolve cache directory: no home directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "qpg.db"), nil
}

func openStore(multiThread bool) (*store.Store, error) {
	path, err := storePath()
	if err != nil {
		return nil, err
	}
	return store.Open(path, multiThread)
}
