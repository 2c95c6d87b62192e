// Package store implements the content-addressed, zstd-compressed tape
// archive and its atomic write protocol.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"
)

const tempPrefix = ".engram.tmp."

var atomicCounter uint64

// AtomicWrite stages bytes to a temp file in the same directory as path,
// fsyncs it, then renames it into place. On any failure the temp file is
// removed and no partial file is ever observable at path.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	tempPath := tempPathIn(dir, filepath.Base(path))
	if err := writeTempFile(tempPath, data); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := renameOverwrite(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename into place: %w", err)
	}

	if err := syncParentDir(dir); err != nil {
		return fmt.Errorf("sync parent dir: %w", err)
	}

	return nil
}

func tempPathIn(dir, name string) string {
	counter := atomic.AddUint64(&atomicCounter, 1)
	return filepath.Join(dir, fmt.Sprintf("%s%s.%d.%d.%d", tempPrefix, name, time.Now().UnixNano(), os.Getpid(), counter))
}

func writeTempFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return nil
}

func renameOverwrite(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		if os.IsExist(err) {
			os.Remove(dst)
			return os.Rename(src, dst)
		}
		return err
	}
	return nil
}

func syncParentDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
