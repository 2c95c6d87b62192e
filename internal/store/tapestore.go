package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const tapeSuffix = ".jsonl.zst"

// TapeStore is the content-addressed directory of compressed tapes.
type TapeStore struct {
	dir string
}

// NewTapeStore opens (without yet creating) the tape directory at dir.
func NewTapeStore(dir string) *TapeStore {
	return &TapeStore{dir: dir}
}

// TapeID computes the content address of normalized JSONL bytes.
func TapeID(normalizedJSONL []byte) string {
	sum := sha256.Sum256(normalizedJSONL)
	return hex.EncodeToString(sum[:])
}

func (s *TapeStore) path(tapeID string) string {
	return filepath.Join(s.dir, tapeID+tapeSuffix)
}

// Has reports whether a tape file already exists on disk.
func (s *TapeStore) Has(tapeID string) bool {
	_, err := os.Stat(s.path(tapeID))
	return err == nil
}

// Write compresses and atomically writes a tape's normalized JSONL body.
func (s *TapeStore) Write(tapeID string, normalizedJSONL []byte) error {
	compressed, err := CompressJSONL(normalizedJSONL)
	if err != nil {
		return fmt.Errorf("compress tape %s: %w", tapeID, err)
	}
	if err := AtomicWrite(s.path(tapeID), compressed); err != nil {
		return fmt.Errorf("write tape %s: %w", tapeID, err)
	}
	return nil
}

// Read decompresses and returns a tape's normalized JSONL body.
func (s *TapeStore) Read(tapeID string) ([]byte, error) {
	raw, err := os.ReadFile(s.path(tapeID))
	if err != nil {
		return nil, fmt.Errorf("read tape %s: %w", tapeID, err)
	}
	out, err := DecompressJSONL(raw)
	if err != nil {
		return nil, fmt.Errorf("decompress tape %s: %w", tapeID, err)
	}
	return out, nil
}

// RawSize returns the on-disk compressed size of a tape, for `tapes` listing.
func (s *TapeStore) RawSize(tapeID string) (int64, error) {
	info, err := os.Stat(s.path(tapeID))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// List returns every tape id present on disk. Order is unspecified.
func (s *TapeStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list tapes dir: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, tempPrefix) {
			continue
		}
		if id, ok := strings.CutSuffix(name, tapeSuffix); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// GC removes every tape file whose id is not present in referenced. It
// returns the ids of tapes it removed.
func (s *TapeStore) GC(referenced map[string]struct{}) ([]string, error) {
	ids, err := s.List()
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, id := range ids {
		if _, ok := referenced[id]; ok {
			continue
		}
		if err := os.Remove(s.path(id)); err != nil {
			return removed, fmt.Errorf("remove tape %s: %w", id, err)
		}
		removed = append(removed, id)
	}
	return removed, nil
}
