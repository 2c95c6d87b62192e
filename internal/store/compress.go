package store

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// CompressJSONL zstd-encodes a normalized JSONL tape body.
func CompressJSONL(input []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(input, nil), nil
}

// DecompressJSONL decodes a zstd-compressed tape body back to JSONL bytes.
func DecompressJSONL(input []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(input, nil)
	if err != nil {
		return nil, fmt.Errorf("decode zstd stream: %w", err)
	}
	return out, nil
}
