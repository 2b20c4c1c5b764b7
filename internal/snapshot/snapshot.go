// Package snapshot persists the local-mode state as a compressed blob and
// compares snapshots.
package snapshot

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pierrec/lz4/v4"

	"github.com/lotas/lesezeichen/internal/applog"
	"github.com/lotas/lesezeichen/internal/storage"
	"github.com/lotas/lesezeichen/internal/types"
)

// Blob layout: 8-byte magic + 4-byte LE uint32 uncompressed size + lz4 block
// data. Same shape as Firefox's mozlz4 files.
var magic = []byte("lszLz40\x00")

const headerSize = 12

// Encode serializes snap to JSON and compresses it.
func Encode(snap types.Snapshot) ([]byte, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	buf := make([]byte, headerSize+lz4.CompressBlockBound(len(raw)))
	copy(buf, magic)
	binary.LittleEndian.PutUint32(buf[8:headerSize], uint32(len(raw)))
	n, err := lz4.CompressBlock(raw, buf[headerSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	return buf[:headerSize+n], nil
}

// Decode reverses Encode.
func Decode(data []byte) (types.Snapshot, error) {
	var snap types.Snapshot
	if len(data) < headerSize {
		return snap, fmt.Errorf("snapshot: data too short (%d bytes)", len(data))
	}
	for i := range magic {
		if data[i] != magic[i] {
			return snap, fmt.Errorf("snapshot: invalid header magic")
		}
	}

	size := binary.LittleEndian.Uint32(data[8:headerSize])
	raw := make([]byte, size)
	n, err := lz4.UncompressBlock(data[headerSize:], raw)
	if err != nil {
		return snap, fmt.Errorf("snapshot: decompress failed: %w", err)
	}
	if err := json.Unmarshal(raw[:n], &snap); err != nil {
		return snap, fmt.Errorf("snapshot: decode: %w", err)
	}
	return snap, nil
}

// Persister saves the local-mode snapshot to the database after every
// mutation.
type Persister struct {
	DB *sql.DB
}

// SaveLocal encodes snap and replaces the stored blob.
func (p Persister) SaveLocal(snap types.Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	if err := storage.SaveLocalBlob(p.DB, data); err != nil {
		return err
	}
	applog.Info("snapshot.saved", "bytes", len(data),
		"categories", len(snap.Categories), "bookmarks", len(snap.Bookmarks))
	return nil
}

// Load returns the stored local-mode snapshot and when it was saved. A
// database without one yields an empty snapshot and the zero time.
func Load(db *sql.DB) (types.Snapshot, time.Time, error) {
	data, savedAt, err := storage.LoadLocalBlob(db)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return types.Snapshot{}, time.Time{}, nil
		}
		return types.Snapshot{}, time.Time{}, err
	}
	snap, err := Decode(data)
	if err != nil {
		return types.Snapshot{}, time.Time{}, err
	}
	return snap, savedAt, nil
}
