// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package dm

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// snapshotVersion guards the cache format. A mismatch discards the
// snapshot instead of guessing at old layouts.
const snapshotVersion = 1

// directorySnapshot is the on-disk form of a thread directory,
// rendered at startup before the live fetch completes.
type directorySnapshot struct {
	Version int       `cbor:"version"`
	SavedAt time.Time `cbor:"saved_at"`
	Threads []Thread  `cbor:"threads"`
}

// snapshotEncMode encodes identifier types (ref.UserID) as CBOR text
// strings via their TextMarshaler; without this their unexported
// fields would serialize as empty maps.
var (
	snapshotEncMode cbor.EncMode
	snapshotDecMode cbor.DecMode

	snapshotCompressor   *zstd.Encoder
	snapshotDecompressor *zstd.Decoder
)

func init() {
	encOptions := cbor.CoreDetEncOptions()
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	var err error
	snapshotEncMode, err = encOptions.EncMode()
	if err != nil {
		panic("dm: CBOR encoder initialization failed: " + err.Error())
	}

	snapshotDecMode, err = cbor.DecOptions{
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("dm: CBOR decoder initialization failed: " + err.Error())
	}

	snapshotCompressor, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("dm: zstd encoder initialization failed: " + err.Error())
	}
	snapshotDecompressor, err = zstd.NewReader(nil)
	if err != nil {
		panic("dm: zstd decoder initialization failed: " + err.Error())
	}
}

// SaveDirectorySnapshot writes the thread directory to path as
// zstd-compressed CBOR, atomically via a temp file rename. The
// snapshot lets the next startup render the directory before the live
// fetch returns.
func SaveDirectorySnapshot(path string, threads []Thread) error {
	encoded, err := snapshotEncMode.Marshal(directorySnapshot{
		Version: snapshotVersion,
		SavedAt: time.Now().UTC(),
		Threads: threads,
	})
	if err != nil {
		return fmt.Errorf("dm: encoding directory snapshot: %w", err)
	}
	compressed := snapshotCompressor.EncodeAll(encoded, nil)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("dm: creating snapshot directory: %w", err)
	}
	temp := path + ".tmp"
	if err := os.WriteFile(temp, compressed, 0o600); err != nil {
		return fmt.Errorf("dm: writing directory snapshot: %w", err)
	}
	if err := os.Rename(temp, path); err != nil {
		return fmt.Errorf("dm: installing directory snapshot: %w", err)
	}
	return nil
}

// LoadDirectorySnapshot reads a snapshot written by
// SaveDirectorySnapshot. A missing file, a corrupt file, or a version
// mismatch all return an error; callers treat any failure as "no
// snapshot" and wait for the live fetch.
func LoadDirectorySnapshot(path string) ([]Thread, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dm: reading directory snapshot: %w", err)
	}
	encoded, err := snapshotDecompressor.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("dm: decompressing directory snapshot: %w", err)
	}

	var snapshot directorySnapshot
	if err := snapshotDecMode.Unmarshal(encoded, &snapshot); err != nil {
		return nil, fmt.Errorf("dm: decoding directory snapshot: %w", err)
	}
	if snapshot.Version != snapshotVersion {
		return nil, fmt.Errorf("dm: snapshot version %d, want %d", snapshot.Version, snapshotVersion)
	}
	return snapshot.Threads, nil
}
