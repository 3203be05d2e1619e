// Package metadata implements the MetadataStore: a persistent mapping
// from relative path to { fingerprint, chunk_ids }, plus a header
// recording the schema version and tokenizer digest the records were
// produced under.
package metadata

import "time"

// Fingerprint is the cheap per-file change signal: size and modification
// time, no content hash. An edit that leaves both size and mtime unchanged
// is not detected until a rebuild; a change of mtime alone costs an extra
// re-chunk of that file.
type Fingerprint struct {
	Size       int64
	MtimeNanos int64
}

// FingerprintOf derives a Fingerprint from a file's size and mtime.
func FingerprintOf(size int64, modTime time.Time) Fingerprint {
	return Fingerprint{Size: size, MtimeNanos: modTime.UnixNano()}
}

// FileRecord is one entry in the store: a relative path's last-seen
// fingerprint and the set of chunk IDs currently indexed for it.
type FileRecord struct {
	Path        string
	Fingerprint Fingerprint
	ChunkIDs    []string
}

// Header is the schema/tokenizer tag persisted alongside the records, so
// the engine can detect a stale index (SchemaStale) without re-reading
// the whole index.
type Header struct {
	SchemaVersion   uint32
	TokenizerDigest string
}

// ScanEntry is the minimal per-file shape Diff needs from a FileScanner
// pass: just enough to compute a Fingerprint.
type ScanEntry struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Diff is the result of comparing a scan against the store.
type Diff struct {
	Added     []string
	Modified  []string
	Deleted   []string
	Unchanged []string
}
