package metadata

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/probehq/probe/internal/perr"
)

// magic identifies a probe metadata file; formatVersion is the encoding
// version of this file itself (distinct from Header.SchemaVersion, which
// is the index schema version the records were produced under).
var magic = [4]byte{'P', 'M', 'E', 'T'}

const formatVersion uint32 = 1

type onDiskPayload struct {
	Header  Header
	Records map[string]*FileRecord
}

// Store is the MetadataStore: an in-memory view of the on-disk file,
// mutated by Commit and persisted atomically as a single binary file —
// write-to-temp + rename.
type Store struct {
	path string

	mu      sync.RWMutex
	header  Header
	records map[string]*FileRecord
}

// Open loads path if it exists, or returns an empty Store ready for its
// first Commit if it doesn't (a brand-new index).
func Open(path string) (*Store, error) {
	s := &Store{path: path, records: make(map[string]*FileRecord)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, perr.Wrap(perr.IoError, err, "read metadata store "+path)
	}
	if err := s.decode(data); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) decode(data []byte) error {
	if len(data) < 8 {
		return perr.New(perr.IndexCorrupt, "metadata file is truncated")
	}
	if !bytes.Equal(data[:4], magic[:]) {
		return perr.New(perr.IndexCorrupt, "metadata file has an unrecognized magic header")
	}
	version := binary.BigEndian.Uint32(data[4:8])
	if version != formatVersion {
		return perr.Newf(perr.IndexCorrupt, "metadata file format version %d is unsupported", version)
	}

	var payload onDiskPayload
	dec := gob.NewDecoder(bytes.NewReader(data[8:]))
	if err := dec.Decode(&payload); err != nil {
		return perr.Wrap(perr.IndexCorrupt, err, "decode metadata records").
			WithSuggestion("rebuild the index")
	}

	s.header = payload.Header
	if payload.Records != nil {
		s.records = payload.Records
	}
	return nil
}

// Header returns the persisted schema/tokenizer tag.
func (s *Store) Header() Header {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.header
}

// IsStale reports whether the persisted header disagrees with the
// engine's current schema version or tokenizer digest (the SchemaStale
// condition).
func (s *Store) IsStale(want Header) bool {
	h := s.Header()
	return h.SchemaVersion != want.SchemaVersion || h.TokenizerDigest != want.TokenizerDigest
}

// Record returns the stored record for path, if any.
func (s *Store) Record(path string) (*FileRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[path]
	return r, ok
}

// Paths returns every path currently tracked by the store.
func (s *Store) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.records))
	for p := range s.records {
		out = append(out, p)
	}
	return out
}

// Diff compares a scan pass against the store's current records: added
// (new paths), modified (fingerprint differs), deleted (tracked paths
// absent from the scan), unchanged.
func (s *Store) Diff(entries []ScanEntry) Diff {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var d Diff
	seen := make(map[string]bool, len(entries))

	for _, e := range entries {
		seen[e.Path] = true
		fp := FingerprintOf(e.Size, e.ModTime)
		rec, ok := s.records[e.Path]
		switch {
		case !ok:
			d.Added = append(d.Added, e.Path)
		case rec.Fingerprint != fp:
			d.Modified = append(d.Modified, e.Path)
		default:
			d.Unchanged = append(d.Unchanged, e.Path)
		}
	}

	for p := range s.records {
		if !seen[p] {
			d.Deleted = append(d.Deleted, p)
		}
	}

	return d
}

// Commit applies the outcome of one update() pass — upserts for every
// path that was (re)chunked and indexed, removal of every deleted path —
// and persists the result atomically. For crash-safety, callers must
// call Commit only after the SearchIndex writer's commit has already
// returned successfully.
func (s *Store) Commit(upserts map[string]*FileRecord, deleted []string, header Header) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range deleted {
		delete(s.records, p)
	}
	for p, rec := range upserts {
		s.records[p] = rec
	}
	s.header = header

	return s.writeAtomic()
}

func (s *Store) writeAtomic() error {
	var body bytes.Buffer
	enc := gob.NewEncoder(&body)
	if err := enc.Encode(onDiskPayload{Header: s.header, Records: s.records}); err != nil {
		return perr.Wrap(perr.IoError, err, "encode metadata records")
	}

	var out bytes.Buffer
	out.Write(magic[:])
	var versionBuf [4]byte
	binary.BigEndian.PutUint32(versionBuf[:], formatVersion)
	out.Write(versionBuf[:])
	out.Write(body.Bytes())

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return perr.Wrap(perr.IoError, err, "create index directory "+dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return perr.Wrap(perr.IoError, err, "create temp metadata file")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(out.Bytes()); err != nil {
		tmp.Close()
		return perr.Wrap(perr.IoError, err, "write temp metadata file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return perr.Wrap(perr.IoError, err, "sync temp metadata file")
	}
	if err := tmp.Close(); err != nil {
		return perr.Wrap(perr.IoError, err, "close temp metadata file")
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return perr.Wrap(perr.IoError, err, "rename metadata file into place")
	}
	return nil
}
