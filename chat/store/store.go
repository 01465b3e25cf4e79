package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/plume-cli/plume/internal/debug"
	"github.com/plume-cli/plume/internal/file"
)

const recordExtension = ".json"

// Store persists one JSON document per conversation under a configured
// directory. Documents are keyed by their creation instant in milliseconds.
type Store struct {
	directory string
	clock     func() time.Time
}

// New store rooted at the given directory, created if absent.
func New(directory string) (*Store, error) {
	if err := file.CreateDirectoryIfNotExist(directory); err != nil {
		return nil, errors.Wrap(err, "creating directory")
	}
	return &Store{
		directory: directory,
		clock:     time.Now,
	}, nil
}

// RecordPath returns the path a record with the given creation key lives at.
func (s *Store) RecordPath(key int64) string {
	return filepath.Join(s.directory, strconv.FormatInt(key, 10)+recordExtension)
}

// Flush overwrites the whole record for the given creation key with the
// current title and messages. The creation time of an existing record is
// preserved; the update time is always the current instant.
func (s *Store) Flush(key int64, title string, messages []Message) (string, error) {
	path := s.RecordPath(key)
	now := s.clock()

	createdAt := now
	if existing, err := s.Load(path); err == nil {
		createdAt = existing.Metadata.CreatedAt
	}

	document := &canonicalRecord{
		Title:     title,
		CreatedAt: createdAt.Format(time.RFC3339Nano),
		UpdatedAt: now.Format(time.RFC3339Nano),
		Messages:  messages,
	}
	bytes, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshaling record")
	}
	if err := os.WriteFile(path, bytes, 0644); err != nil {
		return "", errors.Wrap(err, "writing record")
	}
	return path, nil
}

// Load reads a record and normalizes it from whichever schema it matches.
// Loading never mutates the stored document.
func (s *Store) Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading record")
	}
	for _, matcher := range schemaMatchers {
		if !matcher.matches(data) {
			continue
		}
		record, err := matcher.parse(data)
		if err != nil {
			debug.GetLogger().Debug("schema matched but failed to parse",
				"schema", matcher.name, "path", path, "error", err)
			continue
		}
		record.Path = path
		if key, ok := KeyFromPath(path); ok {
			record.Key = key
		}
		return record, nil
	}
	return nil, &CorruptRecordError{Path: path}
}

// Touch rewrites a record with a refreshed access time, leaving its creation
// time and messages untouched.
func (s *Store) Touch(path string) error {
	record, err := s.Load(path)
	if err != nil {
		return err
	}
	document := &canonicalRecord{
		Title:     record.Metadata.Title,
		CreatedAt: record.Metadata.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt: s.clock().Format(time.RFC3339Nano),
		Messages:  record.Messages,
	}
	bytes, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling record")
	}
	if err := os.WriteFile(path, bytes, 0644); err != nil {
		return errors.Wrap(err, "writing record")
	}
	return nil
}

// List returns all parsable records, most recently accessed first. Records
// that fail to parse are skipped, not surfaced.
func (s *Store) List() ([]*Record, error) {
	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return nil, errors.Wrap(err, "listing records")
	}
	var records []*Record
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, recordExtension) {
			continue
		}
		if _, ok := KeyFromPath(name); !ok {
			continue
		}
		path := filepath.Join(s.directory, name)
		record, err := s.Load(path)
		if err != nil {
			debug.GetLogger().Warn("skipping unparsable record", "path", path, "error", err)
			continue
		}
		records = append(records, record)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Metadata.LastAccessedAt.After(records[j].Metadata.LastAccessedAt)
	})
	return records, nil
}

// Delete removes a record. Deleting an absent record is not an error.
func (s *Store) Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing record")
	}
	return nil
}

// KeyFromPath parses the trailing path segment, minus its extension, as a
// creation key. The second return is false when the segment is not purely
// numeric.
func KeyFromPath(path string) (int64, bool) {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, recordExtension)
	if base == "" {
		return 0, false
	}
	for _, r := range base {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	key, err := strconv.ParseInt(base, 10, 64)
	if err != nil {
		return 0, false
	}
	return key, true
}
