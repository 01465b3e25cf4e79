package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "Chat History"))
	require.NoError(t, err)
	return s
}

func TestStore_FlushLoadRoundtrip(t *testing.T) {
	s := newTestStore(t)
	messages := []Message{
		{Role: RoleUser, Content: "hi", Timestamp: 1700000000001},
		{Role: RoleAssistant, Content: "hello there", Timestamp: 1700000000002},
	}

	path, err := s.Flush(1700000000000, "Greetings", messages)
	require.NoError(t, err)
	assert.Equal(t, s.RecordPath(1700000000000), path)

	record, err := s.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Greetings", record.Metadata.Title)
	assert.Equal(t, messages, record.Messages)
	assert.Equal(t, int64(1700000000000), record.Key)
}

func TestStore_FlushPreservesCreationTime(t *testing.T) {
	s := newTestStore(t)
	first := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Minute)

	s.clock = func() time.Time { return first }
	_, err := s.Flush(1700000000000, "Hello", []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)

	s.clock = func() time.Time { return second }
	path, err := s.Flush(1700000000000, "Hello", []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "yo"},
	})
	require.NoError(t, err)

	record, err := s.Load(path)
	require.NoError(t, err)
	assert.True(t, record.Metadata.CreatedAt.Equal(first), "created_at must survive the second flush")
	assert.True(t, record.Metadata.LastAccessedAt.Equal(second), "updated_at must move forward")
	require.Len(t, record.Messages, 2)
	assert.Equal(t, "yo", record.Messages[1].Content)
}

func TestStore_LoadNestedMetadataSchema(t *testing.T) {
	s := newTestStore(t)
	document := `{
  "messages": [
    {"role": "user", "content": "legacy question"},
    {"role": "assistant", "content": "legacy answer"}
  ],
  "metadata": {
    "title": "Legacy Chat",
    "createdAt": "2023-06-01T12:00:00Z",
    "lastAccessedAt": "2023-06-02T12:00:00Z"
  }
}`
	path := s.RecordPath(1685620800000)
	require.NoError(t, os.WriteFile(path, []byte(document), 0644))

	record, err := s.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Legacy Chat", record.Metadata.Title)
	assert.Equal(t, time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC), record.Metadata.CreatedAt.UTC())
	assert.Equal(t, time.Date(2023, 6, 2, 12, 0, 0, 0, time.UTC), record.Metadata.LastAccessedAt.UTC())
	require.Len(t, record.Messages, 2)
	assert.Equal(t, "legacy question", record.Messages[0].Content)
}

func TestStore_LoadTextualSchema(t *testing.T) {
	s := newTestStore(t)
	document := `title: "Oldest Chat"
created_at: "2022-01-01T00:00:00Z"
last_accessed_at: "2022-01-02T00:00:00Z"
---
### user
How do I sort a slice?
Across multiple lines?
### assistant
Use sort.Slice.
`
	path := s.RecordPath(1640995200000)
	require.NoError(t, os.WriteFile(path, []byte(document), 0644))

	record, err := s.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Oldest Chat", record.Metadata.Title)
	assert.Equal(t, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), record.Metadata.CreatedAt.UTC())
	require.Len(t, record.Messages, 2)
	assert.Equal(t, RoleUser, record.Messages[0].Role)
	assert.Equal(t, "How do I sort a slice?\nAcross multiple lines?", record.Messages[0].Content)
	assert.Equal(t, RoleAssistant, record.Messages[1].Role)
	assert.Equal(t, "Use sort.Slice.", record.Messages[1].Content)
}

func TestStore_LoadCorruptRecord(t *testing.T) {
	s := newTestStore(t)
	path := s.RecordPath(1700000000000)
	require.NoError(t, os.WriteFile(path, []byte("this matches nothing"), 0644))

	_, err := s.Load(path)
	corrupt := &CorruptRecordError{}
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, path, corrupt.Path)
}

func TestStore_LoadNeverMutates(t *testing.T) {
	s := newTestStore(t)
	path, err := s.Flush(1700000000000, "Stable", []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)

	before, err := os.ReadFile(path)
	require.NoError(t, err)
	_, err = s.Load(path)
	require.NoError(t, err)
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestStore_Touch(t *testing.T) {
	s := newTestStore(t)
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	touched := created.Add(48 * time.Hour)

	s.clock = func() time.Time { return created }
	path, err := s.Flush(1709283600000, "Touched", []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)

	s.clock = func() time.Time { return touched }
	require.NoError(t, s.Touch(path))

	record, err := s.Load(path)
	require.NoError(t, err)
	assert.True(t, record.Metadata.CreatedAt.Equal(created), "touch must not move created_at")
	assert.True(t, record.Metadata.LastAccessedAt.Equal(touched))
	require.Len(t, record.Messages, 1)
	assert.Equal(t, "hi", record.Messages[0].Content)
}

func TestStore_ListOrderAndSkips(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, key := range []int64{1700000000001, 1700000000002, 1700000000003} {
		s.clock = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		_, err := s.Flush(key, "", []Message{{Role: RoleUser, Content: "hi"}})
		require.NoError(t, err)
	}

	// A corrupt record and a non-numeric file must both be skipped.
	require.NoError(t, os.WriteFile(s.RecordPath(1700000000004), []byte("garbage"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(s.directory, "notes.json"), []byte("{}"), 0644))

	records, err := s.List()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, int64(1700000000003), records[0].Key)
	assert.Equal(t, int64(1700000000002), records[1].Key)
	assert.Equal(t, int64(1700000000001), records[2].Key)
}

func TestStore_DeleteAbsentRecord(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Delete(s.RecordPath(1234)))
}

func TestKeyFromPath(t *testing.T) {
	tests := []struct {
		path    string
		wantKey int64
		wantOK  bool
	}{
		{path: "Chat History/1700000000000.json", wantKey: 1700000000000, wantOK: true},
		{path: "1700000000000.json", wantKey: 1700000000000, wantOK: true},
		{path: "Chat History/notes.json", wantOK: false},
		{path: "Chat History/-5.json", wantOK: false},
		{path: "Chat History/12a34.json", wantOK: false},
		{path: "Chat History/.json", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			key, ok := KeyFromPath(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantKey, key)
			}
		})
	}
}
