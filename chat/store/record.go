package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one turn of a stored conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	// Timestamp is a millisecond instant; zero means unknown (legacy records).
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Metadata is the normalized header of a stored conversation.
type Metadata struct {
	Title          string
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// Record is a stored conversation normalized from any accepted schema.
type Record struct {
	Key      int64
	Path     string
	Messages []Message
	Metadata Metadata
}

// CorruptRecordError reports a document matching none of the accepted schemas.
type CorruptRecordError struct {
	Path string
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("record matches no known schema: %s", e.Path)
}

// canonicalRecord is the current on-disk schema.
type canonicalRecord struct {
	Title     string    `json:"title"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// nestedMetadataRecord is the previous schema: messages alongside a metadata
// object with camelCase keys.
type nestedMetadataRecord struct {
	Messages []Message `json:"messages"`
	Metadata struct {
		Title          string `json:"title"`
		CreatedAt      string `json:"createdAt"`
		LastAccessedAt string `json:"lastAccessedAt"`
	} `json:"metadata"`
}

// schemaMatcher pairs a pure shape predicate with a parser. Matchers are tried
// in fixed priority order; a document matching none is a corrupt record.
type schemaMatcher struct {
	name    string
	matches func(data []byte) bool
	parse   func(data []byte) (*Record, error)
}

var schemaMatchers = []schemaMatcher{
	{name: "canonical", matches: matchesCanonical, parse: parseCanonical},
	{name: "nested-metadata", matches: matchesNestedMetadata, parse: parseNestedMetadata},
	{name: "textual-header", matches: matchesTextual, parse: parseTextual},
}

func topLevelKeys(data []byte) map[string]json.RawMessage {
	keys := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil
	}
	return keys
}

func matchesCanonical(data []byte) bool {
	keys := topLevelKeys(data)
	if keys == nil {
		return false
	}
	_, hasCreatedAt := keys["created_at"]
	_, hasMessages := keys["messages"]
	return hasCreatedAt && hasMessages
}

func parseCanonical(data []byte) (*Record, error) {
	document := &canonicalRecord{}
	if err := json.Unmarshal(data, document); err != nil {
		return nil, errors.Wrap(err, "unmarshaling canonical record")
	}
	createdAt, err := time.Parse(time.RFC3339, document.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "parsing created_at")
	}
	updatedAt, err := time.Parse(time.RFC3339, document.UpdatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "parsing updated_at")
	}
	return &Record{
		Messages: document.Messages,
		Metadata: Metadata{
			Title:          document.Title,
			CreatedAt:      createdAt,
			LastAccessedAt: updatedAt,
		},
	}, nil
}

func matchesNestedMetadata(data []byte) bool {
	keys := topLevelKeys(data)
	if keys == nil {
		return false
	}
	_, hasMetadata := keys["metadata"]
	_, hasMessages := keys["messages"]
	return hasMetadata && hasMessages
}

func parseNestedMetadata(data []byte) (*Record, error) {
	document := &nestedMetadataRecord{}
	if err := json.Unmarshal(data, document); err != nil {
		return nil, errors.Wrap(err, "unmarshaling nested-metadata record")
	}
	createdAt, err := time.Parse(time.RFC3339, document.Metadata.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "parsing createdAt")
	}
	lastAccessedAt, err := time.Parse(time.RFC3339, document.Metadata.LastAccessedAt)
	if err != nil {
		return nil, errors.Wrap(err, "parsing lastAccessedAt")
	}
	return &Record{
		Messages: document.Messages,
		Metadata: Metadata{
			Title:          document.Metadata.Title,
			CreatedAt:      createdAt,
			LastAccessedAt: lastAccessedAt,
		},
	}, nil
}

// The oldest schema is textual: a header of `key: "value"` lines closed by a
// `---` marker, then message sections introduced by `### <role>` labels.
const (
	textualHeaderDelimiter = "---"
	textualRolePrefix      = "### "
)

func matchesTextual(data []byte) bool {
	text := string(data)
	if !strings.Contains(text, "\n"+textualHeaderDelimiter) && !strings.HasPrefix(text, textualHeaderDelimiter) {
		return false
	}
	return strings.Contains(text, `: "`)
}

func parseTextual(data []byte) (*Record, error) {
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")

	// Header block.
	header := map[string]string{}
	i := 0
	for ; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == textualHeaderDelimiter {
			i++
			break
		}
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
			header[strings.TrimSpace(key)] = value[1 : len(value)-1]
		}
	}

	metadata := Metadata{Title: header["title"]}
	if raw, ok := header["created_at"]; ok {
		createdAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, errors.Wrap(err, "parsing created_at")
		}
		metadata.CreatedAt = createdAt
	}
	if raw, ok := header["last_accessed_at"]; ok {
		lastAccessedAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, errors.Wrap(err, "parsing last_accessed_at")
		}
		metadata.LastAccessedAt = lastAccessedAt
	}

	// Message sections. Body runs to the next role label or end of document.
	var messages []Message
	var current *Message
	flush := func() {
		if current != nil {
			current.Content = strings.Trim(current.Content, "\n")
			messages = append(messages, *current)
			current = nil
		}
	}
	for ; i < len(lines); i++ {
		line := lines[i]
		if strings.HasPrefix(line, textualRolePrefix) {
			flush()
			role := strings.TrimSpace(strings.TrimPrefix(line, textualRolePrefix))
			current = &Message{Role: role}
			continue
		}
		if current != nil {
			current.Content += line + "\n"
		}
	}
	flush()

	return &Record{Messages: messages, Metadata: metadata}, nil
}
