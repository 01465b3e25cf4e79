package session

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/plume-cli/plume/chat/store"
)

// ErrNoActiveSession is returned by operations requiring a conversation when
// none is active.
var ErrNoActiveSession = errors.New("no active session")

// FileContext is a snapshot of a file attached to the conversation. Contexts
// are sent with requests but never persisted, and are discarded on edit.
type FileContext struct {
	Path    string
	Content string
}

// Session is the single active conversation.
type Session struct {
	Messages     []store.Message
	FileContexts []FileContext
	// CreationKey is the millisecond instant identifying the persisted record.
	CreationKey int64
	Title       string
	// Path of the durable record, set on first flush.
	Path string
}

// Manager owns the active conversation and orchestrates persistence and title
// generation around it. It performs no locking: callers must not run two
// mutations concurrently (e.g. a second send while a stream is active).
type Manager struct {
	store  *store.Store
	titles *TitleGenerator
	clock  func() time.Time

	session  *Session
	snapshot []store.Message
	mode     string
	model    string
}

// NewManager instantiates a manager with no active session.
func NewManager(s *store.Store, titles *TitleGenerator) *Manager {
	return &Manager{
		store:  s,
		titles: titles,
		clock:  time.Now,
	}
}

// Start begins a fresh conversation, unconditionally replacing any prior one
// and its edit snapshot.
func (m *Manager) Start(mode, model string) {
	m.mode = mode
	m.model = model
	m.snapshot = nil
	m.session = &Session{CreationKey: m.clock().UnixMilli()}
}

// Active reports whether a conversation is in progress.
func (m *Manager) Active() bool { return m.session != nil }

// Session returns the active conversation, or nil.
func (m *Manager) Session() *Session { return m.session }

// Model returns the active model identifier.
func (m *Manager) Model() string { return m.model }

// Title of the active conversation.
func (m *Manager) Title() string {
	if m.session == nil {
		return ""
	}
	return m.session.Title
}

// SetTitle overrides the conversation title.
func (m *Manager) SetTitle(title string) error {
	if m.session == nil {
		return ErrNoActiveSession
	}
	m.session.Title = title
	return nil
}

// Messages of the active conversation.
func (m *Manager) Messages() []store.Message {
	if m.session == nil {
		return nil
	}
	return m.session.Messages
}

// AttachFile adds a file snapshot to the conversation context.
func (m *Manager) AttachFile(fileContext FileContext) error {
	if m.session == nil {
		return ErrNoActiveSession
	}
	m.session.FileContexts = append(m.session.FileContexts, fileContext)
	return nil
}

// AppendUser appends a user message. The first user message of a session
// triggers title generation (when no title is set) and an immediate flush, so
// a record exists on disk before any assistant output arrives.
func (m *Manager) AppendUser(ctx context.Context, content string) error {
	if m.session == nil {
		return ErrNoActiveSession
	}
	first := !m.hasUserMessage()
	m.session.Messages = append(m.session.Messages, store.Message{
		Role:      store.RoleUser,
		Content:   content,
		Timestamp: m.clock().UnixMilli(),
	})
	if !first {
		return nil
	}
	if m.session.Title == "" && m.titles != nil {
		m.session.Title = m.titles.Generate(ctx, content, m.model)
	}
	return m.Flush()
}

// AppendAssistantDelta extends the trailing assistant message with a streamed
// fragment, appending a new assistant message only when the last message is
// not one. A token-by-token stream therefore produces a single message.
func (m *Manager) AppendAssistantDelta(text string) error {
	if m.session == nil {
		return ErrNoActiveSession
	}
	messages := m.session.Messages
	if n := len(messages); n > 0 && messages[n-1].Role == store.RoleAssistant {
		messages[n-1].Content += text
		return nil
	}
	m.session.Messages = append(messages, store.Message{
		Role:      store.RoleAssistant,
		Content:   text,
		Timestamp: m.clock().UnixMilli(),
	})
	return nil
}

// TruncateAt keeps only the messages strictly before index, saving the removed
// suffix so Restore can undo the edit. Attached files are not retained across
// an edit: the user must re-attach them.
func (m *Manager) TruncateAt(index int) error {
	if m.session == nil {
		return ErrNoActiveSession
	}
	if index < 0 {
		index = 0
	}
	if index > len(m.session.Messages) {
		index = len(m.session.Messages)
	}
	removed := m.session.Messages[index:]
	m.snapshot = make([]store.Message, len(removed))
	copy(m.snapshot, removed)
	m.session.Messages = m.session.Messages[:index]
	m.session.FileContexts = nil
	return nil
}

// Restore re-appends the messages saved by the last TruncateAt and clears the
// snapshot. A no-op when there is nothing to restore.
func (m *Manager) Restore() error {
	if m.session == nil {
		return ErrNoActiveSession
	}
	if m.snapshot == nil {
		return nil
	}
	m.session.Messages = append(m.session.Messages, m.snapshot...)
	m.snapshot = nil
	return nil
}

// Clear discards the conversation and any edit snapshot.
func (m *Manager) Clear() {
	m.session = nil
	m.snapshot = nil
}

// Flush overwrites the durable record with the conversation's current state.
// The caller decides when: periodically during streaming and once at stream
// end; the manager never flushes on its own outside the first user message.
func (m *Manager) Flush() error {
	if m.session == nil {
		return ErrNoActiveSession
	}
	path, err := m.store.Flush(m.session.CreationKey, m.session.Title, m.session.Messages)
	if err != nil {
		return errors.Wrap(err, "flushing session")
	}
	m.session.Path = path
	return nil
}

func (m *Manager) hasUserMessage() bool {
	for _, message := range m.session.Messages {
		if message.Role == store.RoleUser {
			return true
		}
	}
	return false
}
