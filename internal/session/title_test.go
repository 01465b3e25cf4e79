package session

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestTitleGenerator_ShortMessagesAreUsedVerbatim(t *testing.T) {
	// A completer that must never be called for short inputs.
	completer := &fixedCompleter{response: "unexpected"}
	g := NewTitleGenerator(completer)

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "single word", text: "hello", want: "Hello"},
		{name: "two words", text: "fix bug", want: "Fix bug"},
		{name: "illegal characters stripped", text: "what?", want: "What"},
		{name: "path separators stripped", text: "cmd/plume", want: "Cmdplume"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Generate(context.Background(), tt.text, "gpt-4o-mini"))
		})
	}
	assert.Equal(t, 0, completer.calls)
}

func TestTitleGenerator_EmptyInputFallsBack(t *testing.T) {
	g := NewTitleGenerator(nil)

	assert.Equal(t, "New Chat", g.Generate(context.Background(), "", "gpt-4o-mini"))
	assert.Equal(t, "New Chat", g.Generate(context.Background(), "   \n\t", "gpt-4o-mini"))
	// Nothing usable survives sanitization.
	assert.Equal(t, "New Chat", g.Generate(context.Background(), "```\ncode only\n```", "gpt-4o-mini"))
}

func TestSanitizeUserText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "markdown link keeps its text",
			text: "see [the docs](https://example.com) for details",
			want: "see the docs for details",
		},
		{
			name: "inline code keeps inner text",
			text: "use `sort.Slice` here",
			want: "use sort.Slice here",
		},
		{
			name: "fenced code block is dropped",
			text: "why does this fail\n```go\npanic(\"boom\")\n```\nin production",
			want: "why does this fail\n\nin production",
		},
		{
			name: "file mention keeps the name",
			text: "refactor @main.go for me",
			want: "refactor main.go for me",
		},
		{
			name: "file context block is dropped",
			text: "summarize this <file-context>\nsecret contents\n</file-context> quickly",
			want: "summarize this  quickly",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeUserText(tt.text))
		})
	}
}

func TestTitleGenerator_SummarizationIsCleaned(t *testing.T) {
	completer := &fixedCompleter{response: "\n \"sorting slices\nin go\" "}
	g := NewTitleGenerator(completer)

	title := g.Generate(context.Background(), "how do I sort a slice of structs", "gpt-4o-mini")
	assert.Equal(t, "Sorting slices in go", title)
	assert.Equal(t, 1, completer.calls)
}

func TestTitleGenerator_LongSummariesAreTruncated(t *testing.T) {
	completer := &fixedCompleter{response: strings.Repeat("a", 80)}
	g := NewTitleGenerator(completer)

	title := g.Generate(context.Background(), "please summarize this very long request", "gpt-4o-mini")
	assert.Equal(t, "A"+strings.Repeat("a", 59)+"...", title)
}

func TestTitleGenerator_FailureFallsBackToHeuristic(t *testing.T) {
	completer := &fixedCompleter{err: errors.New("rate limited")}
	g := NewTitleGenerator(completer)

	title := g.Generate(context.Background(), "explain goroutines to me! then show channels", "gpt-4o-mini")
	assert.Equal(t, "Explain goroutines to me", title)
	assert.Equal(t, 1, completer.calls)
}

func TestTitleGenerator_HeuristicTruncatesWithoutSentenceBreak(t *testing.T) {
	completer := &fixedCompleter{err: errors.New("unavailable")}
	g := NewTitleGenerator(completer)

	long := strings.Repeat("word ", 30) // no sentence break, well over 60 runes
	title := g.Generate(context.Background(), long, "gpt-4o-mini")
	assert.LessOrEqual(t, len([]rune(title)), maxTitleLength)
	assert.True(t, strings.HasPrefix(title, "Word word"))
}

func TestTitleGenerator_NilCompleterUsesHeuristic(t *testing.T) {
	g := NewTitleGenerator(nil)

	title := g.Generate(context.Background(), "how do deadlocks happen? give an example", "gpt-4o-mini")
	assert.Equal(t, "How do deadlocks happen", title)
}
