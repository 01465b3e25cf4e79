package session

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/plume-cli/plume/internal/debug"
	"github.com/plume-cli/plume/internal/llm"
)

const (
	// fallbackTitle is used when nothing usable survives sanitization.
	fallbackTitle = "New Chat"

	maxTitleLength = 60

	titlePrompt = "Summarize the following message in 2-5 words, to be used as a conversation title. " +
		"Respond with the summary only.\n\n%s"
)

var (
	markdownLinkPattern = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	inlineCodePattern   = regexp.MustCompile("`([^`\n]+)`")
	fencedCodePattern   = regexp.MustCompile("(?s)```.*?```")
	fileMentionPattern  = regexp.MustCompile(`@([^\s@]+)`)
	fileContextPattern  = regexp.MustCompile(`(?s)<file-context>.*?</file-context>`)

	illegalTitleCharacters = `<>:"/\|?*`
)

// TitleGenerator derives a short conversation title from the first user
// message, heuristically or via a one-shot summarization call.
type TitleGenerator struct {
	completer llm.Completer
}

// NewTitleGenerator instantiates a title generator. A nil completer disables
// the summarization call, leaving only the heuristics.
func NewTitleGenerator(completer llm.Completer) *TitleGenerator {
	return &TitleGenerator{completer: completer}
}

// Generate a title for the given raw user text. Never fails: on any error
// from the messaging client it falls back to a local heuristic.
func (g *TitleGenerator) Generate(ctx context.Context, rawUserText, model string) string {
	sanitized := sanitizeUserText(rawUserText)

	if len(strings.Fields(sanitized)) <= 2 {
		if title := capitalize(stripIllegalCharacters(sanitized)); title != "" {
			return title
		}
		return fallbackTitle
	}

	if g.completer != nil {
		summary, err := g.completer.Complete(ctx, model, fmt.Sprintf(titlePrompt, sanitized))
		if err == nil {
			if title := cleanSummary(summary); title != "" {
				return title
			}
		} else {
			debug.GetLogger().Debug("title summarization failed, using heuristic", "error", err)
		}
	}

	if title := heuristicTitle(sanitized); title != "" {
		return title
	}
	return fallbackTitle
}

// sanitizeUserText strips markup that would pollute a title, in fixed order:
// markdown links (keep text), inline code spans (keep inner text), fenced code
// blocks (dropped), file mentions (keep the name), file-context blocks
// (dropped).
func sanitizeUserText(text string) string {
	text = markdownLinkPattern.ReplaceAllString(text, "$1")
	text = inlineCodePattern.ReplaceAllString(text, "$1")
	text = fencedCodePattern.ReplaceAllString(text, "")
	text = fileMentionPattern.ReplaceAllString(text, "$1")
	text = fileContextPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// cleanSummary normalizes a model-produced summary into a title.
func cleanSummary(summary string) string {
	summary = strings.TrimSpace(summary)
	summary = strings.Trim(summary, `"'`)
	summary = strings.ReplaceAll(summary, "\n", " ")
	summary = stripIllegalCharacters(summary)
	summary = truncateWithEllipsis(summary, maxTitleLength)
	return capitalize(summary)
}

// heuristicTitle takes the first sentence, or the first 60 characters when the
// text has no sentence break.
func heuristicTitle(sanitized string) string {
	title := sanitized
	if index := strings.IndexAny(sanitized, ".!?"); index >= 0 {
		title = sanitized[:index]
	} else {
		runes := []rune(sanitized)
		if len(runes) > maxTitleLength {
			title = string(runes[:maxTitleLength])
		}
	}
	title = stripIllegalCharacters(strings.TrimSpace(title))
	return capitalize(title)
}

func stripIllegalCharacters(text string) string {
	var builder strings.Builder
	for _, r := range text {
		if strings.ContainsRune(illegalTitleCharacters, r) {
			continue
		}
		builder.WriteRune(r)
	}
	return strings.TrimSpace(builder.String())
}

func truncateWithEllipsis(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

func capitalize(text string) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return text
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
