package coach

import (
	"strings"
	"unicode/utf8"
)

// Role identifies the speaker of a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleCoach Role = "coach"
)

// Turn is one message in a conversation.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

const (
	// defaultMaxHistoryTurns bounds how many recent turns reach the prompt.
	defaultMaxHistoryTurns = 6

	// historyCharBudget bounds the total rendered history size.
	historyCharBudget = 3200

	// turnCharLimit bounds a single rendered message.
	turnCharLimit = 600
)

// renderHistory formats the most recent turns for prompt injection:
// at most maxTurns messages, each capped at turnCharLimit characters
// with an ellipsis marker, the whole block capped at historyCharBudget
// by dropping the oldest turns first. Returns "" for empty history.
func renderHistory(history []Turn, maxTurns int) string {
	if maxTurns <= 0 {
		maxTurns = defaultMaxHistoryTurns
	}
	if len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}

	lines := make([]string, 0, len(history))
	for _, t := range history {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		if len(text) > turnCharLimit {
			text = clipRunes(text, turnCharLimit) + "…"
		}
		lines = append(lines, speakerLabel(t.Role)+": "+text)
	}

	// Drop oldest lines until the block fits the budget.
	for len(lines) > 1 && blockLen(lines) > historyCharBudget {
		lines = lines[1:]
	}
	return strings.Join(lines, "\n")
}

// historyTexts extracts the raw message texts, oldest first, for the
// relevance gate.
func historyTexts(history []Turn) []string {
	out := make([]string, 0, len(history))
	for _, t := range history {
		out = append(out, t.Text)
	}
	return out
}

func speakerLabel(r Role) string {
	if r == RoleCoach {
		return "Coach"
	}
	return "User"
}

func blockLen(lines []string) int {
	n := 0
	for _, l := range lines {
		n += len(l) + 1
	}
	return n
}

// clipRunes cuts s to at most limit bytes without splitting a rune.
func clipRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
