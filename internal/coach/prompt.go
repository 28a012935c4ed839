package coach

import (
	"strings"

	"github.com/liftwise/liftwise/internal/knowledge"
)

// rolePrompt is the coach persona prepended to every direct model call.
const rolePrompt = `You are a knowledgeable fitness and health coach.
Be concise and practical. Ground advice in established evidence and
name the tradeoffs. Adapt to the user's topic: training questions get
programming advice, recovery questions get recovery advice. When you
are unsure, say so rather than inventing specifics.`

// buildPrompt renders the direct-call prompt. The reference-material
// and sources sections are omitted entirely when the bundle is empty;
// an empty labeled section confuses smaller models.
func buildPrompt(bundle knowledge.Bundle, historyBlock, input string) string {
	var b strings.Builder
	b.WriteString(rolePrompt)

	if !bundle.IsEmpty {
		b.WriteString("\n\nReference material:\n")
		b.WriteString(bundle.Summary)
		if len(bundle.Sources) > 0 {
			b.WriteString("\n\nSources: ")
			b.WriteString(strings.Join(bundle.Sources, ", "))
		}
	}

	if historyBlock != "" {
		b.WriteString("\n\nConversation so far:\n")
		b.WriteString(historyBlock)
	}

	b.WriteString("\n\nUser question:\n")
	b.WriteString(input)
	b.WriteString("\n\nAnswer as the coach.")
	return b.String()
}

// agentInstruction renders the single instruction block handed to the
// tool agent. The agent decides on its own whether to call tools, so
// the block carries everything: history, reference material, sources
// and the question.
func agentInstruction(bundle knowledge.Bundle, historyBlock, input string) string {
	var b strings.Builder
	b.WriteString(rolePrompt)
	b.WriteString("\n\nYou can call tools to read the user's workout history and manage their routines. Use them when the question depends on the user's own data.")

	if historyBlock != "" {
		b.WriteString("\n\nConversation so far:\n")
		b.WriteString(historyBlock)
	}
	if !bundle.IsEmpty {
		b.WriteString("\n\nReference material:\n")
		b.WriteString(bundle.Summary)
		if len(bundle.Sources) > 0 {
			b.WriteString("\n\nSources: ")
			b.WriteString(strings.Join(bundle.Sources, ", "))
		}
	}

	b.WriteString("\n\nUser question:\n")
	b.WriteString(input)
	return b.String()
}
