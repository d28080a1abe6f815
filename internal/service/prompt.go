package service

import (
	"fmt"
	"strings"

	"github.com/parley-ai/parley/internal/domain"
)

const (
	promptPreamble = "You are a product support assistant. Answer the question using only " +
		"the knowledge references below. When the references do not cover the question, " +
		"say so plainly instead of guessing."

	knowledgeHeader = "Knowledge references:"
	questionHeader  = "Question:"
	historyHeader   = "Recent conversation:"

	noKnowledgePlaceholder = "(no relevant knowledge was retrieved)"

	// maxHistoryMessages bounds how much conversation history the
	// prompt carries; older turns are dropped.
	maxHistoryMessages = 5
)

// sectionMarkers are the structural labels of the assembled prompt.
// They are stripped from user-supplied text so a question cannot
// impersonate a template section.
var sectionMarkers = []string{knowledgeHeader, questionHeader, historyHeader}

// AssemblePrompt builds the chat messages for generation: a fixed
// system preamble, then a single user message holding the numbered
// knowledge excerpts, the question, and up to the last five turns of
// history rendered as "role: content" lines.
func AssemblePrompt(sources []domain.SearchResult, question string, history []domain.Message) []domain.Message {
	var b strings.Builder

	b.WriteString(knowledgeHeader)
	b.WriteString("\n")
	if len(sources) == 0 {
		b.WriteString(noKnowledgePlaceholder)
		b.WriteString("\n")
	} else {
		for i, s := range sources {
			fmt.Fprintf(&b, "[Knowledge %d] (relevance: %.2f) %s\n", i+1, s.Score, sanitizeUserText(s.Content))
		}
	}

	b.WriteString("\n")
	b.WriteString(questionHeader)
	b.WriteString("\n")
	b.WriteString(sanitizeUserText(question))
	b.WriteString("\n")

	if trimmed := trimHistory(history); len(trimmed) > 0 {
		b.WriteString("\n")
		b.WriteString(historyHeader)
		b.WriteString("\n")
		for _, m := range trimmed {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, sanitizeUserText(m.Content))
		}
	}

	return []domain.Message{
		{Role: domain.RoleSystem, Content: promptPreamble},
		{Role: domain.RoleUser, Content: b.String()},
	}
}

func trimHistory(history []domain.Message) []domain.Message {
	if len(history) <= maxHistoryMessages {
		return history
	}
	return history[len(history)-maxHistoryMessages:]
}

// sanitizeUserText removes template section markers from text that
// originates outside the service.
func sanitizeUserText(text string) string {
	for _, marker := range sectionMarkers {
		text = strings.ReplaceAll(text, marker, "")
	}
	return strings.TrimSpace(text)
}
