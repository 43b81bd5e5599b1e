package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderAssistantPrompt(t *testing.T) {
	t.Run("interpolates all three sections", func(t *testing.T) {
		got := RenderAssistantPrompt("Aspirin is an NSAID.", "User: hi\n", "What is aspirin?")

		assert.Contains(t, got, "## Medical Knowledge Base Context:\nAspirin is an NSAID.")
		assert.Contains(t, got, "## Conversation History:\nUser: hi\n")
		assert.Contains(t, got, "## Patient Question:\nWhat is aspirin?")
	})

	t.Run("empty context uses placeholder", func(t *testing.T) {
		got := RenderAssistantPrompt("", "User: hi\n", "q")
		assert.Contains(t, got, NoContextPlaceholder)
		assert.NotContains(t, got, "{context}")
	})

	t.Run("whitespace history uses placeholder", func(t *testing.T) {
		got := RenderAssistantPrompt("ctx", "  \n", "q")
		assert.Contains(t, got, NoHistoryPlaceholder)
		assert.NotContains(t, got, "{chat_history}")
	})

	t.Run("no unresolved placeholders remain", func(t *testing.T) {
		got := RenderAssistantPrompt("", "", "q")
		for _, ph := range []string{"{context}", "{chat_history}", "{question}"} {
			assert.False(t, strings.Contains(got, ph), "placeholder %s not substituted", ph)
		}
	})
}

func TestDisclaimerText(t *testing.T) {
	assert.True(t, strings.HasPrefix(DisclaimerText, "\n---\n"))
	assert.Contains(t, DisclaimerText, "does not replace professional medical advice")
}
