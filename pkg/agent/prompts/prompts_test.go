package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/surfer/pkg/actions"
)

func TestSystemPromptSections(t *testing.T) {
	system := NewDefault(3).System()

	for _, section := range []string{
		"<system_capabilities>",
		"<agent_loop>",
		"<observation_format>",
		"<output_format>",
		"<rules>",
	} {
		assert.Contains(t, system, section)
	}
	assert.Contains(t, system, "at most 3 action objects")
	assert.NotContains(t, system, "Return exactly one action per response.")
	assert.NotContains(t, system, "<custom_instructions>")
}

func TestSingleActionPrompt(t *testing.T) {
	system := NewDefault(0).System()
	assert.Contains(t, system, "at most 1 action objects")
	assert.Contains(t, system, "Return exactly one action per response.")
}

func TestCustomInstructions(t *testing.T) {
	system := NewDefault(1).WithCustomInstructions("Never buy anything.").System()
	assert.True(t, strings.HasPrefix(system, "<custom_instructions>\nNever buy anything.\n</custom_instructions>"))
}

func TestTaskPrompt(t *testing.T) {
	task := NewDefault(1).Task("find the cheapest flight")
	assert.Contains(t, task, "<task>\nfind the cheapest flight\n</task>")
}

func TestActionCatalogueDecodes(t *testing.T) {
	catalogue := FormatActionCatalogue()

	var decoded []actions.ActionType
	for _, line := range strings.Split(catalogue, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") {
			continue
		}
		a, err := actions.DecodeAction([]byte(line))
		require.NoError(t, err, line)
		decoded = append(decoded, a.Type())
	}

	assert.Equal(t, []actions.ActionType{
		actions.TypeGoto,
		actions.TypeClick,
		actions.TypeFill,
		actions.TypePressKey,
		actions.TypeScroll,
		actions.TypeGoBack,
		actions.TypeWait,
		actions.TypeScrape,
		actions.TypeCompletion,
	}, decoded)
}
