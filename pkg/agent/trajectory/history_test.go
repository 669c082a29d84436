package trajectory

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/surfer/pkg/actions"
	"github.com/entrhq/surfer/pkg/agent/executor"
	"github.com/entrhq/surfer/pkg/browser"
)

func output(goal string, as ...actions.Action) *actions.StepOutput {
	return &actions.StepOutput{State: actions.AgentState{NextGoal: goal}, Actions: as}
}

func success(a actions.Action, url string) *executor.ExecutionResult {
	return &executor.ExecutionResult{
		Input:   a,
		Output:  &browser.Observation{Metadata: browser.SnapshotMetadata{URL: url}},
		Success: true,
		Message: a.ExecutionMessage(),
	}
}

func failure(a actions.Action, msg string) *executor.ExecutionResult {
	return &executor.ExecutionResult{Input: a, Success: false, Message: msg}
}

func TestStepBoundaries(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	h := New(0)

	var want [][]*executor.ExecutionResult
	for i := 0; i < 25; i++ {
		h.AddOutput(output("goal"))
		var results []*executor.ExecutionResult
		for j := 0; j < rng.Intn(4); j++ {
			r := success(&actions.GoBackAction{}, "https://a.test")
			if rng.Intn(2) == 0 {
				r = failure(&actions.GoBackAction{}, "nope")
			}
			h.AddStep(r)
			results = append(results, r)
		}
		want = append(want, results)
	}

	steps := h.Steps()
	require.Len(t, steps, len(want))
	for i, s := range steps {
		assert.Len(t, s.Results, len(want[i]), "step %d", i)
		for j := range want[i] {
			assert.Same(t, want[i][j], s.Results[j])
		}
	}
}

func TestAddStepWithoutOutput(t *testing.T) {
	h := New(0)
	h.AddStep(failure(&actions.GoBackAction{}, "early"))

	steps := h.Steps()
	require.Len(t, steps, 1)
	assert.Nil(t, steps[0].Output)
	assert.Len(t, steps[0].Results, 1)
}

func TestStepsIsACopy(t *testing.T) {
	h := New(0)
	h.AddOutput(output("a"))
	steps := h.Steps()
	steps[0].Results = append(steps[0].Results, failure(&actions.GoBackAction{}, "x"))

	assert.Empty(t, h.Steps()[0].Results)
}

func TestLastObs(t *testing.T) {
	h := New(0)
	assert.Nil(t, h.LastObs())

	h.AddOutput(output("open", &actions.GotoAction{URL: "https://a.test"}))
	h.AddStep(success(&actions.GotoAction{URL: "https://a.test"}, "https://a.test"))
	h.AddOutput(output("click", &actions.ClickAction{ID: "B1"}))
	h.AddStep(failure(&actions.ClickAction{ID: "B1"}, "gone"))

	obs := h.LastObs()
	require.NotNil(t, obs)
	assert.Equal(t, "https://a.test", obs.Metadata.URL)
}

func TestPerceiveStepResult(t *testing.T) {
	h := New(10)

	ok := success(&actions.ClickAction{ID: "B1"}, "https://a.test")
	assert.Equal(t, "action 'click' with id=B1 succeeded: 'Clicked on the element with id B1'", h.PerceiveStepResult(ok, true))
	assert.Equal(t, "action 'click' succeeded: 'Clicked on the element with id B1'", h.PerceiveStepResult(ok, false))

	bad := failure(&actions.GotoAction{URL: "x"}, strings.Repeat("e", 50))
	assert.Equal(t, "action 'goto' failed with error: eeeeeeeeee...", h.PerceiveStepResult(bad, true))
}

func TestPerceive(t *testing.T) {
	h := New(0)
	assert.Equal(t, h.StartRules(), h.Perceive())

	h.AddOutput(output("search", &actions.FillAction{ID: "I1", Value: "dune"}))
	h.AddStep(success(&actions.FillAction{ID: "I1", Value: "dune"}, "https://a.test"))
	h.AddOutput(&actions.StepOutput{Completion: &actions.CompletionAction{Success: true, Answer: "found"}})

	text := h.Perceive()
	assert.True(t, strings.HasPrefix(text, "[Start of action execution history memory]"))
	assert.True(t, strings.HasSuffix(text, "[End of action execution history memory]"))
	assert.Contains(t, text, "# Execution step 1")
	assert.Contains(t, text, "* Next goal: search")
	assert.Contains(t, text, `{"type":"fill","id":"I1","value":"dune"}`)
	assert.Contains(t, text, "action 'fill' with id=I1 succeeded")
	assert.Contains(t, text, "# Execution step 2")
	assert.Contains(t, text, `"type":"completion"`)
}

func TestReset(t *testing.T) {
	h := New(0)
	h.AddOutput(output("a"))
	h.AddStep(failure(&actions.GoBackAction{}, "x"))
	h.Reset()

	fresh := New(0)
	assert.True(t, cmp.Equal(fresh.Steps(), h.Steps()))
	assert.Equal(t, fresh.Perceive(), h.Perceive())
	assert.Nil(t, h.LastObs())
	assert.Equal(t, DefaultMaxErrorLength, h.MaxErrorLength())
}
