package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/surfer/pkg/actions"
	"github.com/entrhq/surfer/pkg/browser"
)

var errBoom = errors.New("boom")

// scriptedAct succeeds or fails according to outcomes, in order.
func scriptedAct(outcomes ...bool) ActFunc {
	i := 0
	return func(ctx context.Context, a actions.Action) (*browser.Observation, error) {
		ok := outcomes[i%len(outcomes)]
		i++
		if ok {
			return &browser.Observation{Metadata: browser.SnapshotMetadata{URL: "https://shop.test"}}, nil
		}
		return nil, errBoom
	}
}

func TestExecuteSuccess(t *testing.T) {
	e := New(scriptedAct(true))
	action := &actions.ClickAction{ID: "B1"}

	res, err := e.Execute(context.Background(), action)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Same(t, action, res.Input)
	require.NotNil(t, res.Output)
	assert.Equal(t, "Clicked on the element with id B1", res.Message)
	assert.Equal(t, 0, e.ConsecutiveFailures())
}

func TestExecuteFailureBudget(t *testing.T) {
	for _, failFast := range []bool{false, true} {
		name := "fail-soft"
		if failFast {
			name = "fail-fast"
		}
		t.Run(name, func(t *testing.T) {
			const max = 3
			e := New(scriptedAct(false), WithMaxConsecutiveFailures(max), WithFailFast(failFast))

			for k := 1; k <= max; k++ {
				res, err := e.Execute(context.Background(), &actions.GoBackAction{})
				require.NotNil(t, res)
				assert.False(t, res.Success)
				assert.Equal(t, k, e.ConsecutiveFailures())

				if failFast {
					var afe *ActionFailedError
					require.True(t, errors.As(err, &afe))
					assert.ErrorIs(t, err, errBoom)
				} else {
					assert.NoError(t, err)
				}
			}

			res, err := e.Execute(context.Background(), &actions.GoBackAction{})
			require.NotNil(t, res)
			assert.False(t, res.Success)
			var mcf *MaxConsecutiveFailuresError
			require.True(t, errors.As(err, &mcf), "failure %d must be fatal", max+1)
			assert.Equal(t, max+1, mcf.Count)
			assert.Equal(t, max, mcf.Max)
		})
	}
}

func TestExecuteSuccessResetsCounter(t *testing.T) {
	e := New(scriptedAct(false, false, true, false), WithMaxConsecutiveFailures(2))

	for i := 0; i < 2; i++ {
		_, err := e.Execute(context.Background(), &actions.GoBackAction{})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, e.ConsecutiveFailures())

	res, err := e.Execute(context.Background(), &actions.GoBackAction{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 0, e.ConsecutiveFailures())

	_, err = e.Execute(context.Background(), &actions.GoBackAction{})
	require.NoError(t, err)
	assert.Equal(t, 1, e.ConsecutiveFailures())
}

func TestExecuteZeroBudget(t *testing.T) {
	e := New(scriptedAct(false), WithMaxConsecutiveFailures(0))
	_, err := e.Execute(context.Background(), &actions.GoBackAction{})
	var mcf *MaxConsecutiveFailuresError
	assert.True(t, errors.As(err, &mcf))
}

func TestExecuteContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(func(ctx context.Context, a actions.Action) (*browser.Observation, error) {
		return nil, ctx.Err()
	})
	res, err := e.Execute(ctx, &actions.WaitAction{TimeMs: 10})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, e.ConsecutiveFailures())
}

func TestReset(t *testing.T) {
	e := New(scriptedAct(false))
	_, _ = e.Execute(context.Background(), &actions.GoBackAction{})
	_, _ = e.Execute(context.Background(), &actions.GoBackAction{})
	require.Equal(t, 2, e.ConsecutiveFailures())

	e.Reset()
	assert.Equal(t, New(scriptedAct(false)).ConsecutiveFailures(), e.ConsecutiveFailures())
}

func TestFormatErrorVerbosity(t *testing.T) {
	ae := &browser.ActionError{
		Action:  actions.TypeClick,
		Message: "element with id B9 does not exist in the current page",
		Err:     browser.ErrElementNotFound,
	}

	assert.Equal(t, ae.Message, FormatError(ae, VerbosityAgent))
	dev := FormatError(ae, VerbosityDeveloper)
	assert.Contains(t, dev, ae.Message)
	assert.Contains(t, dev, "element not found")

	plain := errors.New("plain")
	assert.Equal(t, "plain", FormatError(plain, VerbosityAgent))
	assert.Equal(t, "plain", FormatError(plain, VerbosityDeveloper))
	assert.Equal(t, "", FormatError(nil, VerbosityAgent))

	e := New(func(ctx context.Context, a actions.Action) (*browser.Observation, error) {
		return nil, ae
	}, WithVerbosity(VerbosityDeveloper))
	res, err := e.Execute(context.Background(), &actions.ClickAction{ID: "B9"})
	require.NoError(t, err)
	assert.Equal(t, dev, res.Message)
}

func TestParseVerbosity(t *testing.T) {
	v, err := ParseVerbosity("Developer")
	require.NoError(t, err)
	assert.Equal(t, VerbosityDeveloper, v)

	v, err = ParseVerbosity("")
	require.NoError(t, err)
	assert.Equal(t, VerbosityAgent, v)

	_, err = ParseVerbosity("loud")
	assert.Error(t, err)
}

func TestExecutionResultJSON(t *testing.T) {
	res := &ExecutionResult{
		Input:   &actions.ClickAction{ID: "B2"},
		Output:  &browser.Observation{Metadata: browser.SnapshotMetadata{URL: "https://a.test/next"}},
		Success: true,
		Message: "Clicked on the element with id B2",
	}
	raw, err := res.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"action": {"type": "click", "id": "B2"},
		"success": true,
		"message": "Clicked on the element with id B2",
		"url": "https://a.test/next"
	}`, string(raw))

	raw, err = (&ExecutionResult{Success: false, Message: "boom"}).MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"success": false, "message": "boom"}`, string(raw))
}
