package agent

import (
	"time"

	"github.com/entrhq/surfer/pkg/agent/trajectory"
	"github.com/entrhq/surfer/pkg/browser"
	"github.com/entrhq/surfer/pkg/llm"
	"github.com/entrhq/surfer/pkg/types"
)

// Output is the result of a run.
type Output struct {
	Answer          string                 `json:"answer"`
	Success         bool                   `json:"success"`
	EnvTrajectory   []*browser.Observation `json:"env_trajectory"`
	AgentTrajectory []trajectory.Step      `json:"agent_trajectory"`
	Messages        []*types.Message       `json:"messages"`
	Duration        time.Duration          `json:"-"`
	LLMUsage        llm.Usage              `json:"llm_usage"`

	// DurationInSeconds mirrors Duration for serialized output.
	DurationInSeconds float64 `json:"duration_in_s"`
}

// DurationSeconds returns the wall-clock run time in seconds.
func (o *Output) DurationSeconds() float64 {
	return o.Duration.Seconds()
}

// Steps is the number of agent steps the run took.
func (o *Output) Steps() int {
	return len(o.AgentTrajectory)
}

// ActionCounts returns the number of executed action results and how many
// of them failed. Synthetic validation failures count as failed results.
func (o *Output) ActionCounts() (total, failed int) {
	for _, step := range o.AgentTrajectory {
		for _, r := range step.Results {
			total++
			if !r.Success {
				failed++
			}
		}
	}
	return total, failed
}

func (a *Agent) output(answer string, success bool) *Output {
	duration := time.Since(a.start)
	return &Output{
		Answer:            answer,
		Success:           success,
		EnvTrajectory:     a.env.Trajectory(),
		AgentTrajectory:   a.history.Steps(),
		Messages:          a.conv.Messages(),
		Duration:          duration,
		DurationInSeconds: duration.Seconds(),
		LLMUsage:          a.tracer.Usage(),
	}
}
