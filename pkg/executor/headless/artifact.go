package headless

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/surfer/pkg/agent"
	"github.com/entrhq/surfer/pkg/config"
	"github.com/entrhq/surfer/pkg/security/workspace"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Artifact file names inside a run directory.
const (
	RunFile        = "run.json"
	SummaryFile    = "summary.md"
	MetricsFile    = "metrics.json"
	TrajectoryFile = "trajectory.yaml"
)

// ArtifactWriter handles writing run artifacts
type ArtifactWriter struct {
	outputDir  string
	trajectory bool
}

// NewArtifactWriter creates a writer that stores each run under
// cfg.Dir/<run id>.
func NewArtifactWriter(cfg config.ArtifactsConfig) *ArtifactWriter {
	return &ArtifactWriter{
		outputDir:  cfg.Dir,
		trajectory: cfg.Trajectory,
	}
}

// RunDir returns the directory artifacts of summary are written to. The run
// ID must be a single path element inside the output directory.
func (w *ArtifactWriter) RunDir(summary *RunSummary) (string, error) {
	guard, err := workspace.NewGuard(w.outputDir)
	if err != nil {
		return "", fmt.Errorf("failed to prepare output directory: %w", err)
	}
	dir, err := guard.Join(summary.RunID)
	if err != nil {
		return "", fmt.Errorf("invalid run id: %w", err)
	}
	return dir, nil
}

// WriteAll writes all configured artifact formats and returns the run
// directory.
func (w *ArtifactWriter) WriteAll(summary *RunSummary) (string, error) {
	dir, err := w.RunDir(summary)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := w.WriteRunJSON(dir, summary); err != nil {
		return dir, fmt.Errorf("failed to write run JSON: %w", err)
	}

	if err := w.WriteSummaryMarkdown(dir, summary); err != nil {
		return dir, fmt.Errorf("failed to write summary markdown: %w", err)
	}

	if err := w.WriteMetricsJSON(dir, summary); err != nil {
		return dir, fmt.Errorf("failed to write metrics JSON: %w", err)
	}

	if w.trajectory && summary.Output != nil {
		if err := w.WriteTrajectoryYAML(dir, summary); err != nil {
			return dir, fmt.Errorf("failed to write trajectory YAML: %w", err)
		}
	}

	return dir, nil
}

// WriteRunJSON writes the full run summary, including the agent output, as JSON
func (w *ArtifactWriter) WriteRunJSON(dir string, summary *RunSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}

	return os.WriteFile(filepath.Join(dir, RunFile), data, 0600)
}

// WriteSummaryMarkdown writes a human-readable markdown summary
func (w *ArtifactWriter) WriteSummaryMarkdown(dir string, summary *RunSummary) error {
	var md strings.Builder

	md.WriteString("# Surfer Run Summary\n\n")
	md.WriteString(fmt.Sprintf("**Task:** %s\n\n", summary.Task))
	if summary.URL != "" {
		md.WriteString(fmt.Sprintf("**Start URL:** %s\n\n", summary.URL))
	}
	md.WriteString(fmt.Sprintf("**Status:** %s\n\n", summary.Status))
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", summary.StartTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Completed:** %s\n\n", summary.EndTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", summary.Duration.Round(time.Millisecond)))

	md.WriteString("## Result\n\n")
	switch {
	case summary.Error != "":
		md.WriteString(fmt.Sprintf("❌ **Error:** %s\n\n", summary.Error))
	case summary.Status == StatusSuccess:
		md.WriteString(fmt.Sprintf("✅ **Answer:** %s\n\n", summary.Answer))
	default:
		md.WriteString(fmt.Sprintf("❌ **Failed:** %s\n\n", summary.Answer))
	}

	if summary.Output != nil && len(summary.Output.AgentTrajectory) > 0 {
		md.WriteString("## Trajectory\n\n")
		for i, step := range summary.Output.AgentTrajectory {
			md.WriteString(fmt.Sprintf("### Step %d\n\n", i+1))
			if step.Output != nil && step.Output.State.NextGoal != "" {
				md.WriteString(fmt.Sprintf("_Goal:_ %s\n\n", step.Output.State.NextGoal))
			}
			for _, r := range step.Results {
				mark := "✅"
				if !r.Success {
					mark = "❌"
				}
				action := "unknown"
				if r.Input != nil {
					action = string(r.Input.Type())
				}
				md.WriteString(fmt.Sprintf("- %s `%s` %s\n", mark, action, r.Message))
			}
			md.WriteString("\n")
		}
	}

	md.WriteString("## Metrics\n\n")
	md.WriteString(fmt.Sprintf("- **Steps:** %d\n", summary.Metrics.Steps))
	md.WriteString(fmt.Sprintf("- **Actions:** %d (%d failed)\n", summary.Metrics.Actions, summary.Metrics.FailedActions))
	md.WriteString(fmt.Sprintf("- **LLM Calls:** %d\n", summary.Metrics.LLMCalls))
	md.WriteString(fmt.Sprintf("- **Tokens Used:** %s\n", formatNumber(summary.Metrics.TokensUsed)))

	return os.WriteFile(filepath.Join(dir, SummaryFile), []byte(md.String()), 0600)
}

// WriteMetricsJSON writes run metrics as JSON
func (w *ArtifactWriter) WriteMetricsJSON(dir string, summary *RunSummary) error {
	data, err := json.MarshalIndent(summary.Metrics, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	return os.WriteFile(filepath.Join(dir, MetricsFile), data, 0600)
}

// WriteTrajectoryYAML writes the agent trajectory as YAML. Steps are encoded
// through their JSON form so actions keep their wire shape.
func (w *ArtifactWriter) WriteTrajectoryYAML(dir string, summary *RunSummary) error {
	raw, err := json.Marshal(summary.Output.AgentTrajectory)
	if err != nil {
		return fmt.Errorf("failed to marshal trajectory: %w", err)
	}

	var doc interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to convert trajectory: %w", err)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal trajectory YAML: %w", err)
	}

	return os.WriteFile(filepath.Join(dir, TrajectoryFile), data, 0600)
}

// RunSummary contains a complete summary of a headless run
type RunSummary struct {
	RunID     string        `json:"run_id"`
	Task      string        `json:"task"`
	URL       string        `json:"url,omitempty"`
	Status    string        `json:"status"`
	Answer    string        `json:"answer"`
	Error     string        `json:"error,omitempty"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Metrics   RunMetrics    `json:"metrics"`
	Output    *agent.Output `json:"output,omitempty"`
}

// RunMetrics contains run metrics
type RunMetrics struct {
	Steps            int     `json:"steps"`
	Actions          int     `json:"actions"`
	FailedActions    int     `json:"failed_actions"`
	LLMCalls         int     `json:"llm_calls"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TokensUsed       int     `json:"tokens_used"`
	DurationSeconds  float64 `json:"duration_s"`
}

// metricsFromOutput derives metrics from an agent output. out may be nil
// when the run failed before producing one.
func metricsFromOutput(out *agent.Output, duration time.Duration) RunMetrics {
	m := RunMetrics{DurationSeconds: duration.Seconds()}
	if out == nil {
		return m
	}
	m.Steps = out.Steps()
	m.Actions, m.FailedActions = out.ActionCounts()
	m.LLMCalls = len(out.LLMUsage.Calls)
	m.PromptTokens = out.LLMUsage.Total.PromptTokens
	m.CompletionTokens = out.LLMUsage.Total.CompletionTokens
	m.TokensUsed = out.LLMUsage.Total.TotalTokens
	return m
}
