// Package headless runs a single browsing task without a terminal UI.
//
// The headless executor is what the CLI uses for scripted and CI runs. It
// wraps an agent run with:
//
// - Budget constraints (wall-clock timeout and total LLM tokens)
// - Console progress rendered from the agent's event stream
// - Artifact generation for debugging and auditing
//
// Architecture:
//
//	┌─────────────────────────────────────────────────────────┐
//	│                 Headless Executor                       │
//	│  - Constraint enforcement (timeout, tokens)             │
//	│  - Event consumer → console Logger                      │
//	│  - ArtifactWriter (run.json, summary.md, ...)           │
//	└──────────────────┬──────────────────────────────────────┘
//	                   │ Run(ctx, task, url)
//	                   ▼
//	        ┌──────────────────────┐
//	        │     agent.Agent      │──── events ───▶ Executor
//	        └──────────────────────┘
//
// Artifacts are written whether the run succeeds or fails, so a failed CI
// job still leaves its trajectory behind.
package headless
