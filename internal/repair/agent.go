// Package repair sends the outstanding issues that survived mechanical
// fixing to a language model, once per run, and applies the returned
// search/replace patches under strict validation. A response that cannot
// be parsed or validated mutates nothing.
package repair

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/concordlabs/concord/internal/contract"
	"github.com/concordlabs/concord/internal/fileset"
	"github.com/concordlabs/concord/internal/validate"
)

// PromptRunner issues one model call. *api.Client satisfies it; tests
// substitute a stub.
type PromptRunner interface {
	RunPrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Agent performs the single bounded repair attempt of a run.
type Agent struct {
	runner      PromptRunner
	logger      *zap.Logger
	tokenBudget int
	timeout     time.Duration
}

// Result summarizes one repair attempt.
type Result struct {
	// Applied counts patches whose search text was found and replaced.
	Applied int
	// NotFound counts patches whose search text had diverged from the file.
	NotFound int
	// Files lists the paths that were actually modified.
	Files []string
}

const (
	defaultTokenBudget = 16000
	defaultTimeout     = 2 * time.Minute
)

// NewAgent creates a repair agent. A zero tokenBudget or timeout falls back
// to the defaults.
func NewAgent(runner PromptRunner, logger *zap.Logger, tokenBudget int, timeout time.Duration) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tokenBudget <= 0 {
		tokenBudget = defaultTokenBudget
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Agent{
		runner:      runner,
		logger:      logger,
		tokenBudget: tokenBudget,
		timeout:     timeout,
	}
}

// Repair makes exactly one model call for the report's outstanding issues
// and applies the returned patches to the set. The response is parsed and
// validated before any file is touched; on any failure the set is returned
// unmodified with an error.
func (a *Agent) Repair(ctx context.Context, set *fileset.Set, model *contract.Model, report *validate.Report) (*Result, error) {
	if report.Summary.TotalIssues == 0 {
		return &Result{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prompt := buildPrompt(set.Snapshot(), model, report, a.tokenBudget)
	a.logger.Info("requesting model repair",
		zap.Int("issues", report.Summary.TotalIssues),
		zap.Int("prompt_chars", len(prompt)))

	response, err := a.runner.RunPrompt(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("repair call: %w", err)
	}

	patches, err := ParsePatchSet(response)
	if err != nil {
		return nil, fmt.Errorf("repair response: %w", err)
	}

	known := make(map[string]bool)
	for _, p := range set.Paths() {
		known[p] = true
	}
	if err := patches.Validate(known); err != nil {
		return nil, fmt.Errorf("repair response: %w", err)
	}

	result := &Result{}
	touched := make(map[string]bool)
	for _, p := range patches.Patches {
		f := set.Get(p.File)
		if f.Replace(p.Search, p.Replace) {
			result.Applied++
			touched[p.File] = true
			continue
		}
		result.NotFound++
		a.logger.Warn("patch search text not found",
			zap.String("file", p.File),
			zap.Int("search_len", len(p.Search)))
	}
	for path := range touched {
		result.Files = append(result.Files, path)
	}

	a.logger.Info("repair patches applied",
		zap.Int("applied", result.Applied),
		zap.Int("not_found", result.NotFound))
	return result, nil
}
