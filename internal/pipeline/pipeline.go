// Package pipeline runs the verification state machine: extract, validate,
// mechanically fix, re-validate, optionally hand the survivors to the model
// once, and re-validate again. Stage order is fixed; no stage retries and
// the model is consulted at most once per run.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/concordlabs/concord/internal/autofix"
	"github.com/concordlabs/concord/internal/contract"
	"github.com/concordlabs/concord/internal/extract"
	"github.com/concordlabs/concord/internal/fileset"
	"github.com/concordlabs/concord/internal/repair"
	"github.com/concordlabs/concord/internal/validate"
)

// extractConcurrency caps parallel per-file extraction.
const extractConcurrency = 8

// Repairer is the AI stage. *repair.Agent satisfies it; runs with AI
// disabled pass nil.
type Repairer interface {
	Repair(ctx context.Context, set *fileset.Set, model *contract.Model, report *validate.Report) (*repair.Result, error)
}

// Pipeline wires the stages of one or more verification runs. It holds no
// per-run state; each Run builds its session from scratch.
type Pipeline struct {
	validator *validate.Validator
	fixer     *autofix.Fixer
	repairer  Repairer
	logger    *zap.Logger
}

// New builds a pipeline. A nil repairer disables the AI stage.
func New(logger *zap.Logger, fixer *autofix.Fixer, repairer Repairer) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fixer == nil {
		fixer = autofix.New(logger)
	}
	return &Pipeline{
		validator: validate.New(logger),
		fixer:     fixer,
		repairer:  repairer,
		logger:    logger,
	}
}

// RunOptions selects the inputs of one run.
type RunOptions struct {
	// SpecPath is the expected-contract document. Empty means no spec:
	// validation runs on inferred contracts only.
	SpecPath string
	// ProjectRoot is the directory holding the generated files.
	ProjectRoot string
	// NoAI skips the model stage even when a repairer is configured.
	NoAI bool
	// DryRun plans and reports but never writes files back to disk.
	DryRun bool
}

// Run executes one full verification run against a project directory.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	set, model, err := p.loadInputs(opts)
	if err != nil {
		return nil, err
	}
	rr, err := p.run(ctx, set, model, opts.NoAI)
	if err != nil {
		return rr, err
	}
	if !opts.DryRun {
		if err := set.Flush(); err != nil {
			return rr, fmt.Errorf("write repaired files: %w", err)
		}
	}
	return rr, nil
}

// RunSet executes one run against an in-memory file set. Used by watch mode
// and tests; the caller owns flushing.
func (p *Pipeline) RunSet(ctx context.Context, set *fileset.Set, model *contract.Model, noAI bool) (*RunReport, error) {
	return p.run(ctx, set, model, noAI)
}

func (p *Pipeline) loadInputs(opts RunOptions) (*fileset.Set, *contract.Model, error) {
	set, err := fileset.Load(opts.ProjectRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("load project: %w", err)
	}
	if len(set.Paths()) == 0 {
		return nil, nil, fmt.Errorf("no source files found under %s", opts.ProjectRoot)
	}

	model := &contract.Model{}
	if opts.SpecPath != "" {
		data, err := os.ReadFile(opts.SpecPath)
		if err != nil {
			return nil, nil, fmt.Errorf("read spec document: %w", err)
		}
		model, err = contract.LoadModel(data)
		if err != nil {
			// Degrade to an empty expected set; the observed contracts
			// still get consistency-checked against each other.
			p.logger.Warn("spec document unparseable, validating inferred contracts only",
				zap.String("path", opts.SpecPath), zap.Error(err))
		}
	}
	return set, model, nil
}

func (p *Pipeline) run(ctx context.Context, set *fileset.Set, model *contract.Model, noAI bool) (*RunReport, error) {
	rr := &RunReport{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
		Status:    StatusValid,
	}
	p.logger.Info("run started", zap.String("run_id", rr.ID), zap.Int("files", len(set.Paths())))

	// Stage 1: extract + initial validation.
	mentions := p.extract(ctx, set)
	report := p.validator.Validate(model, mentions)
	rr.addStage("validate", report)
	rr.Initial = report

	if report.IsValid {
		rr.finish(StatusValid, report)
		return rr, nil
	}

	// Stage 2: mechanical fixes, then re-validate from fresh extraction.
	rr.Fixes = p.fixer.Fix(set, model, report, mentions)
	mentions = p.extract(ctx, set)
	report = p.validator.Validate(model, mentions)
	rr.addStage("autofix", report)

	if report.IsValid {
		rr.finish(StatusValid, report)
		return rr, nil
	}

	// Stage 3: one model attempt for the survivors, then re-validate.
	if p.repairer != nil && !noAI {
		res, err := p.repairer.Repair(ctx, set, model, report)
		if err != nil {
			p.logger.Warn("model repair failed, files unchanged", zap.Error(err))
		} else {
			rr.Repair = res
			mentions = p.extract(ctx, set)
			report = p.validator.Validate(model, mentions)
		}
		rr.addStage("repair", report)
	}

	if report.IsValid {
		rr.finish(StatusValid, report)
	} else {
		rr.finish(StatusNeedsManualRepair, report)
	}
	return rr, nil
}

// extract runs per-file extraction concurrently and returns the mentions in
// deterministic path order. Extraction never fails a run; a file that cannot
// be processed contributes no mentions.
func (p *Pipeline) extract(ctx context.Context, set *fileset.Set) []extract.Mention {
	files := set.Snapshot()
	results := make([][]extract.Mention, len(files))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(extractConcurrency)
	var mu sync.Mutex
	for i, f := range files {
		g.Go(func() error {
			mentions, err := extract.File(f)
			if err != nil {
				p.logger.Debug("extraction skipped file", zap.String("path", f.Path), zap.Error(err))
				return nil
			}
			mu.Lock()
			results[i] = mentions
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	var all []extract.Mention
	for _, r := range results {
		all = append(all, r...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].File != all[j].File {
			return all[i].File < all[j].File
		}
		return all[i].Occurrences[0].Line < all[j].Occurrences[0].Line
	})
	return all
}
