package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/concordlabs/concord/internal/api"
	"github.com/concordlabs/concord/internal/autofix"
	"github.com/concordlabs/concord/internal/config"
	"github.com/concordlabs/concord/internal/logging"
	"github.com/concordlabs/concord/internal/pipeline"
	"github.com/concordlabs/concord/internal/repair"
	"github.com/concordlabs/concord/internal/state"
	"github.com/concordlabs/concord/internal/validate"
)

var (
	verifySpec    string
	verifyProject string
	verifyWatch   bool
	verifyNoAI    bool
	verifyJSON    bool
	verifyDryRun  bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a project's contracts and repair inconsistencies",
	Long: `Verify extracts the contracts a project's files actually implement,
diffs them against the expected-contract document, applies deterministic
fixes, and optionally sends whatever survives to the model once.

With --watch, the project directory is monitored and verification re-runs
whenever a source file changes.`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifySpec, "spec", "", "Path to the expected-contract document (JSON or YAML)")
	verifyCmd.Flags().StringVarP(&verifyProject, "project", "p", ".", "Project directory to verify")
	verifyCmd.Flags().BoolVar(&verifyWatch, "watch", false, "Re-run verification when source files change")
	verifyCmd.Flags().BoolVar(&verifyNoAI, "no-ai", false, "Skip the model repair stage")
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "Print the full run report as JSON")
	verifyCmd.Flags().BoolVar(&verifyDryRun, "dry-run", false, "Report without writing repaired files")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	p, client, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := pipeline.RunOptions{
		SpecPath:    verifySpec,
		ProjectRoot: verifyProject,
		NoAI:        verifyNoAI,
		DryRun:      verifyDryRun,
	}

	if verifyWatch {
		return watchLoop(ctx, p, client, opts)
	}

	rr, err := p.Run(ctx, opts)
	if err != nil {
		return err
	}
	persistRun(rr, client)
	if verifyJSON {
		data, err := rr.JSON()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		renderRunReport(rr)
	}
	if rr.Status == pipeline.StatusNeedsManualRepair {
		os.Exit(1)
	}
	return nil
}

// buildPipeline wires the pipeline from config. A missing API key disables
// the model stage instead of failing; verification works without it.
func buildPipeline(cfg *config.Config, logger *zap.Logger) (*pipeline.Pipeline, *api.Client, error) {
	var fixOpts []autofix.Option
	if cfg.Validate.NamingPolicy == "majority" {
		fixOpts = append(fixOpts, autofix.WithStylePolicy(validate.MajorityVote))
	}
	if cfg.Validate.DomAuthority == "markup" {
		fixOpts = append(fixOpts, autofix.WithDomAuthority(autofix.DomAuthorityMarkup))
	}
	fixer := autofix.New(logger, fixOpts...)

	var (
		client   *api.Client
		repairer pipeline.Repairer
	)
	if cfg.Repair.Enabled {
		c, err := api.NewClient(api.ClientConfig{
			Model:         anthropic.Model(cfg.Anthropic.Model),
			APIKey:        cfg.Anthropic.APIKey,
			UseAWSBedrock: cfg.Anthropic.UseBedrock,
			AWSRegion:     cfg.Anthropic.AWSRegion,
		})
		if err != nil {
			logger.Warn("model repair unavailable", zap.Error(err))
		} else {
			client = c
			repairer = repair.NewAgent(c, logger, cfg.Repair.TokenBudget, cfg.Repair.Timeout)
			logger.Info("model repair enabled", zap.String("model", string(c.Model())))
		}
	}

	return pipeline.New(logger, fixer, repairer), client, nil
}

// persistRun records the run in the project-local history database. History
// is best effort; a failure never fails the run itself.
func persistRun(rr *pipeline.RunReport, client *api.Client) {
	db, err := state.OpenProject(verifyProject)
	if err != nil {
		return
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return
	}

	reportJSON, err := json.Marshal(rr.Final)
	if err != nil {
		reportJSON = []byte("{}")
	}
	finished := rr.FinishedAt
	run := &state.Run{
		ID:           rr.ID,
		StartedAt:    rr.StartedAt,
		FinishedAt:   &finished,
		Status:       state.RunStatus(rr.Status),
		IssuesBefore: rr.IssuesBefore(),
		IssuesAfter:  rr.IssuesAfter(),
		FixesApplied: rr.FixCount(),
		AIPatches:    rr.PatchCount(),
		ReportJSON:   string(reportJSON),
	}
	if client != nil {
		usage := client.Tracker().Usage()
		run.TokensIn = usage.InputTokens
		run.TokensOut = usage.OutputTokens
	}
	db.SaveRun(run)
}

func renderRunReport(rr *pipeline.RunReport) {
	fmt.Printf("run %s\n", rr.ID)
	for _, stage := range rr.Stages {
		fmt.Printf("  %-10s %3d issues remaining  (%s)\n",
			stage.Name, stage.IssuesAfter, stage.Elapsed.Round(time.Millisecond))
	}
	if rr.Fixes != nil && rr.Fixes.SuccessCount > 0 {
		fmt.Printf("  %s %d mechanical fixes applied\n", color.GreenString("✓"), rr.Fixes.SuccessCount)
	}
	if rr.Repair != nil && rr.Repair.Applied > 0 {
		fmt.Printf("  %s %d model patches applied\n", color.GreenString("✓"), rr.Repair.Applied)
	}

	switch rr.Status {
	case pipeline.StatusValid:
		fmt.Printf("\n%s all contracts consistent\n", color.GreenString("✓"))
	case pipeline.StatusNeedsManualRepair:
		fmt.Printf("\n%s %d issues need manual repair:\n", color.RedString("✗"), rr.IssuesAfter())
		for _, issue := range rr.Final.All() {
			fmt.Printf("  %s [%s] %s\n", severityMark(string(issue.Severity)), issue.Kind, issue.Description)
		}
	}
}

func severityMark(severity string) string {
	if severity == "warning" {
		return color.YellowString("⚠")
	}
	return color.RedString("✗")
}
