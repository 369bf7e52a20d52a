package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/concordlabs/concord/internal/state"
)

var (
	reportProject string
	reportLimit   int
	reportRunID   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show past verification runs",
	Long: `Display the run history recorded in the project-local database.

Without flags, lists the most recent runs. With --run, prints the stored
report of a single run.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportProject, "project", "p", ".", "Project directory")
	reportCmd.Flags().IntVarP(&reportLimit, "limit", "n", 10, "Number of runs to list")
	reportCmd.Flags().StringVar(&reportRunID, "run", "", "Print the stored report of one run")
}

func runReport(cmd *cobra.Command, args []string) error {
	dbPath := state.ProjectDBPath(reportProject)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No run history. Run 'concord verify' first.")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	if reportRunID != "" {
		run, err := db.GetRun(reportRunID)
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("no run with id %s", reportRunID)
		}
		fmt.Println(run.ReportJSON)
		return nil
	}

	runs, err := db.ListRuns(reportLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No run history. Run 'concord verify' first.")
		return nil
	}

	for _, run := range runs {
		mark := color.GreenString("✓")
		if run.Status != state.RunValid {
			mark = color.RedString("✗")
		}
		fmt.Printf("%s %s  %s  issues %d→%d  fixes %d  patches %d\n",
			mark,
			run.StartedAt.Local().Format(time.DateTime),
			run.ID[:8],
			run.IssuesBefore, run.IssuesAfter,
			run.FixesApplied, run.AIPatches)
	}
	return nil
}
