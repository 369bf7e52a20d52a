package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/concordlabs/concord/internal/api"
	"github.com/concordlabs/concord/internal/fileset"
	"github.com/concordlabs/concord/internal/pipeline"
	"github.com/concordlabs/concord/internal/tui"
)

// watchLoop runs verification once, then re-runs it whenever the watcher
// reports a changed source file, feeding results to the TUI.
func watchLoop(ctx context.Context, p *pipeline.Pipeline, client *api.Client, opts pipeline.RunOptions) error {
	watcher, err := fileset.NewWatcher(opts.ProjectRoot, nil)
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	program := tea.NewProgram(tui.NewWatchModel(opts.ProjectRoot))

	go func() {
		runOnce := func(changed []string) {
			program.Send(tui.RunStartedMsg{Changed: changed})
			rr, err := p.Run(ctx, opts)
			if err == nil {
				persistRun(rr, client)
			}
			program.Send(tui.RunFinishedMsg{Report: rr, Err: err})
		}

		runOnce(nil)
		for {
			select {
			case <-ctx.Done():
				program.Quit()
				return
			case changed := <-watcher.Changes():
				runOnce(changed)
			}
		}
	}()

	_, err = program.Run()
	return err
}
