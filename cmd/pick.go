package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/realm/internal/logging"
	"github.com/firefly-engineering/realm/internal/sandbox"
	"github.com/firefly-engineering/realm/internal/terminal"
	"github.com/firefly-engineering/realm/internal/tui"
)

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Interactive session browser",
	Long: `Opens an interactive browser for selecting and acting on sessions.
Running realm without arguments does the same.

Use arrow keys or j/k to navigate, / to filter.

Actions:
  Enter  - Resume the selected session
  n      - Create a new session from the current directory
  s      - Stop the selected session
  d      - Delete the selected session (asks for confirmation)
  p      - Print the selected session's workspace path
  q/Esc  - Quit`,
	Args: cobra.NoArgs,
	RunE: runPick,
}

func init() {
	rootCmd.AddCommand(pickCmd)
}

// Replaced in tests.
var (
	interactive = terminal.Interactive
	runPicker   = tui.RunPicker
)

func runPick(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	o := a.Orchestrator()

	views, err := o.List(cmd.Context())
	if err != nil {
		return err
	}
	entries := tui.EntriesFromViews(views)

	if !interactive() {
		fmt.Fprint(cmd.OutOrStdout(), tui.SimplePicker(entries))
		return nil
	}

	logging.Debug("picker mode started", "sessions", len(entries))
	cwd, _ := os.Getwd()
	result, err := runPicker(entries, tui.Options{
		DefaultImage: a.Settings.DefaultImage,
		ProjectDir:   cwd,
	})
	if err != nil {
		return fmt.Errorf("picker error: %w", err)
	}
	logging.Debug("picker result", "action", result.Action, "session", result.Name)

	switch result.Action {
	case tui.ActionResume:
		return createOrResume(cmd, o, result.Name, sandbox.Options{})

	case tui.ActionNew:
		return createOrResume(cmd, o, result.Name, sandbox.Options{Image: result.Image})

	case tui.ActionStop:
		return runStop(cmd, []string{result.Name})

	case tui.ActionRemove:
		return runRm(cmd, []string{result.Name})

	case tui.ActionPath:
		return runPath(cmd, []string{result.Name})
	}
	return nil
}
