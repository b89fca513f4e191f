package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/realm/internal/errors"
)

var rmCmd = &cobra.Command{
	Use:     "rm <name>...",
	Aliases: []string{"remove"},
	Short:   "Remove sessions, their containers and their workspaces",
	Long: `Stops and removes each session's container, deletes its workspace clone
and finally its record. Uncommitted or unpushed work in the workspace is
lost. Running rm again finishes an interrupted removal.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRm,
}

func init() {
	rootCmd.AddCommand(rmCmd)
}

func runRm(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	o := a.Orchestrator()

	var errs []error
	for _, name := range args {
		res, err := o.Remove(cmd.Context(), name)
		if err != nil {
			if len(args) > 1 {
				reportError(err)
			}
			errs = append(errs, err)
			continue
		}

		switch {
		case res.Existed:
			logSuccess("Removed session %s", name)
		case len(res.Cleaned) > 0:
			logSuccess("Cleaned up leftovers of %s (%s)", name, strings.Join(res.Cleaned, ", "))
		default:
			logInfo("Session %s does not exist", name)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	if len(args) == 1 {
		return errs[0]
	}
	return errors.New(errors.GetExitCode(errs[0]),
		fmt.Sprintf("%d of %d sessions could not be removed", len(errs), len(args)))
}
