package cmd

import (
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/realm/internal/runtime"
)

var stopCmd = &cobra.Command{
	Use:   "stop <name>",
	Short: "Stop a session's container",
	Long: `Stops the session's container. The container, its workspace and the
session record are kept; 'realm <name>' starts it again.`,
	Args: cobra.ExactArgs(1),
	RunE: runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	name := args[0]

	a, err := loadApp()
	if err != nil {
		return err
	}

	before, err := a.Orchestrator().Stop(cmd.Context(), name)
	if err != nil {
		return err
	}

	switch before {
	case runtime.StatusRunning:
		logSuccess("Stopped session %s", name)
	case runtime.StatusAbsent:
		logWarning("Session %s has no container; recreate it with: realm %s --recreate", name, name)
	default:
		logInfo("Session %s is not running", name)
	}
	return nil
}
