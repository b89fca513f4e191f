package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/realm/internal/app"
	"github.com/firefly-engineering/realm/internal/logging"
	"github.com/firefly-engineering/realm/internal/sandbox"
)

// newApp builds the application for a command. Tests replace it.
var newApp = func() (*app.App, error) {
	return app.New()
}

func loadApp() (*app.App, error) {
	return newApp()
}

// createOrResume runs the orchestrator and reports the outcome. The exit
// code of an attached or executed process becomes the CLI's exit code.
func createOrResume(cmd *cobra.Command, o *sandbox.Orchestrator, name string, opts sandbox.Options) error {
	res, err := o.CreateOrResume(cmd.Context(), name, opts)
	if err != nil {
		return err
	}

	if len(res.Ignored) > 0 {
		logWarning("Ignoring %s for existing session %s (fixed at creation)", strings.Join(res.Ignored, ", "), name)
	}
	for _, w := range res.Warnings {
		logWarning("%s", w)
	}
	logging.Debug("session action", "session", name, "action", res.Action, "exit", res.ExitCode)

	switch res.Action {
	case sandbox.ActionCreated:
		if opts.Detach {
			logSuccess("Created session %s", name)
			logInfo("Attach with: realm %s", name)
		}
	case sandbox.ActionRecreated:
		logSuccess("Recreated container for session %s", name)
	case sandbox.ActionStarted:
		if opts.Detach {
			logSuccess("Started session %s", name)
		}
	case sandbox.ActionAlreadyRunning:
		logInfo("Session %s is already running", name)
	}

	exitCode = res.ExitCode
	return nil
}

func formatStatus(status sandbox.Status) string {
	switch status {
	case sandbox.StatusRunning:
		return "✓ running"
	case sandbox.StatusStopped:
		return "○ stopped"
	case sandbox.StatusAbsent:
		return "⚠ absent"
	case sandbox.StatusCreating:
		return "… creating"
	default:
		return string(status)
	}
}
