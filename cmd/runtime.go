package cmd

import (
	"fmt"
	goruntime "runtime"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/realm/internal/runtime"
	"github.com/firefly-engineering/realm/internal/ssh"
)

var runtimeCmd = &cobra.Command{
	Use:   "runtime",
	Short: "Show container runtime information",
	Long: `Display the configured and active container runtime.

realm supports two runtimes with the same command surface:
  - podman:  preferred on Linux (rootless containers)
  - docker:  preferred on macOS (Docker Desktop, OrbStack)

The runtime is auto-detected unless set with REALM_RUNTIME or the
'runtime' key of the settings file.`,
	Args: cobra.NoArgs,
	RunE: runRuntime,
}

func init() {
	rootCmd.AddCommand(runtimeCmd)
}

func runRuntime(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Configured:     %s\n", a.Settings.Runtime)
	order := runtime.Preference(goruntime.GOOS)
	fmt.Fprintf(out, "Detection:      %s, %s\n", order[0], order[1])

	status := "available"
	if err := a.Runtime.Check(cmd.Context()); err != nil {
		status = fmt.Sprintf("unavailable (%v)", err)
	}
	fmt.Fprintf(out, "Active runtime: %s (%s)\n", a.Runtime.Name(), status)

	fmt.Fprintln(out)
	fmt.Fprintf(out, "SSH forwarding: %s\n", ssh.StrategyFor(ssh.HostPlatform()).Name())
	fmt.Fprintf(out, "State dir:      %s\n", a.Paths.StateDir)
	fmt.Fprintf(out, "Registry:       %s\n", a.Settings.Registry)
	return nil
}
