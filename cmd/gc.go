package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/realm/internal/sandbox"
)

var gcForce bool

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Find and clean up state left behind by failed commands",
	Long: `Reconciles the session registry with the workspaces directory and the
container runtime.

Without --force, prints what was found (dry run).
With --force, removes orphaned workspaces, orphaned containers and the
reservations of creates that died.

Detects:
  - Dangling sessions: records whose container or workspace is gone
    (reported only; resume with --recreate or remove with 'realm rm')
  - Interrupted creates: reservations whose creating process has exited
  - Orphaned workspaces: directories with no session record
  - Orphaned containers: realm-labelled containers with no session record`,
	Args: cobra.NoArgs,
	RunE: runGC,
}

func init() {
	gcCmd.Flags().BoolVar(&gcForce, "force", false, "Actually remove orphaned resources (default is dry run)")
	rootCmd.AddCommand(gcCmd)
}

func runGC(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	report, err := a.Orchestrator().GC(cmd.Context(), gcForce)
	if report != nil {
		if report.Empty() {
			logInfo("No orphaned resources found")
		} else {
			printGCReport(cmd.OutOrStdout(), report, !gcForce)
		}
	}
	if err != nil {
		return err
	}
	if gcForce && !report.Empty() {
		logSuccess("Garbage collection complete")
	}
	return nil
}

func printGCReport(w io.Writer, r *sandbox.GCReport, dryRun bool) {
	if dryRun {
		fmt.Fprintln(w, "Dry run (use --force to actually clean up):")
		fmt.Fprintln(w)
	}

	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintln(w, title)
		for _, item := range items {
			fmt.Fprintf(w, "  %s\n", item)
		}
		fmt.Fprintln(w)
	}

	containers := make([]string, 0, len(r.OrphanContainers))
	for _, c := range r.OrphanContainers {
		containers = append(containers, fmt.Sprintf("%s (%s)", c.Name, c.Ref))
	}

	section("Dangling sessions (not removed; use --recreate or 'realm rm'):", r.Dangling)
	if dryRun {
		section("Interrupted creates:", r.Interrupted)
		section("Orphaned workspaces (no session record):", r.OrphanWorkspaces)
		section("Orphaned containers (no session record):", containers)
		return
	}
	section("Removed:", r.Removed)
}
