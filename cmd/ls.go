package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List sessions",
	Args:    cobra.NoArgs,
	RunE:    runLs,
}

var lsJSON bool

func init() {
	lsCmd.Flags().BoolVar(&lsJSON, "json", false, "Output sessions as JSON")
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	views, err := a.Orchestrator().List(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if lsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if views == nil {
			return enc.Encode([]any{})
		}
		return enc.Encode(views)
	}

	if len(views) == 0 {
		logInfo("No sessions found. Create one with: realm <name>")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATUS\tIMAGE\tPROJECT\tCREATED")
	fmt.Fprintln(w, "----\t------\t-----\t-------\t-------")
	for _, v := range views {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			v.Session.Name,
			formatStatus(v.Status),
			v.Session.Image,
			v.Session.ProjectPath,
			v.Session.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	return w.Flush()
}
