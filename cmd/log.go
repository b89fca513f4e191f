package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/realm/internal/config"
	"github.com/firefly-engineering/realm/internal/errors"
)

var logCmd = &cobra.Command{
	Use:   "log <name>",
	Short: "Display the event history of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runLog,
}

var logJSON bool

func init() {
	logCmd.Flags().BoolVar(&logJSON, "json", false, "Output events as JSON lines")
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := config.ValidateSessionName(name); err != nil {
		return errors.InvalidName(name, err.Error())
	}

	a, err := loadApp()
	if err != nil {
		return err
	}

	events, err := a.Events.Events(name)
	if err != nil {
		return fmt.Errorf("failed to read event log: %w", err)
	}

	if len(events) == 0 {
		logInfo("No events found for session %s", name)
		return nil
	}

	out := cmd.OutOrStdout()
	for _, e := range events {
		if logJSON {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to marshal event: %w", err)
			}
			fmt.Fprintln(out, string(data))
		} else {
			ts := e.Timestamp.Local().Format("2006-01-02 15:04:05")
			if e.Details != "" {
				fmt.Fprintf(out, "[%s] %-8s %s (%s)\n", ts, e.Type, e.Session, e.Details)
			} else {
				fmt.Fprintf(out, "[%s] %-8s %s\n", ts, e.Type, e.Session)
			}
		}
	}
	return nil
}
