package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history <hn>",
	Short: "Show recorded vitals for a hospital number",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	session, err := openSession(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	rows, err := session.History.Rows(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintf(out, "No records for %s\n", args[0])
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(session.History.Headers(), "\t"))
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.HN, r.BP, r.HR, r.O2, r.UploadTime)
	}
	return w.Flush()
}
