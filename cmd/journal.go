package cmd

import (
	"fmt"
	"text/tabwriter"

	"virtual-ward-intake/intake"

	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Manage appends that failed after the upload",
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending appends",
	RunE:  runJournalList,
}

var journalRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Replay pending appends against the sheet",
	RunE:  runJournalRetry,
}

func init() {
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalRetryCmd)
}

func runJournalList(cmd *cobra.Command, args []string) error {
	session, err := openSession(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	if session.Journal == nil {
		return intake.ErrNoJournal
	}
	pending, err := session.Journal.ListPending(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list pending appends: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Pending appends: %d\n\n", len(pending))
	if len(pending) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tHN\tFILE\tUPLOADED\tATTEMPTS\tLAST ERROR")
	for _, p := range pending {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			p.ID, p.Row.HN, p.Row.FileName, p.Row.UploadTime, p.Attempts, p.LastError)
	}
	return w.Flush()
}

func runJournalRetry(cmd *cobra.Command, args []string) error {
	session, err := openSession(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	report, err := session.Intake.RetryPending(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Resolved: %d, already present: %d, still failing: %d\n",
		report.Resolved, report.Duplicate, report.Failed)
	if report.Failed > 0 {
		return fmt.Errorf("%d pending appends still failing", report.Failed)
	}
	return nil
}
