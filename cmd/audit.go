package cmd

import (
	"fmt"

	"virtual-ward-intake/audit"
	"virtual-ward-intake/blobstore"

	"github.com/spf13/cobra"
)

var auditFolder string

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Find uploaded files no sheet row links to",
	Long: `Lists the upload folder and compares it with the sheet's link column.

Files queued in the journal are reported separately from orphans.`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().StringVarP(&auditFolder, "folder", "f", "", "Drive folder ID (defaults to DRIVE_FOLDER_ID)")
}

func runAudit(cmd *cobra.Command, args []string) error {
	session, err := openSession(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	lister, ok := session.Blobs.(blobstore.Lister)
	if !ok {
		return fmt.Errorf("blob store does not support listing")
	}

	folder := auditFolder
	if folder == "" {
		folder = session.Config.DriveFolderID
	}
	if folder == "" && !session.Config.Sandbox {
		return fmt.Errorf("no folder given and DRIVE_FOLDER_ID is unset")
	}

	report, err := audit.NewAuditor(lister, session.Table, session.Journal, session.Intake.Columns()).Run(cmd.Context(), folder)
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Files: %d, rows: %d\n", report.Blobs, report.Rows)
	fmt.Fprintf(out, "\nOrphaned files: %d\n", len(report.Orphans))
	for _, o := range report.Orphans {
		fmt.Fprintf(out, "  %s  %s\n", o.ID, o.Name)
	}
	fmt.Fprintf(out, "\nAwaiting journal retry: %d\n", len(report.Pending))
	for _, o := range report.Pending {
		fmt.Fprintf(out, "  %s  %s\n", o.ID, o.Name)
	}
	cols := session.Intake.Columns()
	fmt.Fprintf(out, "\nRows with missing files: %d\n", len(report.Dangling))
	for _, r := range report.Dangling {
		fmt.Fprintf(out, "  %s  %s  %s\n", r[cols.HN], r[cols.FileName], r[cols.UploadTime])
	}
	return nil
}
