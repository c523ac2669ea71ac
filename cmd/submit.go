package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"virtual-ward-intake/intake"

	"github.com/spf13/cobra"
)

var (
	submitHN   string
	submitBP   string
	submitHR   string
	submitO2   string
	submitFile string
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Record one patient submission",
	Long: `Uploads an ECG PDF and appends the patient's vitals to the sheet.

Example:
  intake submit --hn HN001 --bp 120/80 --hr 72 --o2 98 --file ecg_001.pdf`,
	Args: cobra.NoArgs,
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&submitHN, "hn", "", "Hospital number")
	submitCmd.Flags().StringVar(&submitBP, "bp", "", "Blood pressure")
	submitCmd.Flags().StringVar(&submitHR, "hr", "", "Heart rate")
	submitCmd.Flags().StringVar(&submitO2, "o2", "", "Oxygen saturation")
	submitCmd.Flags().StringVarP(&submitFile, "file", "f", "", "ECG PDF to attach")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	session, err := openSession(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	sub := intake.Submission{HN: submitHN, BP: submitBP, HR: submitHR, O2: submitO2}
	if submitFile != "" {
		f, err := os.Open(submitFile)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", submitFile, err)
		}
		defer f.Close()
		sub.File = &intake.Attachment{Name: filepath.Base(submitFile), Content: f}
	}

	result, err := session.Intake.Submit(cmd.Context(), sub)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Saved %s for %s (%s)\n", result.File.Name, result.Record.HN, result.File.SizeKB())
	fmt.Fprintf(out, "Link: %s\n", result.File.Link)
	return nil
}
