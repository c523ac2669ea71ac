package cmd

import (
	"errors"
	"fmt"

	"virtual-ward-intake/models"

	"github.com/spf13/cobra"
)

var sheetCmd = &cobra.Command{
	Use:   "sheet",
	Short: "Inspect or prepare the record sheet",
}

var sheetCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the sheet header carries every required column",
	RunE:  runSheetCheck,
}

var sheetInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the column header to an empty sheet",
	RunE:  runSheetInit,
}

func init() {
	sheetCmd.AddCommand(sheetCheckCmd)
	sheetCmd.AddCommand(sheetInitCmd)
}

func runSheetCheck(cmd *cobra.Command, args []string) error {
	session, err := openSession(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	header, err := session.Table.Header(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if err := session.Intake.Columns().Check(header); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Header OK: %d columns\n", len(header))
	return nil
}

func runSheetInit(cmd *cobra.Command, args []string) error {
	session, err := openSession(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	cols := session.Intake.Columns()
	header, err := session.Table.Header(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if err := cols.Check(header); !errors.Is(err, models.ErrNoHeader) {
		return fmt.Errorf("sheet already has a header row, refusing to overwrite")
	}

	if err := session.Table.WriteHeader(cmd.Context(), cols.Header()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Header written.")
	return nil
}
