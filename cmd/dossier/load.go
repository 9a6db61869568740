package main

import (
	"fmt"

	"github.com/Veraticus/dossier/internal/cli"
	"github.com/Veraticus/dossier/internal/common"
	"github.com/Veraticus/dossier/internal/config"
	"github.com/Veraticus/dossier/internal/ingest"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func loadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load [file]",
		Short: "Load billing records from a spreadsheet",
		Long: `Replace the stored billing records with the contents of a source.

The source is a .csv, .xlsx or .ofx file, or a Google Sheets range when
--spreadsheet-id is given (or sheets.spreadsheet_id is configured). Column
names come from ingest.columns in the config file.

A source that cannot be read, or that lacks a required column, leaves the
previously loaded records untouched.`,
		Example: `  dossier load billing.xlsx
  dossier load billing.xlsx --sheet March
  dossier load --spreadsheet-id 1AbC... --range 'Billing!A:F'`,
		Args: cobra.MaximumNArgs(1),
		RunE: runLoad,
	}

	cmd.Flags().String("sheet", "", "worksheet to read from .xlsx files (default: first sheet)")
	cmd.Flags().String("spreadsheet-id", "", "Google Sheets spreadsheet to read instead of a file")
	cmd.Flags().String("range", "", "A1 range to read from the spreadsheet (default: A:Z)")

	return cmd
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, cfg, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(store)

	src, err := sourceFor(cmd, args, cfg)
	if err != nil {
		return err
	}

	session := newSession(store, cfg)
	session.SetProgress(cli.NewBusyIndicator(cmd.ErrOrStderr()))
	result, err := session.Load(ctx, src)
	if err != nil {
		return err
	}

	return cli.WriteLoadResult(cmd.OutOrStdout(), result, session.AccountCount())
}

func sourceFor(cmd *cobra.Command, args []string, cfg *config.Config) (ingest.Source, error) {
	if len(args) == 1 {
		sheet, _ := cmd.Flags().GetString("sheet")
		if sheet == "" {
			sheet = cfg.Sheet
		}
		return ingest.OpenSource(config.ExpandPath(args[0]), ingest.Options{
			Sheet:   sheet,
			Columns: cfg.Columns,
		})
	}

	sheetsConfig := config.LoadSheetsConfig(viper.GetViper())
	if id, _ := cmd.Flags().GetString("spreadsheet-id"); id != "" {
		sheetsConfig.SpreadsheetID = id
	}
	if r, _ := cmd.Flags().GetString("range"); r != "" {
		sheetsConfig.Range = r
	}
	if sheetsConfig.SpreadsheetID == "" {
		return nil, common.NewUserError("nothing to load: pass a file or --spreadsheet-id", nil)
	}

	src, err := ingest.NewSheetsSource(cmd.Context(), sheetsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	return src, nil
}
