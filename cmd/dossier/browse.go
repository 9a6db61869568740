package main

import (
	"log/slog"

	"github.com/Veraticus/dossier/internal/common"
	"github.com/Veraticus/dossier/internal/config"
	"github.com/Veraticus/dossier/internal/document"
	"github.com/Veraticus/dossier/internal/ingest"
	"github.com/Veraticus/dossier/internal/tui"
	"github.com/Veraticus/dossier/internal/tui/themes"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func browseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse [file]",
		Short: "Pick accounts and export documents interactively",
		Long: `Open the account browser on the loaded records, or load file first.

Keys: ↑/↓ move, x or space toggles, / searches, s cycles the sort order,
ctrl+a selects everything shown, ctrl+d clears the selection, enter shows
an account's records, e exports the selection, r reloads the source and q quits.

Logs go to logging.file while the browser is open.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runBrowse,
	}

	cmd.Flags().String("template", "", "template file (default: template.path from config)")
	cmd.Flags().String("sheet", "", "worksheet to read from .xlsx files (default: first sheet)")
	cmd.Flags().String("theme", "", "color theme (default, catppuccin-mocha)")

	return cmd
}

func runBrowse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, cfg, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(store)

	level, err := common.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logFile, err := common.SetupFileLogger(cfg.LogFile, level, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := logFile.Close(); closeErr != nil {
			slog.Debug("failed to close log file", "error", closeErr)
		}
	}()

	session := newSession(store, cfg)

	opts := []tui.Option{tui.WithDateFormat(cfg.DateFormat)}

	flagTemplate, _ := cmd.Flags().GetString("template")
	if path := templatePath(flagTemplate, cfg); path != "" {
		tmpl, err := document.LoadTemplate(path)
		if err != nil {
			return err
		}
		opts = append(opts, tui.WithTemplate(tmpl))
	}

	theme, _ := cmd.Flags().GetString("theme")
	if theme == "" {
		theme = viper.GetString("ui.theme")
	}
	opts = append(opts, tui.WithTheme(themes.GetTheme(theme)))

	if len(args) == 1 {
		sheet, _ := cmd.Flags().GetString("sheet")
		if sheet == "" {
			sheet = cfg.Sheet
		}
		src, err := ingest.OpenSource(config.ExpandPath(args[0]), ingest.Options{
			Sheet:   sheet,
			Columns: cfg.Columns,
		})
		if err != nil {
			return err
		}
		if _, err := session.Load(ctx, src); err != nil {
			return err
		}
	}

	return tui.Run(ctx, session, opts...)
}
