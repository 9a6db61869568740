package main

import (
	"fmt"

	"github.com/Veraticus/dossier/internal/cli"
	"github.com/Veraticus/dossier/internal/common"
	"github.com/Veraticus/dossier/internal/document"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write one document per selected account",
		Long: `Render the template once per selected account and write the documents
to the output directory, one file per account named after the account key.

Accounts are selected with --account (repeatable), --all, or --filter, which
selects every account whose key contains the term. A template that is
missing or lacks a required placeholder stops the export before any file is
written. A failure on one account is reported and the rest continue.`,
		Example: `  dossier export --all
  dossier export --account 100 --account 200 --template invoice.tmpl
  dossier export --filter 12 --output ./out`,
		Args: cobra.NoArgs,
		RunE: runExport,
	}

	cmd.Flags().String("template", "", "template file (default: template.path from config)")
	cmd.Flags().StringSlice("account", nil, "account key to export (repeatable)")
	cmd.Flags().Bool("all", false, "export every account")
	cmd.Flags().String("filter", "", "export every account whose key contains this term")
	cmd.Flags().String("output", "", "output directory (default: output.dir from config)")

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	accounts, _ := cmd.Flags().GetStringSlice("account")
	all, _ := cmd.Flags().GetBool("all")
	filter, _ := cmd.Flags().GetString("filter")
	if len(accounts) == 0 && !all && filter == "" {
		return common.NewUserError("nothing to export: pass --account, --all or --filter", nil)
	}

	if out, _ := cmd.Flags().GetString("output"); out != "" {
		viper.Set("output.dir", out)
	}

	session, cfg, closeFn, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	flagTemplate, _ := cmd.Flags().GetString("template")
	tmpl, err := document.LoadTemplate(templatePath(flagTemplate, cfg))
	if err != nil {
		return err
	}

	if all || filter != "" {
		session.SetFilter(filter)
		session.SelectVisible()
		session.SetFilter("")
	}
	for _, key := range accounts {
		if session.IsSelected(key) {
			continue
		}
		if err := session.Toggle(key); err != nil {
			return err
		}
	}

	selected := session.Selected()
	interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx = interrupts.HandleInterrupts(ctx, "Export", session.OutputDir())
	defer interrupts.Stop()

	var progress document.ProgressFunc
	if len(selected) > 0 {
		_, progress = cli.NewExportProgress(cmd.ErrOrStderr(), len(selected))
	}
	report, err := session.Export(ctx, tmpl, progress)
	if err != nil {
		return err
	}

	if err := cli.WriteReport(cmd.OutOrStdout(), session.OutputDir(), report.Succeeded, report.Failed); err != nil {
		return err
	}
	for _, o := range report.Failed {
		common.LogDebug("Export failure", common.Fields{"account": o.AccountKey, "error": o.Err})
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d documents failed", len(report.Failed), report.Total())
	}
	return nil
}
