package main

import (
	"github.com/Veraticus/dossier/internal/cli"
	"github.com/Veraticus/dossier/internal/common"
	"github.com/spf13/cobra"
)

func detailsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "details <account>",
		Short: "Show the billing records of one account",
		Args:  cobra.ExactArgs(1),
		RunE:  runDetails,
	}
}

func runDetails(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	accountKey := args[0]

	session, cfg, closeFn, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	records, err := session.Details(ctx, accountKey)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return &common.UnknownAccountError{AccountKey: accountKey}
	}

	return cli.WriteDetails(cmd.OutOrStdout(), accountKey, records, cfg.DateFormat)
}
