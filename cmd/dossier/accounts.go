package main

import (
	"fmt"

	"github.com/Veraticus/dossier/internal/cli"
	"github.com/Veraticus/dossier/internal/common"
	"github.com/Veraticus/dossier/internal/model"
	"github.com/spf13/cobra"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List accounts in the loaded records",
		Long: `List one line per bank account with its service count, total amount and payers.

--filter keeps accounts whose key contains the term, ignoring case.
--sort orders by services or amount (both descending), or by key.`,
		Args: cobra.NoArgs,
		RunE: runAccounts,
	}

	cmd.Flags().String("filter", "", "only show accounts whose key contains this term")
	cmd.Flags().String("sort", "none", "sort order (none, services, amount)")

	return cmd
}

func runAccounts(cmd *cobra.Command, _ []string) error {
	sortFlag, _ := cmd.Flags().GetString("sort")
	mode, ok := model.ParseSortMode(sortFlag)
	if !ok {
		return common.NewUserError(fmt.Sprintf("invalid sort order %q (want none, services or amount)", sortFlag), nil)
	}
	filter, _ := cmd.Flags().GetString("filter")

	session, _, closeFn, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	session.SetSortMode(mode)
	session.SetFilter(filter)

	visible := session.Visible()
	out := cmd.OutOrStdout()
	if err := cli.WriteAccounts(out, visible, nil); err != nil {
		return err
	}

	if filter != "" {
		_, err = fmt.Fprintln(out, cli.SubtleStyle.Render(
			fmt.Sprintf("%d of %d accounts match %q", len(visible), session.AccountCount(), filter)))
	}
	return err
}
