package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"finops/internal/services/ledger"

	"github.com/spf13/cobra"
)

// errInconsistent makes verify exit non-zero when any chain fails replay.
var errInconsistent = errors.New("ledger verification found inconsistencies")

type opener func() (ledger.Service, func(), error)

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Inspect balances and audit ledger chains",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newVerifyCmd(open), newBalanceCmd(open), newEntriesCmd(open))
	return root
}

func newVerifyCmd(open opener) *cobra.Command {
	var account string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Replay ledger chains and compare them with stored balances",
		Long: `Replay every ledger entry from a zero balance and check that the chain is
gap-free and ends at the stored balance and version. Without --account every
profile is checked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := open()
			if err != nil {
				return err
			}
			defer closeFn()

			var reports []ledger.VerificationReport
			if account != "" {
				report, err := svc.VerifyAccount(cmd.Context(), account)
				if err != nil {
					return err
				}
				reports = append(reports, *report)
			} else {
				reports, err = svc.VerifyAll(cmd.Context())
				if err != nil {
					return err
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ACCOUNT\tSTATUS\tENTRIES\tSTORED\tREPLAYED\tPROBLEMS")
			inconsistent := 0
			for _, r := range reports {
				status := "ok"
				if !r.Consistent {
					status = "MISMATCH"
					inconsistent++
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
					r.AccountID, status, r.Entries, r.StoredBalance, r.ReplayedBalance, strings.Join(r.Problems, "; "))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d account(s) checked, %d inconsistent\n", len(reports), inconsistent)
			if inconsistent > 0 {
				return errInconsistent
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "Verify a single account id")
	return cmd
}

func newBalanceCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "balance ACCOUNT_ID",
		Short: "Show the stored balance and version of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := open()
			if err != nil {
				return err
			}
			defer closeFn()

			profile, err := svc.GetAccount(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "account:  %s\nrole:     %s\nbalance:  %d\nversion:  %d\nactive:   %t\n",
				profile.ID, profile.RoleName, profile.Balance, profile.Version, profile.IsActive)
			return nil
		},
	}
}

func newEntriesCmd(open opener) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "entries ACCOUNT_ID",
		Short: "List ledger entries of an account, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := open()
			if err != nil {
				return err
			}
			defer closeFn()

			entries, total, err := svc.ListEntries(cmd.Context(), args[0], limit, offset)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SEQ\tKIND\tDELTA\tBEFORE\tAFTER\tCREATED\tDESCRIPTION")
			for _, e := range entries {
				fmt.Fprintf(w, "%d\t%s\t%+d\t%d\t%d\t%s\t%s\n",
					e.Sequence, e.Kind, e.Delta, e.BalanceBefore, e.BalanceAfter,
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.Description)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "showing %d of %d entries\n", len(entries), total)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries (1-100)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of newest entries to skip")
	return cmd
}
