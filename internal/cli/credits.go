package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/listinggopher/listinggopher/internal/app/accountant"
	"github.com/listinggopher/listinggopher/internal/daemon"
	"github.com/listinggopher/listinggopher/internal/domain"
	"github.com/listinggopher/listinggopher/internal/infra/sqlite"
)

// ─── Credits CLI ────────────────────────────────────────────────────────────
// Operator tooling that works directly on the ledger database: granting
// credits after manual payment handling, checking balances, and replaying
// refunds for attempts that were debited but never resolved. Refund replay
// is idempotent, so running it for an already-refunded attempt is harmless.

func init() {
	rootCmd.AddCommand(creditsCmd)
	creditsCmd.AddCommand(creditsGrantCmd)
	creditsCmd.AddCommand(creditsBalanceCmd)
	creditsCmd.AddCommand(creditsRefundCmd)

	creditsGrantCmd.Flags().String("email", "", "Agent email to credit")
	creditsGrantCmd.Flags().String("scope", "personal", "Which balance to credit: personal or domain")
	creditsGrantCmd.Flags().Int64("amount", 0, "Number of credits to grant")
	creditsGrantCmd.Flags().String("note", "", "Audit note recorded with the grant")
}

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Manage the credit ledger",
}

// openAccountant opens the ledger from the configured data directory.
func openAccountant() (*accountant.Accountant, *sqlite.DB, error) {
	cfg, err := daemon.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	db, err := sqlite.Open(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger: %w", err)
	}
	return accountant.New(db), db, nil
}

var creditsGrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Grant credits to an agent or brokerage domain",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		scope, _ := cmd.Flags().GetString("scope")
		amount, _ := cmd.Flags().GetInt64("amount")
		note, _ := cmd.Flags().GetString("note")

		var (
			owner string
			err   error
		)
		switch scope {
		case "domain":
			owner, err = domain.DomainIdentity(email)
		case "personal":
			owner, err = domain.PersonalIdentity(email)
		default:
			return fmt.Errorf("scope must be personal or domain, got %q", scope)
		}
		if err != nil {
			return err
		}

		acct, db, err := openAccountant()
		if err != nil {
			return err
		}
		defer db.Close()

		balance, err := acct.Grant(context.Background(), owner, amount, note)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Granted %d credits to %s (balance: %d)\n", amount, owner, balance)
		return nil
	},
}

var creditsBalanceCmd = &cobra.Command{
	Use:   "balance EMAIL",
	Short: "Show personal and domain balances for an agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		personal, err := domain.PersonalIdentity(args[0])
		if err != nil {
			return err
		}
		domainOwner, err := domain.DomainIdentity(args[0])
		if err != nil {
			return err
		}

		acct, db, err := openAccountant()
		if err != nil {
			return err
		}
		defer db.Close()

		pair, err := acct.Balances(context.Background(), personal, domainOwner)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Personal (%s): %d\n", pair.Personal, pair.PersonalCredits)
		fmt.Fprintf(os.Stdout, "Domain   (%s): %d\n", pair.Domain, pair.DomainCredits)
		return nil
	},
}

var creditsRefundCmd = &cobra.Command{
	Use:   "refund ATTEMPT_ID",
	Short: "Replay the refund for a debited attempt (idempotent)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		acct, db, err := openAccountant()
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := acct.Refund(context.Background(), args[0])
		if err != nil {
			return err
		}
		if res.AlreadyRefunded {
			fmt.Fprintf(os.Stdout, "Attempt %s was already refunded (%d credits to %s)\n",
				args[0], res.Amount, res.Owner)
		} else {
			fmt.Fprintf(os.Stdout, "Refunded %d credits to %s for attempt %s\n",
				res.Amount, res.Owner, args[0])
		}
		return nil
	},
}
