package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/susu-network/susu/internal/domain"
	"github.com/susu-network/susu/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(depositCmd)
	rootCmd.AddCommand(withdrawCmd)
	rootCmd.AddCommand(reverseCmd)
	rootCmd.AddCommand(rateCmd)
	rootCmd.AddCommand(cycleCmd)
	rootCmd.AddCommand(ledgerCmd)

	depositCmd.Flags().String("date", "", "Value date (YYYY-MM-DD, default today)")
	withdrawCmd.Flags().String("date", "", "Value date (YYYY-MM-DD, default today)")
	reverseCmd.Flags().String("reason", "", "Reason for the reversal (required)")
	reverseCmd.MarkFlagRequired("reason")
	cycleCmd.AddCommand(cycleShowCmd)
	cycleCmd.AddCommand(cycleResetCmd)
	cycleCmd.AddCommand(cycleAdjustCmd)
	ledgerCmd.Flags().String("kind", "", "Filter by kind (deposit|withdrawal|commission|reversal)")
}

func parseDateFlag(cmd *cobra.Command) (time.Time, error) {
	v, _ := cmd.Flags().GetString("date")
	if v == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	return time.Parse(time.DateOnly, v)
}

// ─── deposit ────────────────────────────────────────────────────────────────

var depositCmd = &cobra.Command{
	Use:   "deposit ACCOUNT_ID AMOUNT",
	Short: "Record a client deposit",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", args[1], err)
		}
		date, err := parseDateFlag(cmd)
		if err != nil {
			return err
		}

		eng, closer, err := openEngine()
		if err != nil {
			return err
		}
		defer closer()

		res, err := eng.Deposit(context.Background(), args[0], amount, date)
		if err != nil {
			return err
		}
		fmt.Printf("deposited %s; balance %s\n", amount, res.NewBalance)
		return nil
	},
}

// ─── withdraw ───────────────────────────────────────────────────────────────

var withdrawCmd = &cobra.Command{
	Use:   "withdraw ACCOUNT_ID AMOUNT",
	Short: "Process a withdrawal through the commission cycle",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", args[1], err)
		}
		date, err := parseDateFlag(cmd)
		if err != nil {
			return err
		}

		eng, closer, err := openEngine()
		if err != nil {
			return err
		}
		defer closer()

		res, err := eng.ProcessWithdrawal(context.Background(), args[0], amount, date)
		if err != nil {
			return err
		}

		fmt.Printf("withdrawal %s\n", res.Withdrawal.ID)
		fmt.Printf("client receives: %s\n", res.ClientGets)
		if res.Commission != nil {
			fmt.Printf("commission:      %s (%d page(s))\n", res.CommissionPaid, res.PagesCompleted)
		}
		fmt.Printf("balance:         %s\n", res.NewBalance)
		fmt.Printf("page progress:   %s\n", res.NewCumulative)
		if res.FullWithdrawal {
			fmt.Println("note: full withdrawal — open page settled")
		}
		return nil
	},
}

// ─── reverse ────────────────────────────────────────────────────────────────

var reverseCmd = &cobra.Command{
	Use:   "reverse WITHDRAWAL_ID",
	Short: "Reverse a withdrawal and its commission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")

		eng, closer, err := openEngine()
		if err != nil {
			return err
		}
		defer closer()

		res, err := eng.ReverseWithdrawal(context.Background(), args[0], reason)
		if err != nil {
			return err
		}
		fmt.Printf("reversed; balance %s, page progress %s\n",
			res.RestoredBalance, res.RestoredCumulative)
		return nil
	},
}

// ─── rate ───────────────────────────────────────────────────────────────────

var rateCmd = &cobra.Command{
	Use:   "rate ACCOUNT_ID NEW_RATE",
	Short: "Change an account's box value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		newRate, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("invalid rate %q: %w", args[1], err)
		}

		eng, closer, err := openEngine()
		if err != nil {
			return err
		}
		defer closer()

		res, err := eng.UpdateRate(context.Background(), args[0], newRate)
		if err != nil {
			return err
		}
		fmt.Printf("rate %s → %s\n", res.OldRate, res.NewRate)
		if res.CumulativeAdjusted {
			fmt.Printf("one box settled; page progress now %s\n", res.NewCumulative)
		}
		return nil
	},
}

// ─── cycle ──────────────────────────────────────────────────────────────────

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Inspect or correct an account's page progress",
}

var cycleShowCmd = &cobra.Command{
	Use:   "show ACCOUNT_ID",
	Short: "Show page progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closer, err := openEngine()
		if err != nil {
			return err
		}
		defer closer()

		cs, err := eng.CycleState(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("progress:  %s of %s\n", cs.Cumulative, cs.Threshold)
		fmt.Printf("remaining: %s\n", cs.Remaining)
		if cs.Reached {
			fmt.Println("warning: accumulator at or past threshold — will normalize on next withdrawal")
		}
		return nil
	},
}

var cycleResetCmd = &cobra.Command{
	Use:   "reset ACCOUNT_ID",
	Short: "Reset page progress to zero",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closer, err := openEngine()
		if err != nil {
			return err
		}
		defer closer()

		if err := eng.ResetCycle(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Println("page progress reset")
		return nil
	},
}

var cycleAdjustCmd = &cobra.Command{
	Use:   "adjust ACCOUNT_ID VALUE",
	Short: "Force-set page progress (administrative correction)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", args[1], err)
		}

		eng, closer, err := openEngine()
		if err != nil {
			return err
		}
		defer closer()

		if err := eng.AdjustCycle(context.Background(), args[0], value); err != nil {
			return err
		}
		fmt.Println("page progress adjusted")
		return nil
	},
}

// ─── ledger ─────────────────────────────────────────────────────────────────

var ledgerCmd = &cobra.Command{
	Use:   "ledger ACCOUNT_ID",
	Short: "Print an account's ledger entries in order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")

		eng, closer, err := openEngine()
		if err != nil {
			return err
		}
		defer closer()

		entries, err := eng.DB().ListEntries(context.Background(), sqlite.EntryFilter{
			AccountID: args[0],
			Kind:      domain.EntryKind(kind),
		})
		if err != nil {
			return err
		}
		for _, e := range entries {
			line := fmt.Sprintf("%s  %-10s  %10s", e.OccurredOn.Format(time.DateOnly), e.Kind, e.Amount)
			if e.RelatedEntryID != "" {
				line += "  → " + e.RelatedEntryID
			}
			fmt.Println(line)
		}
		fmt.Printf("%d entries\n", len(entries))
		return nil
	},
}
