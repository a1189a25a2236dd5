package cli

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountCreateCmd)
	accountCmd.AddCommand(accountShowCmd)

	accountCreateCmd.Flags().String("holder", "", "Client name")
	accountCreateCmd.Flags().String("rate", "", "Box value (required)")
	accountCreateCmd.Flags().String("balance", "0", "Opening balance")
	accountCreateCmd.MarkFlagRequired("rate")
}

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage savings accounts",
}

// ─── account create ─────────────────────────────────────────────────────────

var accountCreateCmd = &cobra.Command{
	Use:   "create ACCOUNT_ID",
	Short: "Register a savings account",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountCreate,
}

func runAccountCreate(cmd *cobra.Command, args []string) error {
	holder, _ := cmd.Flags().GetString("holder")
	rateStr, _ := cmd.Flags().GetString("rate")
	balanceStr, _ := cmd.Flags().GetString("balance")

	rate, err := decimal.NewFromString(rateStr)
	if err != nil {
		return fmt.Errorf("invalid rate %q: %w", rateStr, err)
	}
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return fmt.Errorf("invalid balance %q: %w", balanceStr, err)
	}

	eng, closer, err := openEngine()
	if err != nil {
		return err
	}
	defer closer()

	acct, err := eng.CreateAccount(context.Background(), args[0], holder, rate, balance)
	if err != nil {
		return err
	}
	fmt.Printf("created account %s (rate %s, balance %s, page %s)\n",
		acct.ID, acct.Rate, acct.Balance, acct.Threshold())
	return nil
}

// ─── account show ───────────────────────────────────────────────────────────

var accountShowCmd = &cobra.Command{
	Use:   "show ACCOUNT_ID",
	Short: "Show an account's balance and page progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountShow,
}

func runAccountShow(cmd *cobra.Command, args []string) error {
	eng, closer, err := openEngine()
	if err != nil {
		return err
	}
	defer closer()

	ctx := context.Background()
	acct, err := eng.GetAccount(ctx, args[0])
	if err != nil {
		return err
	}
	cs, err := eng.CycleState(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("account:    %s", acct.ID)
	if acct.Holder != "" {
		fmt.Printf(" (%s)", acct.Holder)
	}
	fmt.Println()
	fmt.Printf("rate:       %s\n", acct.Rate)
	fmt.Printf("balance:    %s\n", acct.Balance)
	fmt.Printf("page:       %s of %s (remaining %s)\n", cs.Cumulative, cs.Threshold, cs.Remaining)
	return nil
}
