package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type createAccountCmd struct {
	balance string
}

func (*createAccountCmd) Name() string     { return "create-account" }
func (*createAccountCmd) Synopsis() string { return "open a trading account and print its API key" }
func (*createAccountCmd) Usage() string {
	return `papertradectl create-account [-balance <amount>]

  Opens an account with the configured default balance (or -balance)
  and prints its id and API key. The key cannot be recovered later.
`
}

func (c *createAccountCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.balance, "balance", "", "Starting cash balance. Defaults to trading.default_balance.")
}

func (c *createAccountCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var initial *decimal.Decimal
	if c.balance != "" {
		b, err := decimal.NewFromString(c.balance)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing balance: %v\n", err)
			return subcommands.ExitUsageError
		}
		initial = &b
	}

	e, err := openEnv(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.close()

	acct, err := e.accounts.Create(ctx, initial)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("id:      %s\napi key: %s\nbalance: %s\n", acct.ID, acct.APIKey, formatUSD(acct.CashBalance))
	return subcommands.ExitSuccess
}

type resetAccountCmd struct {
	id  string
	key string
}

func (*resetAccountCmd) Name() string { return "reset-account" }
func (*resetAccountCmd) Synopsis() string {
	return "delete an account's trades and holdings and restore the default balance"
}
func (*resetAccountCmd) Usage() string {
	return `papertradectl reset-account (-id <account id> | -key <api key>)
`
}

func (c *resetAccountCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Account id.")
	f.StringVar(&c.key, "key", "", "Account API key.")
}

func (c *resetAccountCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := openEnv(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.close()

	acct, err := e.resolveAccount(ctx, c.id, c.key)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	result, err := e.accounts.Reset(ctx, acct.ID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("account %s reset: %d trades and %d holdings deleted, balance %s\n",
		acct.ID, result.TradesDeleted, result.HoldingsDeleted, formatUSD(result.Balance))
	return subcommands.ExitSuccess
}

type balanceCmd struct {
	id  string
	key string
}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "print an account's cash balance" }
func (*balanceCmd) Usage() string {
	return `papertradectl balance (-id <account id> | -key <api key>)
`
}

func (c *balanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Account id.")
	f.StringVar(&c.key, "key", "", "Account API key.")
}

func (c *balanceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := openEnv(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.close()

	acct, err := e.resolveAccount(ctx, c.id, c.key)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Println(formatUSD(acct.CashBalance))
	return subcommands.ExitSuccess
}

type tradesCmd struct {
	id    string
	key   string
	limit int
}

func (*tradesCmd) Name() string     { return "trades" }
func (*tradesCmd) Synopsis() string { return "list an account's most recent trades" }
func (*tradesCmd) Usage() string {
	return `papertradectl trades (-id <account id> | -key <api key>) [-n <count>]
`
}

func (c *tradesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Account id.")
	f.StringVar(&c.key, "key", "", "Account API key.")
	f.IntVar(&c.limit, "n", 20, "Number of trades to show.")
}

func (c *tradesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := openEnv(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.close()

	acct, err := e.resolveAccount(ctx, c.id, c.key)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	trades, err := e.trades.ListByAccount(ctx, acct.ID, c.limit, 0)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "executed\tside\tsymbol\tquantity\tprice\tfee\ttotal\t")
	for _, t := range trades {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			t.ExecutedAt.UTC().Format(time.DateTime), t.Side, t.Symbol, t.Quantity.String(),
			t.Price.String(), formatUSD(t.Fee), formatUSD(t.TotalCost))
	}
	_ = w.Flush()
	return subcommands.ExitSuccess
}
