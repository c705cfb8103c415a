package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/bobmcallan/folio/internal/app"
	"github.com/bobmcallan/folio/internal/models"
)

// run opens the app, checks the settings the command needs and runs fn.
func run(ctx context.Context, validate func(*app.App) error, fn func(*app.App) error) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if validate != nil {
		if err := validate(a); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
	}
	if err := fn(a); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func validateValuation(a *app.App) error    { return a.Config.ValidateValuation() }
func validateSnapshots(a *app.App) error    { return a.Config.ValidateSnapshots() }
func validateLedger(a *app.App) error       { return a.Config.ValidateLedger() }
func validateTransactions(a *app.App) error { return a.Config.ValidateTransactions() }

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- valuation ---

type valuationCmd struct {
	raw     bool
	jsonOut bool
}

func (*valuationCmd) Name() string     { return "valuation" }
func (*valuationCmd) Synopsis() string { return "value the portfolio against the latest snapshot" }
func (*valuationCmd) Usage() string {
	return `folio valuation [-raw] [-json]

  Values every holding in the base currency and compares the total with the
  latest snapshot. Nothing is written.
`
}

func (c *valuationCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.raw, "raw", false, "print plain markdown")
	f.BoolVar(&c.jsonOut, "json", false, "print JSON")
}

func (c *valuationCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, validateValuation, func(a *app.App) error {
		comparison, err := a.SnapshotService.Compare(ctx)
		if err != nil {
			return err
		}
		if c.jsonOut {
			return printJSON(comparison)
		}
		return printMarkdown(valuationMarkdown(comparison), c.raw)
	})
}

// --- snapshot ---

type snapshotCmd struct {
	date    string
	jsonOut bool
}

func (*snapshotCmd) Name() string     { return "snapshot" }
func (*snapshotCmd) Synopsis() string { return "record today's valuation snapshot" }
func (*snapshotCmd) Usage() string {
	return `folio snapshot [-d <date>] [-json]

  Values the portfolio and records a snapshot with the change against the
  previous one.
`
}

func (c *snapshotCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "snapshot date YYYY-MM-DD (defaults to today)")
	f.BoolVar(&c.jsonOut, "json", false, "print JSON")
}

func (c *snapshotCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on := time.Now()
	if c.date != "" {
		d, err := time.Parse("2006-01-02", c.date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid date %q\n", c.date)
			return subcommands.ExitUsageError
		}
		on = d
	}

	return run(ctx, validateValuation, func(a *app.App) error {
		result, err := a.SnapshotService.RecordSnapshot(ctx, on)
		if err != nil {
			return err
		}
		if c.jsonOut {
			return printJSON(result)
		}
		fmt.Println(snapshotLine(result, a.Config.BaseCurrency))
		return nil
	})
}

// --- snapshots ---

type snapshotsCmd struct {
	limit int
	chart string
	raw   bool
}

func (*snapshotsCmd) Name() string     { return "snapshots" }
func (*snapshotsCmd) Synopsis() string { return "list recent snapshots" }
func (*snapshotsCmd) Usage() string {
	return `folio snapshots [-n <limit>] [-chart <file.png>] [-raw]

  Lists recent snapshots oldest first. With -chart the history is also
  rendered as a PNG line chart.
`
}

func (c *snapshotsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 30, "number of snapshots")
	f.StringVar(&c.chart, "chart", "", "write a PNG chart to this file")
	f.BoolVar(&c.raw, "raw", false, "print plain markdown")
}

func (c *snapshotsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, validateSnapshots, func(a *app.App) error {
		snaps, err := a.SnapshotService.ListSnapshots(ctx, c.limit)
		if err != nil {
			return err
		}
		if c.chart != "" {
			png, err := a.SnapshotService.RenderChart(snaps)
			if err != nil {
				return err
			}
			if err := os.WriteFile(c.chart, png, 0644); err != nil {
				return fmt.Errorf("write chart: %w", err)
			}
		}
		return printMarkdown(snapshotsMarkdown(snaps, a.Config.BaseCurrency), c.raw)
	})
}

// --- recompute ---

type recomputeCmd struct {
	pageID  string
	from    string
	to      string
	groupBy string
	mode    string
}

func (*recomputeCmd) Name() string     { return "recompute" }
func (*recomputeCmd) Synopsis() string { return "rebuild asset log balances" }
func (*recomputeCmd) Usage() string {
	return `folio recompute [-page <id>] [-from <date>] [-to <date>] [-group-by <mode>] [-mode <flags>]

  Aggregates transactions by day and group, carries balances forward from
  before the window and upserts the asset log rows. With -page the window
  is centred on that transaction's date.
`
}

func (c *recomputeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.pageID, "page", "", "changed transaction id")
	f.StringVar(&c.from, "from", "", "window start YYYY-MM-DD")
	f.StringVar(&c.to, "to", "", "window end YYYY-MM-DD")
	f.StringVar(&c.groupBy, "group-by", "", "asset_type, payment_method or total (defaults to config)")
	f.StringVar(&c.mode, "mode", "", "any (default), cash or forecast")
}

func (c *recomputeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, validateLedger, func(a *app.App) error {
		result, err := a.LedgerService.Recompute(ctx, models.RecomputeRequest{
			RecordID: c.pageID,
			From:     c.from,
			To:       c.to,
			GroupBy:  models.GroupBy(c.groupBy),
			FlagMode: models.FlagMode(c.mode),
		})
		if err != nil {
			return err
		}
		fmt.Println(recomputeLine(result))
		return nil
	})
}

// --- sync ---

type syncCmd struct {
	mode string
	from string
	to   string
}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "rebuild the cash or forecast asset log view" }
func (*syncCmd) Usage() string {
	return `folio sync [-mode cash|forecast] [-from <date>] [-to <date>]

  Cash counts verified transactions, forecast counts confirmed amounts.
`
}

func (c *syncCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.mode, "mode", "cash", "cash or forecast")
	f.StringVar(&c.from, "from", "", "window start YYYY-MM-DD")
	f.StringVar(&c.to, "to", "", "window end YYYY-MM-DD")
}

func (c *syncCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, validateLedger, func(a *app.App) error {
		result, err := a.LedgerService.Sync(ctx, models.RecomputeRequest{
			From:     c.from,
			To:       c.to,
			FlagMode: models.FlagMode(c.mode),
		})
		if err != nil {
			return err
		}
		fmt.Println(recomputeLine(result))
		return nil
	})
}

// --- transactions ---

type transactionsCmd struct {
	limit int
	raw   bool
}

func (*transactionsCmd) Name() string     { return "transactions" }
func (*transactionsCmd) Synopsis() string { return "list recent transactions" }
func (*transactionsCmd) Usage() string {
	return `folio transactions [-n <limit>] [-raw]
`
}

func (c *transactionsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 50, "number of transactions")
	f.BoolVar(&c.raw, "raw", false, "print plain markdown")
}

func (c *transactionsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, validateTransactions, func(a *app.App) error {
		items, err := a.TransactionService.ListTransactions(ctx, c.limit)
		if err != nil {
			return err
		}
		return printMarkdown(transactionsMarkdown(items, a.Config.BaseCurrency), c.raw)
	})
}
