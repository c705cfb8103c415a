package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/models"
)

// printMarkdown renders md for the terminal, or prints it unchanged when raw.
func printMarkdown(md string, raw bool) error {
	if raw {
		_, err := fmt.Fprint(os.Stdout, md)
		return err
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
	)
	if err != nil {
		return fmt.Errorf("markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = fmt.Fprint(os.Stdout, out)
	return err
}

// formatMoney formats an amount with the currency's symbol and minor units.
// Unknown codes fall back to two decimals and the code.
func formatMoney(amount float64, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return fmt.Sprintf("%.2f %s", amount, currency)
	}
	minor := decimal.NewFromFloat(amount).Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, currency).Display()
}

// formatChange renders an optional signed change; nil renders as "-".
func formatChange(v *float64, currency string) string {
	if v == nil {
		return "-"
	}
	if *v > 0 {
		return "+" + formatMoney(*v, currency)
	}
	return formatMoney(*v, currency)
}

func formatPercent(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%+.2f%%", *v)
}

// escapeCell keeps table cells on one line.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

func valuationMarkdown(c *models.ValuationComparison) string {
	var b strings.Builder
	v := c.Valuation
	cur := v.BaseCurrency

	fmt.Fprintf(&b, "# Portfolio valuation\n\n")
	fmt.Fprintf(&b, "**Total:** %s\n\n", formatMoney(v.TotalValue, cur))
	if c.LastSnapshot != nil {
		fmt.Fprintf(&b, "**Last snapshot (%s):** %s, change %s (%s)\n\n",
			c.LastSnapshot.Date, formatMoney(c.LastSnapshot.TotalValue, cur),
			formatChange(c.ChangeAbsolute, cur), formatPercent(c.ChangePercent))
	}

	b.WriteString("| Asset | Symbol | Quantity | Value |\n")
	b.WriteString("|---|---|---:|---:|\n")
	for _, a := range v.ByAsset {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			escapeCell(a.Name), escapeCell(a.Symbol),
			decimal.NewFromFloat(a.Quantity).String(), formatMoney(a.Value, cur))
	}

	if len(v.Skipped) > 0 {
		b.WriteString("\n## Skipped\n\n")
		for _, s := range v.Skipped {
			fmt.Fprintf(&b, "- %s (%s): %s\n", escapeCell(s.Name), escapeCell(s.Symbol), escapeCell(s.Reason))
		}
	}
	return b.String()
}

func snapshotsMarkdown(snaps []*models.Snapshot, currency string) string {
	var b strings.Builder
	b.WriteString("# Snapshots\n\n")
	if len(snaps) == 0 {
		b.WriteString("No snapshots recorded.\n")
		return b.String()
	}
	b.WriteString("| Date | Total | Change | Change % |\n")
	b.WriteString("|---|---:|---:|---:|\n")
	for _, s := range snaps {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			s.Date, formatMoney(s.TotalValue, currency),
			formatChange(s.ChangeAbsolute, currency), formatPercent(s.ChangePercent))
	}
	return b.String()
}

func transactionsMarkdown(items []models.EnrichedTransaction, currency string) string {
	var b strings.Builder
	b.WriteString("# Transactions\n\n")
	if len(items) == 0 {
		b.WriteString("No transactions.\n")
		return b.String()
	}
	b.WriteString("| Date | Title | Amount | Type | Payment | Asset | Flags |\n")
	b.WriteString("|---|---|---:|---|---|---|---|\n")
	for _, t := range items {
		var flags []string
		if t.Verified {
			flags = append(flags, "verified")
		} else if t.AmountConfirmed {
			flags = append(flags, "confirmed")
		}
		if t.IsDueSoon {
			flags = append(flags, "due soon")
		}
		if t.Gte10k {
			flags = append(flags, "large")
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
			t.Date, escapeCell(t.Title), formatMoney(t.Amount, currency),
			escapeCell(t.TransactionType), escapeCell(t.PaymentMethod), escapeCell(t.AssetType),
			strings.Join(flags, ", "))
	}
	return b.String()
}

func snapshotLine(r *models.SnapshotResult, currency string) string {
	s := r.Snapshot
	verb := "Recorded"
	if r.Replaced {
		verb = "Replaced"
	}
	return fmt.Sprintf("%s snapshot %s: %s (change %s, %s)",
		verb, s.Date, formatMoney(s.TotalValue, currency),
		formatChange(s.ChangeAbsolute, currency), formatPercent(s.ChangePercent))
}

func recomputeLine(r *models.RecomputeResult) string {
	line := fmt.Sprintf("Asset log %s..%s by %s (%s): %d written (%d created, %d updated)",
		r.WindowFrom, r.WindowTo, r.GroupBy, r.FlagMode, r.EntriesWritten, r.Created, r.Updated)
	if r.Skipped > 0 {
		line += fmt.Sprintf(", %d transactions skipped", r.Skipped)
	}
	if r.FocusGroup != "" {
		line += ", focus " + r.FocusGroup
	}
	return line
}
