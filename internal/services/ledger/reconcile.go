package ledger

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

// StartingBalances sums every admitted transaction dated before windowStart,
// bucketed the same way as Aggregate.
func (a *Aggregator) StartingBalances(ctx context.Context, windowStart string, groupBy models.GroupBy, mode models.FlagMode) (models.Balances, int, error) {
	before := models.DateWindow{To: common.AddDays(windowStart, -1)}
	set, err := a.transactions.QueryTransactions(ctx, models.TransactionQuery{
		To:       before.To,
		FlagMode: mode,
	})
	if err != nil {
		return nil, 0, err
	}

	balances := models.Balances{}
	for _, t := range set.Transactions {
		if !before.Contains(t.Date) || !mode.Admits(*t) {
			continue
		}
		g := groupBy.GroupKey(*t)
		balances[g] = balances[g].Add(decimal.NewFromFloat(t.Amount))
	}
	return balances, set.Gaps, nil
}

// Reconcile folds daily deltas into running balances per group, starting from
// the given balances. Groups without deltas emit nothing. Entries are ordered
// by group then date.
func Reconcile(deltas models.DailyDeltas, starting models.Balances) []models.LedgerEntry {
	byGroup := make(map[string][]string)
	for k := range deltas {
		byGroup[k.Group] = append(byGroup[k.Group], k.Date)
	}

	groups := make([]string, 0, len(byGroup))
	for g := range byGroup {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	entries := make([]models.LedgerEntry, 0, len(deltas))
	for _, g := range groups {
		dates := byGroup[g]
		sort.Strings(dates)

		balance := starting[g]
		for _, d := range dates {
			delta := deltas[models.NaturalKey{Date: d, Group: g}]
			balance = balance.Add(delta)
			entries = append(entries, models.LedgerEntry{
				Date:    d,
				Group:   g,
				Delta:   delta.Round(2).InexactFloat64(),
				Balance: balance.Round(2).InexactFloat64(),
			})
		}
	}
	return entries
}
