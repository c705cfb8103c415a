package ledger

import (
	"context"

	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// Aggregator sums transactions into daily per-group deltas.
type Aggregator struct {
	transactions interfaces.TransactionStore
}

func NewAggregator(transactions interfaces.TransactionStore) *Aggregator {
	return &Aggregator{transactions: transactions}
}

// Aggregate returns the signed daily sums for transactions dated inside window
// that pass mode, plus the number of records skipped as unreadable.
// Rows the store returns outside the window or mode are dropped, so every key
// emitted here is one the upserter's window listing can find again.
func (a *Aggregator) Aggregate(ctx context.Context, window models.DateWindow, groupBy models.GroupBy, mode models.FlagMode) (models.DailyDeltas, int, error) {
	set, err := a.transactions.QueryTransactions(ctx, models.TransactionQuery{
		From:     window.From,
		To:       window.To,
		FlagMode: mode,
	})
	if err != nil {
		return nil, 0, err
	}

	deltas := models.DailyDeltas{}
	for _, t := range set.Transactions {
		if !window.Contains(t.Date) || !mode.Admits(*t) {
			continue
		}
		deltas.Add(models.NaturalKey{Date: t.Date, Group: groupBy.GroupKey(*t)}, t.Amount)
	}
	return deltas, set.Gaps, nil
}
