package models

// Snapshot is one recorded daily valuation.
type Snapshot struct {
	ID             string   `json:"id,omitempty"`
	Date           string   `json:"date"`
	TotalValue     float64  `json:"total_value"`
	ChangeAbsolute *float64 `json:"change_absolute,omitempty"`
	ChangePercent  *float64 `json:"change_percent,omitempty"`
}

// ValuationComparison is a fresh valuation compared against the latest snapshot.
type ValuationComparison struct {
	Valuation      *PortfolioValuation `json:"valuation"`
	LastSnapshot   *Snapshot           `json:"last_snapshot,omitempty"`
	ChangeAbsolute *float64            `json:"change_absolute,omitempty"`
	ChangePercent  *float64            `json:"change_percent,omitempty"`
}

// SnapshotResult is returned after recording a snapshot.
type SnapshotResult struct {
	Snapshot *Snapshot `json:"snapshot"`
	Previous *Snapshot `json:"previous,omitempty"`
	Replaced bool      `json:"replaced,omitempty"`
}
