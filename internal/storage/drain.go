package storage

import (
	"context"
	"fmt"

	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// maxPageSize is the largest page any backend serves.
const maxPageSize = 100

// queryAll follows cursors until the last page, or until limit records have
// been collected when limit is positive.
func queryAll(ctx context.Context, docs interfaces.DocumentStore, database string, q models.Query, limit int) ([]*models.Record, error) {
	q.PageSize = maxPageSize
	if limit > 0 && limit < maxPageSize {
		q.PageSize = limit
	}

	var out []*models.Record
	for {
		page, err := docs.Query(ctx, database, q)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", database, err)
		}
		out = append(out, page.Records...)
		if limit > 0 && len(out) >= limit {
			return out[:limit], nil
		}
		if page.NextCursor == "" {
			return out, nil
		}
		q.Cursor = page.NextCursor
	}
}

// dateWindowFilter restricts a date field to an inclusive window. Empty
// bounds leave that side open.
func dateWindowFilter(field string, window models.DateWindow) []models.Filter {
	var filters []models.Filter
	if window.From != "" {
		filters = append(filters, models.DateOnOrAfter(field, window.From))
	}
	if window.To != "" {
		filters = append(filters, models.DateOnOrBefore(field, window.To))
	}
	return filters
}

// setIf adds a field when its configured name is non-empty.
func setIf(fields models.Fields, name string, v models.Value) {
	if name != "" {
		fields[name] = v
	}
}
