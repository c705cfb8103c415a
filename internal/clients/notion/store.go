package notion

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bobmcallan/folio/internal/models"
)

// maxPageSize is the largest page the query endpoint returns.
const maxPageSize = 100

type queryRequest struct {
	Filter      map[string]interface{} `json:"filter,omitempty"`
	Sorts       []map[string]string    `json:"sorts,omitempty"`
	StartCursor string                 `json:"start_cursor,omitempty"`
	PageSize    int                    `json:"page_size,omitempty"`
}

type queryResponse struct {
	Results    []page `json:"results"`
	NextCursor string `json:"next_cursor"`
	HasMore    bool   `json:"has_more"`
}

// Query returns one page of a database query
func (c *Client) Query(ctx context.Context, databaseID string, q models.Query) (*models.QueryPage, error) {
	size := q.PageSize
	if size <= 0 {
		size = models.DefaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	body := queryRequest{
		Filter:      encodeFilter(q.Filter),
		Sorts:       encodeSorts(q.Sorts),
		StartCursor: q.Cursor,
		PageSize:    size,
	}

	var resp queryResponse
	path := fmt.Sprintf("/databases/%s/query", url.PathEscape(databaseID))
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, fmt.Errorf("query database %s: %w", databaseID, err)
	}

	result := &models.QueryPage{Records: make([]*models.Record, 0, len(resp.Results))}
	for i := range resp.Results {
		result.Records = append(result.Records, resp.Results[i].toRecord())
	}
	if resp.HasMore {
		result.NextCursor = resp.NextCursor
	}
	return result, nil
}

// Retrieve returns a single page
func (c *Client) Retrieve(ctx context.Context, recordID string) (*models.Record, error) {
	var p page
	if err := c.do(ctx, http.MethodGet, "/pages/"+url.PathEscape(recordID), nil, &p); err != nil {
		return nil, fmt.Errorf("retrieve page %s: %w", recordID, err)
	}
	return p.toRecord(), nil
}

// Create adds a page to a database
func (c *Client) Create(ctx context.Context, databaseID string, fields models.Fields) (*models.Record, error) {
	body := map[string]interface{}{
		"parent":     map[string]string{"database_id": databaseID},
		"properties": encodeFields(fields),
	}
	var p page
	if err := c.do(ctx, http.MethodPost, "/pages", body, &p); err != nil {
		return nil, fmt.Errorf("create page in %s: %w", databaseID, err)
	}
	return p.toRecord(), nil
}

// Update overwrites the given properties of a page
func (c *Client) Update(ctx context.Context, recordID string, fields models.Fields) (*models.Record, error) {
	body := map[string]interface{}{"properties": encodeFields(fields)}
	var p page
	if err := c.do(ctx, http.MethodPatch, "/pages/"+url.PathEscape(recordID), body, &p); err != nil {
		return nil, fmt.Errorf("update page %s: %w", recordID, err)
	}
	return p.toRecord(), nil
}

// Schema returns the property definitions of a database
func (c *Client) Schema(ctx context.Context, databaseID string) (*models.Schema, error) {
	var db database
	if err := c.do(ctx, http.MethodGet, "/databases/"+url.PathEscape(databaseID), nil, &db); err != nil {
		return nil, fmt.Errorf("retrieve database %s: %w", databaseID, err)
	}
	if db.ID == "" {
		db.ID = databaseID
	}
	return db.toSchema(), nil
}

// AddField declares a new property on a database
func (c *Client) AddField(ctx context.Context, databaseID, name string, kind models.FieldKind) error {
	body := map[string]interface{}{
		"properties": map[string]interface{}{
			name: map[string]interface{}{string(kind): map[string]interface{}{}},
		},
	}
	if err := c.do(ctx, http.MethodPatch, "/databases/"+url.PathEscape(databaseID), body, nil); err != nil {
		return fmt.Errorf("add property %q to %s: %w", name, databaseID, err)
	}
	c.logger.Info().Str("database", databaseID).Str("property", name).Str("type", string(kind)).Msg("Added database property")
	return nil
}
