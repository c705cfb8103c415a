package memdb

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

func TestStore_CreateQueryUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)

	a, err := s.Create(ctx, "log", models.Fields{"Date": models.DateValue("2024-05-02"), "Balance": models.NumberValue(10)})
	require.NoError(t, err)
	_, err = s.Create(ctx, "log", models.Fields{"Date": models.DateValue("2024-05-01"), "Balance": models.NumberValue(5)})
	require.NoError(t, err)
	_, err = s.Create(ctx, "other", models.Fields{"Date": models.DateValue("2024-05-01")})
	require.NoError(t, err)

	page, err := s.Query(ctx, "log", models.Query{Sorts: []models.Sort{{Field: "Date"}}})
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.Equal(t, a.ID, page.Records[1].ID)

	updated, err := s.Update(ctx, a.ID, models.Fields{"Balance": models.NumberValue(12)})
	require.NoError(t, err)
	bal, _ := updated.Number("Balance")
	assert.Equal(t, 12.0, bal)
	date, _ := updated.Date("Date")
	assert.Equal(t, "2024-05-02", date, "update leaves other fields intact")
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)
	r, err := s.Create(ctx, "db", models.Fields{"n": models.NumberValue(1)})
	require.NoError(t, err)

	*r.Fields["n"].Number = 99
	got, err := s.Retrieve(ctx, r.ID)
	require.NoError(t, err)
	n, _ := got.Number("n")
	assert.Equal(t, 1.0, n)
}

func TestStore_RetrieveMissing(t *testing.T) {
	_, err := NewStore(nil).Retrieve(context.Background(), "nope")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestStore_SchemaObservedAndDeclared(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)
	s.DeclareField("tx", "Name", models.FieldTitle)
	_, err := s.Create(ctx, "tx", models.Fields{"Payment Method": models.SelectValue("Card")})
	require.NoError(t, err)
	require.NoError(t, s.AddField(ctx, "tx", "Balance", models.FieldNumber))

	schema, err := s.Schema(ctx, "tx")
	require.NoError(t, err)
	assert.True(t, schema.HasField("Balance"))
	assert.Equal(t, []string{"Card"}, schema.Fields["Payment Method"].Options)
	title, ok := schema.TitleField()
	assert.True(t, ok)
	assert.Equal(t, "Name", title)
}

func TestStore_ConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Create(ctx, "db", models.Fields{"Date": models.DateValue("2024-01-01")})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len("db"))
}
