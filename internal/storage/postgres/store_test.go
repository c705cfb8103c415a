package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
	tcommon "github.com/bobmcallan/folio/tests/common"
)

// testStore creates a fresh database per test on the shared container.
func testStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("Postgres container tests skipped in -short mode")
	}
	pc := tcommon.StartPostgres(t)
	ctx := context.Background()

	admin, err := pgx.Connect(ctx, pc.URL("folio"))
	require.NoError(t, err)
	defer admin.Close(ctx)

	name := strings.ToLower(strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
	name = fmt.Sprintf("t_%s_%d", name, time.Now().UnixNano()%100000)
	_, err = admin.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize())
	require.NoError(t, err)

	s, err := Open(ctx, pc.URL(name), common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_CreateUpdateMerge(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec, err := s.Create(ctx, "log", models.Fields{
		"Date":       models.DateValue("2024-05-01"),
		"Asset Type": models.SelectValue("Cash"),
		"Number":     models.NumberValue(-20.5),
	})
	require.NoError(t, err)

	_, err = s.Update(ctx, rec.ID, models.Fields{"Balance": models.NumberValue(979.5)})
	require.NoError(t, err)

	got, err := s.Retrieve(ctx, rec.ID)
	require.NoError(t, err)
	n, _ := got.Number("Number")
	b, _ := got.Number("Balance")
	g, _ := got.Select("Asset Type")
	assert.Equal(t, -20.5, n)
	assert.Equal(t, 979.5, b)
	assert.Equal(t, "Cash", g)
}

func TestStore_MissingRecord(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.Retrieve(ctx, "missing")
	assert.True(t, errors.Is(err, common.ErrNotFound))
	_, err = s.Update(ctx, "missing", models.Fields{"x": models.NumberValue(1)})
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestStore_QueryInsertionOrderAndFilter(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i, verified := range []bool{true, false, true} {
		_, err := s.Create(ctx, "tx", models.Fields{
			"Name":     models.TitleValue(fmt.Sprintf("t%d", i)),
			"Verified": models.CheckboxValue(verified),
		})
		require.NoError(t, err)
	}

	page, err := s.Query(ctx, "tx", models.Query{Filter: models.And(models.CheckboxIs("Verified", true))})
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	first, _ := page.Records[0].Text("Name")
	assert.Equal(t, "t0", first)
}

func TestStore_Schema(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "tx", models.Fields{"Transaction Type": models.SelectValue("Expense")})
	require.NoError(t, err)
	_, err = s.Create(ctx, "tx", models.Fields{"Transaction Type": models.SelectValue("Income")})
	require.NoError(t, err)
	require.NoError(t, s.AddField(ctx, "tx", "Balance", models.FieldNumber))

	schema, err := s.Schema(ctx, "tx")
	require.NoError(t, err)
	assert.Equal(t, []string{"Expense", "Income"}, schema.Fields["Transaction Type"].Options)
	assert.Equal(t, models.FieldNumber, schema.Fields["Balance"].Kind)
}
