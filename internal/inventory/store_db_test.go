package inventory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestPostgresStore needs TEST_DATABASE_URL; each test gets its own
// document row.
func newTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := NewPostgresStore(pool, fmt.Sprintf("test-%s", uuid.NewString()), zap.NewNop())
	require.NoError(t, s.EnsureSchema(ctx))
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM inventory_documents WHERE name = $1`, s.name)
	})
	return s
}

func TestPostgresStore_EmptyThenRoundTrip(t *testing.T) {
	s := newTestPostgresStore(t)
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))

	doc, err := s.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, emptyDocument(), doc)

	svc := newTestService(s)
	_, err = svc.AddProduct(ctx, NewProduct{ID: 1, Name: "Drill", Price: 100, Quantity: 5})
	require.NoError(t, err)
	_, sale, err := svc.Sell(ctx, 1, 2)
	require.NoError(t, err)

	doc, err = s.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Product{{ID: 1, Name: "Drill", Price: 100, Quantity: 3}}, doc.Products)
	assert.Equal(t, []Sale{sale}, doc.Sales)
}

func TestPostgresStore_RejectedUpdateRollsBack(t *testing.T) {
	s := newTestPostgresStore(t)
	ctx := context.Background()
	svc := newTestService(s)

	_, err := svc.AddProduct(ctx, NewProduct{ID: 1, Name: "Drill", Price: 100, Quantity: 5})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.Update(ctx, func(doc *Document) error {
		doc.Products = nil
		return boom
	})
	require.ErrorIs(t, err, boom)

	doc, err := s.View(ctx)
	require.NoError(t, err)
	assert.Len(t, doc.Products, 1)
}

func TestPostgresStore_ConcurrentSellsAreSerialized(t *testing.T) {
	s := newTestPostgresStore(t)
	ctx := context.Background()
	svc := newTestService(s)

	_, err := svc.AddProduct(ctx, NewProduct{ID: 1, Name: "Nail", Price: 0.1, Quantity: 10})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Sell(ctx, 1, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p, err := svc.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, p.Quantity)

	sales, err := svc.ListSales(ctx)
	require.NoError(t, err)
	assert.Len(t, sales, 10)
}
