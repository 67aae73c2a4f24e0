package db_test

import (
	"context"
	"testing"
	"time"

	"agrotrade/db"
	"agrotrade/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newOpenRFQ(t *testing.T, store *db.MemoryStorage, id string) *models.RFQ {
	t.Helper()
	r := &models.RFQ{
		ID:          id,
		BuyerID:     "buyer-1",
		Crop:        "CASHEWS",
		Volume:      decimal.NewFromInt(80),
		VolumeUnit:  "MT",
		Destination: "Hamburg, DE",
		Incoterm:    models.IncotermCIF,
		Status:      models.RFQOpen,
		CreatedAt:   t0,
	}
	require.NoError(t, store.CreateRFQ(context.Background(), r))
	return r
}

func quote(id, rfqID, supplierID string, price int64) *models.Quote {
	return &models.Quote{
		ID:           id,
		RFQID:        rfqID,
		SupplierID:   supplierID,
		PricePerUnit: decimal.NewFromInt(price),
		SubmittedAt:  t0,
	}
}

func TestMemoryUpsertPendingQuoteReplaces(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStorage()
	newOpenRFQ(t, store, "rfq-1")

	first := quote("q-1", "rfq-1", "sup-a", 1200)
	require.NoError(t, store.UpsertPendingQuote(ctx, first))

	second := quote("q-2", "rfq-1", "sup-a", 1150)
	require.NoError(t, store.UpsertPendingQuote(ctx, second))
	require.Equal(t, "q-1", second.ID)

	quotes, err := store.ListQuotes(ctx, "rfq-1")
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	require.True(t, quotes[0].PricePerUnit.Equal(decimal.NewFromInt(1150)))
	require.Equal(t, models.QuotePending, quotes[0].Status)
}

func TestMemoryUpsertPendingQuoteRequiresOpenRFQ(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStorage()

	err := store.UpsertPendingQuote(ctx, quote("q-1", "missing", "sup-a", 10))
	require.ErrorIs(t, err, db.ErrNotFound)

	r := newOpenRFQ(t, store, "rfq-1")
	require.NoError(t, store.CancelRFQ(ctx, r, t0))

	err = store.UpsertPendingQuote(ctx, quote("q-2", "rfq-1", "sup-a", 10))
	require.ErrorIs(t, err, db.ErrConflict)
}

func TestMemoryAwardRFQ(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStorage()
	r := newOpenRFQ(t, store, "rfq-1")
	require.NoError(t, store.UpsertPendingQuote(ctx, quote("q-a", "rfq-1", "sup-a", 1150)))
	require.NoError(t, store.UpsertPendingQuote(ctx, quote("q-b", "rfq-1", "sup-b", 1300)))

	stale := *r
	order := &models.Order{ID: "ord-1", RFQID: r.ID, QuoteID: "q-a", SupplierID: "sup-a", Status: models.OrderConfirmed, CreatedAt: t0}
	require.NoError(t, store.AwardRFQ(ctx, r, "q-a", order))
	require.Equal(t, models.RFQAwarded, r.Status)
	require.Equal(t, 2, r.Version)

	quotes, err := store.ListQuotes(ctx, "rfq-1")
	require.NoError(t, err)
	statuses := map[string]models.QuoteStatus{}
	for _, q := range quotes {
		statuses[q.ID] = q.Status
	}
	require.Equal(t, map[string]models.QuoteStatus{"q-a": models.QuoteAccepted, "q-b": models.QuoteRejected}, statuses)

	// stale version loses
	again := &models.Order{ID: "ord-2", Status: models.OrderConfirmed, CreatedAt: t0}
	require.ErrorIs(t, store.AwardRFQ(ctx, &stale, "q-b", again), db.ErrConflict)

	history, err := store.GetOrderHistory(ctx, "ord-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, models.OrderConfirmed, history[0].To)
}

func TestMemoryAdvanceOrderCapsTrust(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStorage()
	require.NoError(t, store.UpsertSupplier(ctx, &models.Supplier{ID: "sup-a", Specialties: []string{"CASHEWS"}, TrustScore: 99}))

	r := newOpenRFQ(t, store, "rfq-1")
	require.NoError(t, store.UpsertPendingQuote(ctx, quote("q-a", "rfq-1", "sup-a", 1150)))
	order := &models.Order{ID: "ord-1", RFQID: r.ID, SupplierID: "sup-a", Status: models.OrderShipped, CreatedAt: t0}
	require.NoError(t, store.AwardRFQ(ctx, r, "q-a", order))

	stale := *order
	require.NoError(t, store.AdvanceOrder(ctx, order, models.OrderDelivered, "sup-a", 5, t0))
	require.Equal(t, models.OrderDelivered, order.Status)
	require.ErrorIs(t, store.AdvanceOrder(ctx, &stale, models.OrderDelivered, "sup-a", 5, t0), db.ErrConflict)

	sp, err := store.GetSupplier(ctx, "sup-a")
	require.NoError(t, err)
	require.Equal(t, 100, sp.TrustScore)
}

func TestMemoryListPagination(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStorage()
	for i, id := range []string{"a", "b", "c"} {
		r := &models.RFQ{ID: id, BuyerID: "buyer-1", Status: models.RFQOpen, CreatedAt: t0.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, store.CreateRFQ(ctx, r))
	}

	rfqs, err := store.ListBuyerRFQs(ctx, "buyer-1", 2, 0)
	require.NoError(t, err)
	require.Len(t, rfqs, 2)
	require.Equal(t, "c", rfqs[0].ID)

	rfqs, err = store.ListBuyerRFQs(ctx, "buyer-1", 2, 2)
	require.NoError(t, err)
	require.Len(t, rfqs, 1)
	require.Equal(t, "a", rfqs[0].ID)

	rfqs, err = store.ListBuyerRFQs(ctx, "buyer-1", 2, 10)
	require.NoError(t, err)
	require.Empty(t, rfqs)
}
