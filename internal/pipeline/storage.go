package pipeline

import (
	"context"
	"time"

	"agrotrade/models"
)

// StorageInterface is the persistence the pipeline needs. Implementations
// must apply every mutating call atomically and report db.ErrConflict when
// the optimistic check (version or expected status) fails.
type StorageInterface interface {
	CreateRFQ(ctx context.Context, rfq *models.RFQ) error
	GetRFQ(ctx context.Context, id string) (*models.RFQ, error)
	ListBuyerRFQs(ctx context.Context, buyerID string, limit, offset int) ([]models.RFQ, error)
	AwardRFQ(ctx context.Context, rfq *models.RFQ, quoteID string, order *models.Order) error
	CancelRFQ(ctx context.Context, rfq *models.RFQ, at time.Time) error

	UpsertPendingQuote(ctx context.Context, quote *models.Quote) error
	GetQuote(ctx context.Context, id string) (*models.Quote, error)
	ListQuotes(ctx context.Context, rfqID string) ([]models.Quote, error)

	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListSupplierOrders(ctx context.Context, supplierID string, limit, offset int) ([]models.Order, error)
	AdvanceOrder(ctx context.Context, order *models.Order, to models.OrderStatus, actorID string, trustIncrement int, at time.Time) error
	UpdateOrderTelemetry(ctx context.Context, orderID string, risk models.RiskLevel, t models.Telemetry) error
	GetOrderHistory(ctx context.Context, orderID string) ([]models.OrderTransition, error)
}
