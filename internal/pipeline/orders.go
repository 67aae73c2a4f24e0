package pipeline

import (
	"context"
	"fmt"

	"agrotrade/internal/apperr"
	"agrotrade/models"

	"go.uber.org/zap"
)

func (p *Pipeline) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := p.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, storageErr("get order", err)
	}
	return order, nil
}

func (p *Pipeline) ListSupplierOrders(ctx context.Context, supplierID string, limit, offset int) ([]models.Order, error) {
	if supplierID == "" {
		return nil, validationErr("supplier id is required")
	}
	limit, offset = normalizePage(limit, offset)
	orders, err := p.store.ListSupplierOrders(ctx, supplierID, limit, offset)
	if err != nil {
		return nil, storageErr("list orders", err)
	}
	return orders, nil
}

func (p *Pipeline) OrderHistory(ctx context.Context, orderID string) ([]models.OrderTransition, error) {
	if _, err := p.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	history, err := p.store.GetOrderHistory(ctx, orderID)
	if err != nil {
		return nil, storageErr("order history", err)
	}
	return history, nil
}

// AdvanceOrder moves the order exactly one stage forward. Only the assigned
// supplier or an admin may call it. Reaching DELIVERED raises the supplier's
// trust score by TrustIncrementOnDelivery.
func (p *Pipeline) AdvanceOrder(ctx context.Context, orderID, actorID string) (*models.Order, error) {
	if actorID == "" {
		return nil, validationErr("actor id is required")
	}

	unlock := p.orderLocks.Lock(orderID)
	defer unlock()

	order, err := p.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, storageErr("advance order", err)
	}
	if actorID != order.SupplierID && !p.isAdmin(actorID) {
		return nil, fmt.Errorf("advance order: %w: only the assigned supplier or an admin may advance", apperr.ErrNotAuthorized)
	}
	next, ok := order.Status.Next()
	if !ok {
		return nil, fmt.Errorf("advance order: %w: order is %s", apperr.ErrInvalidState, order.Status)
	}

	trust := 0
	if next == models.OrderDelivered {
		trust = TrustIncrementOnDelivery
	}
	from := order.Status
	if err := p.store.AdvanceOrder(ctx, order, next, actorID, trust, p.now()); err != nil {
		return nil, storageErr("advance order", err)
	}

	p.metrics.OrderTransition(string(next))
	p.log.Info("order advanced",
		zap.String("order_id", order.ID),
		zap.String("from", string(from)),
		zap.String("to", string(next)),
		zap.String("actor_id", actorID),
		zap.Bool("admin_override", actorID != order.SupplierID))
	return order, nil
}

// AttachTelemetry stores the latest tracking-feed snapshot on the order. It
// is allowed in any state and never changes the status.
func (p *Pipeline) AttachTelemetry(ctx context.Context, orderID string, risk models.RiskLevel, t models.Telemetry) (*models.Order, error) {
	risk = models.RiskLevel(models.NormalizeTag(string(risk)))
	if !models.ValidRiskLevel(risk) {
		return nil, validationErr("risk level must be LOW, MEDIUM or HIGH")
	}
	if t.Lat != nil && (*t.Lat < -90 || *t.Lat > 90) {
		return nil, validationErr("lat must be within [-90,90]")
	}
	if t.Lng != nil && (*t.Lng < -180 || *t.Lng > 180) {
		return nil, validationErr("lng must be within [-180,180]")
	}
	if t.Humidity != nil && (*t.Humidity < 0 || *t.Humidity > 100) {
		return nil, validationErr("humidity must be within [0,100]")
	}
	if t.ReportedAt == nil {
		at := p.now()
		t.ReportedAt = &at
	}

	unlock := p.orderLocks.Lock(orderID)
	defer unlock()

	if err := p.store.UpdateOrderTelemetry(ctx, orderID, risk, t); err != nil {
		return nil, storageErr("attach telemetry", err)
	}
	return p.GetOrder(ctx, orderID)
}
