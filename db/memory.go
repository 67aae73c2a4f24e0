package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"agrotrade/models"
)

// MemoryStorage - хранилище в памяти процесса с теми же гарантиями, что и Storage:
// каждая операция выполняется под одной блокировкой и применяется целиком.
// Используется в тестах и для локального запуска (STORAGE_DRIVER=memory).
type MemoryStorage struct {
	mu          sync.RWMutex
	suppliers   map[string]models.Supplier
	rfqs        map[string]models.RFQ
	quotes      map[string]models.Quote
	quoteOrder  []string
	orders      map[string]models.Order
	transitions []models.OrderTransition
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		suppliers: make(map[string]models.Supplier),
		rfqs:      make(map[string]models.RFQ),
		quotes:    make(map[string]models.Quote),
		orders:    make(map[string]models.Order),
	}
}

func (m *MemoryStorage) Ping(ctx context.Context) error { return nil }

func (m *MemoryStorage) UpsertSupplier(ctx context.Context, sp *models.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *sp
	stored.Specialties = append([]string(nil), sp.Specialties...)
	if prev, ok := m.suppliers[sp.ID]; ok {
		// рейтинг меняет только исполнение заказов
		stored.TrustScore = prev.TrustScore
	}
	m.suppliers[sp.ID] = stored
	return nil
}

func (m *MemoryStorage) GetSupplier(ctx context.Context, id string) (*models.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sp, ok := m.suppliers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &sp, nil
}

func (m *MemoryStorage) ListSuppliersByCrop(ctx context.Context, crop string) ([]models.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	suppliers := []models.Supplier{}
	for _, sp := range m.suppliers {
		if sp.HasSpecialty(crop) {
			sp.Specialties = append([]string(nil), sp.Specialties...)
			suppliers = append(suppliers, sp)
		}
	}
	sort.Slice(suppliers, func(i, j int) bool { return suppliers[i].ID < suppliers[j].ID })
	return suppliers, nil
}

func (m *MemoryStorage) CreateRFQ(ctx context.Context, r *models.RFQ) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.Version = 1
	r.UpdatedAt = r.CreatedAt
	m.rfqs[r.ID] = *r
	return nil
}

func (m *MemoryStorage) GetRFQ(ctx context.Context, id string) (*models.RFQ, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rfqs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryStorage) ListBuyerRFQs(ctx context.Context, buyerID string, limit, offset int) ([]models.RFQ, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rfqs := []models.RFQ{}
	for _, r := range m.rfqs {
		if r.BuyerID == buyerID {
			rfqs = append(rfqs, r)
		}
	}
	sort.Slice(rfqs, func(i, j int) bool {
		if !rfqs[i].CreatedAt.Equal(rfqs[j].CreatedAt) {
			return rfqs[i].CreatedAt.After(rfqs[j].CreatedAt)
		}
		return rfqs[i].ID < rfqs[j].ID
	})
	return page(rfqs, limit, offset), nil
}

// checkRFQ требует, чтобы RFQ был OPEN и с той же версией. Вызывать под m.mu.
func (m *MemoryStorage) checkRFQ(r *models.RFQ) error {
	cur, ok := m.rfqs[r.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != r.Version || cur.Status != models.RFQOpen {
		return ErrConflict
	}
	return nil
}

func (m *MemoryStorage) setRFQStatus(r *models.RFQ, to models.RFQStatus, at time.Time) {
	r.Status = to
	r.Version++
	r.UpdatedAt = at
	m.rfqs[r.ID] = *r
}

func (m *MemoryStorage) UpsertPendingQuote(ctx context.Context, q *models.Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rfqs[q.RFQID]
	if !ok {
		return ErrNotFound
	}
	if r.Status != models.RFQOpen {
		return ErrConflict
	}

	for _, id := range m.quoteOrder {
		prev := m.quotes[id]
		if prev.RFQID == q.RFQID && prev.SupplierID == q.SupplierID && prev.Status == models.QuotePending {
			prev.PricePerUnit = q.PricePerUnit
			prev.Notes = q.Notes
			prev.SubmittedAt = q.SubmittedAt
			m.quotes[id] = prev
			*q = prev
			return nil
		}
	}

	q.Status = models.QuotePending
	m.quotes[q.ID] = *q
	m.quoteOrder = append(m.quoteOrder, q.ID)
	return nil
}

func (m *MemoryStorage) GetQuote(ctx context.Context, id string) (*models.Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quotes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &q, nil
}

func (m *MemoryStorage) ListQuotes(ctx context.Context, rfqID string) ([]models.Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	quotes := []models.Quote{}
	for _, id := range m.quoteOrder {
		if q := m.quotes[id]; q.RFQID == rfqID {
			quotes = append(quotes, q)
		}
	}
	return quotes, nil
}

func (m *MemoryStorage) AwardRFQ(ctx context.Context, r *models.RFQ, quoteID string, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkRFQ(r); err != nil {
		return err
	}
	accepted, ok := m.quotes[quoteID]
	if !ok || accepted.RFQID != r.ID || accepted.Status != models.QuotePending {
		return ErrConflict
	}
	if _, exists := m.orders[o.ID]; exists {
		return ErrConflict
	}

	for _, id := range m.quoteOrder {
		q := m.quotes[id]
		if q.RFQID != r.ID || q.Status != models.QuotePending {
			continue
		}
		if id == quoteID {
			q.Status = models.QuoteAccepted
		} else {
			q.Status = models.QuoteRejected
		}
		m.quotes[id] = q
	}
	m.setRFQStatus(r, models.RFQAwarded, o.CreatedAt)

	o.Version = 1
	o.UpdatedAt = o.CreatedAt
	m.orders[o.ID] = *o
	m.appendTransition(o.ID, "", o.Status, r.BuyerID, o.CreatedAt)
	return nil
}

func (m *MemoryStorage) CancelRFQ(ctx context.Context, r *models.RFQ, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkRFQ(r); err != nil {
		return err
	}
	for _, id := range m.quoteOrder {
		q := m.quotes[id]
		if q.RFQID == r.ID && q.Status == models.QuotePending {
			q.Status = models.QuoteRejected
			m.quotes[id] = q
		}
	}
	m.setRFQStatus(r, models.RFQCancelled, at)
	return nil
}

func (m *MemoryStorage) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (m *MemoryStorage) ListSupplierOrders(ctx context.Context, supplierID string, limit, offset int) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	orders := []models.Order{}
	for _, o := range m.orders {
		if o.SupplierID == supplierID {
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID < orders[j].ID
	})
	return page(orders, limit, offset), nil
}

func (m *MemoryStorage) AdvanceOrder(ctx context.Context, o *models.Order, to models.OrderStatus, actorID string, trustIncrement int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != o.Version || cur.Status != o.Status {
		return ErrConflict
	}

	from := cur.Status
	cur.Status = to
	cur.Version++
	cur.UpdatedAt = at
	m.orders[o.ID] = cur
	m.appendTransition(o.ID, from, to, actorID, at)

	if trustIncrement > 0 {
		if sp, ok := m.suppliers[cur.SupplierID]; ok {
			sp.TrustScore += trustIncrement
			if sp.TrustScore > 100 {
				sp.TrustScore = 100
			}
			m.suppliers[sp.ID] = sp
		}
	}

	*o = cur
	return nil
}

func (m *MemoryStorage) UpdateOrderTelemetry(ctx context.Context, orderID string, risk models.RiskLevel, t models.Telemetry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	o.RiskLevel = risk
	o.Telemetry = t
	m.orders[orderID] = o
	return nil
}

func (m *MemoryStorage) GetOrderHistory(ctx context.Context, orderID string) ([]models.OrderTransition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	history := []models.OrderTransition{}
	for _, tr := range m.transitions {
		if tr.OrderID == orderID {
			history = append(history, tr)
		}
	}
	return history, nil
}

func (m *MemoryStorage) appendTransition(orderID string, from, to models.OrderStatus, actorID string, at time.Time) {
	m.transitions = append(m.transitions, models.OrderTransition{
		ID:        len(m.transitions) + 1,
		OrderID:   orderID,
		From:      from,
		To:        to,
		ActorID:   actorID,
		CreatedAt: at,
	})
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
