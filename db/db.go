package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agrotrade/models"

	"github.com/jmoiron/sqlx"
)

var (
	// ErrNotFound - запись не найдена.
	ErrNotFound = errors.New("record not found")
	// ErrConflict - запись изменилась между чтением и записью (версия или статус уже другие).
	ErrConflict = errors.New("record changed concurrently")
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Ping проверяет соединение с базой.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Supplier (Поставщик)

func (s *Storage) UpsertSupplier(ctx context.Context, sp *models.Supplier) error {
	query := `
        INSERT INTO suppliers
            (id, name, specialties, region, country, on_time_rate, verified, trust_score)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            specialties = EXCLUDED.specialties,
            region = EXCLUDED.region,
            country = EXCLUDED.country,
            on_time_rate = EXCLUDED.on_time_rate,
            verified = EXCLUDED.verified`
	_, err := s.db.ExecContext(ctx, query,
		sp.ID, sp.Name, sp.Specialties, sp.Region, sp.Country, sp.OnTimeRate, sp.Verified, sp.TrustScore)
	return err
}

func (s *Storage) GetSupplier(ctx context.Context, id string) (*models.Supplier, error) {
	sp := &models.Supplier{}
	query := `SELECT id, name, specialties, region, country, on_time_rate, verified, trust_score FROM suppliers WHERE id=$1`
	if err := s.db.GetContext(ctx, sp, query, id); err != nil {
		return nil, notFound(err)
	}
	return sp, nil
}

func (s *Storage) ListSuppliersByCrop(ctx context.Context, crop string) ([]models.Supplier, error) {
	query := `
        SELECT id, name, specialties, region, country, on_time_rate, verified, trust_score
        FROM suppliers
        WHERE $1 = ANY(specialties)
        ORDER BY id ASC`
	suppliers := []models.Supplier{}
	err := s.db.SelectContext(ctx, &suppliers, query, crop)
	if err != nil {
		return nil, err
	}
	return suppliers, nil
}

// RFQ (Запрос котировок)

const rfqCols = `id, buyer_id, crop, volume, volume_unit, destination, incoterm, timeline, instructions, status, version, created_at, updated_at`

func (s *Storage) CreateRFQ(ctx context.Context, r *models.RFQ) error {
	query := `
        INSERT INTO rfqs
            (id, buyer_id, crop, volume, volume_unit, destination, incoterm, timeline, instructions, status, version, created_at, updated_at)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, $11, $11)`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.BuyerID, r.Crop, r.Volume, r.VolumeUnit, r.Destination, r.Incoterm,
		r.Timeline, r.Instructions, r.Status, r.CreatedAt)
	if err != nil {
		return err
	}
	r.Version = 1
	r.UpdatedAt = r.CreatedAt
	return nil
}

func (s *Storage) GetRFQ(ctx context.Context, id string) (*models.RFQ, error) {
	r := &models.RFQ{}
	query := `SELECT ` + rfqCols + ` FROM rfqs WHERE id=$1`
	if err := s.db.GetContext(ctx, r, query, id); err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func (s *Storage) ListBuyerRFQs(ctx context.Context, buyerID string, limit, offset int) ([]models.RFQ, error) {
	query := `SELECT ` + rfqCols + ` FROM rfqs
        WHERE buyer_id = $1
        ORDER BY created_at DESC, id ASC
        LIMIT $2 OFFSET $3`
	rfqs := []models.RFQ{}
	err := s.db.SelectContext(ctx, &rfqs, query, buyerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rfqs, nil
}

// transitionRFQ переводит RFQ из OPEN с проверкой версии. Ноль затронутых строк - конфликт.
func transitionRFQ(ctx context.Context, tx *sqlx.Tx, r *models.RFQ, to models.RFQStatus, at time.Time) error {
	res, err := tx.ExecContext(ctx, `
        UPDATE rfqs
        SET status=$1, version=version+1, updated_at=$2
        WHERE id=$3 AND version=$4 AND status=$5`,
		to, at, r.ID, r.Version, models.RFQOpen)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	r.Status = to
	r.Version++
	r.UpdatedAt = at
	return nil
}

// Quote (Котировка)

const quoteCols = `id, rfq_id, supplier_id, price_per_unit, notes, status, submitted_at`

// UpsertPendingQuote создаёт котировку или заменяет PENDING-котировку того же поставщика.
// RFQ блокируется FOR SHARE: параллельные котировки не мешают друг другу,
// но ждут завершения акцепта или отмены.
func (s *Storage) UpsertPendingQuote(ctx context.Context, q *models.Quote) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status models.RFQStatus
	err = tx.GetContext(ctx, &status, `SELECT status FROM rfqs WHERE id=$1 FOR SHARE`, q.RFQID)
	if err != nil {
		return notFound(err)
	}
	if status != models.RFQOpen {
		return ErrConflict
	}

	query := `
        INSERT INTO quotes
            (id, rfq_id, supplier_id, price_per_unit, notes, status, submitted_at)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (rfq_id, supplier_id) WHERE status = 'PENDING' DO UPDATE SET
            price_per_unit = EXCLUDED.price_per_unit,
            notes = EXCLUDED.notes,
            submitted_at = EXCLUDED.submitted_at
        RETURNING ` + quoteCols
	err = tx.GetContext(ctx, q, query,
		q.ID, q.RFQID, q.SupplierID, q.PricePerUnit, q.Notes, models.QuotePending, q.SubmittedAt)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Storage) GetQuote(ctx context.Context, id string) (*models.Quote, error) {
	q := &models.Quote{}
	query := `SELECT ` + quoteCols + ` FROM quotes WHERE id=$1`
	if err := s.db.GetContext(ctx, q, query, id); err != nil {
		return nil, notFound(err)
	}
	return q, nil
}

func (s *Storage) ListQuotes(ctx context.Context, rfqID string) ([]models.Quote, error) {
	query := `SELECT ` + quoteCols + ` FROM quotes WHERE rfq_id=$1 ORDER BY submitted_at ASC, id ASC`
	quotes := []models.Quote{}
	err := s.db.SelectContext(ctx, &quotes, query, rfqID)
	return quotes, err
}

// AwardRFQ одной транзакцией принимает котировку, отклоняет остальные PENDING,
// переводит RFQ в AWARDED и создаёт заказ.
func (s *Storage) AwardRFQ(ctx context.Context, r *models.RFQ, quoteID string, o *models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	at := o.CreatedAt
	if err := transitionRFQ(ctx, tx, r, models.RFQAwarded, at); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE quotes SET status=$1 WHERE id=$2 AND rfq_id=$3 AND status=$4`,
		models.QuoteAccepted, quoteID, r.ID, models.QuotePending)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrConflict
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE quotes SET status=$1 WHERE rfq_id=$2 AND status=$3 AND id<>$4`,
		models.QuoteRejected, r.ID, models.QuotePending, quoteID)
	if err != nil {
		return err
	}

	if err := insertOrder(ctx, tx, o); err != nil {
		return err
	}
	if err := saveOrderTransition(ctx, tx, o.ID, "", o.Status, r.BuyerID, at); err != nil {
		return err
	}
	return tx.Commit()
}

// CancelRFQ отменяет RFQ и отклоняет все PENDING котировки.
func (s *Storage) CancelRFQ(ctx context.Context, r *models.RFQ, at time.Time) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := transitionRFQ(ctx, tx, r, models.RFQCancelled, at); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE quotes SET status=$1 WHERE rfq_id=$2 AND status=$3`,
		models.QuoteRejected, r.ID, models.QuotePending)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Order (Заказ)

const orderCols = `id, rfq_id, quote_id, buyer_id, supplier_id, crop, volume, volume_unit, unit_price,
    destination, incoterm, status, risk_level, temperature, humidity, lat, lng, telemetry_at,
    version, created_at, updated_at`

func insertOrder(ctx context.Context, tx *sqlx.Tx, o *models.Order) error {
	query := `
        INSERT INTO orders
            (id, rfq_id, quote_id, buyer_id, supplier_id, crop, volume, volume_unit, unit_price,
             destination, incoterm, status, risk_level, version, created_at, updated_at)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1, $14, $14)`
	_, err := tx.ExecContext(ctx, query,
		o.ID, o.RFQID, o.QuoteID, o.BuyerID, o.SupplierID, o.Crop, o.Volume, o.VolumeUnit, o.UnitPrice,
		o.Destination, o.Incoterm, o.Status, o.RiskLevel, o.CreatedAt)
	if err != nil {
		return err
	}
	o.Version = 1
	o.UpdatedAt = o.CreatedAt
	return nil
}

func (s *Storage) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	o := &models.Order{}
	query := `SELECT ` + orderCols + ` FROM orders WHERE id=$1`
	if err := s.db.GetContext(ctx, o, query, id); err != nil {
		return nil, notFound(err)
	}
	return o, nil
}

func (s *Storage) ListSupplierOrders(ctx context.Context, supplierID string, limit, offset int) ([]models.Order, error) {
	query := `SELECT ` + orderCols + ` FROM orders
        WHERE supplier_id = $1
        ORDER BY created_at DESC, id ASC
        LIMIT $2 OFFSET $3`
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders, query, supplierID, limit, offset)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// AdvanceOrder сохраняет переход заказа с проверкой версии и пишет историю.
// trustIncrement > 0 поднимает рейтинг поставщика (не выше 100) в той же транзакции.
func (s *Storage) AdvanceOrder(ctx context.Context, o *models.Order, to models.OrderStatus, actorID string, trustIncrement int, at time.Time) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
        UPDATE orders
        SET status=$1, version=version+1, updated_at=$2
        WHERE id=$3 AND version=$4 AND status=$5`,
		to, at, o.ID, o.Version, o.Status)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrConflict
	}

	if err := saveOrderTransition(ctx, tx, o.ID, o.Status, to, actorID, at); err != nil {
		return err
	}

	if trustIncrement > 0 {
		_, err = tx.ExecContext(ctx,
			`UPDATE suppliers SET trust_score = LEAST(100, trust_score + $1) WHERE id=$2`,
			trustIncrement, o.SupplierID)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	o.Status = to
	o.Version++
	o.UpdatedAt = at
	return nil
}

// UpdateOrderTelemetry перезаписывает снимок трекинга. Статус и версия не меняются.
func (s *Storage) UpdateOrderTelemetry(ctx context.Context, orderID string, risk models.RiskLevel, t models.Telemetry) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE orders
        SET risk_level=$1, temperature=$2, humidity=$3, lat=$4, lng=$5, telemetry_at=$6
        WHERE id=$7`,
		risk, t.Temperature, t.Humidity, t.Lat, t.Lng, t.ReportedAt, orderID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func saveOrderTransition(ctx context.Context, tx *sqlx.Tx, orderID string, from, to models.OrderStatus, actorID string, at time.Time) error {
	query := `
        INSERT INTO order_transitions (order_id, from_status, to_status, actor_id, created_at)
        VALUES ($1, $2, $3, $4, $5)`
	_, err := tx.ExecContext(ctx, query, orderID, from, to, actorID, at)
	if err != nil {
		return fmt.Errorf("save order transition: %w", err)
	}
	return nil
}

func (s *Storage) GetOrderHistory(ctx context.Context, orderID string) ([]models.OrderTransition, error) {
	history := []models.OrderTransition{}
	query := `
        SELECT id, order_id, from_status, to_status, actor_id, created_at
        FROM order_transitions
        WHERE order_id=$1
        ORDER BY id ASC`
	err := s.db.SelectContext(ctx, &history, query, orderID)
	return history, err
}
