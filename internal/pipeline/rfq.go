package pipeline

import (
	"context"
	"fmt"
	"strings"

	"agrotrade/internal/apperr"
	"agrotrade/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RFQSpec is what a buyer supplies when opening an RFQ.
type RFQSpec struct {
	Crop         string          `json:"crop"`
	Volume       decimal.Decimal `json:"volume"`
	VolumeUnit   string          `json:"volumeUnit"`
	Destination  string          `json:"destination"`
	Incoterm     models.Incoterm `json:"incoterm"`
	Timeline     string          `json:"timeline"`
	Instructions string          `json:"instructions"`
}

func (s *RFQSpec) normalize() {
	s.Crop = models.NormalizeTag(s.Crop)
	s.VolumeUnit = strings.TrimSpace(s.VolumeUnit)
	if s.VolumeUnit == "" {
		s.VolumeUnit = DefaultVolumeUnit
	}
	s.Destination = strings.TrimSpace(s.Destination)
	s.Incoterm = models.Incoterm(models.NormalizeTag(string(s.Incoterm)))
	s.Timeline = strings.TrimSpace(s.Timeline)
	s.Instructions = strings.TrimSpace(s.Instructions)
}

func (s *RFQSpec) validate() error {
	if s.Crop == "" {
		return validationErr("crop is required")
	}
	if !s.Volume.IsPositive() {
		return validationErr("volume must be positive")
	}
	if s.Destination == "" {
		return validationErr("destination is required")
	}
	if !models.ValidIncoterm(s.Incoterm) {
		return validationErr("incoterm must be one of EXW, FOB, CIF")
	}
	return nil
}

// CreateRFQ opens a new RFQ owned by buyerID.
func (p *Pipeline) CreateRFQ(ctx context.Context, buyerID string, spec RFQSpec) (*models.RFQ, error) {
	if buyerID == "" {
		return nil, validationErr("buyer id is required")
	}
	spec.normalize()
	if err := spec.validate(); err != nil {
		return nil, err
	}

	rfq := &models.RFQ{
		ID:           p.newID(),
		BuyerID:      buyerID,
		Crop:         spec.Crop,
		Volume:       spec.Volume,
		VolumeUnit:   spec.VolumeUnit,
		Destination:  spec.Destination,
		Incoterm:     spec.Incoterm,
		Timeline:     spec.Timeline,
		Instructions: spec.Instructions,
		Status:       models.RFQOpen,
		CreatedAt:    p.now(),
	}
	if err := p.store.CreateRFQ(ctx, rfq); err != nil {
		return nil, storageErr("create rfq", err)
	}

	p.metrics.RFQTransition(string(models.RFQOpen))
	p.log.Info("rfq created",
		zap.String("rfq_id", rfq.ID),
		zap.String("buyer_id", buyerID),
		zap.String("crop", rfq.Crop))
	return rfq, nil
}

func (p *Pipeline) GetRFQ(ctx context.Context, rfqID string) (*models.RFQ, error) {
	rfq, err := p.store.GetRFQ(ctx, rfqID)
	if err != nil {
		return nil, storageErr("get rfq", err)
	}
	return rfq, nil
}

func (p *Pipeline) ListBuyerRFQs(ctx context.Context, buyerID string, limit, offset int) ([]models.RFQ, error) {
	if buyerID == "" {
		return nil, validationErr("buyer id is required")
	}
	limit, offset = normalizePage(limit, offset)
	rfqs, err := p.store.ListBuyerRFQs(ctx, buyerID, limit, offset)
	if err != nil {
		return nil, storageErr("list rfqs", err)
	}
	return rfqs, nil
}

func (p *Pipeline) ListQuotes(ctx context.Context, rfqID string) ([]models.Quote, error) {
	if _, err := p.GetRFQ(ctx, rfqID); err != nil {
		return nil, err
	}
	quotes, err := p.store.ListQuotes(ctx, rfqID)
	if err != nil {
		return nil, storageErr("list quotes", err)
	}
	return quotes, nil
}

// SubmitQuote records supplierID's price on an OPEN RFQ. A supplier that
// already has a PENDING quote on the RFQ gets it replaced, not duplicated.
// Suppliers whose earlier quote was REJECTED may quote again.
func (p *Pipeline) SubmitQuote(ctx context.Context, rfqID, supplierID string, price decimal.Decimal, notes string) (*models.Quote, error) {
	if supplierID == "" {
		return nil, validationErr("supplier id is required")
	}
	if !price.IsPositive() {
		return nil, validationErr("price must be positive")
	}

	// shared: quotes from different suppliers proceed in parallel,
	// awards and cancellations wait for them
	unlock := p.rfqLocks.RLock(rfqID)
	defer unlock()

	rfq, err := p.store.GetRFQ(ctx, rfqID)
	if err != nil {
		return nil, storageErr("submit quote", err)
	}
	if rfq.Status != models.RFQOpen {
		return nil, fmt.Errorf("submit quote: %w: rfq is %s", apperr.ErrInvalidState, rfq.Status)
	}

	quote := &models.Quote{
		ID:           p.newID(),
		RFQID:        rfqID,
		SupplierID:   supplierID,
		PricePerUnit: price,
		Notes:        strings.TrimSpace(notes),
		Status:       models.QuotePending,
		SubmittedAt:  p.now(),
	}
	if err := p.store.UpsertPendingQuote(ctx, quote); err != nil {
		return nil, storageErr("submit quote", err)
	}

	p.metrics.QuoteSubmitted()
	p.log.Info("quote submitted",
		zap.String("rfq_id", rfqID),
		zap.String("quote_id", quote.ID),
		zap.String("supplier_id", supplierID),
		zap.String("price", price.String()))
	return quote, nil
}

// AcceptQuote awards the RFQ to one PENDING quote. In one atomic step the
// quote becomes ACCEPTED, its PENDING siblings REJECTED, the RFQ AWARDED and
// a CONFIRMED order is created from the quote's supplier and price.
func (p *Pipeline) AcceptQuote(ctx context.Context, rfqID, quoteID, buyerID string) (*models.Order, error) {
	if buyerID == "" {
		return nil, validationErr("buyer id is required")
	}

	unlock := p.rfqLocks.Lock(rfqID)
	defer unlock()

	rfq, err := p.store.GetRFQ(ctx, rfqID)
	if err != nil {
		return nil, storageErr("accept quote", err)
	}
	if rfq.BuyerID != buyerID {
		return nil, fmt.Errorf("accept quote: %w: rfq belongs to another buyer", apperr.ErrNotOwner)
	}
	if rfq.Status != models.RFQOpen {
		return nil, fmt.Errorf("accept quote: %w: rfq is %s", apperr.ErrInvalidState, rfq.Status)
	}

	quote, err := p.store.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, storageErr("accept quote", err)
	}
	if quote.RFQID != rfq.ID {
		return nil, fmt.Errorf("accept quote: %w: quote %s is not on rfq %s", apperr.ErrNotFound, quoteID, rfqID)
	}
	if quote.Status != models.QuotePending {
		return nil, fmt.Errorf("accept quote: %w: quote is %s", apperr.ErrInvalidState, quote.Status)
	}

	order := &models.Order{
		ID:          p.newID(),
		RFQID:       rfq.ID,
		QuoteID:     quote.ID,
		BuyerID:     rfq.BuyerID,
		SupplierID:  quote.SupplierID,
		Crop:        rfq.Crop,
		Volume:      rfq.Volume,
		VolumeUnit:  rfq.VolumeUnit,
		UnitPrice:   quote.PricePerUnit,
		Destination: rfq.Destination,
		Incoterm:    rfq.Incoterm,
		Status:      models.OrderConfirmed,
		CreatedAt:   p.now(),
	}
	if err := p.store.AwardRFQ(ctx, rfq, quote.ID, order); err != nil {
		return nil, storageErr("accept quote", err)
	}

	p.metrics.RFQTransition(string(models.RFQAwarded))
	p.metrics.OrderTransition(string(models.OrderConfirmed))
	p.log.Info("rfq awarded",
		zap.String("rfq_id", rfq.ID),
		zap.String("quote_id", quote.ID),
		zap.String("supplier_id", quote.SupplierID),
		zap.String("order_id", order.ID))
	return order, nil
}

// CancelRFQ cancels an OPEN RFQ and rejects its PENDING quotes. No order is
// created. Awarded RFQs cannot be cancelled.
func (p *Pipeline) CancelRFQ(ctx context.Context, rfqID, buyerID string) (*models.RFQ, error) {
	if buyerID == "" {
		return nil, validationErr("buyer id is required")
	}

	unlock := p.rfqLocks.Lock(rfqID)
	defer unlock()

	rfq, err := p.store.GetRFQ(ctx, rfqID)
	if err != nil {
		return nil, storageErr("cancel rfq", err)
	}
	if rfq.BuyerID != buyerID {
		return nil, fmt.Errorf("cancel rfq: %w: rfq belongs to another buyer", apperr.ErrNotOwner)
	}
	if rfq.Status != models.RFQOpen {
		return nil, fmt.Errorf("cancel rfq: %w: rfq is %s", apperr.ErrInvalidState, rfq.Status)
	}

	if err := p.store.CancelRFQ(ctx, rfq, p.now()); err != nil {
		return nil, storageErr("cancel rfq", err)
	}

	p.metrics.RFQTransition(string(models.RFQCancelled))
	p.log.Info("rfq cancelled", zap.String("rfq_id", rfq.ID))
	return rfq, nil
}
