package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Сущность Поставщика
type Supplier struct {
	ID          string         `db:"id" json:"id" yaml:"id"`
	Name        string         `db:"name" json:"name" yaml:"name"`
	Specialties pq.StringArray `db:"specialties" json:"specialties" yaml:"specialties"`
	Region      string         `db:"region" json:"region" yaml:"region"`
	Country     string         `db:"country" json:"country" yaml:"country"`
	OnTimeRate  float64        `db:"on_time_rate" json:"onTimeRate" yaml:"onTimeRate"`
	Verified    bool           `db:"verified" json:"verified" yaml:"verified"`
	TrustScore  int            `db:"trust_score" json:"trustScore" yaml:"trustScore"`
}

// HasSpecialty сообщает, входит ли культура в специализацию поставщика.
func (s *Supplier) HasSpecialty(crop string) bool {
	crop = NormalizeTag(crop)
	for _, sp := range s.Specialties {
		if NormalizeTag(sp) == crop {
			return true
		}
	}
	return false
}

// Сущность Запроса котировок (RFQ)
type RFQ struct {
	ID           string          `db:"id" json:"id"`
	BuyerID      string          `db:"buyer_id" json:"buyerId"`
	Crop         string          `db:"crop" json:"crop"`
	Volume       decimal.Decimal `db:"volume" json:"volume"`
	VolumeUnit   string          `db:"volume_unit" json:"volumeUnit"`
	Destination  string          `db:"destination" json:"destination"`
	Incoterm     Incoterm        `db:"incoterm" json:"incoterm"`
	Timeline     string          `db:"timeline" json:"timeline"`
	Instructions string          `db:"instructions" json:"instructions"`
	Status       RFQStatus       `db:"status" json:"status"`
	Version      int             `db:"version" json:"version"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"-"`
}

// Сущность Котировки
type Quote struct {
	ID           string          `db:"id" json:"id"`
	RFQID        string          `db:"rfq_id" json:"rfqId"`
	SupplierID   string          `db:"supplier_id" json:"supplierId"`
	PricePerUnit decimal.Decimal `db:"price_per_unit" json:"pricePerUnit"`
	Notes        string          `db:"notes" json:"notes"`
	Status       QuoteStatus     `db:"status" json:"status"`
	SubmittedAt  time.Time       `db:"submitted_at" json:"submittedAt"`
}

// Сущность Заказа
type Order struct {
	ID          string          `db:"id" json:"id"`
	RFQID       string          `db:"rfq_id" json:"rfqId"`
	QuoteID     string          `db:"quote_id" json:"quoteId"`
	BuyerID     string          `db:"buyer_id" json:"buyerId"`
	SupplierID  string          `db:"supplier_id" json:"supplierId"`
	Crop        string          `db:"crop" json:"crop"`
	Volume      decimal.Decimal `db:"volume" json:"volume"`
	VolumeUnit  string          `db:"volume_unit" json:"volumeUnit"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unitPrice"`
	Destination string          `db:"destination" json:"destination"`
	Incoterm    Incoterm        `db:"incoterm" json:"incoterm"`
	Status      OrderStatus     `db:"status" json:"status"`
	RiskLevel   RiskLevel       `db:"risk_level" json:"riskLevel"`
	Telemetry
	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}

// Telemetry - последний снимок внешнего трекинга. На переходы статусов не влияет.
type Telemetry struct {
	Temperature *float64   `db:"temperature" json:"temperature,omitempty"`
	Humidity    *float64   `db:"humidity" json:"humidity,omitempty"`
	Lat         *float64   `db:"lat" json:"lat,omitempty"`
	Lng         *float64   `db:"lng" json:"lng,omitempty"`
	ReportedAt  *time.Time `db:"telemetry_at" json:"telemetryAt,omitempty"`
}

// Запись истории переходов заказа
type OrderTransition struct {
	ID        int         `db:"id" json:"id"`
	OrderID   string      `db:"order_id" json:"orderId"`
	From      OrderStatus `db:"from_status" json:"from"`
	To        OrderStatus `db:"to_status" json:"to"`
	ActorID   string      `db:"actor_id" json:"actorId"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}

// MatchCandidate не сохраняется, живёт только в ответе ранжирования.
type MatchCandidate struct {
	Supplier Supplier `json:"supplier"`
	Score    float64  `json:"score"`
	Rank     int      `json:"rank"`
	Reason   string   `json:"reason"`
}

// NormalizeTag приводит теги культур и инкотермсы к единому виду.
func NormalizeTag(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
