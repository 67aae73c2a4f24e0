package models

type RFQStatus string

const (
	RFQOpen      RFQStatus = "OPEN"
	RFQAwarded   RFQStatus = "AWARDED"
	RFQCancelled RFQStatus = "CANCELLED"
)

func (s RFQStatus) Terminal() bool {
	return s == RFQAwarded || s == RFQCancelled
}

type QuoteStatus string

const (
	QuotePending  QuoteStatus = "PENDING"
	QuoteAccepted QuoteStatus = "ACCEPTED"
	QuoteRejected QuoteStatus = "REJECTED"
)

type Incoterm string

const (
	IncotermEXW Incoterm = "EXW"
	IncotermFOB Incoterm = "FOB"
	IncotermCIF Incoterm = "CIF"
)

func ValidIncoterm(t Incoterm) bool {
	switch t {
	case IncotermEXW, IncotermFOB, IncotermCIF:
		return true
	default:
		return false
	}
}

type RiskLevel string

const (
	RiskUnknown RiskLevel = ""
	RiskLow     RiskLevel = "LOW"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskHigh    RiskLevel = "HIGH"
)

func ValidRiskLevel(r RiskLevel) bool {
	switch r {
	case RiskUnknown, RiskLow, RiskMedium, RiskHigh:
		return true
	default:
		return false
	}
}

// OrderStatus - этапы исполнения заказа, строго по порядку, без пропусков.
type OrderStatus string

const (
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderPaid      OrderStatus = "PAID"
	OrderInspected OrderStatus = "INSPECTED"
	OrderShipped   OrderStatus = "SHIPPED"
	OrderDelivered OrderStatus = "DELIVERED"
)

var orderSequence = []OrderStatus{
	OrderConfirmed,
	OrderPaid,
	OrderInspected,
	OrderShipped,
	OrderDelivered,
}

// Next возвращает следующий этап. ok == false для DELIVERED и неизвестных значений.
func (s OrderStatus) Next() (OrderStatus, bool) {
	for i, st := range orderSequence {
		if st == s && i+1 < len(orderSequence) {
			return orderSequence[i+1], true
		}
	}
	return "", false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered
}
