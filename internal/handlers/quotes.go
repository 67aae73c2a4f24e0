package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type submitQuoteRequest struct {
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
	Notes        string          `json:"notes"`
}

// SubmitQuoteHandler создает котировку или заменяет ожидающую котировку того же поставщика
func (h *Handler) SubmitQuoteHandler(w http.ResponseWriter, r *http.Request) {
	supplierID, ok := actorID(w, r)
	if !ok {
		return
	}

	var req submitQuoteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	quote, err := h.Service.SubmitQuote(r.Context(), chi.URLParam(r, "rfqId"), supplierID, req.PricePerUnit, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (h *Handler) ListQuotesHandler(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.Service.ListQuotes(r.Context(), chi.URLParam(r, "rfqId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}

// AcceptQuoteHandler присуждает RFQ котировке и возвращает созданный заказ
func (h *Handler) AcceptQuoteHandler(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := actorID(w, r)
	if !ok {
		return
	}

	order, err := h.Service.AcceptQuote(r.Context(), chi.URLParam(r, "rfqId"), chi.URLParam(r, "quoteId"), buyerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
