package handlers

import (
	"net/http"

	"agrotrade/models"

	"github.com/go-chi/chi/v5"
)

// GetUserOrdersHandler возвращает заказы поставщика
func (h *Handler) GetUserOrdersHandler(w http.ResponseWriter, r *http.Request) {
	params := parsePaginationParams(r)

	supplierID, ok := actorID(w, r)
	if !ok {
		return
	}

	orders, err := h.Service.ListSupplierOrders(r.Context(), supplierID, params.Limit, params.Offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	order, err := h.Service.GetOrder(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) GetOrderHistoryHandler(w http.ResponseWriter, r *http.Request) {
	history, err := h.Service.OrderHistory(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// AdvanceOrderHandler переводит заказ на следующий этап.
// Разрешено назначенному поставщику и администраторам.
func (h *Handler) AdvanceOrderHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	order, err := h.Service.AdvanceOrder(r.Context(), chi.URLParam(r, "orderId"), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type telemetryRequest struct {
	RiskLevel models.RiskLevel `json:"riskLevel"`
	models.Telemetry
}

// AttachTelemetryHandler принимает снимок внешнего трекинга. Статус заказа не меняется.
func (h *Handler) AttachTelemetryHandler(w http.ResponseWriter, r *http.Request) {
	var req telemetryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := h.Service.AttachTelemetry(r.Context(), chi.URLParam(r, "orderId"), req.RiskLevel, req.Telemetry)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
