package handlers

import "github.com/go-chi/chi/v5"

// Routes регистрирует маршруты API на роутере
func (h *Handler) Routes(r chi.Router) {
	r.Get("/ping", h.PingHandler)
	// запросы котировок
	r.Post("/rfqs/new", h.CreateRFQHandler)
	r.Get("/rfqs/my", h.GetUserRFQsHandler)
	r.Get("/rfqs/{rfqId}", h.GetRFQHandler)
	r.Get("/rfqs/{rfqId}/matches", h.GetMatchesHandler)
	r.Put("/rfqs/{rfqId}/cancel", h.CancelRFQHandler)
	// котировки
	r.Post("/rfqs/{rfqId}/quotes", h.SubmitQuoteHandler)
	r.Get("/rfqs/{rfqId}/quotes", h.ListQuotesHandler)
	r.Put("/rfqs/{rfqId}/quotes/{quoteId}/accept", h.AcceptQuoteHandler)
	// заказы
	r.Get("/orders/my", h.GetUserOrdersHandler)
	r.Get("/orders/{orderId}", h.GetOrderHandler)
	r.Get("/orders/{orderId}/history", h.GetOrderHistoryHandler)
	r.Put("/orders/{orderId}/advance", h.AdvanceOrderHandler)
	r.Put("/orders/{orderId}/telemetry", h.AttachTelemetryHandler)
}
