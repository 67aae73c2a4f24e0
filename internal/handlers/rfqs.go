package handlers

import (
	"net/http"
	"strings"

	"agrotrade/internal/pipeline"

	"github.com/go-chi/chi/v5"
)

// CreateRFQHandler обрабатывает POST /api/rfqs/new, actorId - покупатель
func (h *Handler) CreateRFQHandler(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := actorID(w, r)
	if !ok {
		return
	}

	var spec pipeline.RFQSpec
	if !decodeBody(w, r, &spec) {
		return
	}

	rfq, err := h.Service.CreateRFQ(r.Context(), buyerID, spec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rfq)
}

// GetUserRFQsHandler возвращает RFQ покупателя с пагинацией
func (h *Handler) GetUserRFQsHandler(w http.ResponseWriter, r *http.Request) {
	params := parsePaginationParams(r)

	buyerID, ok := actorID(w, r)
	if !ok {
		return
	}

	rfqs, err := h.Service.ListBuyerRFQs(r.Context(), buyerID, params.Limit, params.Offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rfqs)
}

func (h *Handler) GetRFQHandler(w http.ResponseWriter, r *http.Request) {
	rfq, err := h.Service.GetRFQ(r.Context(), chi.URLParam(r, "rfqId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rfq)
}

// GetMatchesHandler возвращает до пяти подходящих поставщиков для RFQ.
// Пояснения могут быть пустыми, если модель не ответила вовремя.
func (h *Handler) GetMatchesHandler(w http.ResponseWriter, r *http.Request) {
	rfq, err := h.Service.GetRFQ(r.Context(), chi.URLParam(r, "rfqId"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	region := strings.TrimSpace(r.URL.Query().Get("region"))
	pool, err := h.Directory.ListByCapability(r.Context(), rfq.Crop, region)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.Ranker.Rank(r.Context(), *rfq, pool))
}

// CancelRFQHandler отменяет открытый RFQ, доступно только владельцу
func (h *Handler) CancelRFQHandler(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := actorID(w, r)
	if !ok {
		return
	}

	rfq, err := h.Service.CancelRFQ(r.Context(), chi.URLParam(r, "rfqId"), buyerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rfq)
}
