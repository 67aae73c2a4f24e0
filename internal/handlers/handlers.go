package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"agrotrade/internal/apperr"
	"agrotrade/internal/logger"
	"agrotrade/internal/pipeline"
	"agrotrade/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// максимальный размер тела запроса
const maxBodyBytes = 1048576

// TradeService - операции конвейера RFQ и заказов, которые нужны HTTP-слою
type TradeService interface {
	CreateRFQ(ctx context.Context, buyerID string, spec pipeline.RFQSpec) (*models.RFQ, error)
	GetRFQ(ctx context.Context, rfqID string) (*models.RFQ, error)
	ListBuyerRFQs(ctx context.Context, buyerID string, limit, offset int) ([]models.RFQ, error)
	CancelRFQ(ctx context.Context, rfqID, buyerID string) (*models.RFQ, error)

	SubmitQuote(ctx context.Context, rfqID, supplierID string, price decimal.Decimal, notes string) (*models.Quote, error)
	ListQuotes(ctx context.Context, rfqID string) ([]models.Quote, error)
	AcceptQuote(ctx context.Context, rfqID, quoteID, buyerID string) (*models.Order, error)

	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	ListSupplierOrders(ctx context.Context, supplierID string, limit, offset int) ([]models.Order, error)
	OrderHistory(ctx context.Context, orderID string) ([]models.OrderTransition, error)
	AdvanceOrder(ctx context.Context, orderID, actorID string) (*models.Order, error)
	AttachTelemetry(ctx context.Context, orderID string, risk models.RiskLevel, t models.Telemetry) (*models.Order, error)
}

// SupplierDirectory отдаёт поставщиков по культуре и региону
type SupplierDirectory interface {
	ListByCapability(ctx context.Context, crop, region string) ([]models.Supplier, error)
}

// Ranker строит шорт-лист поставщиков для RFQ
type Ranker interface {
	Rank(ctx context.Context, rfq models.RFQ, pool []models.Supplier) []models.MatchCandidate
}

// Handler собирает зависимости HTTP-обработчиков
type Handler struct {
	Service   TradeService
	Directory SupplierDirectory
	Ranker    Ranker
}

// NewHandler создает новый Handler
func NewHandler(svc TradeService, dir SupplierDirectory, ranker Ranker) *Handler {
	return &Handler{Service: svc, Directory: dir, Ranker: ranker}
}

// PingHandler отвечает "ok" для проверки сервера
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type PaginationParams struct {
	Limit  int
	Offset int
}

// parsePaginationParams парсит limit и offset из query, с дефолтами и ограничениями
func parsePaginationParams(r *http.Request) PaginationParams {
	params := PaginationParams{Limit: pipeline.DefaultPageLimit}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= pipeline.MaxPageLimit {
			params.Limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			params.Offset = o
		}
	}
	return params
}

// actorID достаёт идентификатор действующего лица из query
func actorID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.URL.Query().Get("actorId"))
	if id == "" {
		http.Error(w, "Missing actorId parameter", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

// decodeBody читает JSON тела с ограничением размера
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError переводит ошибки apperr в HTTP-статусы
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, apperr.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, apperr.ErrNotOwner), errors.Is(err, apperr.ErrNotAuthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, apperr.ErrInvalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, apperr.ErrUpstreamUnavailable):
		logger.FromContext(r.Context()).Error("upstream unavailable", zap.Error(err))
		http.Error(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		http.Error(w, "Request cancelled", http.StatusGatewayTimeout)
	default:
		logger.FromContext(r.Context()).Error("unexpected error", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
