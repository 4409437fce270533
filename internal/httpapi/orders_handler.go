package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/adashop/storefront/internal/catalog"
	"github.com/adashop/storefront/internal/order"
	"github.com/adashop/storefront/internal/orderstore"
)

type OrdersHandler struct {
	orders  order.API
	catalog catalog.Repository
	timeout time.Duration
}

func NewOrdersHandler(orders order.API, cat catalog.Repository, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		catalog: cat,
		timeout: timeout,
	}
}

type CreateOrderItemDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CreateOrderRequestDTO struct {
	PayerAddress string               `json:"payer_address"`
	Items        []CreateOrderItemDTO `json:"items"`
}

type UpdateStatusRequestDTO struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
	PaymentError  string `json:"payment_error,omitempty"`
}

// POST /api/v1/orders
//
// Stock is taken here, conditionally per line, so two racing orders cannot
// both claim the last unit. When a later line fails, stock already taken by
// earlier lines is returned.
func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreateOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.PayerAddress == "" {
		respondError(w, http.StatusBadRequest, "missing_payer_address", "payer_address is required")
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "empty_order", "order must contain at least one item")
		return
	}
	for _, it := range req.Items {
		if it.ProductID == "" {
			respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
			return
		}
		if it.Quantity <= 0 || it.Quantity > 99 {
			respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
			return
		}
	}

	items, ok := h.takeStock(ctx, w, req.Items)
	if !ok {
		return
	}

	var total int64
	for _, it := range items {
		total += it.PriceLovelace * int64(it.Quantity)
	}

	created, err := h.orders.CreateOrder(ctx, order.CreateOrderRequest{
		PayerAddress:  req.PayerAddress,
		Items:         items,
		TotalLovelace: total,
	})
	if err != nil {
		log.Printf("create order failed: %v", err)
		h.returnStock(ctx, items)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create order")
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

// takeStock resolves each line against the catalog and decrements stock.
// On failure it responds to the client, returns stock already taken and
// reports ok=false.
func (h *OrdersHandler) takeStock(ctx context.Context, w http.ResponseWriter, reqItems []CreateOrderItemDTO) ([]order.Item, bool) {
	var taken []order.Item
	for _, it := range reqItems {
		p, err := h.catalog.GetProduct(ctx, it.ProductID)
		if err != nil {
			h.returnStock(ctx, taken)
			if errors.Is(err, catalog.ErrProductNotFound) {
				respondError(w, http.StatusNotFound, "product_not_found", "product "+it.ProductID+" not found")
			} else {
				log.Printf("get product %s failed: %v", it.ProductID, err)
				respondError(w, http.StatusInternalServerError, "internal_error", "failed to resolve product")
			}
			return nil, false
		}

		if err := h.catalog.DecrementStock(ctx, it.ProductID, it.Quantity); err != nil {
			h.returnStock(ctx, taken)
			switch {
			case errors.Is(err, catalog.ErrInsufficientStock):
				respondError(w, http.StatusConflict, "insufficient_stock", "insufficient stock for product "+it.ProductID)
			case errors.Is(err, catalog.ErrProductNotFound):
				respondError(w, http.StatusNotFound, "product_not_found", "product "+it.ProductID+" not found")
			default:
				log.Printf("decrement stock for %s failed: %v", it.ProductID, err)
				respondError(w, http.StatusInternalServerError, "internal_error", "failed to reserve stock")
			}
			return nil, false
		}

		taken = append(taken, order.Item{
			ProductID:     p.ID,
			Quantity:      it.Quantity,
			PriceLovelace: p.PriceLovelace,
		})
	}
	return taken, true
}

func (h *OrdersHandler) returnStock(ctx context.Context, taken []order.Item) {
	for _, it := range taken {
		if err := h.catalog.IncrementStock(ctx, it.ProductID, it.Quantity); err != nil {
			log.Printf("failed to return %d units of %s: %v", it.Quantity, it.ProductID, err)
		}
	}
}

// PATCH /api/v1/orders/{order_id}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	var req UpdateStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	target := order.Status(req.Status)
	if !target.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_status", "unknown status "+req.Status)
		return
	}

	updated, err := h.orders.UpdateOrderStatus(ctx, order.StatusUpdateRequest{
		OrderID:       orderID,
		Status:        target,
		TransactionID: req.TransactionID,
		PaymentError:  req.PaymentError,
	})
	if err != nil {
		switch {
		case errors.Is(err, orderstore.ErrOrderNotFound):
			respondError(w, http.StatusNotFound, "not_found", "order not found")
		case errors.Is(err, order.ErrInvalidTransition):
			respondError(w, http.StatusConflict, "invalid_transition", err.Error())
		default:
			log.Printf("update order %s status failed: %v", orderID, err)
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to update order status")
		}
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	o, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, orderstore.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "order not found")
		} else {
			log.Printf("get order %s failed: %v", orderID, err)
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to load order")
		}
		return
	}

	respondJSON(w, http.StatusOK, o)
}

// GET /api/v1/orders?payer=addr
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	payer := r.URL.Query().Get("payer")
	if payer == "" {
		respondError(w, http.StatusBadRequest, "missing_payer", "payer query parameter is required")
		return
	}

	orders, err := h.orders.ListOrders(ctx, payer)
	if err != nil {
		log.Printf("list orders for %s failed: %v", payer, err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list orders")
		return
	}
	if orders == nil {
		orders = []*order.Order{}
	}

	respondJSON(w, http.StatusOK, orders)
}
