package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"possync/m/domain"
	"possync/m/internal/auth"
	"possync/m/internal/service"
)

// Order handlers

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders.GetAll(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err, "unable to fetch orders")
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.Orders.GetWithItems(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err, "unable to fetch order")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req service.OrderInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CreatedBy == "" {
		req.CreatedBy = auth.UserIDFromContext(r.Context())
	}
	orderID, err := h.svc.Orders.Create(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err, "unable to create order")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"order_id":     orderID,
		"total_amount": service.OrderTotal(req.Items),
	})
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status domain.OrderStatus `json:"status"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.Orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), payload.Status); err != nil {
		h.respondServiceError(w, r, err, "unable to update order status")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(payload.Status)})
}

// Stock handlers

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	movements, err := h.svc.Stock.GetAll(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err, "unable to fetch stock movements")
		return
	}
	respondJSON(w, http.StatusOK, movements)
}

func (h *Handler) recordMovement(w http.ResponseWriter, r *http.Request) {
	var req service.MovementInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	movement, err := h.svc.Stock.RecordMovement(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err, "unable to record stock movement")
		return
	}
	respondJSON(w, http.StatusCreated, movement)
}
