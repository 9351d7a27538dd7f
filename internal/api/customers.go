package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"possync/m/internal/service"
)

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.svc.Customers.GetAll(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err, "unable to fetch customers")
		return
	}
	respondJSON(w, http.StatusOK, customers)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.svc.Customers.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err, "unable to fetch customer")
		return
	}
	respondJSON(w, http.StatusOK, customer)
}

func (h *Handler) searchCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.svc.Customers.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		h.respondServiceError(w, r, err, "unable to search customers")
		return
	}
	respondJSON(w, http.StatusOK, customers)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req service.CustomerInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	customer, err := h.svc.Customers.Create(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err, "unable to create customer")
		return
	}
	respondJSON(w, http.StatusCreated, customer)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	var req service.CustomerPatch
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.Customers.Update(r.Context(), chi.URLParam(r, "id"), req); err != nil {
		h.respondServiceError(w, r, err, "unable to update customer")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Customers.SafeDelete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err, "unable to delete customer")
		return
	}
	respondDelete(w, res)
}

func (h *Handler) customerOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders.GetCustomerOrders(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err, "unable to fetch customer orders")
		return
	}
	respondJSON(w, http.StatusOK, orders)
}
