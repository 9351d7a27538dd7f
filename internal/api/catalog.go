package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"possync/m/internal/service"
)

// Category handlers

type categoryRequest struct {
	Name string `json:"name"`
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.Categories.GetAll(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err, "unable to fetch categories")
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.svc.Categories.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err, "unable to fetch category")
		return
	}
	respondJSON(w, http.StatusOK, category)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	category, err := h.svc.Categories.Create(r.Context(), req.Name)
	if err != nil {
		h.respondServiceError(w, r, err, "unable to create category")
		return
	}
	respondJSON(w, http.StatusCreated, category)
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.Categories.Update(r.Context(), chi.URLParam(r, "id"), req.Name); err != nil {
		h.respondServiceError(w, r, err, "unable to update category")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Categories.SafeDelete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err, "unable to delete category")
		return
	}
	respondDelete(w, res)
}

func (h *Handler) listCategoryProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Products.GetByCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err, "unable to fetch products")
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// Product handlers

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Products.GetAll(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err, "unable to fetch products")
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.svc.Products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err, "unable to fetch product")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"product":   product,
		"low_stock": product.IsLowStock(),
	})
}

func (h *Handler) searchProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Products.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		h.respondServiceError(w, r, err, "unable to search products")
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handler) lowStockProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Products.GetLowStock(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err, "unable to fetch low stock products")
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req service.ProductInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	product, err := h.svc.Products.Create(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err, "unable to create product")
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req service.ProductPatch
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.Products.Update(r.Context(), chi.URLParam(r, "id"), req); err != nil {
		h.respondServiceError(w, r, err, "unable to update product")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Products.SafeDelete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err, "unable to delete product")
		return
	}
	respondDelete(w, res)
}

func (h *Handler) productMovements(w http.ResponseWriter, r *http.Request) {
	movements, err := h.svc.Stock.GetProductMovements(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err, "unable to fetch stock movements")
		return
	}
	respondJSON(w, http.StatusOK, movements)
}

// Supplier handlers

func supplierID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.svc.Suppliers.GetAll(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err, "unable to fetch suppliers")
		return
	}
	respondJSON(w, http.StatusOK, suppliers)
}

func (h *Handler) getSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := supplierID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}
	supplier, err := h.svc.Suppliers.GetByID(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err, "unable to fetch supplier")
		return
	}
	respondJSON(w, http.StatusOK, supplier)
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req service.SupplierInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	supplier, err := h.svc.Suppliers.Create(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err, "unable to create supplier")
		return
	}
	respondJSON(w, http.StatusCreated, supplier)
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := supplierID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}
	var req service.SupplierPatch
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.Suppliers.Update(r.Context(), id, req); err != nil {
		h.respondServiceError(w, r, err, "unable to update supplier")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := supplierID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}
	res, err := h.svc.Suppliers.SafeDelete(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err, "unable to delete supplier")
		return
	}
	respondDelete(w, res)
}
