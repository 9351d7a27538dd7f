package api

import (
	"net/http"
	"strconv"

	"possync/m/internal/campaign"
	"possync/m/internal/stats"
)

// Reports

func (h *Handler) revenueStats(w http.ResponseWriter, r *http.Request) {
	revenue, err := h.stats.LastSixMonthsRevenue(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err, "unable to compute revenue")
		return
	}
	respondJSON(w, http.StatusOK, revenue)
}

func (h *Handler) categoryStats(w http.ResponseWriter, r *http.Request) {
	period := stats.Period(r.URL.Query().Get("period"))
	if period != "" && period != stats.PeriodMonth && period != stats.PeriodWeek {
		respondError(w, http.StatusBadRequest, "period must be month or week")
		return
	}
	sales, err := h.stats.CategorySales(r.Context(), period)
	if err != nil {
		h.respondServiceError(w, r, err, "unable to compute category sales")
		return
	}
	respondJSON(w, http.StatusOK, sales)
}

func limitParam(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return limit
}

func (h *Handler) topProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.stats.TopSellingProducts(r.Context(), limitParam(r))
	if err != nil {
		h.respondServiceError(w, r, err, "unable to compute top products")
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handler) stockLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := h.stats.StockLevels(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err, "unable to compute stock levels")
		return
	}
	respondJSON(w, http.StatusOK, levels)
}

func (h *Handler) topCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.stats.TopCustomers(r.Context(), limitParam(r))
	if err != nil {
		h.respondServiceError(w, r, err, "unable to compute top customers")
		return
	}
	respondJSON(w, http.StatusOK, customers)
}

func (h *Handler) criticalStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.stats.CriticalStock(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err, "unable to fetch critical stock")
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handler) salesDistribution(w http.ResponseWriter, r *http.Request) {
	shares, err := h.stats.SalesDistribution(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err, "unable to compute sales distribution")
		return
	}
	respondJSON(w, http.StatusOK, shares)
}

// Campaigns

func (h *Handler) campaignRecipients(w http.ResponseWriter, r *http.Request) {
	recipients, err := h.campaigns.Recipients(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err, "unable to list recipients")
		return
	}
	respondJSON(w, http.StatusOK, recipients)
}

func (h *Handler) sendEmailCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaign.Email
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := h.campaigns.SendEmail(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err, "unable to send campaign")
		return
	}
	respondJSON(w, http.StatusOK, report)
}
