package http

import (
	"context"
	"net/http"
	"time"

	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/reporting"
)

type ReportService interface {
	History(ctx context.Context, r reporting.Range) ([]reporting.HistoryEntry, error)
	Dashboard(ctx context.Context, r reporting.Range) (reporting.Dashboard, error)
}

type OrdersHandler struct {
	reports ReportService
	timeout time.Duration
	loc     *time.Location
}

func NewOrdersHandler(reports ReportService, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		reports: reports,
		timeout: timeout,
		loc:     time.Local,
	}
}

func (h *OrdersHandler) parseRange(r *http.Request) (reporting.Range, error) {
	q := r.URL.Query()
	return reporting.ParseRange(q.Get("from"), q.Get("to"), h.loc)
}

// GET /api/v1/orders?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	rng, err := h.parseRange(r)
	if err != nil {
		handleError(w, err)
		return
	}

	entries, err := h.reports.History(ctx, rng)
	if err != nil {
		handleError(w, err)
		return
	}

	orders := make([]OrderDTO, 0, len(entries))
	for _, e := range entries {
		orders = append(orders, toOrderDTO(e))
	}
	respondJSON(w, http.StatusOK, OrdersResponse{Orders: orders})
}

// GET /api/v1/dashboard?from=YYYY-MM-DD&to=YYYY-MM-DD
// Without bounds the dashboard covers the last seven days.
func (h *OrdersHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	rng, err := h.parseRange(r)
	if err != nil {
		handleError(w, err)
		return
	}

	d, err := h.reports.Dashboard(ctx, rng)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toDashboardResponse(d))
}
