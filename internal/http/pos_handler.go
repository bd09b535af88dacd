package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/cart"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/catalog"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/domain"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/pos"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type POSService interface {
	StartSession(ctx context.Context) (string, error)
	EndSession(ctx context.Context, sessionID string) error
	Cart(ctx context.Context, sessionID string) (*cart.Cart, error)
	AddLine(ctx context.Context, sessionID, productID string, selections []domain.Selection) (string, *cart.Cart, error)
	SetQuantity(ctx context.Context, sessionID, lineID string, quantity int) (*cart.Cart, error)
	RemoveLine(ctx context.Context, sessionID, lineID string) (*cart.Cart, error)
	ClearCart(ctx context.Context, sessionID string) (*cart.Cart, error)
	Checkout(ctx context.Context, sessionID, terminalID string) (pos.Receipt, error)
}

type CatalogService interface {
	Products(ctx context.Context) ([]domain.Product, error)
	Invalidate()
}

// Invalidator drops a cached view.
type Invalidator interface {
	Invalidate()
}

type POSHandler struct {
	service POSService
	catalog CatalogService
	history Invalidator
	timeout time.Duration
	logger  *zap.Logger
}

func NewPOSHandler(service POSService, catalog CatalogService, history Invalidator, timeout time.Duration, logger *zap.Logger) *POSHandler {
	return &POSHandler{
		service: service,
		catalog: catalog,
		history: history,
		timeout: timeout,
		logger:  logger,
	}
}

type AddLineRequestDTO struct {
	ProductID  string             `json:"product_id"`
	Selections []domain.Selection `json:"selections"`
}

type SetQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

// GET /api/v1/catalog
func (h *POSHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.Products(ctx)
	if err != nil {
		// The POS screen keeps working with an empty menu.
		h.logger.Warn("catalog unavailable", zap.Error(err))
		respondJSON(w, http.StatusOK, CatalogResponse{
			Available:  false,
			Categories: []string{},
			Products:   []ProductDTO{},
			Message:    "menu is temporarily unavailable",
		})
		return
	}

	respondJSON(w, http.StatusOK, CatalogResponse{
		Available:  true,
		Categories: catalog.Categories(products),
		Products:   toProductDTOs(catalog.FilterByCategory(products, r.URL.Query().Get("category"))),
	})
}

// POST /api/v1/sessions
func (h *POSHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID, err := h.service.StartSession(ctx)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, SessionResponse{SessionID: sessionID})
}

// DELETE /api/v1/sessions/{session_id}
func (h *POSHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.service.EndSession(ctx, chi.URLParam(r, "session_id")); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/sessions/{session_id}/cart
func (h *POSHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := chi.URLParam(r, "session_id")
	c, err := h.service.Cart(ctx, sessionID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(sessionID, c))
}

// POST /api/v1/sessions/{session_id}/cart/lines
func (h *POSHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddLineRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	req.ProductID = strings.TrimSpace(req.ProductID)
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	sessionID := chi.URLParam(r, "session_id")
	lineID, c, err := h.service.AddLine(ctx, sessionID, req.ProductID, req.Selections)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, AddLineResponse{LineID: lineID, Cart: toCartResponse(sessionID, c)})
}

// PUT /api/v1/sessions/{session_id}/cart/lines/{line_id}
// A quantity of zero or less removes the line.
func (h *POSHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SetQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity is required")
		return
	}

	sessionID := chi.URLParam(r, "session_id")
	c, err := h.service.SetQuantity(ctx, sessionID, chi.URLParam(r, "line_id"), *req.Quantity)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(sessionID, c))
}

// DELETE /api/v1/sessions/{session_id}/cart/lines/{line_id}
func (h *POSHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := chi.URLParam(r, "session_id")
	c, err := h.service.RemoveLine(ctx, sessionID, chi.URLParam(r, "line_id"))
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(sessionID, c))
}

// DELETE /api/v1/sessions/{session_id}/cart
func (h *POSHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := chi.URLParam(r, "session_id")
	c, err := h.service.ClearCart(ctx, sessionID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(sessionID, c))
}

// POST /api/v1/sessions/{session_id}/checkout
func (h *POSHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	receipt, err := h.service.Checkout(ctx, chi.URLParam(r, "session_id"), getTerminalID(r.Context()))
	if err != nil {
		handleError(w, err)
		return
	}
	h.history.Invalidate()

	respondJSON(w, http.StatusCreated, CheckoutResponse{
		OrderID: receipt.OrderID,
		Total:   money(receipt.Total),
		Lines:   receipt.Lines,
	})
}
