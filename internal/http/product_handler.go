package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/backend"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DefaultMaxImageSize bounds product image uploads.
const DefaultMaxImageSize = 5 << 20

var imageExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

type ProductAdmin interface {
	CreateProduct(ctx context.Context, p backend.NewProduct) error
	DeleteProduct(ctx context.Context, productID string) error
	UploadImage(ctx context.Context, productID, filename, contentType string, image io.Reader) error
	OpenImage(ctx context.Context, imageURL string) (*backend.Image, error)
}

type ProductHandler struct {
	admin        ProductAdmin
	catalog      CatalogService
	timeout      time.Duration
	maxImageSize int64
	logger       *zap.Logger
}

func NewProductHandler(admin ProductAdmin, catalog CatalogService, timeout time.Duration, maxImageSize int64, logger *zap.Logger) *ProductHandler {
	if maxImageSize <= 0 {
		maxImageSize = DefaultMaxImageSize
	}
	return &ProductHandler{
		admin:        admin,
		catalog:      catalog,
		timeout:      timeout,
		maxImageSize: maxImageSize,
		logger:       logger,
	}
}

func imagePath(productID string) string {
	return "/api/v1/products/" + url.PathEscape(productID) + "/image"
}

// productIDParam returns the decoded {product_id}. chi matches on the escaped path
// when the request has one, so ids built by imagePath arrive still escaped.
func productIDParam(r *http.Request) string {
	raw := chi.URLParam(r, "product_id")
	if id, err := url.PathUnescape(raw); err == nil {
		return id
	}
	return raw
}

type CreateProductRequestDTO struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

type ProductsResponse struct {
	Products []ProductDTO `json:"products"`
}

// GET /api/v1/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.Products(ctx)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, &ProductsResponse{Products: toProductDTOs(products)})
}

// POST /api/v1/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreateProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" || req.Category == "" {
		respondError(w, http.StatusBadRequest, "missing_fields", "name and category are required")
		return
	}
	if req.Price < 0 {
		respondError(w, http.StatusBadRequest, "invalid_price", "price must not be negative")
		return
	}

	err := h.admin.CreateProduct(ctx, backend.NewProduct{Name: req.Name, Price: req.Price, Category: req.Category})
	if err != nil {
		handleError(w, err)
		return
	}
	h.catalog.Invalidate()
	h.logger.Info("product created", zap.String("name", req.Name), zap.String("category", req.Category))

	w.WriteHeader(http.StatusCreated)
}

// DELETE /api/v1/products/{product_id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := productIDParam(r)
	if err := h.admin.DeleteProduct(ctx, productID); err != nil {
		handleError(w, err)
		return
	}
	h.catalog.Invalidate()
	h.logger.Info("product deleted", zap.String("product_id", productID))

	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/products/{product_id}/image
// Expects multipart field "file" holding a png or jpeg image.
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	// Leave room for the multipart framing around the file itself.
	bodyLimit := h.maxImageSize + 64<<10
	if r.ContentLength > bodyLimit {
		h.respondTooLarge(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondTooLarge(w)
			return
		}
		respondError(w, http.StatusBadRequest, "missing_file", "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	if header.Size > h.maxImageSize {
		h.respondTooLarge(w)
		return
	}

	contentType, ok := imageExtensions[strings.ToLower(filepath.Ext(header.Filename))]
	if !ok {
		respondError(w, http.StatusBadRequest, "unsupported_image", "image must be png, jpg or jpeg")
		return
	}
	if declared := header.Header.Get("Content-Type"); declared != "" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType != contentType {
			respondError(w, http.StatusBadRequest, "unsupported_image", "content type does not match file extension")
			return
		}
	}

	productID := productIDParam(r)
	if err := h.admin.UploadImage(ctx, productID, filepath.Base(header.Filename), contentType, file); err != nil {
		handleError(w, err)
		return
	}
	h.catalog.Invalidate()
	h.logger.Info("product image uploaded", zap.String("product_id", productID), zap.Int64("size", header.Size))

	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) respondTooLarge(w http.ResponseWriter) {
	respondError(w, http.StatusRequestEntityTooLarge, "image_too_large",
		"image must be at most "+strconv.FormatInt(h.maxImageSize>>10, 10)+" KB")
}

// GET /api/v1/products/{product_id}/image
func (h *ProductHandler) Image(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := productIDParam(r)
	products, err := h.catalog.Products(ctx)
	if err != nil {
		handleError(w, err)
		return
	}

	var product *domain.Product
	for i := range products {
		if products[i].ID == productID {
			product = &products[i]
			break
		}
	}
	if product == nil || product.ImageURL == "" {
		respondError(w, http.StatusNotFound, "image_not_found", "product has no image")
		return
	}

	img, err := h.admin.OpenImage(ctx, product.ImageURL)
	if err != nil {
		handleError(w, err)
		return
	}
	defer img.Body.Close()

	if img.ContentType != "" {
		w.Header().Set("Content-Type", img.ContentType)
	}
	if img.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(img.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, img.Body); err != nil {
		h.logger.Warn("image copy interrupted", zap.String("product_id", productID), zap.Error(err))
	}
}
