package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/domain"
	"github.com/SleepAsSinDev/sleepassin-pos-app/pkg/circuitbreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
	// Breaker guards every call. A default breaker is used when nil.
	Breaker *circuitbreaker.Breaker
	// Transport defaults to an otelhttp-instrumented http.DefaultTransport.
	Transport http.RoundTripper
}

// Client talks to the backend that owns products and orders.
type Client struct {
	base    *url.URL
	http    *http.Client
	breaker *circuitbreaker.Breaker
	logger  *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q must be http or https", cfg.BaseURL)
	}

	transport := cfg.Transport
	if transport == nil {
		transport = otelhttp.NewTransport(http.DefaultTransport)
	}
	breaker := cfg.Breaker
	if breaker == nil {
		breaker = circuitbreaker.New(circuitbreaker.Config{Name: "backend", Ignore: IsClientError})
	}

	return &Client{
		base:    base,
		http:    &http.Client{Transport: transport, Timeout: cfg.Timeout},
		breaker: breaker,
		logger:  logger,
	}, nil
}

func (c *Client) endpoint(path ...string) string {
	return c.base.JoinPath(path...).String()
}

// resolveImage makes a relative image path absolute against the backend address.
func (c *Client) resolveImage(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if u.IsAbs() {
		return ref
	}
	return c.base.JoinPath(u.Path).String()
}

// do sends req through the breaker. Responses with status >= 400 come back as *APIError.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	err := c.breaker.Do(func() error {
		r, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, req.Method, req.URL.Path, err)
		}
		if r.StatusCode >= http.StatusBadRequest {
			defer r.Body.Close()
			return newAPIError(r)
		}
		resp = r
		return nil
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, target string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, req.URL.Path, err)
	}
	return nil
}

// ListProducts returns the catalog. Records without an id are skipped.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var records []json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint("products"), nil, &records); err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(records))
	for i, rec := range records {
		p, err := normalizeProduct(rec, c.resolveImage)
		if err != nil {
			c.logger.Warn("skipping product record", zap.Int("index", i), zap.Error(err))
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

type NewProduct struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

func (c *Client) CreateProduct(ctx context.Context, p NewProduct) error {
	return c.doJSON(ctx, http.MethodPost, c.endpoint("products"), p, nil)
}

func (c *Client) DeleteProduct(ctx context.Context, productID string) error {
	return c.doJSON(ctx, http.MethodDelete, c.endpoint("products", productID), nil, nil)
}

// UploadImage sends the image as multipart field "file".
func (c *Client) UploadImage(ctx context.Context, productID, filename, contentType string, image io.Reader) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return fmt.Errorf("copy image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("products", productID, "upload-image"), &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type Image struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// OpenImage fetches an image previously returned in Product.ImageURL. Only URLs on
// the backend host are fetched.
func (c *Client) OpenImage(ctx context.Context, imageURL string) (*Image, error) {
	u, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("parse image url: %w", err)
	}
	if u.Host != c.base.Host || u.Scheme != c.base.Scheme {
		return nil, fmt.Errorf("image url %q is not served by the backend", imageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return &Image{
		Body:        resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}, nil
}

// SubmitOrder posts the order and returns the id the backend assigned to it.
func (c *Client) SubmitOrder(ctx context.Context, order domain.OrderSubmission) (string, error) {
	var resp json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint("orders"), order, &resp); err != nil {
		return "", err
	}
	rec, err := decodeRecord(resp)
	if err != nil {
		return "", fmt.Errorf("decode order response: %w", err)
	}
	id := rec.str("id", "_id", "order_id")
	if id == "" {
		return "", fmt.Errorf("order response: %w", errMissingID)
	}
	return id, nil
}

// ListOrders returns the order history. Records without an id are skipped.
func (c *Client) ListOrders(ctx context.Context) ([]domain.Order, error) {
	var records []json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint("orders"), nil, &records); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(records))
	for i, rec := range records {
		o, err := normalizeOrder(rec)
		if err != nil {
			c.logger.Warn("skipping order record", zap.Int("index", i), zap.Error(err))
			continue
		}
		orders = append(orders, o)
	}
	return orders, nil
}
