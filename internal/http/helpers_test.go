package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/backend"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/catalog"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/domain"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/journal"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/pos"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/reporting"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockCatalog struct {
	m           sync.Mutex
	products    []domain.Product
	err         error
	invalidated int
}

func (m *mockCatalog) Products(context.Context) ([]domain.Product, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return []domain.Product{}, m.err
	}
	return append([]domain.Product(nil), m.products...), nil
}

func (m *mockCatalog) Product(ctx context.Context, id string) (domain.Product, error) {
	products, err := m.Products(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, catalog.ErrProductNotFound
}

func (m *mockCatalog) Invalidate() {
	m.m.Lock()
	defer m.m.Unlock()
	m.invalidated++
}

type mockSubmitter struct {
	orderID string
	err     error
}

func (m *mockSubmitter) SubmitOrder(context.Context, domain.OrderSubmission) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.orderID, nil
}

type mockJournal struct {
	m       sync.Mutex
	entries []journal.Submission
	err     error
}

func (m *mockJournal) Record(_ context.Context, s journal.Submission) (journal.Submission, error) {
	m.m.Lock()
	defer m.m.Unlock()
	s.ID = fmt.Sprintf("sub-%d", len(m.entries)+1)
	s.CreatedAt = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	m.entries = append(m.entries, s)
	return s, nil
}

func (m *mockJournal) Recent(_ context.Context, limit int) ([]journal.Submission, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]journal.Submission, 0, len(m.entries))
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

type mockAdmin struct {
	created  []backend.NewProduct
	deleted  []string
	uploaded []uploadCall
	images   map[string]string
	err      error
}

type uploadCall struct {
	ProductID   string
	Filename    string
	ContentType string
	Body        []byte
}

func (m *mockAdmin) CreateProduct(_ context.Context, p backend.NewProduct) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, p)
	return nil
}

func (m *mockAdmin) DeleteProduct(_ context.Context, productID string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, productID)
	return nil
}

func (m *mockAdmin) UploadImage(_ context.Context, productID, filename, contentType string, image io.Reader) error {
	if m.err != nil {
		return m.err
	}
	body, err := io.ReadAll(image)
	if err != nil {
		return err
	}
	m.uploaded = append(m.uploaded, uploadCall{productID, filename, contentType, body})
	return nil
}

func (m *mockAdmin) OpenImage(_ context.Context, imageURL string) (*backend.Image, error) {
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.images[imageURL]
	if !ok {
		return nil, &backend.APIError{Status: http.StatusNotFound, Detail: "Not Found"}
	}
	return &backend.Image{
		Body:        io.NopCloser(strings.NewReader(data)),
		ContentType: "image/png",
		Size:        int64(len(data)),
	}, nil
}

type mockReports struct {
	history     []reporting.HistoryEntry
	dashboard   reporting.Dashboard
	err         error
	lastRange   reporting.Range
	invalidated int
}

func (m *mockReports) History(_ context.Context, r reporting.Range) ([]reporting.HistoryEntry, error) {
	m.lastRange = r
	return m.history, m.err
}

func (m *mockReports) Dashboard(_ context.Context, r reporting.Range) (reporting.Dashboard, error) {
	m.lastRange = r
	return m.dashboard, m.err
}

func (m *mockReports) Invalidate() {
	m.invalidated++
}

func menu() []domain.Product {
	return []domain.Product{
		{
			ID:        "latte",
			Name:      "Latte",
			BasePrice: decimal.NewFromInt(50),
			Category:  "Coffee",
			ImageURL:  "http://backend/static/latte.png",
			OptionGroups: []domain.OptionGroup{
				{Name: "Size", Mode: domain.SelectionSingle, Choices: []domain.Choice{
					{Name: "Small"},
					{Name: "Large", PriceModifier: decimal.NewFromInt(15)},
				}},
				{Name: "Extras", Mode: domain.SelectionMulti, Choices: []domain.Choice{
					{Name: "Extra shot", PriceModifier: decimal.NewFromInt(10)},
				}},
			},
		},
		{ID: "croissant", Name: "Croissant", BasePrice: decimal.RequireFromString("45.50"), Category: "Bakery"},
	}
}

type testServer struct {
	handler   http.Handler
	catalog   *mockCatalog
	submitter *mockSubmitter
	journal   *mockJournal
	admin     *mockAdmin
	reports   *mockReports
}

func newTestServer(t *testing.T) *testServer {
	store := session.NewMemoryStore(time.Hour)
	t.Cleanup(func() { store.Close() })

	ts := &testServer{
		catalog:   &mockCatalog{products: menu()},
		submitter: &mockSubmitter{orderID: "ord-1"},
		journal:   &mockJournal{},
		admin:     &mockAdmin{images: map[string]string{"http://backend/static/latte.png": "PNGDATA"}},
		reports:   &mockReports{},
	}

	logger := zap.NewNop()
	service := pos.NewService(store, ts.catalog, ts.submitter, ts.journal, logger)
	ts.handler = NewRouter(RouterConfig{RequestTimeout: 5 * time.Second}, Handlers{
		POS:      NewPOSHandler(service, ts.catalog, ts.reports, 5*time.Second, logger),
		Products: NewProductHandler(ts.admin, ts.catalog, 5*time.Second, 1<<20, logger),
		Orders:   NewOrdersHandler(ts.reports, 5*time.Second),
		Journal:  NewJournalHandler(ts.journal, 5*time.Second),
	}, logger)
	return ts
}

func (ts *testServer) do(t *testing.T, method, target string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func (ts *testServer) startSession(t *testing.T) string {
	rec := ts.do(t, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	return decode[SessionResponse](t, rec).SessionID
}
