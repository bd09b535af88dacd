package http

import (
	"encoding/json"
	"time"

	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/cart"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/domain"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/journal"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/reporting"
	"github.com/shopspring/decimal"
)

// Amounts are rendered as fixed two-decimal strings.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type ChoiceDTO struct {
	Name          string `json:"name"`
	PriceModifier string `json:"price_modifier"`
}

func toChoiceDTOs(choices []domain.Choice) []ChoiceDTO {
	out := make([]ChoiceDTO, 0, len(choices))
	for _, c := range choices {
		out = append(out, ChoiceDTO{Name: c.Name, PriceModifier: money(c.PriceModifier)})
	}
	return out
}

type OptionGroupDTO struct {
	Name    string      `json:"name"`
	Mode    string      `json:"mode"`
	Choices []ChoiceDTO `json:"choices"`
}

type ProductDTO struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Category     string           `json:"category"`
	Price        string           `json:"price"`
	ImageURL     string           `json:"image_url,omitempty"`
	OptionGroups []OptionGroupDTO `json:"option_groups"`
}

// toProductDTO points the image at the gateway's proxy so clients never talk to the
// backend directly.
func toProductDTO(p domain.Product) ProductDTO {
	dto := ProductDTO{
		ID:           p.ID,
		Name:         p.Name,
		Category:     p.Category,
		Price:        money(p.BasePrice),
		OptionGroups: make([]OptionGroupDTO, 0, len(p.OptionGroups)),
	}
	if p.ImageURL != "" {
		dto.ImageURL = imagePath(p.ID)
	}
	for _, g := range p.OptionGroups {
		dto.OptionGroups = append(dto.OptionGroups, OptionGroupDTO{
			Name:    g.Name,
			Mode:    string(g.Mode),
			Choices: toChoiceDTOs(g.Choices),
		})
	}
	return dto
}

func toProductDTOs(products []domain.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		out = append(out, toProductDTO(p))
	}
	return out
}

type CatalogResponse struct {
	Available  bool         `json:"available"`
	Categories []string     `json:"categories"`
	Products   []ProductDTO `json:"products"`
	Message    string       `json:"message,omitempty"`
}

type LineDTO struct {
	ID          string      `json:"id"`
	ProductID   string      `json:"product_id"`
	ProductName string      `json:"product_name"`
	Quantity    int         `json:"quantity"`
	BasePrice   string      `json:"base_price"`
	UnitPrice   string      `json:"unit_price"`
	LineTotal   string      `json:"line_total"`
	Choices     []ChoiceDTO `json:"choices"`
}

type CartResponse struct {
	SessionID string    `json:"session_id"`
	Lines     []LineDTO `json:"lines"`
	Total     string    `json:"total"`
}

func toCartResponse(sessionID string, c *cart.Cart) CartResponse {
	lines := c.Lines()
	resp := CartResponse{
		SessionID: sessionID,
		Lines:     make([]LineDTO, 0, len(lines)),
		Total:     money(c.Total()),
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, LineDTO{
			ID:          l.ID,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			BasePrice:   money(l.BasePrice),
			UnitPrice:   money(l.UnitPrice()),
			LineTotal:   money(l.Total()),
			Choices:     toChoiceDTOs(l.Choices),
		})
	}
	return resp
}

type AddLineResponse struct {
	LineID string       `json:"line_id"`
	Cart   CartResponse `json:"cart"`
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
}

type CheckoutResponse struct {
	OrderID string `json:"order_id"`
	Total   string `json:"total"`
	Lines   int    `json:"lines"`
}

type OrderItemDTO struct {
	ProductID       string      `json:"product_id"`
	ProductName     string      `json:"product_name"`
	Quantity        int         `json:"quantity"`
	UnitPrice       string      `json:"unit_price"`
	SelectedOptions []ChoiceDTO `json:"selected_options"`
	LineTotal       string      `json:"line_total"`
}

type OrderDTO struct {
	ID          string         `json:"id"`
	Date        *time.Time     `json:"date"`
	DisplayDate string         `json:"display_date"`
	Total       string         `json:"total"`
	Status      string         `json:"status"`
	Items       []OrderItemDTO `json:"items"`
}

type OrdersResponse struct {
	Orders []OrderDTO `json:"orders"`
}

func toOrderDTO(e reporting.HistoryEntry) OrderDTO {
	o := e.Order
	dto := OrderDTO{
		ID:          o.ID,
		DisplayDate: e.DisplayDate,
		Total:       money(o.Total),
		Status:      o.Status,
		Items:       make([]OrderItemDTO, 0, len(o.Items)),
	}
	if !o.Date.IsZero() {
		date := o.Date
		dto.Date = &date
	}
	for _, it := range o.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ProductID:       it.ProductID,
			ProductName:     it.ProductName,
			Quantity:        it.Quantity,
			UnitPrice:       money(it.UnitPrice),
			SelectedOptions: toChoiceDTOs(it.SelectedOptions),
			LineTotal:       money(it.LineTotal),
		})
	}
	return dto
}

type KPIsDTO struct {
	Revenue           string `json:"revenue"`
	Orders            int    `json:"orders"`
	AverageOrderValue string `json:"average_order_value"`
}

type DailySalesDTO struct {
	Date  string `json:"date"`
	Total string `json:"total"`
}

type ProductSalesDTO struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type CategorySalesDTO struct {
	Category string `json:"category"`
	Total    string `json:"total"`
}

type DashboardResponse struct {
	From                string             `json:"from,omitempty"`
	To                  string             `json:"to,omitempty"`
	KPIs                KPIsDTO            `json:"kpis"`
	DailySales          []DailySalesDTO    `json:"daily_sales"`
	TopProducts         []ProductSalesDTO  `json:"top_products"`
	AllProducts         []ProductSalesDTO  `json:"all_products"`
	CategoriesAvailable bool               `json:"categories_available"`
	Categories          []CategorySalesDTO `json:"categories"`
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(reporting.DayLayout)
}

func toProductSalesDTOs(sales []reporting.ProductSales) []ProductSalesDTO {
	out := make([]ProductSalesDTO, 0, len(sales))
	for _, s := range sales {
		out = append(out, ProductSalesDTO{Name: s.Name, Quantity: s.Quantity})
	}
	return out
}

func toDashboardResponse(d reporting.Dashboard) DashboardResponse {
	resp := DashboardResponse{
		From: formatDay(d.Range.From),
		To:   formatDay(d.Range.To),
		KPIs: KPIsDTO{
			Revenue:           money(d.KPIs.Revenue),
			Orders:            d.KPIs.Orders,
			AverageOrderValue: money(d.KPIs.AverageOrderValue),
		},
		DailySales:          make([]DailySalesDTO, 0, len(d.DailySales)),
		TopProducts:         toProductSalesDTOs(d.TopProducts),
		AllProducts:         toProductSalesDTOs(d.AllProducts),
		CategoriesAvailable: d.Categories != nil,
		Categories:          make([]CategorySalesDTO, 0, len(d.Categories)),
	}
	for _, s := range d.DailySales {
		resp.DailySales = append(resp.DailySales, DailySalesDTO{Date: formatDay(s.Day), Total: money(s.Total)})
	}
	for _, c := range d.Categories {
		resp.Categories = append(resp.Categories, CategorySalesDTO{Category: c.Category, Total: money(c.Total)})
	}
	return resp
}

type JournalEntryDTO struct {
	ID           string          `json:"id"`
	SessionID    string          `json:"session_id"`
	TerminalID   string          `json:"terminal_id,omitempty"`
	Status       string          `json:"status"`
	OrderID      string          `json:"order_id,omitempty"`
	Error        string          `json:"error,omitempty"`
	DisplayTotal string          `json:"display_total"`
	Published    bool            `json:"published"`
	CreatedAt    time.Time       `json:"created_at"`
	Payload      json.RawMessage `json:"payload"`
}

func toJournalEntryDTO(s journal.Submission) JournalEntryDTO {
	return JournalEntryDTO{
		ID:           s.ID,
		SessionID:    s.SessionID,
		TerminalID:   s.TerminalID,
		Status:       string(s.Status),
		OrderID:      s.OrderID,
		Error:        s.Error,
		DisplayTotal: money(s.DisplayTotal),
		Published:    s.Published,
		CreatedAt:    s.CreatedAt,
		Payload:      s.Payload,
	}
}
