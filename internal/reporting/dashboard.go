package reporting

import (
	"context"
	"sort"
	"time"

	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/catalog"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	TopProductsLimit = 5
	Uncategorized    = "Uncategorized"
)

type KPIs struct {
	Revenue           decimal.Decimal
	Orders            int
	AverageOrderValue decimal.Decimal
}

type DailySales struct {
	Day   time.Time
	Total decimal.Decimal
}

type ProductSales struct {
	Name     string
	Quantity int
}

type CategorySales struct {
	Category string
	Total    decimal.Decimal
}

type Dashboard struct {
	Range       Range
	KPIs        KPIs
	DailySales  []DailySales
	TopProducts []ProductSales
	AllProducts []ProductSales
	// Categories is nil when the catalog could not be loaded.
	Categories []CategorySales
}

// Dashboard aggregates the orders placed within r. A zero Range means DefaultRange.
func (s *Service) Dashboard(ctx context.Context, r Range) (Dashboard, error) {
	if r.IsZero() {
		r = DefaultRange(s.now(), s.loc)
	}

	orders, err := s.Orders(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	products, err := s.products.Products(ctx)
	if err != nil {
		s.logger.Warn("dashboard without category breakdown", zap.Error(err))
		products = nil
	}

	return Summarize(orders, products, r, s.loc), nil
}

// Summarize is the pure aggregation behind Dashboard. products == nil omits the
// category breakdown.
func Summarize(orders []domain.Order, products []domain.Product, r Range, loc *time.Location) Dashboard {
	d := Dashboard{
		Range:       r,
		DailySales:  make([]DailySales, 0),
		TopProducts: make([]ProductSales, 0),
		AllProducts: make([]ProductSales, 0),
	}

	filtered := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if r.Contains(o.Date) {
			filtered = append(filtered, o)
		}
	}

	d.KPIs = kpis(filtered)
	d.DailySales = dailySales(filtered, loc)
	d.AllProducts = productSales(filtered)
	d.TopProducts = d.AllProducts[:min(TopProductsLimit, len(d.AllProducts))]
	if products != nil {
		d.Categories = categorySales(filtered, catalog.CategoryIndex(products))
	}
	return d
}

func kpis(orders []domain.Order) KPIs {
	k := KPIs{Revenue: decimal.Zero, AverageOrderValue: decimal.Zero, Orders: len(orders)}
	for _, o := range orders {
		k.Revenue = k.Revenue.Add(o.Total)
	}
	if k.Orders > 0 {
		k.AverageOrderValue = k.Revenue.Div(decimal.NewFromInt(int64(k.Orders)))
	}
	return k
}

// dailySales covers every day between the first and the last order, with zero for
// days without orders.
func dailySales(orders []domain.Order, loc *time.Location) []DailySales {
	byDay := make(map[time.Time]decimal.Decimal)
	var first, last time.Time
	for _, o := range orders {
		if o.Date.IsZero() {
			continue
		}
		day := startOfDay(o.Date, loc)
		byDay[day] = byDay[day].Add(o.Total)
		if first.IsZero() || day.Before(first) {
			first = day
		}
		if day.After(last) {
			last = day
		}
	}

	sales := make([]DailySales, 0)
	if first.IsZero() {
		return sales
	}
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		sales = append(sales, DailySales{Day: day, Total: byDay[day]})
	}
	return sales
}

// productSales sums quantities per product name, best sellers first.
func productSales(orders []domain.Order) []ProductSales {
	quantities := make(map[string]int)
	for _, o := range orders {
		for _, item := range o.Items {
			quantities[item.ProductName] += item.Quantity
		}
	}

	sales := make([]ProductSales, 0, len(quantities))
	for name, qty := range quantities {
		sales = append(sales, ProductSales{Name: name, Quantity: qty})
	}
	sort.Slice(sales, func(i, j int) bool {
		if sales[i].Quantity != sales[j].Quantity {
			return sales[i].Quantity > sales[j].Quantity
		}
		return sales[i].Name < sales[j].Name
	})
	return sales
}

func categorySales(orders []domain.Order, categories map[string]string) []CategorySales {
	totals := make(map[string]decimal.Decimal)
	for _, o := range orders {
		for _, item := range o.Items {
			category := categories[item.ProductID]
			if category == "" {
				category = Uncategorized
			}
			totals[category] = totals[category].Add(item.LineTotal)
		}
	}

	sales := make([]CategorySales, 0, len(totals))
	for category, total := range totals {
		sales = append(sales, CategorySales{Category: category, Total: total})
	}
	sort.Slice(sales, func(i, j int) bool {
		return sales[i].Category < sales[j].Category
	})
	return sales
}
