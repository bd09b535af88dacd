package cart

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem is one add-to-cart action. BasePrice is captured when the line is
// created and never follows later catalog changes.
type LineItem struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	BasePrice   decimal.Decimal `json:"base_price"`
	Quantity    int             `json:"quantity"`
	Choices     []domain.Choice `json:"choices"`
}

// UnitPrice is the base price plus every selected modifier.
func (l LineItem) UnitPrice() decimal.Decimal {
	price := l.BasePrice
	for _, c := range l.Choices {
		price = price.Add(c.PriceModifier)
	}
	return price
}

func (l LineItem) Total() decimal.Decimal {
	return l.UnitPrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds the lines of one checkout session in insertion order.
// Every present line has Quantity >= 1. A Cart is not safe for concurrent use.
type Cart struct {
	lines map[string]*LineItem
	order []string
}

func New() *Cart {
	return &Cart{lines: make(map[string]*LineItem)}
}

// AddLine always creates a new line with quantity 1, even for a product that is
// already in the cart.
func (c *Cart) AddLine(p domain.Product, choices []domain.Choice) string {
	id := uuid.NewString()
	c.lines[id] = &LineItem{
		ID:          id,
		ProductID:   p.ID,
		ProductName: p.Name,
		BasePrice:   p.BasePrice,
		Quantity:    1,
		Choices:     slices.Clone(choices),
	}
	c.order = append(c.order, id)
	return id
}

func (c *Cart) RemoveLine(id string) {
	if _, ok := c.lines[id]; !ok {
		return
	}
	delete(c.lines, id)
	c.order = slices.DeleteFunc(c.order, func(existing string) bool { return existing == id })
}

// SetQuantity overwrites the quantity of an existing line. Zero or less removes it.
func (c *Cart) SetQuantity(id string, quantity int) {
	if quantity <= 0 {
		c.RemoveLine(id)
		return
	}
	if line, ok := c.lines[id]; ok {
		line.Quantity = quantity
	}
}

// LineTotal returns zero for an unknown line.
func (c *Cart) LineTotal(id string) decimal.Decimal {
	line, ok := c.lines[id]
	if !ok {
		return decimal.Zero
	}
	return line.Total()
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, id := range c.order {
		total = total.Add(c.lines[id].Total())
	}
	return total
}

func (c *Cart) Clear() {
	clear(c.lines)
	c.order = nil
}

func (c *Cart) Len() int {
	return len(c.order)
}

func (c *Cart) IsEmpty() bool {
	return len(c.order) == 0
}

func (c *Cart) Line(id string) (LineItem, bool) {
	line, ok := c.lines[id]
	if !ok {
		return LineItem{}, false
	}
	return copyLine(line), true
}

// Lines returns copies of the lines in insertion order.
func (c *Cart) Lines() []LineItem {
	lines := make([]LineItem, 0, len(c.order))
	for _, id := range c.order {
		lines = append(lines, copyLine(c.lines[id]))
	}
	return lines
}

// OrderPayload projects the cart to the submission sent to the backend,
// dropping names, price snapshots and totals.
func (c *Cart) OrderPayload() domain.OrderSubmission {
	items := make([]domain.SubmissionItem, 0, len(c.order))
	for _, id := range c.order {
		line := c.lines[id]
		choices := slices.Clone(line.Choices)
		if choices == nil {
			choices = []domain.Choice{}
		}
		items = append(items, domain.SubmissionItem{
			ProductID:       line.ProductID,
			Quantity:        line.Quantity,
			SelectedChoices: choices,
		})
	}
	return domain.OrderSubmission{Items: items}
}

func (c *Cart) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Lines())
}

// UnmarshalJSON restores a cart written by MarshalJSON, keeping line ids and order.
func (c *Cart) UnmarshalJSON(data []byte) error {
	var lines []LineItem
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("unmarshal cart lines: %w", err)
	}

	restored := New()
	for _, line := range lines {
		if line.ID == "" || line.Quantity < 1 {
			return fmt.Errorf("invalid cart line %q with quantity %d", line.ID, line.Quantity)
		}
		if _, dup := restored.lines[line.ID]; dup {
			return fmt.Errorf("duplicate cart line %q", line.ID)
		}
		l := line
		restored.lines[l.ID] = &l
		restored.order = append(restored.order, l.ID)
	}
	*c = *restored
	return nil
}

func copyLine(line *LineItem) LineItem {
	l := *line
	l.Choices = slices.Clone(line.Choices)
	return l
}
