package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSubmission is what the backend receives on checkout. The backend recomputes
// the authoritative totals from it.
type OrderSubmission struct {
	Items []SubmissionItem
}

type SubmissionItem struct {
	ProductID       string
	Quantity        int
	SelectedChoices []Choice
}

type wireChoice struct {
	Name          string      `json:"name"`
	PriceModifier json.Number `json:"price_modifier"`
}

type wireItem struct {
	ProductID       string       `json:"product_id"`
	Quantity        int          `json:"quantity"`
	SelectedOptions []wireChoice `json:"selected_options"`
}

type wireSubmission struct {
	Items []wireItem `json:"items"`
}

// MarshalJSON renders the backend's order body. Modifiers are plain JSON numbers
// with the decimal's exact digits.
func (o OrderSubmission) MarshalJSON() ([]byte, error) {
	w := wireSubmission{Items: make([]wireItem, 0, len(o.Items))}
	for _, item := range o.Items {
		options := make([]wireChoice, 0, len(item.SelectedChoices))
		for _, c := range item.SelectedChoices {
			options = append(options, wireChoice{Name: c.Name, PriceModifier: json.Number(c.PriceModifier.String())})
		}
		w.Items = append(w.Items, wireItem{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			SelectedOptions: options,
		})
	}
	return json.Marshal(w)
}

// Order is a committed order as reported by the backend's history endpoint.
type Order struct {
	ID     string
	Date   time.Time
	Total  decimal.Decimal
	Status string
	Items  []OrderItem
}

type OrderItem struct {
	ProductID       string
	ProductName     string
	Quantity        int
	UnitPrice       decimal.Decimal
	SelectedOptions []Choice
	LineTotal       decimal.Decimal
}
