package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/domain"
	"github.com/shopspring/decimal"
)

// The backend schema has drifted over time: the same value shows up under several
// field names and some totals are only present on newer records. Everything that
// copes with that lives in this file; the rest of the module only sees domain types.
// TODO: drop the fallback field names once the backend exposes a versioned schema.

var errMissingID = errors.New("record has no id")

type rawRecord map[string]json.RawMessage

func (r rawRecord) lookup(keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		v, ok := r[k]
		if ok && len(v) > 0 && !bytes.Equal(v, []byte("null")) {
			return v, true
		}
	}
	return nil, false
}

// str accepts JSON strings and numbers, so integer ids come out as their decimal text.
func (r rawRecord) str(keys ...string) string {
	v, ok := r.lookup(keys...)
	if !ok {
		return ""
	}
	var s string
	if json.Unmarshal(v, &s) == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if json.Unmarshal(v, &n) == nil {
		return n.String()
	}
	return ""
}

func (r rawRecord) dec(keys ...string) (decimal.Decimal, bool) {
	v, ok := r.lookup(keys...)
	if !ok {
		return decimal.Zero, false
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(v); err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func (r rawRecord) integer(keys ...string) (int, bool) {
	d, ok := r.dec(keys...)
	if !ok {
		return 0, false
	}
	return int(d.IntPart()), true
}

func (r rawRecord) list(keys ...string) []json.RawMessage {
	v, ok := r.lookup(keys...)
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		return nil
	}
	return items
}

func decodeRecord(data json.RawMessage) (rawRecord, error) {
	var r rawRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return r, nil
}

// normalizeProduct turns a product record into a domain.Product. resolveImage turns
// the stored image path into a fetchable URL.
func normalizeProduct(data json.RawMessage, resolveImage func(string) string) (domain.Product, error) {
	r, err := decodeRecord(data)
	if err != nil {
		return domain.Product{}, err
	}
	id := r.str("id", "_id", "product_id")
	if id == "" {
		return domain.Product{}, errMissingID
	}

	price, _ := r.dec("price", "base_price")
	if price.IsNegative() {
		price = decimal.Zero
	}

	p := domain.Product{
		ID:        id,
		Name:      r.str("name"),
		BasePrice: price,
		Category:  r.str("category"),
	}
	if p.Name == "" {
		p.Name = id
	}
	if img := r.str("image_url", "image"); img != "" {
		p.ImageURL = resolveImage(img)
	}

	seen := make(map[string]bool)
	for _, g := range r.list("option_groups", "options") {
		group, ok := normalizeOptionGroup(g)
		if !ok || seen[group.Name] {
			continue
		}
		seen[group.Name] = true
		p.OptionGroups = append(p.OptionGroups, group)
	}
	return p, nil
}

func normalizeOptionGroup(data json.RawMessage) (domain.OptionGroup, bool) {
	r, err := decodeRecord(data)
	if err != nil {
		return domain.OptionGroup{}, false
	}
	name := r.str("name", "title")
	if name == "" {
		return domain.OptionGroup{}, false
	}

	group := domain.OptionGroup{Name: name, Mode: selectionMode(r.str("mode", "type", "selection"))}
	seen := make(map[string]bool)
	for _, c := range r.list("choices", "values", "items") {
		choice, ok := normalizeChoice(c)
		if !ok || seen[choice.Name] {
			continue
		}
		seen[choice.Name] = true
		group.Choices = append(group.Choices, choice)
	}
	return group, true
}

func selectionMode(raw string) domain.SelectionMode {
	switch strings.ToLower(raw) {
	case "multi", "multiple", "checkbox", "many":
		return domain.SelectionMulti
	default:
		return domain.SelectionSingle
	}
}

// normalizeChoice accepts {"name", "price_modifier"} objects as well as bare names.
func normalizeChoice(data json.RawMessage) (domain.Choice, bool) {
	var name string
	if json.Unmarshal(data, &name) == nil {
		return domain.Choice{Name: name}, name != ""
	}
	r, err := decodeRecord(data)
	if err != nil {
		return domain.Choice{}, false
	}
	name = r.str("name", "label")
	if name == "" {
		return domain.Choice{}, false
	}
	modifier, _ := r.dec("price_modifier", "price", "extra_price")
	return domain.Choice{Name: name, PriceModifier: modifier}, true
}

var orderDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func parseOrderDate(raw string) (time.Time, bool) {
	for _, layout := range orderDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func normalizeOrder(data json.RawMessage) (domain.Order, error) {
	r, err := decodeRecord(data)
	if err != nil {
		return domain.Order{}, err
	}
	id := r.str("id", "_id", "order_id")
	if id == "" {
		return domain.Order{}, errMissingID
	}

	o := domain.Order{ID: id, Status: r.str("status")}
	if o.Status == "" {
		o.Status = "unknown"
	}
	if raw := r.str("order_date", "date", "created_at"); raw != "" {
		o.Date, _ = parseOrderDate(raw)
	}

	itemsTotal := decimal.Zero
	for _, raw := range r.list("items") {
		item, ok := normalizeOrderItem(raw)
		if !ok {
			continue
		}
		itemsTotal = itemsTotal.Add(item.LineTotal)
		o.Items = append(o.Items, item)
	}

	if total, ok := r.dec("total_amount", "total"); ok {
		o.Total = total
	} else {
		o.Total = itemsTotal
	}
	return o, nil
}

func normalizeOrderItem(data json.RawMessage) (domain.OrderItem, bool) {
	r, err := decodeRecord(data)
	if err != nil {
		return domain.OrderItem{}, false
	}

	item := domain.OrderItem{
		ProductID:   r.str("product_id", "id"),
		ProductName: r.str("product_name", "name"),
	}
	if item.ProductName == "" {
		item.ProductName = item.ProductID
	}
	item.Quantity, _ = r.integer("quantity", "qty")
	item.UnitPrice, _ = r.dec("price_per_item", "unit_price", "price")

	for _, raw := range r.list("selected_options", "selected_choices", "options") {
		if c, ok := normalizeChoice(raw); ok {
			item.SelectedOptions = append(item.SelectedOptions, c)
		}
	}

	if total, ok := r.dec("item_total", "line_total"); ok {
		item.LineTotal = total
	} else {
		item.LineTotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
	}
	return item, item.ProductID != "" || item.ProductName != ""
}
