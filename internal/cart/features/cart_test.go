package features

import (
	"context"
	"fmt"
	"testing"

	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/cart"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/domain"
	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"
)

type cartTestContext struct {
	catalog map[string]*domain.Product
	cart    *cart.Cart
	lines   map[string]string // alias -> line id
}

func (c *cartTestContext) reset() {
	c.catalog = make(map[string]*domain.Product)
	c.cart = nil
	c.lines = make(map[string]string)
}

func (c *cartTestContext) aProductNamedPriced(id, name, price string) error {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return err
	}
	c.catalog[id] = &domain.Product{ID: id, Name: name, BasePrice: p}
	return nil
}

func (c *cartTestContext) productOffersChoiceInGroupFor(id, choice, group, modifier string) error {
	p, ok := c.catalog[id]
	if !ok {
		return fmt.Errorf("unknown product %q", id)
	}
	m, err := decimal.NewFromString(modifier)
	if err != nil {
		return err
	}
	p.OptionGroups = append(p.OptionGroups, domain.OptionGroup{
		Name:    group,
		Mode:    domain.SelectionMulti,
		Choices: []domain.Choice{{Name: choice, PriceModifier: m}},
	})
	return nil
}

func (c *cartTestContext) anEmptyCart() error {
	c.cart = cart.New()
	return nil
}

func (c *cartTestContext) iAddProductAsLine(id, alias string) error {
	p, ok := c.catalog[id]
	if !ok {
		return fmt.Errorf("unknown product %q", id)
	}
	c.lines[alias] = c.cart.AddLine(*p, nil)
	return nil
}

func (c *cartTestContext) iAddProductWithChoiceAsLine(id, choice, alias string) error {
	p, ok := c.catalog[id]
	if !ok {
		return fmt.Errorf("unknown product %q", id)
	}
	var picked []domain.Choice
	for _, g := range p.OptionGroups {
		for _, ch := range g.Choices {
			if ch.Name == choice {
				picked = append(picked, ch)
			}
		}
	}
	if len(picked) == 0 {
		return fmt.Errorf("product %q has no choice %q", id, choice)
	}
	c.lines[alias] = c.cart.AddLine(*p, picked)
	return nil
}

func (c *cartTestContext) lineID(alias string) string {
	if id, ok := c.lines[alias]; ok {
		return id
	}
	return alias
}

func (c *cartTestContext) iSetTheQuantityOfLineTo(alias string, quantity int) error {
	c.cart.SetQuantity(c.lineID(alias), quantity)
	return nil
}

func (c *cartTestContext) iRemoveLine(alias string) error {
	c.cart.RemoveLine(c.lineID(alias))
	return nil
}

func (c *cartTestContext) iClearTheCart() error {
	c.cart.Clear()
	return nil
}

func (c *cartTestContext) theCatalogPriceOfProductChangesTo(id, price string) error {
	p, ok := c.catalog[id]
	if !ok {
		return fmt.Errorf("unknown product %q", id)
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return err
	}
	p.BasePrice = d
	return nil
}

func (c *cartTestContext) theCartTotalIs(want string) error {
	return expectDecimal("cart total", want, c.cart.Total())
}

func (c *cartTestContext) lineTotalIs(alias, want string) error {
	return expectDecimal(fmt.Sprintf("line %q total", alias), want, c.cart.LineTotal(c.lineID(alias)))
}

func (c *cartTestContext) theCartHasLines(n int) error {
	if c.cart.Len() != n {
		return fmt.Errorf("expected %d lines, got %d", n, c.cart.Len())
	}
	return nil
}

func (c *cartTestContext) theOrderPayloadHasItems(n int) error {
	if got := len(c.cart.OrderPayload().Items); got != n {
		return fmt.Errorf("expected %d payload items, got %d", n, got)
	}
	return nil
}

func expectDecimal(what, want string, got decimal.Decimal) error {
	w, err := decimal.NewFromString(want)
	if err != nil {
		return err
	}
	if !w.Equal(got) {
		return fmt.Errorf("expected %s %s, got %s", what, w.StringFixed(2), got.StringFixed(2))
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &cartTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a product "([^"]*)" named "([^"]*)" priced (\d+(?:\.\d+)?)$`, tc.aProductNamedPriced)
	ctx.Step(`^product "([^"]*)" offers choice "([^"]*)" in group "([^"]*)" for (-?\d+(?:\.\d+)?)$`, tc.productOffersChoiceInGroupFor)
	ctx.Step(`^an empty cart$`, tc.anEmptyCart)

	// When steps
	ctx.Step(`^I add product "([^"]*)" as line "([^"]*)"$`, tc.iAddProductAsLine)
	ctx.Step(`^I add product "([^"]*)" with choice "([^"]*)" as line "([^"]*)"$`, tc.iAddProductWithChoiceAsLine)
	ctx.Step(`^I set the quantity of line "([^"]*)" to (-?\d+)$`, tc.iSetTheQuantityOfLineTo)
	ctx.Step(`^I remove line "([^"]*)"$`, tc.iRemoveLine)
	ctx.Step(`^I clear the cart$`, tc.iClearTheCart)
	ctx.Step(`^the catalog price of product "([^"]*)" changes to (\d+(?:\.\d+)?)$`, tc.theCatalogPriceOfProductChangesTo)

	// Then steps
	ctx.Step(`^the cart total is (\d+(?:\.\d+)?)$`, tc.theCartTotalIs)
	ctx.Step(`^line "([^"]*)" total is (\d+(?:\.\d+)?)$`, tc.lineTotalIs)
	ctx.Step(`^the cart has (\d+) lines$`, tc.theCartHasLines)
	ctx.Step(`^the order payload has (\d+) items$`, tc.theOrderPayloadHasItems)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"cart.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
