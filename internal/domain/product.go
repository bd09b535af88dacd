package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidSelection = errors.New("invalid option selection")

type SelectionMode string

const (
	SelectionSingle SelectionMode = "single"
	SelectionMulti  SelectionMode = "multi"
)

type Product struct {
	ID           string
	Name         string
	BasePrice    decimal.Decimal
	Category     string
	ImageURL     string
	OptionGroups []OptionGroup
}

type OptionGroup struct {
	Name    string
	Mode    SelectionMode
	Choices []Choice
}

// Choice is one selectable option with an additive price modifier.
type Choice struct {
	Name          string          `json:"name"`
	PriceModifier decimal.Decimal `json:"price_modifier"`
}

// Selection names a choice inside one of the product's option groups.
type Selection struct {
	Group  string `json:"group"`
	Choice string `json:"choice"`
}

func (g OptionGroup) choice(name string) (Choice, bool) {
	for _, c := range g.Choices {
		if c.Name == name {
			return c, true
		}
	}
	return Choice{}, false
}

func (p Product) group(name string) (OptionGroup, bool) {
	for _, g := range p.OptionGroups {
		if g.Name == name {
			return g, true
		}
	}
	return OptionGroup{}, false
}

// groupNames lists group names in order, each once. The first group with a name wins.
func (p Product) groupNames() []string {
	names := make([]string, 0, len(p.OptionGroups))
	seen := make(map[string]bool, len(p.OptionGroups))
	for _, g := range p.OptionGroups {
		if seen[g.Name] {
			continue
		}
		seen[g.Name] = true
		names = append(names, g.Name)
	}
	return names
}

// ResolveSelections maps the picked group/choice names to the product's Choice values.
// Single-choice groups that offer choices need exactly one pick, multi-choice groups
// accept any number of distinct picks. The result follows the product's group order.
func (p Product) ResolveSelections(selections []Selection) ([]Choice, error) {
	picked := make(map[string][]string, len(selections))
	for _, s := range selections {
		g, ok := p.group(s.Group)
		if !ok {
			return nil, fmt.Errorf("%w: unknown option group %q", ErrInvalidSelection, s.Group)
		}
		if _, ok := g.choice(s.Choice); !ok {
			return nil, fmt.Errorf("%w: unknown choice %q in group %q", ErrInvalidSelection, s.Choice, s.Group)
		}
		for _, existing := range picked[s.Group] {
			if existing == s.Choice {
				return nil, fmt.Errorf("%w: choice %q picked twice in group %q", ErrInvalidSelection, s.Choice, s.Group)
			}
		}
		picked[s.Group] = append(picked[s.Group], s.Choice)
	}

	choices := make([]Choice, 0, len(selections))
	for _, name := range p.groupNames() {
		g, _ := p.group(name)
		names := picked[g.Name]
		if g.Mode == SelectionSingle && len(g.Choices) > 0 && len(names) != 1 {
			return nil, fmt.Errorf("%w: group %q needs exactly one choice, got %d", ErrInvalidSelection, g.Name, len(names))
		}
		for _, name := range names {
			c, ok := g.choice(name)
			if !ok {
				return nil, fmt.Errorf("%w: unknown choice %q in group %q", ErrInvalidSelection, name, g.Name)
			}
			choices = append(choices, c)
		}
	}
	return choices, nil
}
