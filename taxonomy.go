package trades

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/shopspring/decimal"
)

// FullWeight is the weight of a complete assignment, in basis points.
const FullWeight = 10000

// Assignment attributes a part of an instrument to a classification.
type Assignment struct {
	Instrument ID  `json:"instrument"`
	Weight     int `json:"weight"` // basis points, 10000 is 100%.
}

// Classification is a node of a taxonomy.
type Classification struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Rank        int               `json:"rank,omitempty"`
	Children    []*Classification `json:"children,omitempty"`
	Assignments []Assignment      `json:"assignments,omitempty"`
}

// Taxonomy is a tree of classifications: asset classes, regions, sectors...
//
// The part of an instrument not assigned to any classification is unassigned.
type Taxonomy struct {
	Name            string            `json:"name"`
	Classifications []*Classification `json:"classifications"`
}

// Walk visits classifications in pre-order, siblings sorted by rank then name.
func (t *Taxonomy) Walk(visit func(c *Classification, depth int)) {
	var walk func(list []*Classification, depth int)
	walk = func(list []*Classification, depth int) {
		for _, c := range sortedByRank(list) {
			visit(c, depth)
			walk(c.Children, depth+1)
		}
	}
	walk(t.Classifications, 0)
}

func sortedByRank(list []*Classification) []*Classification {
	sorted := slices.Clone(list)
	slices.SortStableFunc(sorted, func(a, b *Classification) int {
		return cmp.Or(cmp.Compare(a.Rank, b.Rank), cmp.Compare(a.Name, b.Name))
	})
	return sorted
}

// Validate checks weights are in (0, 10000] and no instrument is assigned more than 100%.
func (t *Taxonomy) Validate() error {
	total := make(map[ID]int)
	var err error
	t.Walk(func(c *Classification, _ int) {
		for _, a := range c.Assignments {
			if a.Weight <= 0 || a.Weight > FullWeight {
				err = cmp.Or(err, fmt.Errorf("classification %q: weight of %s must be in (0, %d], got %d", c.Name, a.Instrument, FullWeight, a.Weight))
			}
			total[a.Instrument] += a.Weight
		}
	})
	if err != nil {
		return err
	}
	for _, id := range slices.Sorted(maps.Keys(total)) {
		if total[id] > FullWeight {
			return fmt.Errorf("taxonomy %q: %s is assigned %d basis points, more than %d", t.Name, id, total[id], FullWeight)
		}
	}
	return nil
}

// weights returns, for each classification, the weight of every instrument
// assigned to it or to one of its descendants, capped at FullWeight.
func (t *Taxonomy) weights() map[*Classification]map[ID]int {
	weights := make(map[*Classification]map[ID]int)
	var rollup func(c *Classification) map[ID]int
	rollup = func(c *Classification) map[ID]int {
		w := make(map[ID]int)
		for _, a := range c.Assignments {
			w[a.Instrument] += a.Weight
		}
		for _, child := range c.Children {
			for id, v := range rollup(child) {
				w[id] += v
			}
		}
		for id, v := range w {
			w[id] = min(v, FullWeight)
		}
		weights[c] = w
		return w
	}
	for _, c := range t.Classifications {
		rollup(c)
	}
	return weights
}

// unassigned returns the weight of id not assigned to any classification.
func (t *Taxonomy) unassigned(id ID) int {
	assigned := 0
	t.Walk(func(c *Classification, _ int) {
		for _, a := range c.Assignments {
			if a.Instrument == id {
				assigned += a.Weight
			}
		}
	})
	return max(0, FullWeight-assigned)
}

// TradesByTaxonomy partitions trades across the classifications of a taxonomy.
type TradesByTaxonomy struct {
	taxonomy   *Taxonomy
	converter  CurrencyConverter
	trades     []*Trade
	unassigned *Classification
	byCurrency bool

	categories map[categoryKey]*Category
	list       []*Category
}

type categoryKey struct {
	classification *Classification
	currency       string // empty unless grouped by currency.
}

// GroupByTaxonomy creates one category per classification holding trades of
// its instruments, and its descendants' instruments, weighted by their assignment.
// The remainder of each instrument goes to the "Unassigned" category.
func GroupByTaxonomy(taxonomy *Taxonomy, trades []*Trade, converter CurrencyConverter) (*TradesByTaxonomy, error) {
	return group(taxonomy, trades, converter, false)
}

// GroupByTaxonomyAndCurrency is like GroupByTaxonomy but splits each category
// by trade currency. Categories are named "Name (CUR)" and never convert values.
func GroupByTaxonomyAndCurrency(taxonomy *Taxonomy, trades []*Trade, converter CurrencyConverter) (*TradesByTaxonomy, error) {
	return group(taxonomy, trades, converter, true)
}

func group(taxonomy *Taxonomy, trades []*Trade, converter CurrencyConverter, byCurrency bool) (*TradesByTaxonomy, error) {
	if err := taxonomy.Validate(); err != nil {
		return nil, err
	}
	g := &TradesByTaxonomy{
		taxonomy:   taxonomy,
		converter:  converter,
		trades:     slices.Clone(trades),
		unassigned: &Classification{ID: "unassigned", Name: "Unassigned"},
		byCurrency: byCurrency,
		categories: make(map[categoryKey]*Category),
	}
	// results must not depend on the order of trades.
	slices.SortStableFunc(g.trades, func(a, b *Trade) int { return cmp.Compare(a.Key(), b.Key()) })

	weights := taxonomy.weights()
	var err error
	taxonomy.Walk(func(c *Classification, _ int) {
		for _, t := range g.trades {
			if w := weights[c][t.Instrument().ID]; w > 0 {
				err = cmp.Or(err, g.add(c, t, w))
			}
		}
	})
	if err != nil {
		return nil, err
	}
	for _, t := range g.trades {
		if w := taxonomy.unassigned(t.Instrument().ID); w > 0 {
			if err := g.add(g.unassigned, t, w); err != nil {
				return nil, err
			}
		}
	}
	g.list = g.sortedList()
	return g, nil
}

func (g *TradesByTaxonomy) add(c *Classification, t *Trade, basisPoints int) error {
	key := categoryKey{classification: c}
	if g.byCurrency {
		key.currency = t.Currency()
	}
	cat, ok := g.categories[key]
	if !ok {
		if g.byCurrency {
			cat = newCurrencyCategory(c, g.converter, key.currency)
		} else {
			cat = NewCategory(c, g.converter)
		}
		g.categories[key] = cat
	}
	return cat.AddTrade(t, decimal.New(int64(basisPoints), -4))
}

// sortedList orders categories like the taxonomy, then by currency, "Unassigned" last.
func (g *TradesByTaxonomy) sortedList() []*Category {
	var list []*Category
	appendNode := func(c *Classification) {
		var found []*Category
		for key, cat := range g.categories {
			if key.classification == c {
				found = append(found, cat)
			}
		}
		slices.SortFunc(found, func(a, b *Category) int { return cmp.Compare(a.currency, b.currency) })
		list = append(list, found...)
	}
	g.taxonomy.Walk(func(c *Classification, _ int) { appendNode(c) })
	appendNode(g.unassigned)
	return list
}

// ByClassification returns the category of a classification, or false if no trade belongs to it.
// When grouped by currency use ByClassificationAndCurrency.
func (g *TradesByTaxonomy) ByClassification(c *Classification) (*Category, bool) {
	cat, ok := g.categories[categoryKey{classification: c}]
	return cat, ok
}

// ByClassificationAndCurrency returns the category of a classification for trades in currency.
func (g *TradesByTaxonomy) ByClassificationAndCurrency(c *Classification, currency string) (*Category, bool) {
	cat, ok := g.categories[categoryKey{classification: c, currency: currency}]
	return cat, ok
}

// Unassigned returns the category of the unassigned parts, or false if all trades are fully assigned.
// When grouped by currency it is always false, use UnassignedByCurrency.
func (g *TradesByTaxonomy) Unassigned() (*Category, bool) {
	return g.ByClassification(g.unassigned)
}

// UnassignedByCurrency returns the category of the unassigned parts of trades in currency.
func (g *TradesByTaxonomy) UnassignedByCurrency(currency string) (*Category, bool) {
	return g.ByClassificationAndCurrency(g.unassigned, currency)
}

// UnassignedClassification returns the synthetic classification of unassigned parts.
func (g *TradesByTaxonomy) UnassignedClassification() *Classification { return g.unassigned }

// AsList returns the non empty categories in taxonomy order, the unassigned last.
func (g *TradesByTaxonomy) AsList() []*Category { return slices.Clone(g.list) }

// Trades returns all trades, ordered by key.
func (g *TradesByTaxonomy) Trades() []*Trade { return slices.Clone(g.trades) }

// TotalProfitLoss returns the unweighted P/L of all trades in the term currency.
func (g *TradesByTaxonomy) TotalProfitLoss() (Money, error) {
	term := ""
	if g.converter != nil {
		term = g.converter.TermCurrency()
	}
	total := M(0, term)
	for _, t := range g.trades {
		if term == "" {
			// without term currency, trades must share the currency.
			term = t.Currency()
		}
		v, err := Convert(g.converter, t.ProfitLoss(), term, t.ValuedOn())
		if err != nil {
			return Money{}, fmt.Errorf("total profit and loss: %w", err)
		}
		total = total.Add(v)
	}
	return total, nil
}
