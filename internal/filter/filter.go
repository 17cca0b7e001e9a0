// Package filter narrows a catalog down to the models matching a set of criteria.
package filter

import (
	"cmp"
	"slices"
	"strings"

	"github.com/kimeltech/mcp-chat/internal/catalog"
	"github.com/shopspring/decimal"
)

// RecentLimit is how many models the recency criterion keeps
const RecentLimit = 50

// missingPromptPrice is the per-token price assumed when a record has none
var missingPromptPrice = decimal.NewFromInt(999)

// Criteria is a conjunction of optional predicates. The zero value matches everything.
type Criteria struct {
	Tools     bool
	Vision    bool
	Reasoning bool

	// MaxPrice is the highest acceptable prompt price in USD per million tokens
	MaxPrice *float64
	// MinContext is the smallest acceptable context window in tokens
	MinContext *int
	// Providers keeps models whose ID contains any of these names, ignoring case
	Providers []string
	// RecentDays, when positive, orders by creation time and keeps the newest RecentLimit.
	// The catalog rarely carries dates, so the day count itself is not used as a cutoff.
	RecentDays *int
	// Search keeps models whose ID or name contains this term, ignoring case
	Search string
}

// IsZero reports whether no criterion is set
func (c Criteria) IsZero() bool {
	return !c.Tools && !c.Vision && !c.Reasoning &&
		c.MaxPrice == nil && c.MinContext == nil &&
		len(c.Providers) == 0 && !c.recencyActive() && c.Search == ""
}

func (c Criteria) recencyActive() bool {
	return c.RecentDays != nil && *c.RecentDays > 0
}

// Apply returns the models matching c. Relative order is kept unless the recency
// criterion is set. With no criteria the input slice itself is returned.
func Apply(models []catalog.Model, c Criteria) []catalog.Model {
	if c.IsZero() {
		return models
	}

	filtered := models

	if c.Tools {
		filtered = keep(filtered, catalog.Model.SupportsTools)
	}

	if c.Vision {
		filtered = keep(filtered, catalog.Model.SupportsVision)
	}

	if c.Reasoning {
		filtered = keep(filtered, catalog.Model.IsReasoning)
	}

	if c.MaxPrice != nil {
		limit := decimal.NewFromFloat(*c.MaxPrice)
		filtered = keep(filtered, func(m catalog.Model) bool {
			price, ok := m.PromptPrice()
			if !ok {
				price = missingPromptPrice
			}
			return price.Mul(catalog.TokensPerMillion).LessThanOrEqual(limit)
		})
	}

	if c.MinContext != nil {
		minContext := *c.MinContext
		filtered = keep(filtered, func(m catalog.Model) bool {
			return m.ContextLength >= minContext
		})
	}

	if len(c.Providers) > 0 {
		providers := make([]string, 0, len(c.Providers))
		for _, p := range c.Providers {
			providers = append(providers, strings.ToLower(p))
		}
		filtered = keep(filtered, func(m catalog.Model) bool {
			id := strings.ToLower(m.ID)
			return slices.ContainsFunc(providers, func(p string) bool {
				return strings.Contains(id, p)
			})
		})
	}

	if c.recencyActive() {
		filtered = newest(filtered, RecentLimit)
	}

	if c.Search != "" {
		term := strings.ToLower(c.Search)
		filtered = keep(filtered, func(m catalog.Model) bool {
			return strings.Contains(strings.ToLower(m.ID), term) ||
				strings.Contains(strings.ToLower(m.Name), term)
		})
	}

	return filtered
}

// keep returns a new slice holding the models for which pred is true
func keep(models []catalog.Model, pred func(catalog.Model) bool) []catalog.Model {
	out := make([]catalog.Model, 0, len(models))
	for _, m := range models {
		if pred(m) {
			out = append(out, m)
		}
	}
	return out
}

// newest sorts by creation time, newest first, and keeps at most limit models.
// Records without a timestamp count as zero and sink to the end.
func newest(models []catalog.Model, limit int) []catalog.Model {
	sorted := slices.Clone(models)
	slices.SortStableFunc(sorted, func(a, b catalog.Model) int {
		return cmp.Compare(max(b.Created, 0), max(a.Created, 0))
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
