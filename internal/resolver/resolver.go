// Package resolver maps item codes to suppliers and categories.
package resolver

import (
	"sort"
	"strings"

	"github.com/feichai0017/invoice-aggregator/internal/models"
)

// PrefixRule assigns a supplier, and optionally a category, to every code starting with Prefix.
type PrefixRule struct {
	Prefix   string
	Supplier string
	Category string
}

// Resolution is the supplier and category of one item code.
type Resolution struct {
	Supplier string
	Category string
}

// Resolver looks up suppliers and categories. It is immutable after construction.
type Resolver struct {
	rules      []PrefixRule
	categories map[string]string
}

// New builds a resolver. Rules are ordered by descending prefix length, keeping the
// table order for equal lengths; categories, when non-nil, override rule categories
// for the exact codes they list.
func New(rules []PrefixRule, categories map[string]string) *Resolver {
	sorted := make([]PrefixRule, 0, len(rules))
	for _, r := range rules {
		r.Prefix = strings.TrimSpace(r.Prefix)
		if r.Prefix == "" {
			continue
		}
		r.Supplier = strings.TrimSpace(r.Supplier)
		r.Category = strings.TrimSpace(r.Category)
		sorted = append(sorted, r)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})

	cats := make(map[string]string, len(categories))
	for code, cat := range categories {
		code, cat = strings.TrimSpace(code), strings.TrimSpace(cat)
		if code != "" && cat != "" {
			cats[code] = cat
		}
	}
	return &Resolver{rules: sorted, categories: cats}
}

// Resolve returns the supplier and category for code.
func (r *Resolver) Resolve(code string) Resolution {
	res := Resolution{
		Supplier: models.UnknownSupplier,
		Category: models.UnknownCategory,
	}
	for _, rule := range r.rules {
		if strings.HasPrefix(code, rule.Prefix) {
			if rule.Supplier != "" {
				res.Supplier = rule.Supplier
			}
			if rule.Category != "" {
				res.Category = rule.Category
			}
			break
		}
	}
	if cat, ok := r.categories[code]; ok {
		res.Category = cat
	}
	return res
}

// Rules returns the ordered prefix rules.
func (r *Resolver) Rules() []PrefixRule {
	out := make([]PrefixRule, len(r.rules))
	copy(out, r.rules)
	return out
}
