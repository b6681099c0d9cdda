// Package catalog loads the product catalog and answers category/search queries over it.
package catalog

import (
	"sort"
	"strings"
)

// CategoryAll matches every product regardless of category.
const CategoryAll = "all"

// Product represents a single catalog entry
type Product struct {
	ID          int    `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Brand       string `json:"brand" yaml:"brand"`
	Category    string `json:"category" yaml:"category"`
	Description string `json:"description" yaml:"description"`
	Image       string `json:"image" yaml:"image"`
}

// File is the on-disk catalog document.
type File struct {
	Products []Product `json:"products" yaml:"products"`
}

// Criteria narrows a product list. Zero value matches everything.
type Criteria struct {
	Category string
	Search   string
}

// IsEmpty reports whether the criteria would match every product.
func (c Criteria) IsEmpty() bool {
	return matchesAllCategories(c.Category) && strings.TrimSpace(c.Search) == ""
}

// Filter returns the products matching both the category and the search term, in input order.
func Filter(products []Product, c Criteria) []Product {
	term := strings.ToLower(strings.TrimSpace(c.Search))
	allCategories := matchesAllCategories(c.Category)

	out := make([]Product, 0, len(products))
	for _, p := range products {
		if !allCategories && !strings.EqualFold(p.Category, strings.TrimSpace(c.Category)) {
			continue
		}
		if term != "" && !p.matches(term) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// matches expects term to be lower-cased already.
func (p Product) matches(term string) bool {
	for _, field := range []string{p.Name, p.Brand, p.Category, p.Description} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// Categories returns the distinct, sorted categories present in products.
func Categories(products []Product) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out
}

// Find looks a product up by id.
func Find(products []Product, id int) (Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

func matchesAllCategories(category string) bool {
	category = strings.TrimSpace(category)
	return category == "" || strings.EqualFold(category, CategoryAll)
}
