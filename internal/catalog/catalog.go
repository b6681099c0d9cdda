package catalog

import (
	"log/slog"
	"sync"
)

// Catalog holds the last-loaded product list.
type Catalog struct {
	path     string
	logger   *slog.Logger
	mu       sync.RWMutex
	products []Product
}

// New creates a Catalog reading from path. Nothing is loaded until Reload.
func New(path string, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{path: path, logger: logger}
}

// NewFromProducts creates a Catalog over an in-memory list.
func NewFromProducts(products []Product) *Catalog {
	return &Catalog{logger: slog.Default(), products: products}
}

// Reload re-reads the catalog file. On failure the previous list is kept.
func (c *Catalog) Reload() error {
	products, err := Load(c.path)
	if err != nil {
		c.logger.Error("failed to load catalog", "path", c.path, "error", err)
		return err
	}

	c.mu.Lock()
	c.products = products
	c.mu.Unlock()

	c.logger.Info("catalog loaded", "path", c.path, "products", len(products))
	return nil
}

// Products returns a copy of the current list.
func (c *Catalog) Products() []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Filter applies Criteria to the current list.
func (c *Catalog) Filter(criteria Criteria) []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Filter(c.products, criteria)
}

// Categories lists the categories of the current list.
func (c *Catalog) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Categories(c.products)
}

// Find looks a product up by id in the current list.
func (c *Catalog) Find(id int) (Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Find(c.products, id)
}
