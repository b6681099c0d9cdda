// Package selection tracks the products picked for a routine and mirrors them into the
// key-value store.
package selection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"RoutineBuilder/internal/catalog"
	"RoutineBuilder/internal/errs"
	"RoutineBuilder/internal/storage"
)

// StorageKey is the key the selection list is stored under.
const StorageKey = "selectedProducts"

// Item is the subset of a product kept in the selection.
type Item struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Brand string `json:"brand"`
	Image string `json:"image"`
}

// FromProduct trims a product down to a selection item.
func FromProduct(p catalog.Product) Item {
	return Item{ID: p.ID, Name: p.Name, Brand: p.Brand, Image: p.Image}
}

// Selection is an ordered list of items with unique ids.
type Selection struct {
	store  storage.KV
	logger *slog.Logger
	mu     sync.Mutex
	items  []Item
}

// New creates an empty selection backed by store.
func New(store storage.KV, logger *slog.Logger) *Selection {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selection{store: store, logger: logger, items: []Item{}}
}

// Load restores the list from the store. A missing or unreadable value leaves the selection empty.
func (s *Selection) Load(ctx context.Context) error {
	raw, ok, err := s.store.Get(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("failed to load selection: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = []Item{}
	if !ok {
		return nil
	}
	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.Warn("discarding unreadable selection", "error", err)
		return nil
	}
	s.items = dedupe(items)
	s.logger.Info("selection restored", "count", len(s.items))
	return nil
}

// Items returns a copy of the current list.
func (s *Selection) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of selected items.
func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Contains reports whether id is selected.
func (s *Selection) Contains(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(id) >= 0
}

// Toggle removes p if selected, otherwise appends it. It returns whether p is selected afterwards.
func (s *Selection) Toggle(ctx context.Context, p catalog.Product) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(p.ID); i >= 0 {
		s.items = append(s.items[:i:i], s.items[i+1:]...)
		return false, s.persist(ctx)
	}
	s.items = append(s.items, FromProduct(p))
	return true, s.persist(ctx)
}

// ToggleID toggles a product by id. Ids that are not selected must exist in cat.
func (s *Selection) ToggleID(ctx context.Context, cat *catalog.Catalog, id int) (bool, error) {
	if s.Contains(id) {
		return false, s.Remove(ctx, id)
	}
	p, ok := cat.Find(id)
	if !ok {
		return false, errs.NewNotFoundError("product", strconv.Itoa(id))
	}
	return s.Toggle(ctx, p)
}

// Remove drops id from the selection.
func (s *Selection) Remove(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return errs.NewNotFoundError("selected product", strconv.Itoa(id))
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	return s.persist(ctx)
}

// Clear empties the selection.
func (s *Selection) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = []Item{}
	return s.persist(ctx)
}

// persist requires s.mu to be held.
func (s *Selection) persist(ctx context.Context) error {
	data, err := json.Marshal(s.items)
	if err != nil {
		return fmt.Errorf("failed to marshal selection: %w", err)
	}
	if err := s.store.Set(ctx, StorageKey, string(data)); err != nil {
		return fmt.Errorf("failed to save selection: %w", err)
	}
	s.logger.Debug("selection saved", "count", len(s.items))
	return nil
}

func (s *Selection) indexOf(id int) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func dedupe(items []Item) []Item {
	seen := make(map[int]struct{}, len(items))
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}
