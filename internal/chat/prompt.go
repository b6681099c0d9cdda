package chat

import (
	"encoding/json"
	"fmt"

	"RoutineBuilder/internal/catalog"
	"RoutineBuilder/internal/selection"
)

// routineProduct is what the model sees about each selected product.
type routineProduct struct {
	Name        string `json:"name"`
	Brand       string `json:"brand"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
}

// RoutinePrompt builds the user message asking for a routine over the selected items.
// Category and description come from the catalog when the item is still listed there.
func RoutinePrompt(items []selection.Item, products []catalog.Product) (string, error) {
	list := make([]routineProduct, 0, len(items))
	for _, it := range items {
		rp := routineProduct{Name: it.Name, Brand: it.Brand}
		if p, ok := catalog.Find(products, it.ID); ok {
			rp.Category = p.Category
			rp.Description = p.Description
		}
		list = append(list, rp)
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal selected products: %w", err)
	}

	return fmt.Sprintf("Here are the products I selected:\n%s\n\nPlease create a personalized routine using these products.", data), nil
}
