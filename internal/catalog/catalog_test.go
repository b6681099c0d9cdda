package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"RoutineBuilder/internal/errs"
)

func sampleProducts() []Product {
	return []Product{
		{ID: 1, Name: "Hydrating Facial Cleanser", Brand: "CeraVe", Category: "cleanser", Description: "Gentle cleanser with ceramides"},
		{ID: 2, Name: "Revitalift Serum", Brand: "L'Oréal Paris", Category: "skincare", Description: "Pure hyaluronic acid serum"},
		{ID: 3, Name: "Elvive Shampoo", Brand: "L'Oréal Paris", Category: "haircare", Description: "Repairing shampoo for damaged hair"},
		{ID: 4, Name: "Foaming Cleanser", Brand: "La Roche-Posay", Category: "cleanser", Description: "Purifying foaming gel"},
		{ID: 5, Name: "Moisturizing Cream", Brand: "CeraVe", Category: "moisturizer", Description: "Cream with hyaluronic acid"},
	}
}

func ids(products []Product) []int {
	out := make([]int, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	products := sampleProducts()

	tests := []struct {
		name     string
		criteria Criteria
		want     []int
	}{
		{name: "empty criteria", criteria: Criteria{}, want: []int{1, 2, 3, 4, 5}},
		{name: "all category", criteria: Criteria{Category: "All"}, want: []int{1, 2, 3, 4, 5}},
		{name: "category only", criteria: Criteria{Category: "cleanser"}, want: []int{1, 4}},
		{name: "category case insensitive", criteria: Criteria{Category: "CLEANSER"}, want: []int{1, 4}},
		{name: "search by name", criteria: Criteria{Search: "serum"}, want: []int{2}},
		{name: "search by brand", criteria: Criteria{Search: "cerave"}, want: []int{1, 5}},
		{name: "search by description", criteria: Criteria{Search: "hyaluronic"}, want: []int{2, 5}},
		{name: "search trimmed", criteria: Criteria{Search: "  shampoo "}, want: []int{3}},
		{name: "intersection", criteria: Criteria{Category: "cleanser", Search: "cerave"}, want: []int{1}},
		{name: "empty intersection", criteria: Criteria{Category: "haircare", Search: "cerave"}, want: []int{}},
		{name: "unknown category", criteria: Criteria{Category: "fragrance"}, want: []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(products, tt.criteria)))
		})
	}
}

func TestFilterIsIntersection(t *testing.T) {
	products := sampleProducts()
	for _, category := range []string{"cleanser", "skincare", "moisturizer"} {
		for _, term := range []string{"cerave", "acid", "l'oréal", "gel"} {
			byCategory := Filter(products, Criteria{Category: category})
			both := Filter(byCategory, Criteria{Search: term})
			assert.Equal(t, ids(both), ids(Filter(products, Criteria{Category: category, Search: term})), "%s/%s", category, term)
		}
	}
}

func TestCriteriaIsEmpty(t *testing.T) {
	assert.True(t, Criteria{}.IsEmpty())
	assert.True(t, Criteria{Category: "all", Search: "  "}.IsEmpty())
	assert.False(t, Criteria{Category: "cleanser"}.IsEmpty())
	assert.False(t, Criteria{Search: "x"}.IsEmpty())
}

func TestCategories(t *testing.T) {
	got := Categories(append(sampleProducts(), Product{ID: 9}))
	assert.Equal(t, []string{"cleanser", "haircare", "moisturizer", "skincare"}, got)
}

func TestFind(t *testing.T) {
	p, ok := Find(sampleProducts(), 3)
	require.True(t, ok)
	assert.Equal(t, "Elvive Shampoo", p.Name)

	_, ok = Find(sampleProducts(), 99)
	assert.False(t, ok)
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	doc := `{"products":[{"id":1,"brand":"CeraVe","name":"Cleanser","category":"cleanser","image":"https://img/1.jpg","description":"gentle"}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	products, err := Load(path)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, Product{ID: 1, Name: "Cleanser", Brand: "CeraVe", Category: "cleanser", Description: "gentle", Image: "https://img/1.jpg"}, products[0])
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.yaml")
	doc := "products:\n  - id: 7\n    name: Mascara\n    brand: Maybelline\n    category: makeup\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	products, err := Load(path)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 7, products[0].ID)
	assert.Equal(t, "Maybelline", products[0].Brand)
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Name", "ID", "Brand", "Category"},
		{"Cleanser", 1, "CeraVe", "cleanser"},
		{"", "", "", ""},
		{"Shampoo", 2, "Elvive", "haircare"},
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellName, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	products, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ids(products))
	assert.Equal(t, "Elvive", products[1].Brand)
	assert.Empty(t, products[1].Image)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("products.csv")
	assert.True(t, errs.IsValidation(err))

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestCatalogReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"products":[{"id":1,"category":"cleanser"},{"id":2,"category":"haircare"}]}`), 0o644))

	c := New(path, nil)
	assert.Empty(t, c.Products())
	require.NoError(t, c.Reload())
	assert.Len(t, c.Products(), 2)
	assert.Equal(t, []string{"cleanser", "haircare"}, c.Categories())
	assert.Equal(t, []int{2}, ids(c.Filter(Criteria{Category: "haircare"})))

	_, ok := c.Find(1)
	assert.True(t, ok)

	// a broken file keeps the previous list
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o644))
	assert.Error(t, c.Reload())
	assert.Len(t, c.Products(), 2)
}
