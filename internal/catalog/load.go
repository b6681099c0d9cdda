package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/xuri/excelize/v2"

	"RoutineBuilder/internal/errs"
)

// Load reads a catalog file. The format is picked from the extension: .json, .yaml/.yml or .xlsx.
func Load(path string) ([]Product, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return loadJSON(path)
	case ".yaml", ".yml":
		return loadYAML(path)
	case ".xlsx":
		return loadXLSX(path)
	default:
		return nil, errs.NewValidationError("path", path, fmt.Sprintf("unsupported catalog format %q", ext))
	}
}

func loadJSON(path string) ([]Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog: %w", err)
	}
	return file.Products, nil
}

func loadYAML(path string) ([]Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog: %w", err)
	}
	return file.Products, nil
}

// loadXLSX reads the first sheet. The header row names the columns in any order.
func loadXLSX(path string) ([]Product, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	columns := make(map[string]int)
	for i, h := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := columns["id"]; !ok {
		return nil, errs.NewValidationError("id", nil, "workbook header has no id column")
	}

	cell := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	products := make([]Product, 0, len(rows)-1)
	for n, row := range rows[1:] {
		rawID := cell(row, "id")
		if rawID == "" {
			continue
		}
		id, err := strconv.Atoi(rawID)
		if err != nil {
			return nil, errs.NewValidationError("id", rawID, fmt.Sprintf("row %d: id is not a number", n+2))
		}
		products = append(products, Product{
			ID:          id,
			Name:        cell(row, "name"),
			Brand:       cell(row, "brand"),
			Category:    cell(row, "category"),
			Description: cell(row, "description"),
			Image:       cell(row, "image"),
		})
	}
	return products, nil
}
