package excel

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"qrmenu/model"
)

var (
	ErrUnreadable = errors.New("failed to parse Excel file")
	ErrNoRows     = errors.New("excel file must have at least one data row")
)

// Column order of the menu import sheet. The first row is a header.
const (
	colName = iota
	colPrice
	colCategory
	colAvailable
	colIsVeg
	colStock
	colTags
	colDiscountLabel
	colCustomizationOptions
	colImageURL
	colPopularity
)

type SkippedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type MenuImport struct {
	Items   []model.MenuItem
	Skipped []SkippedRow
}

// ParseMenu reads menu items from the first sheet of the workbook in r. Rows
// that fail validation are reported in Skipped with their sheet row number.
func ParseMenu(r io.Reader) (*MenuImport, error) {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer xl.Close()

	sheets := xl.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoRows
	}
	rows, err := xl.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if len(rows) < 2 {
		return nil, ErrNoRows
	}

	result := &MenuImport{Items: []model.MenuItem{}, Skipped: []SkippedRow{}}
	for i, row := range rows[1:] {
		rowNumber := i + 2
		if blank(row) {
			continue
		}
		item, err := parseRow(row)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedRow{Row: rowNumber, Reason: err.Error()})
			continue
		}
		result.Items = append(result.Items, item)
	}
	return result, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, col int) string {
	if col < len(row) {
		return strings.TrimSpace(row[col])
	}
	return ""
}

func parseRow(row []string) (model.MenuItem, error) {
	item := model.MenuItem{
		Name:          cell(row, colName),
		Category:      normalizeCategory(cell(row, colCategory)),
		Tags:          model.ParseStringList(cell(row, colTags)),
		DiscountLabel: cell(row, colDiscountLabel),
		ImageURL:      cell(row, colImageURL),
	}

	priceText := cell(row, colPrice)
	if priceText == "" {
		return item, errors.New("price is required")
	}
	price, err := strconv.ParseFloat(priceText, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return item, fmt.Errorf("invalid price %q", priceText)
	}
	item.Price = price

	if item.Available, err = parseBool(cell(row, colAvailable), true); err != nil {
		return item, fmt.Errorf("invalid available: %w", err)
	}
	if item.IsVeg, err = parseBool(cell(row, colIsVeg), true); err != nil {
		return item, fmt.Errorf("invalid isVeg: %w", err)
	}

	if item.Stock, err = parseCount(cell(row, colStock)); err != nil {
		return item, fmt.Errorf("invalid stock: %w", err)
	}
	if item.Popularity, err = parseCount(cell(row, colPopularity)); err != nil {
		return item, fmt.Errorf("invalid popularity: %w", err)
	}

	item.CustomizationOptions = model.ParseStringList(cell(row, colCustomizationOptions))
	if len(item.CustomizationOptions) == 0 {
		item.CustomizationOptions = append(model.StringList{}, model.DefaultCustomizationOptions...)
	}

	return item, item.Validate()
}

// parseCount reads a whole number cell, truncating decimals. Blank is zero.
func parseCount(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%q is not a number", text)
	}
	return int(f), nil
}

// normalizeCategory matches the category case-insensitively so "drinks" and
// "DRINKS" both import.
func normalizeCategory(s string) model.Category {
	for _, c := range model.Categories {
		if strings.EqualFold(string(c), s) {
			return c
		}
	}
	return model.Category(s)
}

func parseBool(s string, fallback bool) (bool, error) {
	switch strings.ToLower(s) {
	case "":
		return fallback, nil
	case "true", "yes", "y", "1":
		return true, nil
	case "false", "no", "n", "0":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a boolean", s)
}
