package service

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Quantity decodes leniently: numbers and numeric strings are accepted,
// fractions are truncated and anything missing, invalid or below one
// becomes one.
type Quantity int

func (q *Quantity) UnmarshalJSON(data []byte) error {
	*q = 1

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*q = clampQuantity(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*q = clampQuantity(n)
		}
	}
	return nil
}

func clampQuantity(n float64) Quantity {
	if math.IsNaN(n) || n < 1 {
		return 1
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return Quantity(n)
}

func (q Quantity) Int() int {
	if q < 1 {
		return 1
	}
	return int(q)
}

type LineRequest struct {
	MenuItemID     string   `json:"menuItemId"`
	Quantity       Quantity `json:"quantity"`
	Customizations string   `json:"customizations"`
}

// UnmarshalJSON drops customizations that are not strings instead of failing
// the whole order.
func (l *LineRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		MenuItemID     json.RawMessage `json:"menuItemId"`
		Quantity       Quantity        `json:"quantity"`
		Customizations json.RawMessage `json:"customizations"`
	}
	raw.Quantity = 1
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	l.Quantity = raw.Quantity
	l.MenuItemID = rawString(raw.MenuItemID)
	l.Customizations = rawString(raw.Customizations)
	return nil
}

func rawString(data json.RawMessage) string {
	var s string
	if len(data) > 0 && json.Unmarshal(data, &s) == nil {
		return s
	}
	return ""
}

type PlaceOrderRequest struct {
	Items []LineRequest `json:"items"`
	Notes string        `json:"notes"`
}

type FeedbackRequest struct {
	OrderID       string `json:"orderId"`
	FoodRating    int    `json:"foodRating"`
	ServiceRating int    `json:"serviceRating"`
	Suggestions   string `json:"suggestions"`
}
