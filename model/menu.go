package model

import (
	"errors"
	"math"
	"time"
)

type Category string

const (
	CategoryStarter Category = "Starter"
	CategoryMain    Category = "Main"
	CategoryDrinks  Category = "Drinks"
	CategoryDessert Category = "Dessert"
)

var Categories = []Category{CategoryStarter, CategoryMain, CategoryDrinks, CategoryDessert}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// DefaultCustomizationOptions is applied when a new item does not list its own.
var DefaultCustomizationOptions = StringList{"extra cheese", "no onion", "extra spice"}

type MenuItem struct {
	ID                   string     `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	Name                 string     `json:"name" bson:"name" gorm:"not null"`
	Price                float64    `json:"price" bson:"price" gorm:"not null"`
	Category             Category   `json:"category" bson:"category" gorm:"type:varchar(32);index;not null"`
	Available            bool       `json:"available" bson:"available" gorm:"index;not null"`
	ImageURL             string     `json:"imageUrl" bson:"imageUrl"`
	IsVeg                bool       `json:"isVeg" bson:"isVeg" gorm:"not null"`
	Stock                int        `json:"stock" bson:"stock"`
	Popularity           int        `json:"popularity" bson:"popularity"`
	Tags                 StringList `json:"tags" bson:"tags" gorm:"type:jsonb;serializer:json"`
	DiscountLabel        string     `json:"discountLabel" bson:"discountLabel"`
	CustomizationOptions StringList `json:"customizationOptions" bson:"customizationOptions" gorm:"type:jsonb;serializer:json"`
	CreatedAt            time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt" bson:"updatedAt"`
}

var (
	errMenuName       = errors.New("name is required")
	errMenuPrice      = errors.New("price must not be negative")
	errMenuPriceValue = errors.New("price must be a finite number")
	errMenuCategory   = errors.New("category must be one of Starter, Main, Drinks, Dessert")
	errMenuStock      = errors.New("stock must not be negative")
	errMenuPopularity = errors.New("popularity must not be negative")
)

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (m *MenuItem) Validate() error {
	switch {
	case m.Name == "":
		return errMenuName
	case !finite(m.Price):
		return errMenuPriceValue
	case m.Price < 0:
		return errMenuPrice
	case !m.Category.Valid():
		return errMenuCategory
	case m.Stock < 0:
		return errMenuStock
	case m.Popularity < 0:
		return errMenuPopularity
	}
	return nil
}

// MenuItemUpdate carries a partial update; nil fields are left untouched.
type MenuItemUpdate struct {
	Name                 *string     `json:"name"`
	Price                *float64    `json:"price"`
	Category             *Category   `json:"category"`
	Available            *bool       `json:"available"`
	ImageURL             *string     `json:"imageUrl"`
	IsVeg                *bool       `json:"isVeg"`
	Stock                *int        `json:"stock"`
	Popularity           *int        `json:"popularity"`
	Tags                 *StringList `json:"tags"`
	DiscountLabel        *string     `json:"discountLabel"`
	CustomizationOptions *StringList `json:"customizationOptions"`
}

func (u MenuItemUpdate) Apply(m *MenuItem) {
	if u.Name != nil {
		m.Name = *u.Name
	}
	if u.Price != nil {
		m.Price = *u.Price
	}
	if u.Category != nil {
		m.Category = *u.Category
	}
	if u.Available != nil {
		m.Available = *u.Available
	}
	if u.ImageURL != nil {
		m.ImageURL = *u.ImageURL
	}
	if u.IsVeg != nil {
		m.IsVeg = *u.IsVeg
	}
	if u.Stock != nil {
		m.Stock = *u.Stock
	}
	if u.Popularity != nil {
		m.Popularity = *u.Popularity
	}
	if u.Tags != nil {
		m.Tags = *u.Tags
	}
	if u.DiscountLabel != nil {
		m.DiscountLabel = *u.DiscountLabel
	}
	if u.CustomizationOptions != nil {
		m.CustomizationOptions = *u.CustomizationOptions
	}
}

// Validate checks only the fields the update sets.
func (u MenuItemUpdate) Validate() error {
	switch {
	case u.Name != nil && *u.Name == "":
		return errMenuName
	case u.Price != nil && !finite(*u.Price):
		return errMenuPriceValue
	case u.Price != nil && *u.Price < 0:
		return errMenuPrice
	case u.Category != nil && !u.Category.Valid():
		return errMenuCategory
	case u.Stock != nil && *u.Stock < 0:
		return errMenuStock
	case u.Popularity != nil && *u.Popularity < 0:
		return errMenuPopularity
	}
	return nil
}
