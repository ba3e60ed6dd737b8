package game

import (
	"strings"

	"github.com/google/uuid"
)

// IngredientType is one of the four preparable ingredient kinds.
type IngredientType string

const (
	IngredientBase      IngredientType = "base"
	IngredientSauce     IngredientType = "sauce"
	IngredientHam       IngredientType = "ham"
	IngredientPineapple IngredientType = "pineapple"
)

// ParseIngredientType validates a wire-level ingredient type string.
func ParseIngredientType(s string) (IngredientType, error) {
	switch t := IngredientType(strings.ToLower(s)); t {
	case IngredientBase, IngredientSauce, IngredientHam, IngredientPineapple:
		return t, nil
	default:
		return "", ErrInvalidIngredientType
	}
}

// Ingredient is a prepared-but-unclaimed token in a room's shared pool.
type Ingredient struct {
	ID         string         `json:"id"`
	Type       IngredientType `json:"type"`
	PreparedBy string         `json:"prepared_by,omitempty"`
}

// Counts is an ingredient-count vector. Order matching and build validation
// both compare these by plain equality.
type Counts struct {
	Base      int `json:"base"`
	Sauce     int `json:"sauce"`
	Ham       int `json:"ham"`
	Pineapple int `json:"pineapple"`
}

// Add increments the count for one ingredient type.
func (c *Counts) Add(t IngredientType) {
	switch t {
	case IngredientBase:
		c.Base++
	case IngredientSauce:
		c.Sauce++
	case IngredientHam:
		c.Ham++
	case IngredientPineapple:
		c.Pineapple++
	}
}

// CountIngredients folds a list of tokens into a count vector.
func CountIngredients(ings []Ingredient) Counts {
	var c Counts
	for _, ing := range ings {
		c.Add(ing.Type)
	}
	return c
}

// newID returns the short entity id format used for ingredients, pizzas and
// orders.
func newID() string {
	return uuid.New().String()[:8]
}
