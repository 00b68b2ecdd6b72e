package stuwe

import (
	"encoding/json"
	"time"
)

// MealVariation is an alternative preparation of a dish, e.g. a vegan
// version of the same base meal. An empty AllergensAndAdd means the
// source listed none.
type MealVariation struct {
	Name            string `json:"name"`
	AllergensAndAdd string `json:"allergens_and_add,omitempty"`
}

type SingleMeal struct {
	Name                  string          `json:"name"`
	AdditionalIngredients []string        `json:"additional_ingredients"`
	Allergens             string          `json:"allergens,omitempty"`
	Variations            []MealVariation `json:"variations,omitempty"`
	Price                 string          `json:"price"`
}

// Equal is full structural equality, any field change makes two meals
// unequal. This is the identity used for scrape-time deduplication and
// for the "unchanged" classification when diffing.
func (m SingleMeal) Equal(other SingleMeal) bool {
	if m.Name != other.Name || m.Allergens != other.Allergens || m.Price != other.Price {
		return false
	}
	if len(m.AdditionalIngredients) != len(other.AdditionalIngredients) {
		return false
	}
	for i := range m.AdditionalIngredients {
		if m.AdditionalIngredients[i] != other.AdditionalIngredients[i] {
			return false
		}
	}
	if len(m.Variations) != len(other.Variations) {
		return false
	}
	for i := range m.Variations {
		if m.Variations[i] != other.Variations[i] {
			return false
		}
	}
	return true
}

// MealGroup clusters the meals of one category ("Hauptgericht",
// "Beilage", ...). A day's menu has at most one group per category.
type MealGroup struct {
	MealType string       `json:"meal_type"`
	SubMeals []SingleMeal `json:"sub_meals"`
}

// ContainsMeal reports whether a structurally equal meal is already in
// the group.
func (g MealGroup) ContainsMeal(meal SingleMeal) bool {
	for _, m := range g.SubMeals {
		if m.Equal(meal) {
			return true
		}
	}
	return false
}

// CanteenDayMenu is the unit that gets cached and diffed: everything one
// canteen serves on one calendar date.
type CanteenDayMenu struct {
	CanteenID  int64       `json:"canteen_id"`
	MealGroups []MealGroup `json:"meal_groups"`
}

// MarshalGroups produces the canonical serialization of a day's meal
// groups used as the cache value. encoding/json writes struct fields in
// declaration order, so equal values serialize to equal bytes and byte
// comparison detects "no change".
func MarshalGroups(groups []MealGroup) ([]byte, error) {
	if groups == nil {
		groups = []MealGroup{}
	}
	return json.Marshal(groups)
}

func UnmarshalGroups(data []byte) ([]MealGroup, error) {
	var groups []MealGroup
	err := json.Unmarshal(data, &groups)
	if err != nil {
		return nil, err
	}
	return groups, nil
}

const dateLayout = "2006-01-02"

// BuildDateString formats a date the way the menu site's `date` query
// parameter and the cache keys expect it.
func BuildDateString(t time.Time) string {
	return t.Format(dateLayout)
}
