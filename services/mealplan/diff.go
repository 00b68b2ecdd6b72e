package mealplan

import (
	"fmt"

	"mensahub-backend/lib/scrapers/stuwe"
)

// CanteenMealDiff classifies every dish that changed between two
// versions of the same canteen's day menu. Each list is nil when empty
// so subscribers only see the categories that actually apply.
type CanteenMealDiff struct {
	CanteenID     int64             `json:"canteen_id"`
	NewMeals      []stuwe.MealGroup `json:"new_meals,omitempty"`
	ModifiedMeals []stuwe.MealGroup `json:"modified_meals,omitempty"`
	RemovedMeals  []stuwe.MealGroup `json:"removed_meals,omitempty"`
}

func (d CanteenMealDiff) HasChanges() bool {
	return d.NewMeals != nil || d.ModifiedMeals != nil || d.RemovedMeals != nil
}

// DiffDayMenus compares a freshly scraped day menu against the
// previously cached one. Pure and deterministic.
//
// A nil old menu yields an empty diff: with no baseline nothing is
// reported as changed, which keeps the first-ever scrape of a canteen
// from flooding subscribers.
//
// Classification identity is the meal name within the same meal type:
// a name match with any other field differing is always "modified",
// never "removed + new". Full structural equality means "unchanged".
func DiffDayMenus(old *stuwe.CanteenDayMenu, current stuwe.CanteenDayMenu) CanteenMealDiff {
	diff := CanteenMealDiff{CanteenID: current.CanteenID}
	if old == nil {
		return diff
	}
	if old.CanteenID != current.CanteenID {
		panic(fmt.Sprintf(
			"diffing menus of different canteens: %d != %d",
			old.CanteenID, current.CanteenID,
		))
	}

	oldByType := make(map[string]stuwe.MealGroup, len(old.MealGroups))
	for _, group := range old.MealGroups {
		oldByType[group.MealType] = group
	}

	for _, group := range current.MealGroups {
		oldGroup, ok := oldByType[group.MealType]
		if !ok {
			// a whole new category, every dish in it is new
			diff.NewMeals = append(diff.NewMeals, group)
			continue
		}

		var added, modified []stuwe.SingleMeal
		for _, meal := range group.SubMeals {
			if oldGroup.ContainsMeal(meal) {
				continue
			}
			if containsName(oldGroup.SubMeals, meal.Name) {
				modified = append(modified, meal)
			} else {
				added = append(added, meal)
			}
		}
		if len(added) > 0 {
			diff.NewMeals = append(diff.NewMeals, stuwe.MealGroup{
				MealType: group.MealType,
				SubMeals: added,
			})
		}
		if len(modified) > 0 {
			diff.ModifiedMeals = append(diff.ModifiedMeals, stuwe.MealGroup{
				MealType: group.MealType,
				SubMeals: modified,
			})
		}

		var removed []stuwe.SingleMeal
		for _, oldMeal := range oldGroup.SubMeals {
			if !containsName(group.SubMeals, oldMeal.Name) {
				removed = append(removed, oldMeal)
			}
		}
		if len(removed) > 0 {
			diff.RemovedMeals = append(diff.RemovedMeals, stuwe.MealGroup{
				MealType: group.MealType,
				SubMeals: removed,
			})
		}
	}

	for _, oldGroup := range old.MealGroups {
		if !containsType(current.MealGroups, oldGroup.MealType) {
			diff.RemovedMeals = append(diff.RemovedMeals, oldGroup)
		}
	}

	return diff
}

func containsName(meals []stuwe.SingleMeal, name string) bool {
	for _, m := range meals {
		if m.Name == name {
			return true
		}
	}
	return false
}

func containsType(groups []stuwe.MealGroup, mealType string) bool {
	for _, g := range groups {
		if g.MealType == mealType {
			return true
		}
	}
	return false
}
