package mealplan

import (
	"testing"

	"mensahub-backend/lib/scrapers/stuwe"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func meal(name, price string) stuwe.SingleMeal {
	return stuwe.SingleMeal{
		Name:                  name,
		AdditionalIngredients: []string{},
		Price:                 price,
	}
}

func menu(canteenID int64, groups ...stuwe.MealGroup) stuwe.CanteenDayMenu {
	return stuwe.CanteenDayMenu{CanteenID: canteenID, MealGroups: groups}
}

func TestDiffDayMenusNoBaseline(t *testing.T) {
	current := menu(106, stuwe.MealGroup{
		MealType: "Hauptgericht",
		SubMeals: []stuwe.SingleMeal{meal("Eintopf", "3,00 €")},
	})

	diff := DiffDayMenus(nil, current)
	require.Equal(t, int64(106), diff.CanteenID)
	require.False(t, diff.HasChanges())
}

func TestDiffDayMenusUnchanged(t *testing.T) {
	old := menu(106, stuwe.MealGroup{
		MealType: "Hauptgericht",
		SubMeals: []stuwe.SingleMeal{meal("Eintopf", "3,00 €")},
	})
	current := menu(106, stuwe.MealGroup{
		MealType: "Hauptgericht",
		SubMeals: []stuwe.SingleMeal{meal("Eintopf", "3,00 €")},
	})

	diff := DiffDayMenus(&old, current)
	require.False(t, diff.HasChanges())
}

func TestDiffDayMenusPriceChangeIsModifiedOnly(t *testing.T) {
	old := menu(106, stuwe.MealGroup{
		MealType: "Hauptgericht",
		SubMeals: []stuwe.SingleMeal{meal("Eintopf", "3,00 €")},
	})
	current := menu(106, stuwe.MealGroup{
		MealType: "Hauptgericht",
		SubMeals: []stuwe.SingleMeal{meal("Eintopf", "3,50 €")},
	})

	diff := DiffDayMenus(&old, current)
	require.True(t, diff.HasChanges())
	require.Nil(t, diff.NewMeals)
	require.Nil(t, diff.RemovedMeals)

	expected := []stuwe.MealGroup{{
		MealType: "Hauptgericht",
		SubMeals: []stuwe.SingleMeal{meal("Eintopf", "3,50 €")},
	}}
	require.Empty(t, cmp.Diff(expected, diff.ModifiedMeals))
}

func TestDiffDayMenusAddedAndRemoved(t *testing.T) {
	old := menu(106, stuwe.MealGroup{
		MealType: "Hauptgericht",
		SubMeals: []stuwe.SingleMeal{
			meal("Eintopf", "3,00 €"),
			meal("Schnitzel", "4,20 €"),
		},
	})
	current := menu(106, stuwe.MealGroup{
		MealType: "Hauptgericht",
		SubMeals: []stuwe.SingleMeal{
			meal("Eintopf", "3,00 €"),
			meal("Pasta", "2,80 €"),
		},
	})

	diff := DiffDayMenus(&old, current)
	require.Nil(t, diff.ModifiedMeals)
	require.Empty(t, cmp.Diff([]stuwe.MealGroup{{
		MealType: "Hauptgericht",
		SubMeals: []stuwe.SingleMeal{meal("Pasta", "2,80 €")},
	}}, diff.NewMeals))
	require.Empty(t, cmp.Diff([]stuwe.MealGroup{{
		MealType: "Hauptgericht",
		SubMeals: []stuwe.SingleMeal{meal("Schnitzel", "4,20 €")},
	}}, diff.RemovedMeals))
}

func TestDiffDayMenusNewCategory(t *testing.T) {
	old := menu(106, stuwe.MealGroup{
		MealType: "Hauptgericht",
		SubMeals: []stuwe.SingleMeal{meal("Eintopf", "3,00 €")},
	})
	current := menu(106,
		stuwe.MealGroup{
			MealType: "Hauptgericht",
			SubMeals: []stuwe.SingleMeal{meal("Eintopf", "3,00 €")},
		},
		stuwe.MealGroup{
			MealType: "Dessert",
			SubMeals: []stuwe.SingleMeal{meal("Pudding", "1,20 €")},
		},
	)

	diff := DiffDayMenus(&old, current)
	require.Nil(t, diff.ModifiedMeals)
	require.Nil(t, diff.RemovedMeals)
	require.Empty(t, cmp.Diff([]stuwe.MealGroup{{
		MealType: "Dessert",
		SubMeals: []stuwe.SingleMeal{meal("Pudding", "1,20 €")},
	}}, diff.NewMeals))
}

func TestDiffDayMenusRemovedCategory(t *testing.T) {
	old := menu(106,
		stuwe.MealGroup{
			MealType: "Hauptgericht",
			SubMeals: []stuwe.SingleMeal{meal("Eintopf", "3,00 €")},
		},
		stuwe.MealGroup{
			MealType: "Dessert",
			SubMeals: []stuwe.SingleMeal{meal("Pudding", "1,20 €")},
		},
	)
	current := menu(106, stuwe.MealGroup{
		MealType: "Hauptgericht",
		SubMeals: []stuwe.SingleMeal{meal("Eintopf", "3,00 €")},
	})

	diff := DiffDayMenus(&old, current)
	require.Nil(t, diff.NewMeals)
	require.Nil(t, diff.ModifiedMeals)
	require.Empty(t, cmp.Diff([]stuwe.MealGroup{{
		MealType: "Dessert",
		SubMeals: []stuwe.SingleMeal{meal("Pudding", "1,20 €")},
	}}, diff.RemovedMeals))
}

func TestDiffDayMenusVariationChangeIsModified(t *testing.T) {
	oldMeal := meal("Eintopf", "3,00 €")
	oldMeal.Variations = []stuwe.MealVariation{{Name: "vegan", AllergensAndAdd: "So"}}
	newMeal := meal("Eintopf", "3,00 €")
	newMeal.Variations = []stuwe.MealVariation{{Name: "vegan", AllergensAndAdd: "So, We"}}

	old := menu(106, stuwe.MealGroup{MealType: "Hauptgericht", SubMeals: []stuwe.SingleMeal{oldMeal}})
	current := menu(106, stuwe.MealGroup{MealType: "Hauptgericht", SubMeals: []stuwe.SingleMeal{newMeal}})

	diff := DiffDayMenus(&old, current)
	require.Nil(t, diff.NewMeals)
	require.Nil(t, diff.RemovedMeals)
	require.Len(t, diff.ModifiedMeals, 1)
	require.Equal(t, []stuwe.SingleMeal{newMeal}, diff.ModifiedMeals[0].SubMeals)
}

func TestDiffDayMenusPanicsOnCanteenMismatch(t *testing.T) {
	old := menu(106)
	current := menu(153)
	require.Panics(t, func() {
		DiffDayMenus(&old, current)
	})
}
