package stuwe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"mensahub-backend/lib/htmlutil"
	"mensahub-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("scrapers/stuwe")

// The page format diverging from these expectations is a structural
// error: logged, never fatal for the whole run.
var (
	ErrMissingDateMarker   = errors.New("menu page has no active date marker")
	ErrNoMealSections      = errors.New("menu page has no canteen meal sections")
	ErrMissingMealCategory = errors.New("meal entry has no category tag")
	ErrUnknownCanteen      = errors.New("canteen name not found in location listing")
)

// CanteenResolver maps canteen display names to their stable numeric
// ids, registering names the extractor has never seen before.
type CanteenResolver interface {
	Resolve(name string) (int64, bool)
	Register(ctx context.Context, name string, id int64) error
}

// ExtractDay turns a parsed menu page into one CanteenDayMenu per
// canteen section found in it.
//
// A page whose active date differs from the requested one yields an
// empty result and no error: the site renders a default date when the
// requested one is unavailable (e.g. beyond the published horizon).
func ExtractDay(ctx context.Context, doc *goquery.Document, requestedDate time.Time, registry CanteenResolver) ([]CanteenDayMenu, error) {
	ctx, span := tracer.Start(ctx, "ExtractDay")
	defer span.End()

	want := BuildDateString(requestedDate)
	span.SetAttributes(attribute.String("date", want))

	marker := doc.Find("button.date-button.is--active").First()
	if marker.Length() == 0 {
		return nil, ErrMissingDateMarker
	}
	received := marker.AttrOr("data-date", "")
	if received != want {
		slog.DebugContext(ctx, "site fell back to another date", "requested", want, "received", received)
		return nil, nil
	}

	sections := doc.Find("div.meal-overview")
	if sections.Length() == 0 {
		return nil, ErrNoMealSections
	}

	var menus []CanteenDayMenu
	sections.Each(func(_ int, section *goquery.Selection) {
		title := htmlutil.CleanText(section.Prev().Text())
		if title == "" {
			slog.WarnContext(ctx, "meal section without a canteen title", "date", want)
			return
		}

		id, err := resolveCanteen(ctx, doc, title, registry)
		if err != nil {
			slog.WarnContext(ctx, "skipping canteen section", "canteen", title, "date", want, "err", err)
			return
		}

		menus = append(menus, CanteenDayMenu{
			CanteenID:  id,
			MealGroups: extractMealGroups(ctx, section, title),
		})
	})
	return menus, nil
}

// resolveCanteen looks the canteen name up in the registry, falling back
// to the location listing embedded in the same document when the name
// has never been seen before.
func resolveCanteen(ctx context.Context, doc *goquery.Document, name string, registry CanteenResolver) (int64, error) {
	if id, ok := registry.Resolve(name); ok {
		return id, nil
	}

	want := textutil.NormalizeName(name)
	var found int64 = -1
	doc.Find("#locations > li").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if textutil.NormalizeName(item.Find("span").First().Text()) != want {
			return true
		}
		id, err := parseLocationId(item)
		if err != nil {
			slog.WarnContext(ctx, "location listing entry has a bad id", "canteen", name, "err", err)
			return true
		}
		found = id
		return false
	})
	if found < 0 {
		// when a known canteen got renamed upstream the listing match
		// fails too, surface the nearest registered name to make that
		// diagnosable from the logs
		if hinter, ok := registry.(interface{ Closest(string) (string, float64) }); ok {
			if closest, similarity := hinter.Closest(name); closest != "" {
				slog.WarnContext(ctx, "unknown canteen", "name", name, "closest_known", closest, "similarity", similarity)
			}
		}
		return 0, fmt.Errorf("%w: %q", ErrUnknownCanteen, name)
	}

	err := registry.Register(ctx, name, found)
	if err != nil {
		return 0, fmt.Errorf("register canteen %q: %w", name, err)
	}
	return found, nil
}

func parseLocationId(item *goquery.Selection) (int64, error) {
	attr, ok := item.Attr("data-location")
	if !ok {
		return 0, errors.New("missing data-location attribute")
	}
	return strconv.ParseInt(attr, 10, 64)
}

func extractMealGroups(ctx context.Context, section *goquery.Selection, canteen string) []MealGroup {
	var groups []MealGroup

	section.Find("div.type--meal").Each(func(_ int, meal *goquery.Selection) {
		tag := meal.Find("div.meal-tags > .tag").First()
		if tag.Length() == 0 {
			// fatal for this entry only, the remaining meals and
			// canteens still get extracted
			slog.WarnContext(ctx, "skipping meal entry", "canteen", canteen, "err", ErrMissingMealCategory)
			return
		}
		mealType := htmlutil.CleanText(tag.Text())

		single := SingleMeal{
			Name:                  htmlutil.CleanText(meal.Find("h4").First().Text()),
			AdditionalIngredients: extractIngredients(meal),
			Allergens:             htmlutil.CleanText(meal.Find("div.meal-allergens > p").First().Text()),
			Variations:            extractVariations(meal),
			Price:                 extractPrice(meal),
		}

		for i := range groups {
			if groups[i].MealType != mealType {
				continue
			}
			if !groups[i].ContainsMeal(single) {
				groups[i].SubMeals = append(groups[i].SubMeals, single)
			}
			return
		}
		groups = append(groups, MealGroup{
			MealType: mealType,
			SubMeals: []SingleMeal{single},
		})
	})

	return groups
}

// extractIngredients splits the components blob on its middle-dot
// separator, deduplicating while preserving first-seen order. An absent
// or empty blob yields an empty list, not a one-element list holding "".
func extractIngredients(meal *goquery.Selection) []string {
	ingredients := []string{}

	components := meal.Find("div.meal-components").First()
	if components.Length() == 0 {
		return ingredients
	}
	blob := htmlutil.CleanText(components.Text())
	if blob == "" {
		return ingredients
	}

	for _, piece := range strings.Split(blob, "·") {
		piece = strings.TrimSpace(piece)
		seen := false
		for _, existing := range ingredients {
			if existing == piece {
				seen = true
				break
			}
		}
		if !seen {
			ingredients = append(ingredients, piece)
		}
	}
	return ingredients
}

func extractPrice(meal *goquery.Selection) string {
	var price strings.Builder
	meal.Find("div.meal-prices > span").Each(func(_ int, span *goquery.Selection) {
		price.WriteString(span.Text())
	})
	return htmlutil.CleanText(price.String())
}

func extractVariations(meal *goquery.Selection) []MealVariation {
	container := meal.Find("div.meal-subitems").First()
	if container.Length() == 0 {
		return nil
	}

	var variations []MealVariation
	container.Children().Each(func(_ int, child *goquery.Selection) {
		name := htmlutil.CleanText(child.Find("h5").First().Text())
		if name == "" {
			return
		}
		allergens := htmlutil.CleanText(child.Find("p").Last().Text())
		allergens = strings.TrimPrefix(allergens, ": ")
		variations = append(variations, MealVariation{
			Name:            name,
			AllergensAndAdd: allergens,
		})
	})
	return variations
}
