package mealplan

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mensahub-backend/lib/scrapers/stuwe"
	"mensahub-backend/services/mealplan/db"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/mealplan")

// MenuFetcher is the HTML source: a GET parameterized by an ISO date
// string. Timeouts and retries are its concern, not the service's.
type MenuFetcher interface {
	FetchMenuPage(ctx context.Context, date string) (*goquery.Document, error)
}

type Service struct {
	store    db.Store
	registry *Registry
	client   MenuFetcher
	// optional, nil disables change notifications
	notifier Publisher
}

func NewService(ctx context.Context, database *sql.DB, client MenuFetcher, notifier Publisher) (Service, error) {
	store := db.NewStore(database)

	canteens, err := store.GetCanteens(ctx)
	if err != nil {
		return Service{}, fmt.Errorf("load canteen directory: %w", err)
	}

	return Service{
		store:    store,
		registry: NewRegistry(store, canteens),
		client:   client,
		notifier: notifier,
	}, nil
}

// SeedCanteens registers externally discovered canteens that are not in
// the directory yet.
func (s Service) SeedCanteens(ctx context.Context, canteens map[int64]string) error {
	for id, name := range canteens {
		err := s.registry.Register(ctx, name, id)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s Service) Canteens() []Canteen {
	return s.registry.Snapshot()
}

func (s Service) CanteenName(id int64) (string, bool) {
	return s.registry.Name(id)
}

func (s Service) AvailableDays(ctx context.Context, canteenID int64) ([]string, error) {
	return s.store.ListDays(ctx, canteenID)
}

// MealsOfDay returns the cached menu of one canteen for one date, or an
// empty list when nothing is cached for that key.
func (s Service) MealsOfDay(ctx context.Context, canteenID int64, date time.Time) ([]stuwe.MealGroup, error) {
	jsonText, ok, err := s.store.GetDayJSON(ctx, canteenID, stuwe.BuildDateString(date))
	if err != nil {
		return nil, err
	}
	if !ok {
		return []stuwe.MealGroup{}, nil
	}

	groups, err := stuwe.UnmarshalGroups([]byte(jsonText))
	if err != nil {
		return nil, fmt.Errorf("unmarshal cached menu: %w", err)
	}
	return groups, nil
}

// UpcomingDates lists the dates a periodic refresh should cover: the
// next 8 days starting at `now`, minus weekends (the canteens are
// closed, the site renders fallback pages).
func UpcomingDates(now time.Time) []time.Time {
	var days []time.Time
	for i := 0; i < 8; i++ {
		day := now.AddDate(0, 0, i)
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		days = append(days, day)
	}
	return days
}
