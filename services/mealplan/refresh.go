package mealplan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mensahub-backend/lib/scrapers/stuwe"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Refresh fetches, extracts, caches and diffs every requested date
// concurrently, one unit per date. Within a unit the pipeline is
// strictly sequential; across units no order is guaranteed, and neither
// is the order of the returned diffs.
//
// Recoverable failures (transient HTTP, structural parse errors) are
// logged per date and excluded from the result. Only a panicking unit
// makes Refresh itself return an error.
func (s Service) Refresh(ctx context.Context, dates []time.Time, today time.Time) ([]CanteenMealDiff, error) {
	ctx, span := tracer.Start(ctx, "Refresh")
	defer span.End()

	todayStr := stuwe.BuildDateString(today)
	span.SetAttributes(
		attribute.Int("dates", len(dates)),
		attribute.String("today", todayStr),
	)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		diffs   []CanteenMealDiff
		errlist []error
	)
	for _, date := range dates {
		wg.Add(1)
		go func(date time.Time) {
			defer wg.Done()
			dateStr := stuwe.BuildDateString(date)
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					errlist = append(errlist, fmt.Errorf("refresh unit %s panicked: %v", dateStr, r))
					mu.Unlock()
				}
			}()

			dayDiffs, err := s.refreshDay(ctx, date, dateStr == todayStr)
			if err != nil {
				slog.ErrorContext(ctx, "failed to refresh day", "date", dateStr, "err", err)
				return
			}

			mu.Lock()
			diffs = append(diffs, dayDiffs...)
			mu.Unlock()
		}(date)
	}
	wg.Wait()

	err := errors.Join(errlist...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh units panicked")
	}
	return diffs, err
}

// refreshDay runs one date's pipeline: fetch → extract → per canteen
// compare against the cache, write back on change, and when the date is
// today, diff against the previous cached version and publish.
func (s Service) refreshDay(ctx context.Context, date time.Time, isToday bool) ([]CanteenMealDiff, error) {
	ctx, span := tracer.Start(ctx, "refreshDay")
	defer span.End()

	dateStr := stuwe.BuildDateString(date)
	span.SetAttributes(attribute.String("date", dateStr))

	doc, err := s.client.FetchMenuPage(ctx, dateStr)
	if err != nil {
		return nil, err
	}
	menus, err := stuwe.ExtractDay(ctx, doc, date, s.registry)
	if err != nil {
		return nil, err
	}

	var diffs []CanteenMealDiff
	for _, menu := range menus {
		jsonText, err := stuwe.MarshalGroups(menu.MealGroups)
		if err != nil {
			return nil, fmt.Errorf("marshal menu: %w", err)
		}

		cached, hadCache, err := s.store.GetDayJSON(ctx, menu.CanteenID, dateStr)
		if err != nil {
			return nil, fmt.Errorf("read cached menu: %w", err)
		}
		if hadCache && cached == string(jsonText) {
			continue
		}

		err = s.store.PutDayJSON(ctx, menu.CanteenID, dateStr, string(jsonText))
		if err != nil {
			return nil, fmt.Errorf("write cached menu: %w", err)
		}
		slog.InfoContext(ctx, "updated cached menu", "canteen", menu.CanteenID, "date", dateStr)

		if !isToday {
			continue
		}

		var previous *stuwe.CanteenDayMenu
		if hadCache {
			groups, err := stuwe.UnmarshalGroups([]byte(cached))
			if err != nil {
				// a corrupt cache entry has already been overwritten
				// above, treat it like a missing baseline
				slog.WarnContext(ctx, "discarding unreadable cache entry",
					"canteen", menu.CanteenID, "date", dateStr, "err", err)
			} else {
				previous = &stuwe.CanteenDayMenu{
					CanteenID:  menu.CanteenID,
					MealGroups: groups,
				}
			}
		}

		diff := DiffDayMenus(previous, menu)
		if !diff.HasChanges() {
			continue
		}
		diffs = append(diffs, diff)
		if s.notifier != nil {
			s.notifier.Publish(diff)
		}
	}
	return diffs, nil
}
