package commands

import (
	"log/slog"
	"time"

	"mensahub-backend/lib/scrapers/stuwe"
	"mensahub-backend/lib/serviceutil"
	"mensahub-backend/lib/sqliteutil"
	"mensahub-backend/lib/timezone"
	"mensahub-backend/services/mealplan"
	"mensahub-backend/services/mealplan/db"

	"github.com/spf13/cobra"
)

var scrapeDb *string

func init() {
	scrapeDb = scrapeCmd.Flags().String("db", "meals.sqlite", "The database to write scrape results to.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--db <path/to/meals.sqlite>]",
	Short: "Runs one refresh of the upcoming days and writes the cache.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		database, err := sqliteutil.OpenDB(db.Schema, *scrapeDb)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer database.Close()

		client := stuwe.NewClient(stuwe.ClientOptions{})
		service, err := mealplan.NewService(ctx, database, client, nil)
		if err != nil {
			serviceutil.Fatal("failed to init service", err)
		}

		if len(service.Canteens()) == 0 {
			canteens, err := client.DiscoverCanteens(ctx)
			if err != nil {
				serviceutil.Fatal("failed to discover canteens", err)
			}
			err = service.SeedCanteens(ctx, canteens)
			if err != nil {
				serviceutil.Fatal("failed to seed canteens", err)
			}
		}

		now := timezone.Now()

		t1 := time.Now()
		diffs, err := service.Refresh(ctx, mealplan.UpcomingDates(now), now)
		if err != nil {
			serviceutil.Fatal("refresh failed", err)
		}
		t2 := time.Now()

		slog.Info("scraping time", "seconds", t2.Sub(t1).Seconds())
		slog.Info("canteens with changed today-menu", "count", len(diffs))
	},
}
