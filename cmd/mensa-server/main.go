package main

import (
	"flag"
	"log/slog"
	"os"

	"mensahub-backend/lib/configutil"
	"mensahub-backend/lib/scrapers/stuwe"
	"mensahub-backend/lib/serviceutil"
	"mensahub-backend/lib/sqliteutil"
	"mensahub-backend/lib/timezone"
	"mensahub-backend/services/mealplan"
	"mensahub-backend/services/mealplan/db"
	"mensahub-backend/services/openmensa"

	"github.com/robfig/cron/v3"
)

type Config struct {
	Database         string `json:"database"`
	Port             int    `json:"port"`
	RefreshCron      string `json:"refresh_cron"`
	StuweBaseUrl     string `json:"stuwe_base_url"`
	OpenMensaBaseUrl string `json:"openmensa_base_url"`
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	InitTelemetry(ctx, *verbose)

	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("read config", err)
	}
	if cfg.Database == "" {
		cfg.Database = "meals.sqlite"
	}
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
	if cfg.RefreshCron == "" {
		cfg.RefreshCron = "*/5 * * * *"
	}

	database, err := sqliteutil.OpenDB(db.Schema, cfg.Database)
	if err != nil {
		serviceutil.Fatal("open database", err)
	}
	defer database.Close()

	client := stuwe.NewClient(stuwe.ClientOptions{BaseUrl: cfg.StuweBaseUrl})
	hub := mealplan.NewDiffHub()

	service, err := mealplan.NewService(ctx, database, client, hub)
	if err != nil {
		serviceutil.Fatal("init mealplan service", err)
	}

	if len(service.Canteens()) == 0 {
		canteens, err := client.DiscoverCanteens(ctx)
		if err != nil {
			serviceutil.Fatal("discover canteens", err)
		}
		err = service.SeedCanteens(ctx, canteens)
		if err != nil {
			serviceutil.Fatal("seed canteens", err)
		}
		slog.Info("seeded canteen directory", "count", len(canteens))
	}

	openmensaService := openmensa.NewService(cfg.OpenMensaBaseUrl)
	go func() {
		err := openmensaService.InitCanteenList(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "openmensa list fetch failed", "err", err)
		}
	}()

	refresh := func() {
		now := timezone.Now()
		diffs, err := service.Refresh(ctx, mealplan.UpcomingDates(now), now)
		if err != nil {
			slog.ErrorContext(ctx, "refresh failed", "err", err)
			return
		}
		slog.InfoContext(ctx, "refresh finished", "today_changed", len(diffs))
	}

	// always refresh on startup so the cache is warm before the first
	// cron tick
	refresh()

	cronner := cron.New(cron.WithLocation(timezone.Location))
	_, err = cronner.AddFunc(cfg.RefreshCron, refresh)
	if err != nil {
		serviceutil.Fatal("schedule refresh", err)
	}
	cronner.Start()
	defer cronner.Stop()

	router := mealplan.NewServer(service, hub).Router()
	router.Get("/openmensacanteens", openmensaService.HandleList)

	go serviceutil.StartHttpServer(cfg.Port, router)
	<-ctx.Done()
}
