package openmensa

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"mensahub-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("services/openmensa")

const DefaultBaseUrl = "https://openmensa.org/api/v2"

// Canteen is one entry of the open-data canteen directory.
type Canteen struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	City    string `json:"city,omitempty"`
	Address string `json:"address,omitempty"`
}

type day struct {
	Closed bool `json:"closed"`
}

// Service mirrors the OpenMensa canteen directory: the full list, plus
// the sublist of canteens that actually publish menu data.
type Service struct {
	http *resty.Client

	mu   sync.RWMutex
	all  []Canteen
	live []Canteen
}

func NewService(baseUrl string) *Service {
	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}

	client := resty.New()
	client.SetBaseURL(baseUrl)
	client.SetTimeout(time.Second * 30)
	client.SetRetryCount(3)
	client.SetRetryWaitTime(time.Millisecond * 500)
	client.SetRetryMaxWaitTime(time.Second * 8)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		return err != nil || res.StatusCode() >= 500
	})

	telemetry.InstrumentResty(client, "services/openmensa/http")

	return &Service{http: client}
}

// InitCanteenList downloads the directory and probes every canteen's
// published days to build the live sublist. Slow, meant to run once in
// the background at startup.
func (s *Service) InitCanteenList(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "InitCanteenList")
	defer span.End()

	s.mu.RLock()
	initialized := s.all != nil
	s.mu.RUnlock()
	if initialized {
		slog.InfoContext(ctx, "openmensa list already initialized")
		return nil
	}

	var all []Canteen
	res, err := s.http.R().
		SetContext(ctx).
		SetResult(&all).
		Get("/canteens")
	if err != nil {
		return fmt.Errorf("fetch openmensa canteens: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("fetch openmensa canteens: status %s", res.Status())
	}
	span.SetAttributes(attribute.Int("canteens", len(all)))

	s.mu.Lock()
	s.all = all
	s.mu.Unlock()

	var live []Canteen
	for i, canteen := range all {
		if i%50 == 0 {
			slog.InfoContext(ctx, "probing openmensa canteens", "done", i, "total", len(all))
		}

		var days []day
		res, err := s.http.R().
			SetContext(ctx).
			SetResult(&days).
			Get(fmt.Sprintf("/canteens/%d/days", canteen.ID))
		if err != nil {
			return fmt.Errorf("fetch days of canteen %d: %w", canteen.ID, err)
		}
		if res.IsError() {
			continue
		}

		for _, d := range days {
			if !d.Closed {
				live = append(live, canteen)
				break
			}
		}
	}

	s.mu.Lock()
	s.live = live
	s.mu.Unlock()

	slog.InfoContext(ctx, "openmensa list initialized", "all", len(all), "live", len(live))
	return nil
}

// Canteens returns the live list, falling back to the full one while
// probing is still in progress.
func (s *Service) Canteens() ([]Canteen, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.live != nil {
		return s.live, true
	}
	if s.all != nil {
		slog.Warn("openmensa live list not initialized, returning all canteens")
		return s.all, true
	}
	return nil, false
}

func (s *Service) HandleList(w http.ResponseWriter, r *http.Request) {
	canteens, ok := s.Canteens()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(canteens)
	if err != nil {
		slog.WarnContext(r.Context(), "failed to encode openmensa list", "err", err)
	}
}
