package mealplan

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
)

// Server exposes the cached menus, the canteen directory and the
// today-changed websocket feeds over HTTP.
type Server struct {
	service Service
	hub     *DiffHub
}

func NewServer(service Service, hub *DiffHub) Server {
	return Server{
		service: service,
		hub:     hub,
	}
}

func (s Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{http.MethodGet},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("API is reachable"))
	})
	r.Get("/canteens", s.getCanteens)
	r.Get("/canteens/{canteenID}", s.getCanteenMeta)
	r.Get("/canteens/{canteenID}/days", s.getCanteenDays)
	r.Get("/canteens/{canteenID}/days/{date}", s.getMealsOfDay)
	r.Get("/today_updated_ws", s.todayUpdatedWs(false))
	r.Get("/today_updated_diff_ws", s.todayUpdatedWs(true))

	return r
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(value)
	if err != nil {
		slog.Warn("failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (s Server) canteenFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "canteenID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid canteen id")
		return 0, false
	}
	if _, ok := s.service.CanteenName(id); !ok {
		writeError(w, http.StatusNotFound, "canteen not found")
		return 0, false
	}
	return id, true
}

func (s Server) getCanteens(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.Canteens())
}

func (s Server) getCanteenMeta(w http.ResponseWriter, r *http.Request) {
	id, ok := s.canteenFromPath(w, r)
	if !ok {
		return
	}
	name, _ := s.service.CanteenName(id)
	writeJSON(w, Canteen{ID: id, Name: name})
}

func (s Server) getCanteenDays(w http.ResponseWriter, r *http.Request) {
	id, ok := s.canteenFromPath(w, r)
	if !ok {
		return
	}
	days, err := s.service.AvailableDays(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list days", "canteen", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if days == nil {
		days = []string{}
	}
	writeJSON(w, days)
}

func (s Server) getMealsOfDay(w http.ResponseWriter, r *http.Request) {
	id, ok := s.canteenFromPath(w, r)
	if !ok {
		return
	}
	date, err := time.Parse("2006-01-02", chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format")
		return
	}
	groups, err := s.service.MealsOfDay(r.Context(), id, date)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to read day menu", "canteen", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, groups)
}

var upgrader = websocket.Upgrader{
	// the API is public, same-origin checks would only break the apps
	CheckOrigin: func(_ *http.Request) bool { return true },
}

const wsWriteTimeout = time.Second * 10

// todayUpdatedWs streams a message per canteen whose today-menu
// changed: the full diff as JSON, or just the canteen id in the
// simplified mode.
func (s Server) todayUpdatedWs(sendDiff bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.WarnContext(r.Context(), "websocket upgrade failed", "err", err)
			return
		}
		defer conn.Close()

		slog.InfoContext(r.Context(), "websocket client connected", "diff", sendDiff)

		diffs, cancel := s.hub.Subscribe()
		defer cancel()

		for {
			select {
			case <-r.Context().Done():
				return
			case diff, ok := <-diffs:
				if !ok {
					return
				}

				var payload []byte
				if sendDiff {
					payload, err = json.Marshal(diff)
					if err != nil {
						slog.WarnContext(r.Context(), "failed to marshal diff", "err", err)
						continue
					}
				} else {
					payload = []byte(strconv.FormatInt(diff.CanteenID, 10))
				}

				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				err = conn.WriteMessage(websocket.TextMessage, payload)
				if err != nil {
					// client has disconnected
					return
				}
			}
		}
	}
}
