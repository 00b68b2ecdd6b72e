package openmensa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mensahub-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func fakeDirectory(t *testing.T) *httptest.Server {
	writeJSON := func(w http.ResponseWriter, value any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(value)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/canteens", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []Canteen{
			{ID: 1, Name: "Mensa Eins", City: "Leipzig"},
			{ID: 2, Name: "Mensa Zwei", City: "Dresden"},
			{ID: 3, Name: "Mensa Drei", City: "Chemnitz"},
		})
	})
	mux.HandleFunc("/canteens/1/days", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{
			{"date": "2024-07-11", "closed": false},
		})
	})
	mux.HandleFunc("/canteens/2/days", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{
			{"date": "2024-07-11", "closed": true},
		})
	})
	mux.HandleFunc("/canteens/3/days", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestInitCanteenList(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:services/openmensa")
	defer cleanup()

	server := fakeDirectory(t)
	service := NewService(server.URL)

	_, ok := service.Canteens()
	require.False(t, ok)

	err := service.InitCanteenList(context.Background())
	require.NoError(t, err)

	// only the canteen with an open day counts as live
	canteens, ok := service.Canteens()
	require.True(t, ok)
	require.Len(t, canteens, 1)
	require.Equal(t, int64(1), canteens[0].ID)
	require.Equal(t, "Mensa Eins", canteens[0].Name)

	// re-initializing is a no-op
	require.NoError(t, service.InitCanteenList(context.Background()))
}

func TestHandleList(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:services/openmensa")
	defer cleanup()

	server := fakeDirectory(t)
	service := NewService(server.URL)

	rec := httptest.NewRecorder()
	service.HandleList(rec, httptest.NewRequest(http.MethodGet, "/openmensacanteens", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, service.InitCanteenList(context.Background()))

	rec = httptest.NewRecorder()
	service.HandleList(rec, httptest.NewRequest(http.MethodGet, "/openmensacanteens", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var canteens []Canteen
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &canteens))
	require.Len(t, canteens, 1)
}
