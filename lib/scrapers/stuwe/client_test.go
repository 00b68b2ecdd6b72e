package stuwe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"mensahub-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func TestFetchMenuPage(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/stuwe")
	defer cleanup()

	var gotDate string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/mensen-cafeterien/speiseplan", r.URL.Path)
		gotDate = r.URL.Query().Get("date")
		w.Write([]byte(menuPage(fixtureDate, parkSection)))
	}))
	defer server.Close()

	client := NewClient(ClientOptions{BaseUrl: server.URL})
	doc, err := client.FetchMenuPage(context.Background(), fixtureDate)
	require.NoError(t, err)
	require.Equal(t, fixtureDate, gotDate)
	require.Equal(t, 1, doc.Find("div.meal-overview").Length())
}

func TestFetchMenuPageServerError(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/stuwe")
	defer cleanup()

	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(ClientOptions{BaseUrl: server.URL})
	_, err := client.FetchMenuPage(context.Background(), fixtureDate)
	require.Error(t, err)
	// initial attempt plus three retries on the 5xx
	require.Equal(t, int32(4), atomic.LoadInt32(&attempts))
}

func TestDiscoverCanteens(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/stuwe")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(menuPage(fixtureDate, "")))
	}))
	defer server.Close()

	client := NewClient(ClientOptions{BaseUrl: server.URL})
	canteens, err := client.DiscoverCanteens(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[int64]string{
		106: "Mensa am Park",
		153: "Cafeteria Dittrichring",
	}, canteens)
}

func TestDiscoverCanteensFallback(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/stuwe")
	defer cleanup()

	// a page without the location listing falls back to the static table
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>maintenance</p></body></html>`))
	}))
	defer server.Close()

	client := NewClient(ClientOptions{BaseUrl: server.URL})
	canteens, err := client.DiscoverCanteens(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Mensa am Park", canteens[106])
	require.Len(t, canteens, 9)
}
