package stuwe

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"mensahub-backend/lib/htmlutil"
	"mensahub-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

const DefaultBaseUrl = "https://www.studentenwerk-leipzig.de"

const menuPath = "/mensen-cafeterien/speiseplan"

type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
}

type ClientOptions struct {
	// defaults to DefaultBaseUrl
	BaseUrl string
}

func NewClient(opts ClientOptions) *Client {
	baseUrl := opts.BaseUrl
	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}

	client := resty.New()
	client.SetBaseURL(baseUrl)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(time.Second * 30)
	client.SetRetryCount(3)
	client.SetRetryWaitTime(time.Second)
	client.SetRetryMaxWaitTime(time.Second * 10)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		return err != nil || res.StatusCode() >= 500
	})

	telemetry.InstrumentResty(client, "scrapers/stuwe/http")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "stuwe",
	})

	return &Client{
		http:    client,
		breaker: breaker,
	}
}

// FetchMenuPage requests the menu page for an ISO date string and parses
// it. The remote site ignores invalid or out-of-range dates and renders
// a fallback date instead, callers must check the page's active date
// marker before trusting the content.
func (c *Client) FetchMenuPage(ctx context.Context, date string) (*goquery.Document, error) {
	body, err := c.breaker.Execute(func() (any, error) {
		res, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("date", date).
			Get(menuPath)
		if err != nil {
			return nil, err
		}
		if res.IsError() {
			return nil, fmt.Errorf("menu page returned status %s", res.Status())
		}
		return res.Body(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch menu page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body.([]byte)))
	if err != nil {
		return nil, fmt.Errorf("parse menu page: %w", err)
	}
	return doc, nil
}

// DiscoverCanteens requests the menu page with a junk date (the site
// then renders an empty menu but still includes the full location
// listing) and extracts every canteen's id and display name from it.
// Falls back to a static table when the listing cannot be read, the
// canteen set changes rarely.
func (c *Client) DiscoverCanteens(ctx context.Context) (map[int64]string, error) {
	doc, err := c.FetchMenuPage(ctx, "a")
	if err != nil {
		return nil, err
	}

	canteens := parseLocationListing(doc)
	if len(canteens) == 0 {
		return fallbackCanteens(), nil
	}
	return canteens, nil
}

func parseLocationListing(doc *goquery.Document) map[int64]string {
	canteens := map[int64]string{}
	doc.Find("#locations > li").Each(func(_ int, item *goquery.Selection) {
		id, err := parseLocationId(item)
		if err != nil {
			return
		}
		name := htmlutil.CleanText(item.Find("span").First().Text())
		if name == "" {
			return
		}
		canteens[id] = name
	})
	return canteens
}

func fallbackCanteens() map[int64]string {
	return map[int64]string{
		153: "Cafeteria Dittrichring",
		127: "Mensaria am Botanischen Garten",
		118: "Mensa Academica",
		106: "Mensa am Park",
		115: "Mensa am Elsterbecken",
		162: "Mensa am Medizincampus",
		111: "Mensa Peterssteinweg",
		140: "Mensa Schönauer Straße",
		170: "Mensa An den Tierkliniken",
	}
}
