package market

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"X402/internal/domain/models"
	dservice "X402/internal/domain/service"
	"X402/internal/services/features"
	xhttp "X402/pkg/http"
)

// YahooBuilder fetches intraday candles from the Yahoo chart API and turns
// the latest bar into a feature snapshot.
type YahooBuilder struct {
	baseURL  string
	interval string
	rng      string
	client   *xhttp.Client
}

var _ dservice.MarketSnapshotBuilder = (*YahooBuilder)(nil)

func NewYahooBuilder(baseURL, interval, rng string, timeout time.Duration) *YahooBuilder {
	return &YahooBuilder{
		baseURL:  baseURL,
		interval: interval,
		rng:      rng,
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithUserAgent("Mozilla/5.0")),
	}
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (b *YahooBuilder) Snapshot(ctx context.Context, asset string) (*models.MarketSnapshot, error) {
	candles, err := b.Candles(ctx, asset)
	if err != nil {
		return nil, err
	}
	return features.Snapshot(asset, candles)
}

// Candles returns bars oldest first, skipping bars without a close.
func (b *YahooBuilder) Candles(ctx context.Context, asset string) ([]models.Candle, error) {
	var chart yahooChart
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/v8/finance/chart/%s", b.baseURL, url.PathEscape(asset)),
		QueryParams: map[string][]string{
			"interval": {b.interval},
			"range":    {b.rng},
		},
	}, &chart)
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", asset, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: yahoo returned no data for %s", models.ErrNoSnapshot, asset)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]models.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		c := at(quote.Close, i)
		if c <= 0 {
			continue
		}
		bars = append(bars, models.Candle{
			Bucket: time.Unix(ts, 0).UTC(),
			Asset:  asset,
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  c,
			Volume: at(quote.Volume, i),
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Bucket.Before(bars[j].Bucket) })
	return bars, nil
}

func at(xs []*float64, i int) float64 {
	if i >= len(xs) || xs[i] == nil {
		return 0
	}
	return *xs[i]
}
