package technical

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/finrag/stockagent/pkg/httpclient"
)

// schemaEnvelope is the stock-data-collector wire shape: a column-name
// schema plus row-major data, as read by _fetch_chart_data/
// _fetch_supply_demand_data ("response_data['data']['schema']['fields']"
// / "['data']['data']").
type schemaEnvelope struct {
	Data struct {
		Schema struct {
			Fields []string `json:"fields"`
		} `json:"schema"`
		Data [][]any `json:"data"`
	} `json:"data"`
}

// Client fetches chart/supply-demand/market-index data from a
// stock-data-collector-shaped HTTP API.
type Client struct {
	baseURL string
	http    *httpclient.Client
}

// NewClient builds a Client against baseURL (e.g.
// "http://stock-data-collector:8001"), reusing the teacher's retrying
// httpclient.Client rather than a bare http.Client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
			httpclient.WithMaxRetries(3),
			httpclient.WithBaseDelay(time.Second),
		),
	}
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("technical data request to %s: HTTP %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func rowsToMaps(env schemaEnvelope) []map[string]any {
	fields := env.Data.Schema.Fields
	out := make([]map[string]any, 0, len(env.Data.Data))
	for _, row := range env.Data.Data {
		if len(row) < len(fields) {
			continue
		}
		m := make(map[string]any, len(fields))
		for i, f := range fields {
			if f == "timestamp" {
				f = "date"
			}
			m[f] = row[i]
		}
		out = append(out, m)
	}
	return out
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		var f float64
		fmt.Sscanf(t, "%f", &f)
		return f
	default:
		return 0
	}
}

func asOptFloat(v any) *float64 {
	if v == nil {
		return nil
	}
	f := asFloat(v)
	return &f
}

func parseDate(v any) time.Time {
	s, _ := v.(string)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "20060102"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FetchCandles is the Go shape of _fetch_chart_data: requests period/interval
// and decodes the schema-encoded row data into Candles sorted by date.
func (c *Client) FetchCandles(ctx context.Context, stockCode, period, interval string) ([]Candle, error) {
	var env schemaEnvelope
	q := url.Values{"period": {period}, "interval": {interval}, "compressed": {"true"}}
	if err := c.getJSON(ctx, "/api/v1/stock/chart/"+stockCode, q, &env); err != nil {
		return nil, err
	}

	rows := rowsToMaps(env)
	candles := make([]Candle, 0, len(rows))
	for _, r := range rows {
		candles = append(candles, Candle{
			Date:   parseDate(r["date"]),
			Open:   asFloat(r["open"]),
			High:   asFloat(r["high"]),
			Low:    asFloat(r["low"]),
			Close:  asFloat(r["close"]),
			Volume: int64(asFloat(r["volume"])),
		})
	}
	sort.SliceStable(candles, func(i, j int) bool { return candles[i].Date.Before(candles[j].Date) })
	return candles, nil
}

// FetchSupplyDemand is the Go shape of _fetch_supply_demand_data, covering
// the trailing daysBack-day window ending today.
func (c *Client) FetchSupplyDemand(ctx context.Context, stockCode string, daysBack int, now func() time.Time) ([]SupplyDemandRow, error) {
	end := now()
	start := end.AddDate(0, 0, -daysBack)

	var env schemaEnvelope
	q := url.Values{
		"start_date": {start.Format("20060102")},
		"end_date":   {end.Format("20060102")},
		"compressed": {"true"},
	}
	if err := c.getJSON(ctx, "/api/v1/stock/supply-demand/"+stockCode, q, &env); err != nil {
		return nil, err
	}

	rows := rowsToMaps(env)
	out := make([]SupplyDemandRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, SupplyDemandRow{
			Date:               parseDate(r["date"]),
			IndividualInvestor: asOptFloat(r["individual_investor"]),
			ForeignInvestor:    asOptFloat(r["foreign_investor"]),
			InstitutionTotal:   asOptFloat(r["institution_total"]),
		})
	}
	return out, nil
}

// FetchMarketIndices is the Go shape of _fetch_market_indices.
func (c *Client) FetchMarketIndices(ctx context.Context) (map[string]any, error) {
	var out struct {
		Indices map[string]any `json:"indices"`
	}
	if err := c.getJSON(ctx, "/api/v1/market/indices", nil, &out); err != nil {
		return nil, err
	}
	return out.Indices, nil
}
