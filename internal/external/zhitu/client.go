// Package zhitu wraps the ZhituAPI upstream. Quote, pool and financial
// statement calls all go through this client.
// SSOT: ZhituAPI 调用只走这个客户端。
package zhitu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/junzhu/tidegate/backend/pkg/config"
	"github.com/junzhu/tidegate/backend/pkg/httputil"
	"github.com/junzhu/tidegate/backend/pkg/logger"
)

// Pool slugs served by /hs/pool/{slug}/{date}.
const (
	PoolLimitUp   = "ztgc" // 涨停股池
	PoolLimitDown = "dtgc" // 跌停股池
	PoolBroken    = "zbgc" // 炸板股池
)

// Client handles communication with ZhituAPI.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	token      string
}

// NewClient creates a ZhituAPI client. The shared quota gate lives on the
// httputil client, configured by the caller.
func NewClient(cfg config.ZhituConfig, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithModule("zhitu"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
	}
}

// envelope is the standard ZhituAPI response wrapper. Some endpoints return
// a bare JSON array instead, so Data is decoded lazily.
type envelope struct {
	Code *int            `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// get requests path and decodes the payload into dest, unwrapping the
// response envelope when present.
func (c *Client) get(ctx context.Context, path string, params url.Values, dest interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("token", c.token)
	fullURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	var raw json.RawMessage
	if err := c.httpClient.GetJSON(ctx, fullURL, &raw); err != nil {
		return fmt.Errorf("zhitu %s: %w", path, err)
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		var env envelope
		if err := json.Unmarshal(raw, &env); err == nil && env.Data != nil {
			if env.Code != nil && *env.Code != 0 && *env.Code != 200 {
				return fmt.Errorf("zhitu %s: upstream error code %d: %s", path, *env.Code, env.Msg)
			}
			raw = env.Data
		}
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("zhitu %s: decode payload: %w", path, err)
	}
	return nil
}

// Quote is one row of the all-market realtime feed.
type Quote struct {
	Code      string    `json:"dm"`
	Name      string    `json:"mc"`
	PctChange FlexFloat `json:"pc"`
}

// GetRealtimeAll fetches the full-market realtime snapshot, indexes included.
func (c *Client) GetRealtimeAll(ctx context.Context) ([]Quote, error) {
	var quotes []Quote
	if err := c.get(ctx, "/hs/public/realall", nil, &quotes); err != nil {
		return nil, err
	}
	return quotes, nil
}

// PoolEntry is one row of a themed stock pool.
type PoolEntry struct {
	Code string `json:"dm"`
	Name string `json:"mc"`
}

// GetPool fetches a themed pool for a date (YYYY-MM-DD).
func (c *Client) GetPool(ctx context.Context, slug string, date string) ([]PoolEntry, error) {
	var entries []PoolEntry
	path := fmt.Sprintf("/hs/pool/%s/%s", slug, date)
	if err := c.get(ctx, path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Listing is one row of the instrument list.
type Listing struct {
	Code string `json:"dm"`
	Name string `json:"mc"`
}

// GetStockList fetches the full instrument list for universe sync.
func (c *Client) GetStockList(ctx context.Context) ([]Listing, error) {
	var listings []Listing
	if err := c.get(ctx, "/hs/list/all", nil, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

// GetFinancialIndicators fetches the financial indicator table (cwzb) for
// one listing. Rows are schemaless maps; field names vary by plan tier.
func (c *Client) GetFinancialIndicators(ctx context.Context, code string) ([]map[string]interface{}, error) {
	var rows []map[string]interface{}
	path := fmt.Sprintf("/hs/gs/cwzb/%s", PureCode(code))
	if err := c.get(ctx, path, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetIncomeStatements fetches income statement rows for one listing.
func (c *Client) GetIncomeStatements(ctx context.Context, code string) ([]map[string]interface{}, error) {
	var rows []map[string]interface{}
	path := fmt.Sprintf("/hs/fin/income/%s", NormalizeCode(code))
	if err := c.get(ctx, path, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// FlexFloat decodes a numeric field that the upstream may serialize as a
// number, a quoted number, or the "--" no-data marker (decoded as zero with
// Present false).
type FlexFloat struct {
	Value   float64
	Present bool
}

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "--" || s == "null" {
		f.Value, f.Present = 0, false
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		f.Value, f.Present = 0, false
		return nil
	}
	f.Value, f.Present = v, true
	return nil
}

// exchange prefixes by leading digit of a pure code.
var exchangeByPrefix = map[byte]string{
	'6': "SH", '9': "SH", '5': "SH",
	'0': "SZ", '1': "SZ", '2': "SZ", '3': "SZ",
	'4': "BJ", '8': "BJ",
}

// NormalizeCode converts any accepted code spelling to the canonical
// "000001.SZ" form. Inputs already carrying a suffix pass through.
func NormalizeCode(raw string) string {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return raw
	}
	if strings.Contains(raw, ".") {
		return raw
	}
	if len(raw) > 2 {
		if ex := raw[:2]; ex == "SH" || ex == "SZ" || ex == "BJ" {
			return raw[2:] + "." + ex
		}
	}
	if ex, ok := exchangeByPrefix[raw[0]]; ok {
		return raw + "." + ex
	}
	return raw
}

// PureCode strips any exchange prefix or suffix, leaving the digits.
func PureCode(raw string) string {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if i := strings.Index(raw, "."); i >= 0 {
		return raw[:i]
	}
	if len(raw) > 2 {
		if ex := raw[:2]; ex == "SH" || ex == "SZ" || ex == "BJ" {
			return raw[2:]
		}
	}
	return raw
}
