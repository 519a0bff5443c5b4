package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"papertrade/internal/logger"
	"papertrade/internal/types"
)

// HTTPProvider fetches quotes from a REST quote API
// (GET {base}/quote?symbol=X and GET {base}/historical?symbol=X).
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	timeout time.Duration
}

func NewHTTPProvider(baseURL, apiKey string, perSec float64, timeout time.Duration) *HTTPProvider {
	if perSec <= 0 {
		perSec = 10
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(perSec), int(perSec)+1),
		timeout: timeout,
	}
}

func (p *HTTPProvider) Quote(ctx context.Context, symbol string) (types.Quote, error) {
	body, err := p.get(ctx, "/quote", url.Values{"symbol": {symbol}})
	if err != nil {
		return types.Quote{}, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	parsed := gjson.ParseBytes(body)
	price := parsed.Get("price")
	if !price.Exists() {
		return types.Quote{}, fmt.Errorf("%w: no price for %s", ErrQuoteUnavailable, symbol)
	}
	return types.Quote{
		Symbol:    symbol,
		Price:     price.Float(),
		Change:    parsed.Get("change").Float(),
		Volume:    parsed.Get("volume").Float(),
		Timestamp: time.Now(),
	}, nil
}

func (p *HTTPProvider) Candles(ctx context.Context, symbol, interval string, limit int) ([]types.Candle, error) {
	body, err := p.get(ctx, "/historical", url.Values{
		"symbol":   {symbol},
		"interval": {interval},
		"limit":    {strconv.Itoa(limit)},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	rows := gjson.ParseBytes(body).Get("candles")
	if !rows.Exists() {
		rows = gjson.ParseBytes(body)
	}
	var out []types.Candle
	rows.ForEach(func(_, row gjson.Result) bool {
		out = append(out, types.Candle{
			Timestamp: row.Get("ts").Int(),
			Open:      row.Get("open").Float(),
			High:      row.Get("high").Float(),
			Low:       row.Get("low").Float(),
			Close:     row.Get("close").Float(),
			Volume:    row.Get("volume").Float(),
		})
		return true
	})
	return out, nil
}

func (p *HTTPProvider) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if p.apiKey != "" {
		query.Set("apikey", p.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		logger.Warnf("quote api %s returned status %d", path, resp.StatusCode)
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return body, nil
}
