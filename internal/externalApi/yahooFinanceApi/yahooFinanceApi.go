package yahooFinanceApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/go-resty/resty/v2"
	"github.com/ijikeman/stockmanager/config"
	"github.com/ijikeman/stockmanager/internal/externalApi"
	"github.com/ijikeman/stockmanager/internal/model/quoteModel"
	"github.com/ijikeman/stockmanager/utils"
	"github.com/shopspring/decimal"
)

const preloadedStatePrefix = "window.__PRELOADED_STATE__ = "

const (
	pricePath         = "$.mainStocksPriceBoard.priceBoard.price"
	previousClosePath = "$.mainStocksDetail.detail.previousPrice"
	dividendPath      = "$.mainStocksDetail.referenceIndex.dps"
	namePath          = "$.mainStocksPriceBoard.priceBoard.name"
	earningsPath      = "$.mainStocksPressReleaseSchedule.pressReleaseScheduleMessage"
)

var earningsDateRe = regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日`)

// YahooFinanceApi scrapes quote pages of Yahoo Finance Japan. Quote data
// lives in a preloaded-state JSON blob embedded in the page HTML.
//
// Requests are spaced at least cfg.API.YahooFinance.RequestInterval apart
// across all callers to stay clear of rate limiting.
type YahooFinanceApi struct {
	client   *resty.Client
	interval time.Duration

	mu          sync.Mutex
	lastRequest time.Time
}

func New(cfg *config.Config) *YahooFinanceApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.YahooFinance.Url)
	return &YahooFinanceApi{client: client, interval: cfg.API.YahooFinance.RequestInterval}
}

func (a *YahooFinanceApi) GetQuote(ctx context.Context, code string) (quoteModel.StockQuote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("start YahooFinanceApi.GetQuote request", slog.String("rqID", rqID), slog.String("code", code))

	state, err := a.fetchPreloadedState(ctx, code)
	if err != nil {
		slog.Error("error fetching quote page", slog.String("err", err.Error()), slog.String("rqID", rqID), slog.String("code", code))
		return quoteModel.StockQuote{}, err
	}

	quote := quoteModel.StockQuote{
		Price:         extractDecimal(state, pricePath),
		PreviousClose: extractDecimal(state, previousClosePath),
		Dividend:      extractDecimal(state, dividendPath),
		EarningsDate:  extractEarningsDate(state),
	}

	if quote.Price == nil {
		slog.Warn("quote page has no price board", slog.String("rqID", rqID), slog.String("code", code))
		return quoteModel.StockQuote{}, externalApi.ErrNotFound
	}

	slog.Debug("YahooFinanceApi.GetQuote request complete", slog.String("rqID", rqID), slog.String("code", code))

	return quote, nil
}

func (a *YahooFinanceApi) GetStockName(ctx context.Context, code string) (string, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("start YahooFinanceApi.GetStockName request", slog.String("rqID", rqID), slog.String("code", code))

	state, err := a.fetchPreloadedState(ctx, code)
	if err != nil {
		slog.Error("error fetching quote page", slog.String("err", err.Error()), slog.String("rqID", rqID), slog.String("code", code))
		return "", err
	}

	jval, err := jsonpath.Get(namePath, state)
	if err != nil {
		return "", externalApi.ErrNotFound
	}

	name, ok := jval.(string)
	if !ok || name == "" {
		return "", externalApi.ErrNotFound
	}

	slog.Debug("YahooFinanceApi.GetStockName request complete", slog.String("rqID", rqID), slog.String("code", code))

	return name, nil
}

func (a *YahooFinanceApi) fetchPreloadedState(ctx context.Context, code string) (any, error) {
	a.throttle(ctx)

	resp, err := a.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/quote/%s.T", code))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", externalApi.ErrUnavailable, err)
	}

	if resp.StatusCode() == 404 {
		return nil, externalApi.ErrNotFound
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: quote page returned status %d", externalApi.ErrUnavailable, resp.StatusCode())
	}

	raw, err := extractPreloadedState(string(resp.Body()))
	if err != nil {
		return nil, err
	}

	var state any
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("can't unmarshall preloaded state: %w", err)
	}

	return state, nil
}

// throttle blocks until the configured interval since the previous request
// has elapsed, or the context is done.
func (a *YahooFinanceApi) throttle(ctx context.Context) {
	a.mu.Lock()
	wait := a.interval - time.Since(a.lastRequest)
	a.lastRequest = time.Now().Add(wait)
	a.mu.Unlock()

	if wait <= 0 {
		return
	}

	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

func extractPreloadedState(html string) (string, error) {
	start := strings.Index(html, preloadedStatePrefix)
	if start == -1 {
		return "", fmt.Errorf("preloaded state not found in quote page")
	}
	rest := html[start+len(preloadedStatePrefix):]

	end := strings.Index(rest, "</script>")
	if end == -1 {
		return "", fmt.Errorf("preloaded state script is not terminated")
	}

	return strings.TrimSpace(rest[:end]), nil
}

// extractDecimal reads a numeric value at path. The page serves numbers
// both as JSON numbers and as comma-grouped strings ("1,234.5"); anything
// missing or unparsable yields nil, never zero.
func extractDecimal(state any, path string) *decimal.Decimal {
	jval, err := jsonpath.Get(path, state)
	if err != nil || jval == nil {
		return nil
	}

	switch v := jval.(type) {
	case float64:
		d := decimal.NewFromFloat(v)
		return &d
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		if s == "" || s == "---" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		d := decimal.NewFromFloat(f)
		return &d
	default:
		return nil
	}
}

func extractEarningsDate(state any) *time.Time {
	jval, err := jsonpath.Get(earningsPath, state)
	if err != nil {
		return nil
	}

	message, ok := jval.(string)
	if !ok {
		return nil
	}

	m := earningsDateRe.FindStringSubmatch(message)
	if m == nil {
		return nil
	}

	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return &date
}
