package fred

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/moneymap/moneymap/internal/contracts"
	"github.com/moneymap/moneymap/pkg/config"
	"github.com/moneymap/moneymap/pkg/httputil"
	"github.com/moneymap/moneymap/pkg/logger"
)

// Client talks to the Federal Reserve Economic Data (FRED) API.
// All FRED calls go through this client; a shared limiter keeps the
// whole process inside the per-key request budget.
type Client struct {
	httpClient *httputil.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
	logger     *logger.Logger
}

// NewClient creates a FRED API client from config.
func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	perSecond := rate.Limit(float64(cfg.FRED.RequestsPerMinute) / 60.0)
	return &Client{
		httpClient: httputil.New(log, cfg.FRED.Timeout),
		limiter:    rate.NewLimiter(perSecond, cfg.FRED.RequestsPerMinute/10+1),
		apiKey:     cfg.FRED.APIKey,
		baseURL:    cfg.FRED.BaseURL,
		logger:     log.WithField("module", "fred"),
	}
}

// observationsResponse mirrors the FRED series/observations payload.
// Values arrive as strings; missing data points are the literal ".".
type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

type errorResponse struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// FetchSeries fetches observations for one series since the given date,
// ordered ascending by date. Missing-value placeholders are dropped.
func (c *Client) FetchSeries(ctx context.Context, seriesID string, since time.Time) (contracts.Series, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransientError{SeriesID: seriesID, Err: err}
	}

	params := url.Values{}
	params.Set("series_id", seriesID)
	params.Set("api_key", c.apiKey)
	params.Set("file_type", "json")
	params.Set("observation_start", since.Format("2006-01-02"))
	params.Set("sort_order", "asc")

	fullURL := fmt.Sprintf("%s/series/observations?%s", c.baseURL, params.Encode())

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, &TransientError{SeriesID: seriesID, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientError{SeriesID: seriesID, Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.classifyHTTPError(seriesID, resp.StatusCode, body)
	}

	var parsed observationsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &TransientError{SeriesID: seriesID, Err: fmt.Errorf("parse response: %w", err)}
	}

	series := make(contracts.Series, 0, len(parsed.Observations))
	for _, obs := range parsed.Observations {
		if obs.Value == "." {
			continue // FRED's placeholder for a missing data point
		}
		value, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			c.logger.WithFields(map[string]interface{}{
				"series_id": seriesID,
				"date":      obs.Date,
				"value":     obs.Value,
			}).Warn("Skipping unparsable observation")
			continue
		}
		date, err := time.Parse("2006-01-02", obs.Date)
		if err != nil {
			return nil, &PermanentError{SeriesID: seriesID, Err: fmt.Errorf("bad observation date %q: %w", obs.Date, err)}
		}
		series = append(series, contracts.Observation{Date: date, Value: value})
	}

	if err := series.Validate(); err != nil {
		return nil, &PermanentError{SeriesID: seriesID, Err: err}
	}

	c.logger.WithFields(map[string]interface{}{
		"series_id": seriesID,
		"count":     len(series),
	}).Debug("Fetched series")

	return series, nil
}

// classifyHTTPError separates errors worth retrying next run from ones
// that need operator attention (an unknown series id never fixes itself).
func (c *Client) classifyHTTPError(seriesID string, status int, body []byte) error {
	var apiErr errorResponse
	_ = json.Unmarshal(body, &apiErr)

	msg := apiErr.ErrorMessage
	if msg == "" {
		msg = http.StatusText(status)
	}

	if status == http.StatusBadRequest || status == http.StatusNotFound {
		return &PermanentError{SeriesID: seriesID, Err: fmt.Errorf("fred API %d: %s", status, msg)}
	}
	return &TransientError{SeriesID: seriesID, Err: fmt.Errorf("fred API %d: %s", status, msg)}
}
