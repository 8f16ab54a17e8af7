package oracle

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"binance-futures-backtest/internal/config"
	"binance-futures-backtest/internal/market"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	predictPath = "/predict"
	maxRetries  = 3
)

// HTTPOracle asks a model-serving endpoint for probabilities.
type HTTPOracle struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
	backoff time.Duration
}

// ensure HTTPOracle implements the interface
var _ Oracle = (*HTTPOracle)(nil)

// PredictRequest is the body POSTed to the model server.
type PredictRequest struct {
	Symbol    string             `json:"symbol"`
	Timestamp time.Time          `json:"timestamp"`
	Features  map[string]float64 `json:"features"`
}

// PredictResponse carries the class probabilities in (short, long) or
// (short, neutral, long) order.
type PredictResponse struct {
	Probabilities []float64 `json:"probabilities"`
}

// NewHTTPOracle creates a client for the model server at cfg.URL.
func NewHTTPOracle(cfg config.Oracle, logger *zap.Logger) *HTTPOracle {
	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &HTTPOracle{
		client:  client,
		logger:  logger.Named("oracle"),
		limiter: limiter,
		backoff: time.Second,
	}
}

// Predict sends row to the model server and validates the answer. Cancelling ctx
// aborts the request and any pending retry.
func (o *HTTPOracle) Predict(ctx context.Context, symbol string, row market.FeatureRow) (market.Probabilities, error) {
	body := PredictRequest{Symbol: symbol, Timestamp: row.Timestamp, Features: row.Values}

	result, err := o.predict(ctx, body)
	if err != nil {
		o.logger.Error("Failed to get prediction", zap.String("symbol", symbol), zap.Error(err))
		return market.Probabilities{}, fmt.Errorf("failed to get prediction for %s: %w", symbol, err)
	}

	p, err := market.NewProbabilities(result.Probabilities)
	if err != nil {
		return market.Probabilities{}, fmt.Errorf("prediction for %s at %s: %w", symbol, row.Timestamp, err)
	}
	return p, nil
}

// predict posts body until the server answers, a non-retryable status comes back,
// attempts run out or ctx is done.
func (o *HTTPOracle) predict(ctx context.Context, body PredictRequest) (*PredictResponse, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		result := &PredictResponse{}
		resp, err := o.client.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(result).
			Post(predictPath)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err == nil && !resp.IsError() {
			return result, nil
		}

		wait, retry := o.retryDelay(resp, err, attempt)
		if err == nil {
			err = fmt.Errorf("status %s: %s", resp.Status(), resp.String())
		}
		if !retry {
			return nil, err
		}
		lastErr = err

		o.logger.Warn("Prediction request failed, retrying",
			zap.String("symbol", body.Symbol),
			zap.Int("attempt", attempt+1),
			zap.Duration("retry_after", wait),
			zap.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, lastErr)
}

// retryDelay decides whether a failed attempt is worth repeating and how long to wait.
// Transport errors and 5xx are retried with exponential backoff; 429 and 503 honor
// Retry-After when the server sends it. Other 4xx mean the request itself is wrong.
func (o *HTTPOracle) retryDelay(resp *resty.Response, err error, attempt int) (time.Duration, bool) {
	backoff := time.Duration(math.Pow(2, float64(attempt))) * o.backoff
	if err != nil || resp == nil {
		return backoff, true
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable:
		if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second, true
		}
		return backoff, true
	case code >= http.StatusInternalServerError:
		return backoff, true
	default:
		return 0, false
	}
}
