package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aktagon/content-pipeline/internal/apperr"
	"github.com/aktagon/content-pipeline/internal/cache"
)

const trendsService = "trends service"

// Trend directions reported by Interest.
const (
	DirectionRising = "rising"
	DirectionSteady = "steady"
)

// TrendsSource reports the recent search-interest direction per keyword.
type TrendsSource interface {
	Interest(ctx context.Context, keywords []string) (map[string]string, error)
}

// TrendsClient queries a JSON endpoint shaped like
// {"interest": {"<keyword>": [n, n, ...]}} with one series per requested keyword.
type TrendsClient struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
	cache    cache.Cache
}

// NewTrendsClient returns a client for endpoint. A nil cache disables caching.
func NewTrendsClient(endpoint string, timeout time.Duration, c cache.Cache) *TrendsClient {
	if c == nil {
		c = cache.Noop{}
	}
	return &TrendsClient{endpoint: endpoint, timeout: timeout, client: newHTTPClient(timeout), cache: c}
}

type trendsResponse struct {
	Interest map[string][]float64 `json:"interest"`
}

// Interest returns DirectionRising for keywords whose last sample exceeds their
// first, DirectionSteady otherwise. Keywords missing from the response are steady.
func (t *TrendsClient) Interest(ctx context.Context, keywords []string) (map[string]string, error) {
	if strings.TrimSpace(t.endpoint) == "" {
		return nil, apperr.Unavailable(trendsService, errors.New("no endpoint configured"))
	}

	key := cache.Key("trends", append([]string{t.endpoint}, keywords...)...)
	body, hit, err := t.cache.Get(ctx, key)
	if err != nil || !hit {
		body, err = t.request(ctx, keywords)
		if err != nil {
			return nil, err
		}
	}

	var resp trendsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperr.Unavailable(trendsService, fmt.Errorf("parsing response: %w", err))
	}
	if resp.Interest == nil {
		return nil, apperr.Unavailable(trendsService, errors.New("response carries no interest data"))
	}

	if !hit {
		_ = t.cache.Set(ctx, key, body)
	}

	directions := make(map[string]string, len(keywords))
	for _, kw := range keywords {
		directions[kw] = direction(resp.Interest[kw])
	}
	return directions, nil
}

func (t *TrendsClient) request(ctx context.Context, keywords []string) ([]byte, error) {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	u, err := url.Parse(t.endpoint)
	if err != nil {
		return nil, apperr.Unavailable(trendsService, err)
	}
	q := u.Query()
	for _, kw := range keywords {
		q.Add("q", kw)
	}
	q.Set("timeframe", "today 3-m")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, apperr.Unavailable(trendsService, err)
	}
	req.Header.Set("Accept", "application/json")
	return fetch(t.client, req, trendsService)
}

func direction(series []float64) string {
	if len(series) >= 2 && series[len(series)-1] > series[0] {
		return DirectionRising
	}
	return DirectionSteady
}
