package osrm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/twpayne/go-polyline"

	"github.com/openroads/roadpass/internal/core/domain"
)

// Client implements ports.RoutePlanner against an OSRM HTTP server.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type routeResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry string `json:"geometry"`
	} `json:"routes"`
}

// FetchRoute asks OSRM for a driving route and decodes its polyline geometry.
// Returns domain.ErrNoRoute when OSRM knows no way between the points.
func (c *Client) FetchRoute(ctx context.Context, start, dest domain.GeoPoint) ([]domain.GeoPoint, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=full",
		c.baseURL, start.Lon, start.Lat, dest.Lon, dest.Lat)

	resp, err := c.doWithRetry(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("osrm: %w", err)
	}
	defer resp.Body.Close()

	var body routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("osrm: decode response: %w", err)
	}

	if body.Code != "Ok" || len(body.Routes) == 0 {
		return nil, domain.ErrNoRoute
	}

	coords, _, err := polyline.DecodeCoords([]byte(body.Routes[0].Geometry))
	if err != nil {
		return nil, fmt.Errorf("osrm: decode polyline: %w", err)
	}

	route := make([]domain.GeoPoint, len(coords))
	for i, pair := range coords {
		route[i] = domain.GeoPoint{Lat: pair[0], Lon: pair[1]}
	}
	return route, nil
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// doWithRetry retries transient failures (network errors, 429/5xx responses)
// with exponential backoff while respecting context cancellation. A 400-class
// response other than 429 is final: OSRM uses those for bad coordinates.
func (c *Client) doWithRetry(ctx context.Context, url string) (*http.Response, error) {
	const maxAttempts = 4
	backoff := 200 * time.Millisecond

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err == nil && resp.StatusCode < 400 {
			return resp, nil
		}

		retry := false
		if err == nil {
			b, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
			switch resp.StatusCode {
			case 429, 500, 502, 503, 504:
				retry = true
			}
		} else {
			lastErr = err
			var netErr net.Error
			if errors.As(err, &netErr) {
				retry = true
			}
		}

		if !retry || attempt == maxAttempts {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
	}

	return nil, lastErr
}
