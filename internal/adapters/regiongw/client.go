package regiongw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/openroads/roadpass/internal/core/domain"
	"github.com/openroads/roadpass/internal/core/ports"
)

// Client implements ports.RegionGateway over plain HTTP/JSON. Deadlines come
// from the caller's context; the embedded http.Client carries no timeout of
// its own so one gateway can serve all three saga phases.
type Client struct {
	http *http.Client
}

func New() *Client {
	return &Client{http: &http.Client{}}
}

// Reserve posts one chunk to the region's admission endpoint. The HTTP status
// decides OK; the body is returned verbatim either way so the saga can echo
// the region's own words into its result map.
func (c *Client) Reserve(ctx context.Context, endpoint string, req *domain.ReserveRequest) (ports.RegionCallResult, error) {
	return c.post(ctx, endpoint+"/process_segment", req)
}

// Confirm tells the region to promote the booking's reserved rows.
func (c *Client) Confirm(ctx context.Context, endpoint, bookingID string) (ports.RegionCallResult, error) {
	return c.post(ctx, endpoint+"/confirm_booking", map[string]string{"booking_id": bookingID})
}

// Cancel tells the region to release the booking's capacity and decodes the
// region's cancel outcome. Unknown bookings come back as a not_found outcome
// with a 2xx status, so a non-2xx here is a real failure.
func (c *Client) Cancel(ctx context.Context, endpoint, bookingID string) (domain.CancelOutcome, error) {
	res, err := c.post(ctx, endpoint+"/cancel_booking", map[string]string{"booking_id": bookingID})
	if err != nil {
		return domain.CancelOutcome{}, err
	}
	if !res.OK {
		return domain.CancelOutcome{}, fmt.Errorf("region cancel: status %d: %s", res.StatusCode, res.Body)
	}

	var outcome domain.CancelOutcome
	if err := json.Unmarshal([]byte(res.Body), &outcome); err != nil {
		return domain.CancelOutcome{}, fmt.Errorf("region cancel: decode outcome: %w", err)
	}
	return outcome, nil
}

// Segments fetches the region's raw segment listing for the booking. The body
// is passed through undecoded; the coordinator merges it as-is.
func (c *Client) Segments(ctx context.Context, endpoint, bookingID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/get_segments/"+bookingID, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("region segments: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func (c *Client) post(ctx context.Context, url string, payload any) (ports.RegionCallResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return ports.RegionCallResult{}, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return ports.RegionCallResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return ports.RegionCallResult{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ports.RegionCallResult{}, fmt.Errorf("read response: %w", err)
	}

	return ports.RegionCallResult{
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(respBody)),
	}, nil
}
