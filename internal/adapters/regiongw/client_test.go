package regiongw_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openroads/roadpass/internal/adapters/regiongw"
	"github.com/openroads/roadpass/internal/core/domain"
)

func TestClient_Reserve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/process_segment" || r.Method != http.MethodPost {
			t.Errorf("unexpected call: %s %s", r.Method, r.URL.Path)
		}
		var req domain.ReserveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.BookingID != "bk-1" || len(req.Coordinates) != 2 {
			t.Errorf("unexpected payload: %+v", req)
		}
		fmt.Fprint(w, `{"status":"success","segments_reserved":4}`)
	}))
	defer srv.Close()

	c := regiongw.New()
	res, err := c.Reserve(context.Background(), srv.URL, &domain.ReserveRequest{
		BookingID:   "bk-1",
		Coordinates: []domain.GeoPoint{{Lat: 51.5, Lon: -0.2}, {Lat: 51.5, Lon: -0.1}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.OK || res.StatusCode != 200 {
		t.Errorf("expected OK 200, got %+v", res)
	}
}

func TestClient_Reserve_RejectionIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"status":"failure","message":"capacity exceeded on segment s1"}`)
	}))
	defer srv.Close()

	c := regiongw.New()
	res, err := c.Reserve(context.Background(), srv.URL, &domain.ReserveRequest{
		BookingID:   "bk-2",
		Coordinates: []domain.GeoPoint{{Lat: 51.5, Lon: -0.2}, {Lat: 51.5, Lon: -0.1}},
	})
	if err != nil {
		t.Fatalf("an HTTP rejection must not be a transport error: %v", err)
	}
	if res.OK {
		t.Error("expected OK=false for 400")
	}
	if res.Body == "" {
		t.Error("expected rejection body to be preserved")
	}
}

func TestClient_Reserve_TransportError(t *testing.T) {
	c := regiongw.New()
	_, err := c.Reserve(context.Background(), "http://127.0.0.1:1", &domain.ReserveRequest{
		BookingID:   "bk-3",
		Coordinates: []domain.GeoPoint{{Lat: 51.5, Lon: -0.2}, {Lat: 51.5, Lon: -0.1}},
	})
	if err == nil {
		t.Fatal("expected transport error for unreachable endpoint")
	}
}

func TestClient_Cancel_DecodesOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cancel_booking" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"status":"cancelled","segments_cancelled":5,"segments_freed":3}`)
	}))
	defer srv.Close()

	c := regiongw.New()
	outcome, err := c.Cancel(context.Background(), srv.URL, "bk-4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.SegmentsCancelled != 5 || outcome.SegmentsFreed != 3 {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
}

func TestClient_Segments_PassthroughBody(t *testing.T) {
	raw := `{"booking_id":"bk-5","segments":[{"segment_id":"s1"}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get_segments/bk-5" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprint(w, raw)
	}))
	defer srv.Close()

	c := regiongw.New()
	body, err := c.Segments(context.Background(), srv.URL, "bk-5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != raw {
		t.Errorf("body not passed through: %s", body)
	}
}
