package osrm_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/twpayne/go-polyline"

	"github.com/openroads/roadpass/internal/adapters/osrm"
	"github.com/openroads/roadpass/internal/core/domain"
)

func encodedRoute(coords [][]float64) string {
	return string(polyline.EncodeCoords(coords))
}

func TestClient_FetchRoute(t *testing.T) {
	coords := [][]float64{
		{51.50000, -0.20000},
		{51.50100, -0.15000},
		{51.50200, -0.10000},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/route/v1/driving/-0.200000,51.500000;-0.100000,51.502000" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("overview") != "full" {
			t.Errorf("expected overview=full, got %s", r.URL.RawQuery)
		}
		fmt.Fprintf(w, `{"code":"Ok","routes":[{"geometry":%q}]}`, encodedRoute(coords))
	}))
	defer srv.Close()

	c := osrm.New(srv.URL, 5*time.Second)
	route, err := c.FetchRoute(context.Background(),
		domain.GeoPoint{Lat: 51.5, Lon: -0.2},
		domain.GeoPoint{Lat: 51.502, Lon: -0.1},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(route) != 3 {
		t.Fatalf("expected 3 points, got %d", len(route))
	}
	if math.Abs(route[1].Lat-51.501) > 1e-4 || math.Abs(route[1].Lon+0.15) > 1e-4 {
		t.Errorf("unexpected midpoint: %+v", route[1])
	}
}

func TestClient_FetchRoute_NoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"NoRoute","routes":[]}`)
	}))
	defer srv.Close()

	c := osrm.New(srv.URL, 5*time.Second)
	_, err := c.FetchRoute(context.Background(), domain.GeoPoint{Lat: 51.5, Lon: -0.2}, domain.GeoPoint{Lat: 0, Lon: 0})
	if !errors.Is(err, domain.ErrNoRoute) {
		t.Errorf("expected ErrNoRoute, got %v", err)
	}
}

func TestClient_FetchRoute_RetriesServerErrors(t *testing.T) {
	attempts := 0
	coords := [][]float64{{51.5, -0.2}, {51.5, -0.1}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprintf(w, `{"code":"Ok","routes":[{"geometry":%q}]}`, encodedRoute(coords))
	}))
	defer srv.Close()

	c := osrm.New(srv.URL, 5*time.Second)
	route, err := c.FetchRoute(context.Background(), domain.GeoPoint{Lat: 51.5, Lon: -0.2}, domain.GeoPoint{Lat: 51.5, Lon: -0.1})
	if err != nil {
		t.Fatalf("unexpected error after retries: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if len(route) != 2 {
		t.Errorf("expected 2 points, got %d", len(route))
	}
}

func TestClient_FetchRoute_BadRequestIsFinal(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"code":"InvalidQuery"}`)
	}))
	defer srv.Close()

	c := osrm.New(srv.URL, 5*time.Second)
	_, err := c.FetchRoute(context.Background(), domain.GeoPoint{}, domain.GeoPoint{})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("400 must not be retried, got %d attempts", attempts)
	}
}
