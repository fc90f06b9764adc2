package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/openroads/roadpass/internal/core/domain"
	"github.com/openroads/roadpass/internal/core/ports"
	"github.com/openroads/roadpass/internal/core/usecases"
)

// --- Mocks ---

type mockPlanner struct {
	route []domain.GeoPoint
	err   error
}

func (m *mockPlanner) FetchRoute(ctx context.Context, start, dest domain.GeoPoint) ([]domain.GeoPoint, error) {
	return m.route, m.err
}

type gatewayCall struct {
	op       string
	endpoint string
}

type mockGateway struct {
	mu    sync.Mutex
	calls []gatewayCall

	reserveFn  func(endpoint string, req *domain.ReserveRequest) (ports.RegionCallResult, error)
	cancelFn   func(endpoint, bookingID string) (domain.CancelOutcome, error)
	segmentsFn func(endpoint, bookingID string) ([]byte, error)
}

func (m *mockGateway) record(op, endpoint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, gatewayCall{op: op, endpoint: endpoint})
}

func (m *mockGateway) count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.op == op {
			n++
		}
	}
	return n
}

func (m *mockGateway) Reserve(ctx context.Context, endpoint string, req *domain.ReserveRequest) (ports.RegionCallResult, error) {
	m.record("reserve", endpoint)
	if m.reserveFn != nil {
		return m.reserveFn(endpoint, req)
	}
	return ports.RegionCallResult{OK: true, StatusCode: 200, Body: `{"status":"success"}`}, nil
}

func (m *mockGateway) Confirm(ctx context.Context, endpoint, bookingID string) (ports.RegionCallResult, error) {
	m.record("confirm", endpoint)
	return ports.RegionCallResult{OK: true, StatusCode: 200}, nil
}

func (m *mockGateway) Cancel(ctx context.Context, endpoint, bookingID string) (domain.CancelOutcome, error) {
	m.record("cancel", endpoint)
	if m.cancelFn != nil {
		return m.cancelFn(endpoint, bookingID)
	}
	return domain.CancelOutcome{Status: "cancelled"}, nil
}

func (m *mockGateway) Segments(ctx context.Context, endpoint, bookingID string) ([]byte, error) {
	m.record("segments", endpoint)
	if m.segmentsFn != nil {
		return m.segmentsFn(endpoint, bookingID)
	}
	return []byte(`{"segments":[]}`), nil
}

type mockBookingRepo struct {
	mu      sync.Mutex
	created *domain.BookingInfo

	getByIDFn      func(bookingID string) (*domain.BookingInfo, error)
	updateStatusFn func(bookingID string, status domain.BookingStatus) error
}

func (m *mockBookingRepo) Create(ctx context.Context, booking *domain.BookingInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = booking
	return nil
}

func (m *mockBookingRepo) GetByID(ctx context.Context, bookingID string) (*domain.BookingInfo, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(bookingID)
	}
	return nil, domain.ErrNotFound
}

func (m *mockBookingRepo) UpdateStatus(ctx context.Context, bookingID string, status domain.BookingStatus) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(bookingID, status)
	}
	return nil
}

func (m *mockBookingRepo) List(ctx context.Context, offset, limit int) ([]domain.BookingInfo, int, error) {
	return nil, 0, nil
}

func newBookingService(planner *mockPlanner, gw *mockGateway, repo *mockBookingRepo) *usecases.BookingService {
	return usecases.NewBookingService(
		testRegions(), planner, gw, repo, nil, nil,
		usecases.SagaTimeouts{
			Reserve: 5 * time.Second,
			Confirm: 5 * time.Second,
			Cancel:  5 * time.Second,
		},
	)
}

// Routes used across the saga tests.
func londonOnlyRoute() []domain.GeoPoint {
	return []domain.GeoPoint{{Lat: 51.5, Lon: -0.2}, {Lat: 51.5, Lon: -0.1}}
}

func crossRegionRoute() []domain.GeoPoint {
	return []domain.GeoPoint{
		{Lat: 53.35, Lon: -6.26}, // ireland
		{Lat: 51.50, Lon: -0.15}, // london
	}
}

// --- Submit ---

func TestBookingService_Submit_AllRegionsAccept(t *testing.T) {
	gw := &mockGateway{}
	repo := &mockBookingRepo{}
	svc := newBookingService(&mockPlanner{route: crossRegionRoute()}, gw, repo)

	res, err := svc.Submit(context.Background(), "53.35,-6.26", "51.50,-0.15", "Ada", "ada@example.com", "2026-09-01T08:00:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != domain.BookingSuccess {
		t.Errorf("expected success, got %s", res.Status)
	}
	if len(res.Results) != 2 {
		t.Errorf("expected 2 chunk results, got %d", len(res.Results))
	}
	if gw.count("confirm") != 2 {
		t.Errorf("expected 2 confirms, got %d", gw.count("confirm"))
	}
	if gw.count("cancel") != 0 {
		t.Errorf("expected no cancels, got %d", gw.count("cancel"))
	}
	if repo.created == nil || repo.created.Status != domain.BookingSuccess {
		t.Fatalf("booking not persisted as success: %+v", repo.created)
	}
	if len(repo.created.Regions) != 2 || repo.created.Regions[0] != "ireland" || repo.created.Regions[1] != "london" {
		t.Errorf("unexpected involved regions: %v", repo.created.Regions)
	}
}

func TestBookingService_Submit_OneRejectionCancelsEverywhere(t *testing.T) {
	gw := &mockGateway{
		reserveFn: func(endpoint string, req *domain.ReserveRequest) (ports.RegionCallResult, error) {
			if endpoint == "http://localhost:8002" { // london rejects
				return ports.RegionCallResult{OK: false, StatusCode: 400, Body: `{"status":"failure","message":"capacity exceeded"}`}, nil
			}
			return ports.RegionCallResult{OK: true, StatusCode: 200, Body: `{"status":"success"}`}, nil
		},
	}
	repo := &mockBookingRepo{}
	svc := newBookingService(&mockPlanner{route: crossRegionRoute()}, gw, repo)

	res, err := svc.Submit(context.Background(), "53.35,-6.26", "51.50,-0.15", "Ada", "ada@example.com", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != domain.BookingFailure {
		t.Errorf("expected failure, got %s", res.Status)
	}
	// Compensation goes to every involved region, the rejecting one included.
	if gw.count("cancel") != 2 {
		t.Errorf("expected 2 cancels, got %d", gw.count("cancel"))
	}
	if gw.count("confirm") != 0 {
		t.Errorf("expected no confirms, got %d", gw.count("confirm"))
	}
	if !strings.HasPrefix(res.Results["segment_2"], "Error:") {
		t.Errorf("expected london result to carry the rejection, got %q", res.Results["segment_2"])
	}
	if repo.created == nil || repo.created.Status != domain.BookingFailure {
		t.Fatalf("booking not persisted as failure: %+v", repo.created)
	}
}

func TestBookingService_Submit_TransportErrorIsFailure(t *testing.T) {
	gw := &mockGateway{
		reserveFn: func(endpoint string, req *domain.ReserveRequest) (ports.RegionCallResult, error) {
			return ports.RegionCallResult{}, errors.New("connection refused")
		},
	}
	repo := &mockBookingRepo{}
	svc := newBookingService(&mockPlanner{route: londonOnlyRoute()}, gw, repo)

	res, err := svc.Submit(context.Background(), "51.5,-0.2", "51.5,-0.1", "", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != domain.BookingFailure {
		t.Errorf("expected failure, got %s", res.Status)
	}
	if !strings.Contains(res.Results["segment_1"], "connection refused") {
		t.Errorf("expected transport error in result, got %q", res.Results["segment_1"])
	}
}

func TestBookingService_Submit_UncoveredRouteIsVacuousSuccess(t *testing.T) {
	// Route entirely outside every configured region: nothing to reserve,
	// nothing to confirm, and the round succeeds with zero chunks.
	madrid := []domain.GeoPoint{{Lat: 40.41, Lon: -3.70}, {Lat: 40.42, Lon: -3.69}}
	gw := &mockGateway{}
	repo := &mockBookingRepo{}
	svc := newBookingService(&mockPlanner{route: madrid}, gw, repo)

	res, err := svc.Submit(context.Background(), "40.41,-3.70", "40.42,-3.69", "", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != domain.BookingSuccess {
		t.Errorf("expected vacuous success, got %s", res.Status)
	}
	if len(res.Results) != 0 {
		t.Errorf("expected no results, got %v", res.Results)
	}
	if res.UncoveredChunks != 1 {
		t.Errorf("expected 1 uncovered chunk, got %d", res.UncoveredChunks)
	}
	if len(gw.calls) != 0 {
		t.Errorf("expected no region calls, got %v", gw.calls)
	}
}

func TestBookingService_Submit_BadCoordinates(t *testing.T) {
	svc := newBookingService(&mockPlanner{}, &mockGateway{}, &mockBookingRepo{})

	for _, raw := range []string{"not-a-pair", "91.0,0.0", "51.5", "51.5,abc"} {
		_, err := svc.Submit(context.Background(), raw, "51.5,-0.1", "", "", "")
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("%q: expected ErrInvalidInput, got %v", raw, err)
		}
	}
}

func TestBookingService_Submit_NoRoute(t *testing.T) {
	svc := newBookingService(&mockPlanner{err: domain.ErrNoRoute}, &mockGateway{}, &mockBookingRepo{})

	_, err := svc.Submit(context.Background(), "51.5,-0.2", "51.5,-0.1", "", "", "")
	if !errors.Is(err, domain.ErrNoRoute) {
		t.Errorf("expected ErrNoRoute, got %v", err)
	}
}

func TestBookingService_Submit_RevisitedRegionConfirmedOnce(t *testing.T) {
	// london, ireland, london again: three chunks, but only two distinct
	// regions, each broadcast to exactly once.
	route := []domain.GeoPoint{
		{Lat: 51.50, Lon: -0.15},
		{Lat: 53.35, Lon: -6.26},
		{Lat: 51.50, Lon: -0.10},
	}
	gw := &mockGateway{}
	repo := &mockBookingRepo{}
	svc := newBookingService(&mockPlanner{route: route}, gw, repo)

	res, err := svc.Submit(context.Background(), "51.50,-0.15", "51.50,-0.10", "", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Results) != 3 {
		t.Errorf("expected 3 chunk results, got %d", len(res.Results))
	}
	if gw.count("reserve") != 3 {
		t.Errorf("expected 3 reserves, got %d", gw.count("reserve"))
	}
	if gw.count("confirm") != 2 {
		t.Errorf("expected 2 confirms (one per distinct region), got %d", gw.count("confirm"))
	}
	if len(repo.created.Regions) != 2 {
		t.Errorf("expected 2 involved regions, got %v", repo.created.Regions)
	}
}

// --- Cancel ---

func TestBookingService_Cancel_SumsRegionCounts(t *testing.T) {
	repo := &mockBookingRepo{
		getByIDFn: func(bookingID string) (*domain.BookingInfo, error) {
			return &domain.BookingInfo{
				BookingID: bookingID,
				Regions:   []string{"ireland", "london"},
				Status:    domain.BookingSuccess,
			}, nil
		},
	}
	var persisted domain.BookingStatus
	repo.updateStatusFn = func(bookingID string, status domain.BookingStatus) error {
		persisted = status
		return nil
	}
	gw := &mockGateway{
		cancelFn: func(endpoint, bookingID string) (domain.CancelOutcome, error) {
			return domain.CancelOutcome{Status: "cancelled", SegmentsCancelled: 3, SegmentsFreed: 2}, nil
		},
	}
	svc := newBookingService(&mockPlanner{}, gw, repo)

	sum, err := svc.Cancel(context.Background(), "bk-9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Status != "cancelled" {
		t.Errorf("expected cancelled, got %s", sum.Status)
	}
	if sum.TotalSegmentsCancelled != 6 || sum.TotalSegmentsFreed != 4 {
		t.Errorf("unexpected totals: %+v", sum)
	}
	if len(sum.Regions) != 2 {
		t.Fatalf("expected a per-region entry for both regions, got %v", sum.Regions)
	}
	for _, region := range []string{"ireland", "london"} {
		out := sum.Regions[region]
		if out.Status != "cancelled" || out.SegmentsCancelled != 3 || out.SegmentsFreed != 2 {
			t.Errorf("%s: unexpected outcome %+v", region, out)
		}
	}
	if persisted != domain.BookingCancelled {
		t.Errorf("expected central record downgraded to cancelled, got %s", persisted)
	}
}

func TestBookingService_Cancel_AlreadyCancelled(t *testing.T) {
	repo := &mockBookingRepo{
		getByIDFn: func(bookingID string) (*domain.BookingInfo, error) {
			return &domain.BookingInfo{BookingID: bookingID, Status: domain.BookingCancelled}, nil
		},
	}
	gw := &mockGateway{}
	svc := newBookingService(&mockPlanner{}, gw, repo)

	sum, err := svc.Cancel(context.Background(), "bk-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Status != "already_cancelled" {
		t.Errorf("expected already_cancelled, got %s", sum.Status)
	}
	if len(gw.calls) != 0 {
		t.Errorf("expected no region calls, got %v", gw.calls)
	}
}

func TestBookingService_Cancel_PartialWhenRegionUnreachable(t *testing.T) {
	repo := &mockBookingRepo{
		getByIDFn: func(bookingID string) (*domain.BookingInfo, error) {
			return &domain.BookingInfo{
				BookingID: bookingID,
				Regions:   []string{"ireland", "london"},
				Status:    domain.BookingSuccess,
			}, nil
		},
	}
	var persisted domain.BookingStatus
	repo.updateStatusFn = func(bookingID string, status domain.BookingStatus) error {
		persisted = status
		return nil
	}
	gw := &mockGateway{
		cancelFn: func(endpoint, bookingID string) (domain.CancelOutcome, error) {
			if endpoint == "http://localhost:8001" {
				return domain.CancelOutcome{}, errors.New("timeout")
			}
			return domain.CancelOutcome{Status: "cancelled", SegmentsCancelled: 2, SegmentsFreed: 2}, nil
		},
	}
	svc := newBookingService(&mockPlanner{}, gw, repo)

	sum, err := svc.Cancel(context.Background(), "bk-11")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Status != "partially_cancelled" {
		t.Errorf("expected partially_cancelled, got %s", sum.Status)
	}
	if sum.TotalSegmentsCancelled != 2 {
		t.Errorf("expected totals from the reachable region only, got %+v", sum)
	}
	// The unreachable region still shows up, as a zero-count failed entry.
	ireland := sum.Regions["ireland"]
	if ireland.Status != "failed" || ireland.Message == "" {
		t.Errorf("expected failed entry for ireland, got %+v", ireland)
	}
	if ireland.SegmentsCancelled != 0 || ireland.SegmentsFreed != 0 {
		t.Errorf("failed region must report zero counts, got %+v", ireland)
	}
	if london := sum.Regions["london"]; london.Status != "cancelled" || london.SegmentsCancelled != 2 {
		t.Errorf("unexpected london outcome: %+v", london)
	}
	// The central record still flips: the region that answered has freed its
	// capacity and must not be double-freed by a retry.
	if persisted != domain.BookingCancelled {
		t.Errorf("expected cancelled persisted, got %s", persisted)
	}
}

func TestBookingService_Cancel_UnknownBooking(t *testing.T) {
	svc := newBookingService(&mockPlanner{}, &mockGateway{}, &mockBookingRepo{})
	if _, err := svc.Cancel(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// --- Status / Segments ---

func TestBookingService_Status_Unknown(t *testing.T) {
	svc := newBookingService(&mockPlanner{}, &mockGateway{}, &mockBookingRepo{})
	if _, err := svc.Status(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBookingService_Segments_MergesRegions(t *testing.T) {
	repo := &mockBookingRepo{
		getByIDFn: func(bookingID string) (*domain.BookingInfo, error) {
			return &domain.BookingInfo{
				BookingID: bookingID,
				Regions:   []string{"ireland", "london"},
				Status:    domain.BookingSuccess,
			}, nil
		},
	}
	gw := &mockGateway{}
	svc := newBookingService(&mockPlanner{}, gw, repo)

	report, err := svc.Segments(context.Background(), "bk-12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Complete {
		t.Error("expected complete report")
	}
	if len(report.Segments) != 2 {
		t.Errorf("expected 2 region entries, got %d", len(report.Segments))
	}
}

func TestBookingService_Segments_FailedRegionGetsErrorEntry(t *testing.T) {
	repo := &mockBookingRepo{
		getByIDFn: func(bookingID string) (*domain.BookingInfo, error) {
			return &domain.BookingInfo{
				BookingID: bookingID,
				Regions:   []string{"ireland", "london"},
				Status:    domain.BookingSuccess,
			}, nil
		},
	}
	gw := &mockGateway{
		segmentsFn: func(endpoint, bookingID string) ([]byte, error) {
			if endpoint == "http://localhost:8001" { // ireland unreachable
				return nil, errors.New("connection refused")
			}
			return []byte(`{"segments":[]}`), nil
		},
	}
	svc := newBookingService(&mockPlanner{}, gw, repo)

	report, err := svc.Segments(context.Background(), "bk-13")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Complete {
		t.Error("expected incomplete report")
	}
	if len(report.Segments) != 2 {
		t.Fatalf("failed region must still have an entry, got %v", report.Segments)
	}
	var entry map[string]string
	if err := json.Unmarshal(report.Segments["ireland"], &entry); err != nil {
		t.Fatalf("ireland entry is not JSON: %v", err)
	}
	if !strings.Contains(entry["error"], "connection refused") {
		t.Errorf("expected the transport error in the entry, got %v", entry)
	}
}
