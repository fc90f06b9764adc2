package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openroads/roadpass/internal/core/domain"
	"github.com/openroads/roadpass/internal/core/ports"
	"github.com/openroads/roadpass/internal/pkg/metrics"
)

// SagaTimeouts bounds the three kinds of coordinator-to-region calls.
type SagaTimeouts struct {
	Reserve time.Duration
	Confirm time.Duration
	Cancel  time.Duration
}

// SagaResult is the outcome of one booking round. Results holds one entry per
// dispatched chunk, keyed segment_1..segment_N in dispatch order; the value is
// the region's response text, or "Error: ..." when the call itself failed.
type SagaResult struct {
	BookingID       string               `json:"booking_id"`
	Status          domain.BookingStatus `json:"status"`
	Results         map[string]string    `json:"results"`
	UncoveredChunks int                  `json:"uncovered_chunks,omitempty"`
}

// SegmentsReport merges the involved regions' segment listings for one
// booking, keyed by region under "segments". A region that could not answer
// clears Complete and appears as an {"error": ...} entry rather than a hole,
// so the caller can see which region is missing and why.
type SegmentsReport struct {
	BookingID string                     `json:"booking_id"`
	Complete  bool                       `json:"complete"`
	Segments  map[string]json.RawMessage `json:"segments"`
}

// CancelSummary aggregates the involved regions' cancel outcomes. Regions
// keeps each region's own answer; one that could not be reached appears as a
// zero-count "failed" entry so the caller knows who may still hold load.
type CancelSummary struct {
	BookingID              string                          `json:"booking_id"`
	Status                 string                          `json:"status"`
	TotalSegmentsCancelled int                             `json:"total_segments_cancelled"`
	TotalSegmentsFreed     int                             `json:"total_segments_freed"`
	Regions                map[string]domain.CancelOutcome `json:"regions"`
}

// BookingService runs the booking saga from the coordinator's side: plan a
// route, split it across regions, reserve everywhere in parallel, then
// confirm or compensate based on the joined results.
type BookingService struct {
	regions  []domain.Region
	planner  ports.RoutePlanner
	gateway  ports.RegionGateway
	bookings ports.BookingRepository
	events   ports.EventPublisher
	cache    ports.CacheService
	timeouts SagaTimeouts
}

func NewBookingService(
	regions []domain.Region,
	planner ports.RoutePlanner,
	gateway ports.RegionGateway,
	bookings ports.BookingRepository,
	events ports.EventPublisher,
	cache ports.CacheService,
	timeouts SagaTimeouts,
) *BookingService {
	return &BookingService{
		regions:  regions,
		planner:  planner,
		gateway:  gateway,
		bookings: bookings,
		events:   events,
		cache:    cache,
		timeouts: timeouts,
	}
}

// Submit runs one complete saga round and persists the decided outcome. It
// never retries a failed reservation and never leaves the decision pending:
// by the time it returns, every involved region has been told to confirm or
// to cancel exactly once.
func (s *BookingService) Submit(ctx context.Context, start, dest, name, email, startTime string) (*SagaResult, error) {
	began := time.Now()

	origin, err := parseCoordinate(start)
	if err != nil {
		return nil, err
	}
	target, err := parseCoordinate(dest)
	if err != nil {
		return nil, err
	}

	bookingID := uuid.NewString()
	log := slog.With("booking_id", bookingID)

	route, err := s.planner.FetchRoute(ctx, origin, target)
	if err != nil {
		return nil, err
	}

	chunks := SplitByRegion(route, s.regions)
	var covered []domain.RouteChunk
	uncovered := 0
	for _, c := range chunks {
		if c.Covered {
			covered = append(covered, c)
		} else {
			uncovered++
		}
	}
	if uncovered > 0 {
		log.Warn("route leaves configured coverage", "gap_chunks", uncovered)
	}

	// Phase one: reserve every chunk in parallel. Each call gets its own
	// slot in outcomes so one slow or failing region cannot disturb the
	// others; the decision waits for all of them.
	type reserveOutcome struct {
		region string
		ok     bool
		text   string
	}
	outcomes := make([]reserveOutcome, len(covered))

	var wg sync.WaitGroup
	for i, chunk := range covered {
		wg.Add(1)
		go func(i int, chunk domain.RouteChunk) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, s.timeouts.Reserve)
			defer cancel()

			req := &domain.ReserveRequest{
				BookingID:   bookingID,
				Coordinates: chunk.Points,
				Name:        name,
				Email:       email,
				StartTime:   startTime,
			}

			res, err := s.gateway.Reserve(callCtx, s.endpointOf(chunk.Region), req)
			if err != nil {
				outcomes[i] = reserveOutcome{region: chunk.Region, text: "Error: " + err.Error()}
				metrics.ReserveCalls.WithLabelValues(chunk.Region, "error").Inc()
				return
			}
			if !res.OK {
				outcomes[i] = reserveOutcome{region: chunk.Region, text: "Error: " + res.Body}
				metrics.ReserveCalls.WithLabelValues(chunk.Region, "rejected").Inc()
				return
			}
			outcomes[i] = reserveOutcome{region: chunk.Region, ok: true, text: res.Body}
			metrics.ReserveCalls.WithLabelValues(chunk.Region, "ok").Inc()
		}(i, chunk)
	}
	wg.Wait()

	results := make(map[string]string, len(outcomes))
	allOK := true
	for i, o := range outcomes {
		results["segment_"+strconv.Itoa(i+1)] = o.text
		if !o.ok {
			allOK = false
		}
	}

	status := domain.BookingFailure
	if allOK {
		status = domain.BookingSuccess
	}

	involved := involvedRegions(covered)

	// Phase two: one broadcast, confirm or cancel, to every involved region.
	// Failures here are logged and counted but cannot change the decision.
	action := "cancel"
	if allOK {
		action = "confirm"
	}
	var bwg sync.WaitGroup
	for _, region := range involved {
		bwg.Add(1)
		go func(region string) {
			defer bwg.Done()
			if allOK {
				s.confirmRegion(ctx, region, bookingID)
			} else {
				s.cancelRegion(ctx, region, bookingID)
			}
		}(region)
	}
	bwg.Wait()
	metrics.CompensationBroadcasts.WithLabelValues(action).Add(float64(len(involved)))

	booking := &domain.BookingInfo{
		BookingID:     bookingID,
		StartLocation: start,
		EndLocation:   dest,
		Regions:       involved,
		Status:        status,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("persist booking outcome: %w", err)
	}

	s.publishDecided(ctx, booking)

	metrics.BookingsSubmitted.WithLabelValues(string(status)).Inc()
	metrics.SagaDuration.Observe(time.Since(began).Seconds())
	log.Info("booking decided",
		"status", status, "chunks", len(covered), "regions", involved)

	return &SagaResult{
		BookingID:       bookingID,
		Status:          status,
		Results:         results,
		UncoveredChunks: uncovered,
	}, nil
}

// Status returns the central record of a booking, read through the cache.
func (s *BookingService) Status(ctx context.Context, bookingID string) (*domain.BookingInfo, error) {
	if bookingID == "" {
		return nil, domain.ErrInvalidInput
	}

	cacheKey := "booking:status:" + bookingID
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var booking domain.BookingInfo
			if err := json.Unmarshal(data, &booking); err == nil {
				metrics.CacheHits.WithLabelValues("booking_status").Inc()
				return &booking, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("booking_status").Inc()
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(booking); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 60)
		}
	}

	return booking, nil
}

// List returns a page of bookings plus the total count.
func (s *BookingService) List(ctx context.Context, offset, limit int) ([]domain.BookingInfo, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.bookings.List(ctx, offset, limit)
}

// Segments asks every involved region for the booking's segment rows and
// merges the answers. A region that cannot answer leaves a hole and clears
// the Complete flag; the rest of the report is still returned.
func (s *BookingService) Segments(ctx context.Context, bookingID string) (*SegmentsReport, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	report := &SegmentsReport{
		BookingID: bookingID,
		Complete:  true,
		Segments:  make(map[string]json.RawMessage, len(booking.Regions)),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, region := range booking.Regions {
		wg.Add(1)
		go func(region string) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, s.timeouts.Cancel)
			defer cancel()

			body, err := s.gateway.Segments(callCtx, s.endpointOf(region), bookingID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("segment listing unavailable",
					"booking_id", bookingID, "region", region, "error", err)
				report.Complete = false
				entry, _ := json.Marshal(map[string]string{"error": err.Error()})
				report.Segments[region] = entry
				return
			}
			report.Segments[region] = json.RawMessage(body)
		}(region)
	}
	wg.Wait()

	return report, nil
}

// Cancel releases a booking's capacity in every involved region and marks
// the central record cancelled. The central record is downgraded even when a
// region could not be reached; the summary status says so.
func (s *BookingService) Cancel(ctx context.Context, bookingID string) (*CancelSummary, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.Status == domain.BookingCancelled {
		return &CancelSummary{
			BookingID: bookingID,
			Status:    "already_cancelled",
			Regions:   map[string]domain.CancelOutcome{},
		}, nil
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		cancelled int
		freed     int
		failures  int
	)
	regional := make(map[string]domain.CancelOutcome, len(booking.Regions))
	for _, region := range booking.Regions {
		wg.Add(1)
		go func(region string) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, s.timeouts.Cancel)
			defer cancel()

			outcome, err := s.gateway.Cancel(callCtx, s.endpointOf(region), bookingID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Error("region cancel failed",
					"booking_id", bookingID, "region", region, "error", err)
				failures++
				regional[region] = domain.CancelOutcome{Status: "failed", Message: err.Error()}
				return
			}
			regional[region] = outcome
			cancelled += outcome.SegmentsCancelled
			freed += outcome.SegmentsFreed
		}(region)
	}
	wg.Wait()

	if err := s.bookings.UpdateStatus(ctx, bookingID, domain.BookingCancelled); err != nil {
		return nil, fmt.Errorf("persist cancellation: %w", err)
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, "booking:status:"+bookingID)
	}

	status := "cancelled"
	if failures > 0 {
		status = "partially_cancelled"
	}

	s.publishCancelled(ctx, bookingID, booking.Regions)

	slog.Info("booking cancelled",
		"booking_id", bookingID, "status", status,
		"segments_cancelled", cancelled, "segments_freed", freed)

	return &CancelSummary{
		BookingID:              bookingID,
		Status:                 status,
		TotalSegmentsCancelled: cancelled,
		TotalSegmentsFreed:     freed,
		Regions:                regional,
	}, nil
}

func (s *BookingService) confirmRegion(ctx context.Context, region, bookingID string) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeouts.Confirm)
	defer cancel()

	res, err := s.gateway.Confirm(callCtx, s.endpointOf(region), bookingID)
	if err != nil {
		slog.Error("region confirm failed",
			"booking_id", bookingID, "region", region, "error", err)
		return
	}
	if !res.OK {
		slog.Error("region confirm rejected",
			"booking_id", bookingID, "region", region, "status", res.StatusCode, "body", res.Body)
	}
}

func (s *BookingService) cancelRegion(ctx context.Context, region, bookingID string) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeouts.Cancel)
	defer cancel()

	if _, err := s.gateway.Cancel(callCtx, s.endpointOf(region), bookingID); err != nil {
		slog.Error("region compensation failed",
			"booking_id", bookingID, "region", region, "error", err)
	}
}

func (s *BookingService) publishDecided(ctx context.Context, booking *domain.BookingInfo) {
	if s.events == nil {
		return
	}
	ev := &domain.BookingEvent{
		BookingID: booking.BookingID,
		Status:    string(booking.Status),
		Regions:   booking.Regions,
		At:        time.Now().UTC(),
	}
	if err := s.events.PublishBookingDecided(ctx, ev); err != nil {
		slog.Warn("publish booking event", "booking_id", booking.BookingID, "error", err)
	}
}

func (s *BookingService) publishCancelled(ctx context.Context, bookingID string, regions []string) {
	if s.events == nil {
		return
	}
	ev := &domain.BookingEvent{
		BookingID: bookingID,
		Status:    string(domain.BookingCancelled),
		Regions:   regions,
		At:        time.Now().UTC(),
	}
	if err := s.events.PublishBookingCancelled(ctx, ev); err != nil {
		slog.Warn("publish cancel event", "booking_id", bookingID, "error", err)
	}
}

// endpointOf resolves a region name to its configured base URL.
func (s *BookingService) endpointOf(name string) string {
	for _, r := range s.regions {
		if r.Name == name {
			return r.Endpoint
		}
	}
	return ""
}

// involvedRegions deduplicates the covered chunks' regions, preserving first
// appearance order along the route.
func involvedRegions(chunks []domain.RouteChunk) []string {
	seen := make(map[string]bool, len(chunks))
	regions := []string{}
	for _, c := range chunks {
		if !seen[c.Region] {
			seen[c.Region] = true
			regions = append(regions, c.Region)
		}
	}
	return regions
}

// parseCoordinate parses a "lat,lon" pair.
func parseCoordinate(raw string) (domain.GeoPoint, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return domain.GeoPoint{}, fmt.Errorf("%w: coordinate %q must be \"lat,lon\"", domain.ErrInvalidInput, raw)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("%w: bad latitude in %q", domain.ErrInvalidInput, raw)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("%w: bad longitude in %q", domain.ErrInvalidInput, raw)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return domain.GeoPoint{}, fmt.Errorf("%w: coordinate %q out of range", domain.ErrInvalidInput, raw)
	}
	return domain.GeoPoint{Lat: lat, Lon: lon}, nil
}
