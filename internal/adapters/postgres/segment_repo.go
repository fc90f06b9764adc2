package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/openroads/roadpass/internal/core/domain"
)

// SegmentRepo implements ports.SegmentStore on a regional database.
type SegmentRepo struct {
	db *DB
}

func NewSegmentRepo(db *DB) *SegmentRepo {
	return &SegmentRepo{db: db}
}

// SegmentsWithin runs the coarse spatial prefilter. The && operator against
// the envelope uses the GiST index on geom; the precise distance check is the
// caller's job.
func (r *SegmentRepo) SegmentsWithin(ctx context.Context, b domain.Bounds) ([]domain.RoadSegment, error) {
	rows, err := r.db.Pool.Query(ctx, `
        SELECT segment_id, ST_AsGeoJSON(geom), capacity, current_load, name, osm_id
        FROM road_segments
        WHERE geom && ST_MakeEnvelope($1, $2, $3, $4, 4326)
        ORDER BY segment_id
    `, b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segments []domain.RoadSegment
	for rows.Next() {
		var seg domain.RoadSegment
		var geom []byte
		if err := rows.Scan(&seg.SegmentID, &geom, &seg.Capacity, &seg.CurrentLoad, &seg.Name, &seg.OSMID); err != nil {
			return nil, err
		}
		if seg.Geometry, err = decodeLineString(geom); err != nil {
			return nil, fmt.Errorf("segment %s: %w", seg.SegmentID, err)
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// Reserve admits the whole chunk atomically. The candidate rows are locked in
// sorted id order so two overlapping reservations always acquire their locks
// in the same sequence; the check-then-increment happens entirely under those
// locks, and any shortfall rolls the transaction back untouched.
func (r *SegmentRepo) Reserve(ctx context.Context, bookingID string, segmentIDs []string) error {
	if len(segmentIDs) == 0 {
		return nil
	}

	lockOrder := make([]string, len(segmentIDs))
	copy(lockOrder, segmentIDs)
	sort.Strings(lockOrder)

	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
        SELECT segment_id, current_load, capacity
        FROM road_segments
        WHERE segment_id = ANY($1)
        ORDER BY segment_id
        FOR UPDATE
    `, lockOrder)
	if err != nil {
		return err
	}

	free := make(map[string]bool, len(lockOrder))
	for rows.Next() {
		var id string
		var load, capacity int
		if err := rows.Scan(&id, &load, &capacity); err != nil {
			rows.Close()
			return err
		}
		free[id] = load < capacity
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range lockOrder {
		ok, found := free[id]
		if !found {
			return fmt.Errorf("%w: segment %s unknown", domain.ErrCapacityExceeded, id)
		}
		if !ok {
			return fmt.Errorf("%w: segment %s is full", domain.ErrCapacityExceeded, id)
		}
	}

	if _, err := tx.Exec(ctx, `
        UPDATE road_segments
        SET current_load = current_load + 1
        WHERE segment_id = ANY($1)
    `, lockOrder); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for order, id := range segmentIDs {
		batch.Queue(`
            INSERT INTO booking_segments (booking_id, segment_id, segment_order, status)
            VALUES ($1, $2, $3, 'waiting')
        `, bookingID, id, order)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ConfirmBooking promotes every row of the booking to success, whatever its
// prior status. Re-delivered confirms converge on the same state.
func (r *SegmentRepo) ConfirmBooking(ctx context.Context, bookingID string) error {
	_, err := r.db.Pool.Exec(ctx, `
        UPDATE booking_segments SET status = 'success' WHERE booking_id = $1
    `, bookingID)
	return err
}

// CancelBooking releases load for rows that still hold it and marks every row
// cancelled. Loads are floored at zero so a stray double-cancel cannot drive
// them negative.
func (r *SegmentRepo) CancelBooking(ctx context.Context, bookingID string) (domain.CancelOutcome, error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.CancelOutcome{}, err
	}
	defer tx.Rollback(ctx)

	freedTag, err := tx.Exec(ctx, `
        UPDATE road_segments rs
        SET current_load = GREATEST(rs.current_load - 1, 0)
        FROM booking_segments bs
        WHERE bs.segment_id = rs.segment_id
          AND bs.booking_id = $1
          AND bs.status IN ('waiting', 'success')
    `, bookingID)
	if err != nil {
		return domain.CancelOutcome{}, err
	}

	cancelledTag, err := tx.Exec(ctx, `
        UPDATE booking_segments SET status = 'cancelled' WHERE booking_id = $1
    `, bookingID)
	if err != nil {
		return domain.CancelOutcome{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.CancelOutcome{}, err
	}

	outcome := domain.CancelOutcome{
		Status:            "cancelled",
		SegmentsCancelled: int(cancelledTag.RowsAffected()),
		SegmentsFreed:     int(freedTag.RowsAffected()),
	}
	if outcome.SegmentsCancelled == 0 {
		outcome.Status = "not_found"
		outcome.Message = "no segments for booking " + bookingID
	}
	return outcome, nil
}

// BookingSegments returns the booking's rows joined with the live inventory,
// in travel order. Unknown bookings yield an empty slice.
func (r *SegmentRepo) BookingSegments(ctx context.Context, bookingID string) ([]domain.SegmentDetail, error) {
	rows, err := r.db.Pool.Query(ctx, `
        SELECT bs.segment_id, bs.segment_order, bs.status,
               rs.current_load, rs.capacity, ST_AsGeoJSON(rs.geom), rs.name, rs.osm_id
        FROM booking_segments bs
        JOIN road_segments rs ON rs.segment_id = bs.segment_id
        WHERE bs.booking_id = $1
        ORDER BY bs.segment_order
    `, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []domain.SegmentDetail
	for rows.Next() {
		var d domain.SegmentDetail
		var status string
		var geom []byte
		if err := rows.Scan(&d.SegmentID, &d.SegmentOrder, &status,
			&d.CurrentLoad, &d.Capacity, &geom, &d.Name, &d.OSMID); err != nil {
			return nil, err
		}
		d.Status = domain.SegmentStatus(status)
		if d.Coordinates, err = decodeLineString(geom); err != nil {
			return nil, fmt.Errorf("segment %s: %w", d.SegmentID, err)
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// UpsertSegments loads or refreshes inventory rows. Seeding only; the
// reservation paths never touch it.
func (r *SegmentRepo) UpsertSegments(ctx context.Context, segments []domain.RoadSegment) error {
	batch := &pgx.Batch{}
	for _, seg := range segments {
		geom, err := encodeLineString(seg.Geometry)
		if err != nil {
			return fmt.Errorf("segment %s: %w", seg.SegmentID, err)
		}
		batch.Queue(`
            INSERT INTO road_segments (segment_id, geom, capacity, current_load, name, osm_id)
            VALUES ($1, ST_SetSRID(ST_GeomFromGeoJSON($2), 4326), $3, $4, $5, $6)
            ON CONFLICT (segment_id) DO UPDATE
            SET geom = EXCLUDED.geom,
                capacity = EXCLUDED.capacity,
                name = EXCLUDED.name,
                osm_id = EXCLUDED.osm_id
        `, seg.SegmentID, string(geom), seg.Capacity, seg.CurrentLoad, seg.Name, seg.OSMID)
	}
	return r.db.Pool.SendBatch(ctx, batch).Close()
}
