package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// FrameStats is one frame's leaf system counters, as recorded by the frame
// systems and persisted to frame_stats.
type FrameStats struct {
	Frame     int
	FrameTime time.Duration

	Renderables int
	Shadows     int

	Reinserted  int // renderables whose leaves were recomputed
	Iterations  int // reinsertion passes run
	Deferred    int // handles requeued for the next pass
	CapExceeded bool

	VisibleLeaves int
	Emitted       int
	Culled        int
	Dropped       int
	DetailLeaves  int
	Entered       int // renderables newly in the render list
	Exited        int // renderables that left it
	Projections   int // shadow and flashlight reprojections

	RecordedAt time.Time
}

// LevelRow is a level build known to the telemetry store.
type LevelRow struct {
	ID        int64
	Name      string
	Checksum  string
	LeafCount int
	FirstSeen time.Time
	LastSeen  time.Time
}

var frameStatsColumns = []string{
	"level_id", "frame", "frame_time_us", "renderables", "shadows",
	"reinserted", "iterations", "deferred", "cap_exceeded",
	"visible_leaves", "emitted", "culled", "dropped", "detail_leaves",
	"entered", "exited", "projections", "recorded_at",
}

type TelemetryRepo struct {
	db *DB
}

func NewTelemetryRepo(db *DB) *TelemetryRepo {
	return &TelemetryRepo{db: db}
}

// UpsertLevel registers a level build by checksum and returns its id.
func (r *TelemetryRepo) UpsertLevel(ctx context.Context, name, checksum string, leafCount int) (int64, error) {
	var id int64
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO levels (name, checksum, leaf_count)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (checksum) DO UPDATE SET name = EXCLUDED.name, last_seen = now()
		 RETURNING id`, name, checksum, leafCount,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert level %s: %w", name, err)
	}
	return id, nil
}

// LoadLevel returns the level with the given checksum, or nil if unknown.
func (r *TelemetryRepo) LoadLevel(ctx context.Context, checksum string) (*LevelRow, error) {
	row := &LevelRow{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, name, checksum, leaf_count, first_seen, last_seen
		 FROM levels WHERE checksum = $1`, checksum,
	).Scan(&row.ID, &row.Name, &row.Checksum, &row.LeafCount, &row.FirstSeen, &row.LastSeen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// InsertFrameStats bulk-copies a batch of frame rows in one transaction.
func (r *TelemetryRepo) InsertFrameStats(ctx context.Context, levelID int64, rows []FrameStats) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("frame stats begin: %w", err)
	}
	defer tx.Rollback(ctx)

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"frame_stats"}, frameStatsColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			return frameStatsValues(levelID, &rows[i]), nil
		}),
	)
	if err != nil {
		return fmt.Errorf("frame stats copy: %w", err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("frame stats copy: wrote %d of %d rows", n, len(rows))
	}
	return tx.Commit(ctx)
}

func frameStatsValues(levelID int64, s *FrameStats) []any {
	return []any{
		levelID, s.Frame, s.FrameTime.Microseconds(), s.Renderables, s.Shadows,
		s.Reinserted, s.Iterations, s.Deferred, s.CapExceeded,
		s.VisibleLeaves, s.Emitted, s.Culled, s.Dropped, s.DetailLeaves,
		s.Entered, s.Exited, s.Projections, s.RecordedAt,
	}
}

// RecentFrameStats returns up to limit rows for a level, newest frame first.
func (r *TelemetryRepo) RecentFrameStats(ctx context.Context, levelID int64, limit int) ([]FrameStats, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT frame, frame_time_us, renderables, shadows,
		        reinserted, iterations, deferred, cap_exceeded,
		        visible_leaves, emitted, culled, dropped, detail_leaves,
		        entered, exited, projections, recorded_at
		 FROM frame_stats WHERE level_id = $1
		 ORDER BY frame DESC, id DESC LIMIT $2`, levelID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []FrameStats
	for rows.Next() {
		var s FrameStats
		var us int64
		if err := rows.Scan(
			&s.Frame, &us, &s.Renderables, &s.Shadows,
			&s.Reinserted, &s.Iterations, &s.Deferred, &s.CapExceeded,
			&s.VisibleLeaves, &s.Emitted, &s.Culled, &s.Dropped, &s.DetailLeaves,
			&s.Entered, &s.Exited, &s.Projections, &s.RecordedAt,
		); err != nil {
			return nil, err
		}
		s.FrameTime = time.Duration(us) * time.Microsecond
		result = append(result, s)
	}
	return result, rows.Err()
}

// PruneFrameStats deletes rows older than cutoff. Returns the number removed.
func (r *TelemetryRepo) PruneFrameStats(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM frame_stats WHERE recorded_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune frame stats: %w", err)
	}
	return tag.RowsAffected(), nil
}
