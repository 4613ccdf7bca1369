package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/podium/internal/domain/model"
)

const backendPostgres = "postgres"

// upsertAttempts bounds retries when a concurrent insert wins the race for
// the same (leaderboard, participant) key.
const upsertAttempts = 3

//go:embed schema.sql
var schemaSQL string

// PostgresOption configures a PostgresStore.
type PostgresOption func(*pgxpool.Config)

// WithMaxConns caps the pool size.
func WithMaxConns(n int32) PostgresOption {
	return func(c *pgxpool.Config) {
		if n > 0 {
			c.MaxConns = n
		}
	}
}

// WithMinConns keeps n connections warm.
func WithMinConns(n int32) PostgresOption {
	return func(c *pgxpool.Config) {
		if n >= 0 {
			c.MinConns = n
		}
	}
}

// PostgresStore is a Store backed by PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, pings and applies the schema.
func NewPostgresStore(ctx context.Context, databaseURL string, opts ...PostgresOption) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute
	for _, opt := range opts {
		opt(cfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies the embedded schema. It is idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// mapError translates driver errors into store kinds.
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", what, ErrConflict)
		case "23503":
			return fmt.Errorf("%s: %w", what, ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

func encodeMetadata(m model.Metadata) ([]byte, error) {
	b, err := json.Marshal(m.OrEmpty())
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return b, nil
}

func decodeMetadata(raw []byte) (model.Metadata, error) {
	m := model.Metadata{}
	if len(raw) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return m, nil
}

const leaderboardColumns = `id, game_id, name, slug, description, type, score_type, reset_schedule,
	is_active, metadata, last_reset_at, created_at, updated_at`

func scanLeaderboard(row pgx.Row) (*model.Leaderboard, error) {
	var (
		lb  model.Leaderboard
		md  []byte
		typ string
		st  string
	)
	if err := row.Scan(&lb.ID, &lb.GameID, &lb.Name, &lb.Slug, &lb.Description, &typ, &st,
		&lb.ResetSchedule, &lb.IsActive, &md, &lb.LastResetAt, &lb.CreatedAt, &lb.UpdatedAt); err != nil {
		return nil, err
	}
	lb.Type = model.LeaderboardType(typ)
	lb.ScoreType = model.ScoreType(st)
	meta, err := decodeMetadata(md)
	if err != nil {
		return nil, err
	}
	lb.Metadata = meta
	return &lb, nil
}

func (s *PostgresStore) CreateLeaderboard(ctx context.Context, lb *model.Leaderboard) error {
	defer observe(backendPostgres, "create_leaderboard", time.Now())

	md, err := encodeMetadata(lb.Metadata)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO leaderboards (`+leaderboardColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		lb.ID, lb.GameID, lb.Name, lb.Slug, lb.Description, string(lb.Type), string(lb.ScoreType),
		lb.ResetSchedule, lb.IsActive, md, lb.LastResetAt, lb.CreatedAt, lb.UpdatedAt)
	return mapError(err, fmt.Sprintf("create leaderboard %q", lb.Name))
}

func (s *PostgresStore) GetLeaderboard(ctx context.Context, id string) (*model.Leaderboard, error) {
	defer observe(backendPostgres, "get_leaderboard", time.Now())

	row := s.pool.QueryRow(ctx, `SELECT `+leaderboardColumns+` FROM leaderboards WHERE id = $1`, id)
	lb, err := scanLeaderboard(row)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("leaderboard %q", id))
	}
	return lb, nil
}

func (s *PostgresStore) ListLeaderboards(ctx context.Context, gameID string, filter model.LeaderboardFilter, offset, limit int) ([]*model.Leaderboard, int, error) {
	defer observe(backendPostgres, "list_leaderboards", time.Now())

	if limit < 1 || offset < 0 {
		return nil, 0, ErrInvalidLimit
	}

	var typ *string
	if filter.Type != nil {
		t := string(*filter.Type)
		typ = &t
	}
	const where = ` WHERE game_id = $1
		AND ($2::text IS NULL OR type = $2)
		AND ($3::boolean IS NULL OR is_active = $3)`

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM leaderboards`+where,
		gameID, typ, filter.IsActive).Scan(&total); err != nil {
		return nil, 0, mapError(err, "count leaderboards")
	}

	rows, err := s.pool.Query(ctx, `SELECT `+leaderboardColumns+` FROM leaderboards`+where+`
		ORDER BY created_at DESC, id ASC OFFSET $4 LIMIT $5`,
		gameID, typ, filter.IsActive, offset, limit)
	if err != nil {
		return nil, 0, mapError(err, "list leaderboards")
	}
	defer rows.Close()

	out := make([]*model.Leaderboard, 0, limit)
	for rows.Next() {
		lb, err := scanLeaderboard(rows)
		if err != nil {
			return nil, 0, mapError(err, "scan leaderboard")
		}
		out = append(out, lb)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError(err, "list leaderboards")
	}
	return out, total, nil
}

func (s *PostgresStore) UpdateLeaderboard(ctx context.Context, lb *model.Leaderboard) error {
	defer observe(backendPostgres, "update_leaderboard", time.Now())

	md, err := encodeMetadata(lb.Metadata)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `UPDATE leaderboards SET
			name = $2, slug = $3, description = $4, type = $5, score_type = $6,
			reset_schedule = $7, is_active = $8, metadata = $9, last_reset_at = $10, updated_at = $11
		WHERE id = $1`,
		lb.ID, lb.Name, lb.Slug, lb.Description, string(lb.Type), string(lb.ScoreType),
		lb.ResetSchedule, lb.IsActive, md, lb.LastResetAt, lb.UpdatedAt)
	if err != nil {
		return mapError(err, fmt.Sprintf("update leaderboard %q", lb.ID))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("leaderboard %q: %w", lb.ID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DeleteLeaderboard(ctx context.Context, id string) error {
	defer observe(backendPostgres, "delete_leaderboard", time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return mapError(err, "begin delete")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM leaderboard_entries WHERE leaderboard_id = $1`, id); err != nil {
		return mapError(err, fmt.Sprintf("delete entries of %q", id))
	}
	tag, err := tx.Exec(ctx, `DELETE FROM leaderboards WHERE id = $1`, id)
	if err != nil {
		return mapError(err, fmt.Sprintf("delete leaderboard %q", id))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("leaderboard %q: %w", id, ErrNotFound)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError(err, "commit delete")
	}
	return nil
}

func (s *PostgresStore) ScheduledLeaderboards(ctx context.Context) ([]*model.Leaderboard, error) {
	defer observe(backendPostgres, "scheduled_leaderboards", time.Now())

	rows, err := s.pool.Query(ctx, `SELECT `+leaderboardColumns+` FROM leaderboards
		WHERE is_active AND reset_schedule <> '' ORDER BY id`)
	if err != nil {
		return nil, mapError(err, "scheduled leaderboards")
	}
	defer rows.Close()

	out := make([]*model.Leaderboard, 0)
	for rows.Next() {
		lb, err := scanLeaderboard(rows)
		if err != nil {
			return nil, mapError(err, "scan leaderboard")
		}
		out = append(out, lb)
	}
	return out, mapError(rows.Err(), "scheduled leaderboards")
}

func (s *PostgresStore) CountLeaderboards(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM leaderboards`).Scan(&n); err != nil {
		return 0, mapError(err, "count leaderboards")
	}
	return n, nil
}

const entryColumns = `leaderboard_id, participant_id, score, rank, metadata, achieved_at, created_at, updated_at`

func scanEntry(row pgx.Row) (*model.Entry, error) {
	var (
		e    model.Entry
		rank *int32
		md   []byte
	)
	if err := row.Scan(&e.LeaderboardID, &e.ParticipantID, &e.Score, &rank, &md,
		&e.AchievedAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if rank != nil {
		e.Rank = model.IntPtr(int(*rank))
	}
	meta, err := decodeMetadata(md)
	if err != nil {
		return nil, err
	}
	e.Metadata = meta
	return &e, nil
}

func collectEntries(rows pgx.Rows) ([]*model.Entry, error) {
	defer rows.Close()
	out := make([]*model.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// orderBy is the ranking order; participant_id is collated "C" in the schema
// so ties break in byte order.
func orderBy(dir model.Direction) string {
	if dir == model.Ascending {
		return ` ORDER BY score ASC, achieved_at ASC, participant_id ASC`
	}
	return ` ORDER BY score DESC, achieved_at ASC, participant_id ASC`
}

func rankValue(r *int) *int32 {
	if r == nil {
		return nil
	}
	v := int32(*r) //nolint:gosec // ranks are bounded by the entry count
	return &v
}

func (s *PostgresStore) GetEntry(ctx context.Context, leaderboardID, participantID string) (*model.Entry, error) {
	defer observe(backendPostgres, "get_entry", time.Now())

	row := s.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM leaderboard_entries
		WHERE leaderboard_id = $1 AND participant_id = $2`, leaderboardID, participantID)
	e, err := scanEntry(row)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("entry %q", participantID))
	}
	return e, nil
}

func (s *PostgresStore) UpsertEntry(ctx context.Context, leaderboardID, participantID string, merge MergeFunc) (*model.Entry, error) {
	defer observe(backendPostgres, "upsert_entry", time.Now())

	for attempt := 0; attempt < upsertAttempts; attempt++ {
		e, raced, err := s.upsertOnce(ctx, leaderboardID, participantID, merge)
		if raced {
			continue
		}
		return e, err
	}
	return nil, fmt.Errorf("upsert entry %q: %w", participantID, ErrConflict)
}

// upsertOnce locks the current row (if any), merges and writes back. raced
// reports that another transaction inserted the same key first.
func (s *PostgresStore) upsertOnce(ctx context.Context, leaderboardID, participantID string, merge MergeFunc) (*model.Entry, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, mapError(err, "begin upsert")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	existing, err := scanEntry(tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM leaderboard_entries
		WHERE leaderboard_id = $1 AND participant_id = $2 FOR UPDATE`, leaderboardID, participantID))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, false, mapError(err, "lock entry")
		}
		existing = nil
	}

	next, err := merge(existing)
	if err != nil {
		return nil, false, err
	}
	md, err := encodeMetadata(next.Metadata)
	if err != nil {
		return nil, false, err
	}

	if existing == nil {
		tag, err := tx.Exec(ctx, `INSERT INTO leaderboard_entries (`+entryColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (leaderboard_id, participant_id) DO NOTHING`,
			leaderboardID, participantID, next.Score, rankValue(next.Rank), md,
			next.AchievedAt, next.CreatedAt, next.UpdatedAt)
		if err != nil {
			return nil, false, mapError(err, fmt.Sprintf("insert entry %q", participantID))
		}
		if tag.RowsAffected() == 0 {
			return nil, true, nil
		}
	} else {
		if _, err := tx.Exec(ctx, `UPDATE leaderboard_entries
			SET score = $3, rank = $4, metadata = $5, achieved_at = $6, updated_at = $7
			WHERE leaderboard_id = $1 AND participant_id = $2`,
			leaderboardID, participantID, next.Score, rankValue(next.Rank), md,
			next.AchievedAt, next.UpdatedAt); err != nil {
			return nil, false, mapError(err, fmt.Sprintf("update entry %q", participantID))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, mapError(err, "commit upsert")
	}
	next.LeaderboardID = leaderboardID
	next.ParticipantID = participantID
	return next, false, nil
}

func (s *PostgresStore) ListEntries(ctx context.Context, leaderboardID string, dir model.Direction) ([]*model.Entry, error) {
	defer observe(backendPostgres, "list_entries", time.Now())

	rows, err := s.pool.Query(ctx, `SELECT `+entryColumns+` FROM leaderboard_entries
		WHERE leaderboard_id = $1`+orderBy(dir), leaderboardID)
	if err != nil {
		return nil, mapError(err, "list entries")
	}
	out, err := collectEntries(rows)
	if err != nil {
		return nil, mapError(err, "list entries")
	}
	return out, nil
}

func (s *PostgresStore) PageEntries(ctx context.Context, leaderboardID string, dir model.Direction, offset, limit int) ([]*model.Entry, int, error) {
	defer observe(backendPostgres, "page_entries", time.Now())

	if limit < 1 || offset < 0 {
		return nil, 0, ErrInvalidLimit
	}
	total, err := s.CountEntries(ctx, leaderboardID)
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.pool.Query(ctx, `SELECT `+entryColumns+` FROM leaderboard_entries
		WHERE leaderboard_id = $1`+orderBy(dir)+` OFFSET $2 LIMIT $3`, leaderboardID, offset, limit)
	if err != nil {
		return nil, 0, mapError(err, "page entries")
	}
	out, err := collectEntries(rows)
	if err != nil {
		return nil, 0, mapError(err, "page entries")
	}
	return out, total, nil
}

func (s *PostgresStore) EntriesByRank(ctx context.Context, leaderboardID string, lo, hi int) ([]*model.Entry, error) {
	defer observe(backendPostgres, "entries_by_rank", time.Now())

	rows, err := s.pool.Query(ctx, `SELECT `+entryColumns+` FROM leaderboard_entries
		WHERE leaderboard_id = $1 AND rank >= $2 AND rank < $3
		ORDER BY rank ASC`, leaderboardID, lo, hi)
	if err != nil {
		return nil, mapError(err, "entries by rank")
	}
	out, err := collectEntries(rows)
	if err != nil {
		return nil, mapError(err, "entries by rank")
	}
	return out, nil
}

func (s *PostgresStore) CountEntries(ctx context.Context, leaderboardID string) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM leaderboard_entries WHERE leaderboard_id = $1`,
		leaderboardID).Scan(&n); err != nil {
		return 0, mapError(err, "count entries")
	}
	return n, nil
}

func (s *PostgresStore) SaveRanks(ctx context.Context, leaderboardID string, ranks map[string]int) error {
	defer observe(backendPostgres, "save_ranks", time.Now())

	if len(ranks) == 0 {
		return nil
	}
	ids := make([]string, 0, len(ranks))
	values := make([]int32, 0, len(ranks))
	for pid, r := range ranks {
		ids = append(ids, pid)
		values = append(values, int32(r)) //nolint:gosec // ranks are bounded by the entry count
	}
	// Rows deleted since the ranks were computed simply do not join.
	_, err := s.pool.Exec(ctx, `UPDATE leaderboard_entries AS e SET rank = r.rank
		FROM unnest($2::text[], $3::int[]) AS r(participant_id, rank)
		WHERE e.leaderboard_id = $1 AND e.participant_id = r.participant_id`,
		leaderboardID, ids, values)
	return mapError(err, "save ranks")
}

func (s *PostgresStore) DeleteEntries(ctx context.Context, leaderboardID string) (int, error) {
	defer observe(backendPostgres, "delete_entries", time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, mapError(err, "begin reset")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM leaderboards WHERE id = $1)`,
		leaderboardID).Scan(&exists); err != nil {
		return 0, mapError(err, "check leaderboard")
	}
	if !exists {
		return 0, fmt.Errorf("leaderboard %q: %w", leaderboardID, ErrNotFound)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM leaderboard_entries WHERE leaderboard_id = $1`, leaderboardID)
	if err != nil {
		return 0, mapError(err, "delete entries")
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, mapError(err, "commit reset")
	}
	return int(tag.RowsAffected()), nil
}

var _ Store = (*PostgresStore)(nil)
