package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hearth/internal/progression"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS progression (
	id BIGSERIAL PRIMARY KEY,
	guild_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	xp BIGINT NOT NULL DEFAULT 0,
	last_grant_at TIMESTAMPTZ,
	UNIQUE (guild_id, user_id)
)`

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, url string, maxConns int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *Store) GetProgress(ctx context.Context, guildID, userID string) (progression.Record, bool, error) {
	record := progression.Record{GuildID: guildID, UserID: userID}
	var lastGrant *time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT xp, last_grant_at FROM progression
		WHERE guild_id = $1 AND user_id = $2`, guildID, userID).Scan(&record.XP, &lastGrant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return progression.Record{}, false, nil
		}
		return progression.Record{}, false, err
	}
	if lastGrant != nil {
		record.LastGrantAt = *lastGrant
	}
	return record, true, nil
}

func (s *Store) SetProgress(ctx context.Context, record progression.Record) error {
	var lastGrant *time.Time
	if !record.LastGrantAt.IsZero() {
		value := record.LastGrantAt
		lastGrant = &value
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO progression (guild_id, user_id, xp, last_grant_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (guild_id, user_id) DO UPDATE SET
			xp = EXCLUDED.xp,
			last_grant_at = EXCLUDED.last_grant_at`,
		record.GuildID, record.UserID, record.XP, lastGrant)
	return err
}

func (s *Store) DeleteProgress(ctx context.Context, guildID, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM progression WHERE guild_id = $1 AND user_id = $2`, guildID, userID)
	return err
}

func (s *Store) ListProgress(ctx context.Context, guildID string) ([]progression.Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, xp, last_grant_at FROM progression
		WHERE guild_id = $1 ORDER BY id`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []progression.Record
	for rows.Next() {
		record := progression.Record{GuildID: guildID}
		var lastGrant *time.Time
		if err := rows.Scan(&record.UserID, &record.XP, &lastGrant); err != nil {
			return nil, err
		}
		if lastGrant != nil {
			record.LastGrantAt = *lastGrant
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
