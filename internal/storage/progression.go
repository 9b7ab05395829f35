package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"hearth/internal/progression"
)

func (s *Store) GetProgress(ctx context.Context, guildID, userID string) (progression.Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT xp, last_grant_at FROM progression
		WHERE guild_id = ? AND user_id = ?`, guildID, userID)

	record := progression.Record{GuildID: guildID, UserID: userID}
	var lastGrant sql.NullInt64
	if err := row.Scan(&record.XP, &lastGrant); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return progression.Record{}, false, nil
		}
		return progression.Record{}, false, err
	}
	if lastGrant.Valid {
		record.LastGrantAt = time.UnixMilli(lastGrant.Int64)
	}
	return record, true, nil
}

func (s *Store) SetProgress(ctx context.Context, record progression.Record) error {
	var lastGrant any
	if !record.LastGrantAt.IsZero() {
		lastGrant = record.LastGrantAt.UnixMilli()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO progression (guild_id, user_id, xp, last_grant_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			xp = excluded.xp,
			last_grant_at = excluded.last_grant_at
	`, record.GuildID, record.UserID, record.XP, lastGrant)
	return err
}

func (s *Store) DeleteProgress(ctx context.Context, guildID, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM progression WHERE guild_id = ? AND user_id = ?`, guildID, userID)
	return err
}

func (s *Store) ListProgress(ctx context.Context, guildID string) ([]progression.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, xp, last_grant_at FROM progression
		WHERE guild_id = ? ORDER BY id`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []progression.Record
	for rows.Next() {
		record := progression.Record{GuildID: guildID}
		var lastGrant sql.NullInt64
		if err := rows.Scan(&record.UserID, &record.XP, &lastGrant); err != nil {
			return nil, err
		}
		if lastGrant.Valid {
			record.LastGrantAt = time.UnixMilli(lastGrant.Int64)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
