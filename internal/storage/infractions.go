package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const (
	InfractionWarn    = "warn"
	InfractionTimeout = "timeout"
	InfractionKick    = "kick"
	InfractionBan     = "ban"
)

type UserInfraction struct {
	GuildID    string
	UserID     string
	Category   string
	CountTotal int
	LastAt     time.Time
	LastAction string
	ResetAt    *time.Time
}

func (s *Store) GetInfraction(ctx context.Context, guildID, userID, category string) (UserInfraction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT guild_id, user_id, category, count_total, last_at, COALESCE(last_action, ''), reset_at
		FROM user_infractions
		WHERE guild_id = ? AND user_id = ? AND category = ?
	`, guildID, userID, category)

	inf, err := scanInfraction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UserInfraction{}, nil
		}
		return UserInfraction{}, err
	}
	return inf, nil
}

func (s *Store) ListInfractions(ctx context.Context, guildID, userID string) ([]UserInfraction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, user_id, category, count_total, last_at, COALESCE(last_action, ''), reset_at
		FROM user_infractions
		WHERE guild_id = ? AND user_id = ?
		ORDER BY category
	`, guildID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UserInfraction
	for rows.Next() {
		inf, err := scanInfraction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inf)
	}
	return out, rows.Err()
}

// IncrementInfraction bumps the counter for a category. A counter whose forgiveness
// deadline has passed starts again from zero.
func (s *Store) IncrementInfraction(ctx context.Context, guildID, userID, category, lastAction string, forgiveAfter time.Duration) (int, error) {
	now := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var count int
	var resetAt sql.NullInt64
	row := tx.QueryRowContext(ctx, `
		SELECT count_total, reset_at
		FROM user_infractions
		WHERE guild_id = ? AND user_id = ? AND category = ?
	`, guildID, userID, category)
	scanErr := row.Scan(&count, &resetAt)
	if scanErr != nil && !errors.Is(scanErr, sql.ErrNoRows) {
		err = scanErr
		return 0, err
	}
	if scanErr == nil && resetAt.Valid && now.Unix() >= resetAt.Int64 {
		count = 0
	}

	count++
	var nextReset any
	if forgiveAfter > 0 {
		nextReset = now.Add(forgiveAfter).Unix()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_infractions (guild_id, user_id, category, count_total, last_at, last_action, reset_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id, category) DO UPDATE SET
			count_total = excluded.count_total,
			last_at = excluded.last_at,
			last_action = excluded.last_action,
			reset_at = excluded.reset_at
	`, guildID, userID, category, count, now.Unix(), lastAction, nextReset)
	if err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) ClearInfractions(ctx context.Context, guildID, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_infractions WHERE guild_id = ? AND user_id = ?`, guildID, userID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInfraction(row rowScanner) (UserInfraction, error) {
	var inf UserInfraction
	var lastAt int64
	var resetAt sql.NullInt64
	if err := row.Scan(&inf.GuildID, &inf.UserID, &inf.Category, &inf.CountTotal, &lastAt, &inf.LastAction, &resetAt); err != nil {
		return UserInfraction{}, err
	}
	inf.LastAt = time.Unix(lastAt, 0)
	if resetAt.Valid {
		value := time.Unix(resetAt.Int64, 0)
		inf.ResetAt = &value
	}
	return inf, nil
}
