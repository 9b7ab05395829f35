package storage

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"hearth/internal/giveaway"
)

func (s *Store) GetRequirements(ctx context.Context, destination string) (giveaway.Requirements, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT min_account_age_days, must_be_in_guild, required_role_ids
		FROM giveaway_requirements WHERE destination = ?`, destination)

	var req giveaway.Requirements
	var roles string
	if err := row.Scan(&req.MinAccountAgeDays, &req.MustBeInGuild, &roles); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return giveaway.Requirements{}, nil
		}
		return giveaway.Requirements{}, err
	}
	req.RequiredRoleIDs = splitIDs(roles)
	return req, nil
}

func (s *Store) SetRequirements(ctx context.Context, destination string, req giveaway.Requirements) error {
	if req.MinAccountAgeDays < 0 {
		req.MinAccountAgeDays = 0
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO giveaway_requirements (destination, min_account_age_days, must_be_in_guild, required_role_ids)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(destination) DO UPDATE SET
			min_account_age_days = excluded.min_account_age_days,
			must_be_in_guild = excluded.must_be_in_guild,
			required_role_ids = excluded.required_role_ids
	`, destination, req.MinAccountAgeDays, req.MustBeInGuild, joinIDs(req.RequiredRoleIDs))
	return err
}

func (s *Store) ClearRequirements(ctx context.Context, destination string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM giveaway_requirements WHERE destination = ?`, destination)
	return err
}

func joinIDs(ids []string) string {
	seen := make(map[string]struct{}, len(ids))
	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		clean = append(clean, id)
	}
	sort.Strings(clean)
	return strings.Join(clean, ",")
}

func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
