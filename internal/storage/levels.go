package storage

import "context"

type LevelRole struct {
	GuildID string
	Level   int64
	RoleID  string
}

func (s *Store) SetLevelRole(ctx context.Context, guildID string, level int64, roleID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO level_roles (guild_id, level, role_id) VALUES (?, ?, ?)
		ON CONFLICT(guild_id, level) DO UPDATE SET role_id = excluded.role_id
	`, guildID, level, roleID)
	return err
}

func (s *Store) RemoveLevelRole(ctx context.Context, guildID string, level int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM level_roles WHERE guild_id = ? AND level = ?`, guildID, level)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) ListLevelRoles(ctx context.Context, guildID string) ([]LevelRole, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT level, role_id FROM level_roles WHERE guild_id = ? ORDER BY level`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []LevelRole
	for rows.Next() {
		role := LevelRole{GuildID: guildID}
		if err := rows.Scan(&role.Level, &role.RoleID); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// RolesUpTo returns the reward roles for every level in (from, to].
func (s *Store) RolesUpTo(ctx context.Context, guildID string, from, to int64) ([]LevelRole, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT level, role_id FROM level_roles
		WHERE guild_id = ? AND level > ? AND level <= ?
		ORDER BY level`, guildID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []LevelRole
	for rows.Next() {
		role := LevelRole{GuildID: guildID}
		if err := rows.Scan(&role.Level, &role.RoleID); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}
