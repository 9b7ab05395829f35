package storage

import (
	"context"
	"strings"
	"time"
)

const (
	TierBronze = "bronze"
	TierSilver = "silver"
	TierGold   = "gold"
)

type Partner struct {
	GuildID   string
	Name      string
	InviteURL string
	Tier      string
	AddedBy   string
	CreatedAt time.Time
}

func ValidTier(tier string) bool {
	switch strings.ToLower(tier) {
	case TierBronze, TierSilver, TierGold:
		return true
	}
	return false
}

func (s *Store) UpsertPartner(ctx context.Context, partner Partner) error {
	if partner.CreatedAt.IsZero() {
		partner.CreatedAt = time.Now()
	}
	tier := strings.ToLower(partner.Tier)
	if !ValidTier(tier) {
		tier = TierBronze
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO partnerships (guild_id, name, invite_url, tier, added_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, name) DO UPDATE SET
			invite_url = excluded.invite_url,
			tier = excluded.tier,
			added_by = excluded.added_by
	`, partner.GuildID, partner.Name, partner.InviteURL, tier, partner.AddedBy, partner.CreatedAt.Unix())
	return err
}

func (s *Store) RemovePartner(ctx context.Context, guildID, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM partnerships WHERE guild_id = ? AND name = ?`, guildID, name)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListPartners orders gold first, then silver, then bronze; names ascending within a tier.
func (s *Store) ListPartners(ctx context.Context, guildID string) ([]Partner, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, invite_url, tier, added_by, created_at
		FROM partnerships
		WHERE guild_id = ?
		ORDER BY CASE tier WHEN 'gold' THEN 0 WHEN 'silver' THEN 1 ELSE 2 END, name COLLATE NOCASE
	`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var partners []Partner
	for rows.Next() {
		partner := Partner{GuildID: guildID}
		var created int64
		if err := rows.Scan(&partner.Name, &partner.InviteURL, &partner.Tier, &partner.AddedBy, &created); err != nil {
			return nil, err
		}
		partner.CreatedAt = time.Unix(created, 0)
		partners = append(partners, partner)
	}
	return partners, rows.Err()
}
