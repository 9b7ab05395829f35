package bot

import (
	"fmt"
	"strings"
	"time"

	"hearth/internal/analytics"
	"hearth/internal/progression"
	"hearth/internal/storage"
	"hearth/internal/utils"

	"github.com/bwmarrin/discordgo"
)

func activityEmbed(entry storage.AuditLog, color int) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Level", Value: entry.Level, Inline: true},
	}
	if entry.UserID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Member", Value: mention(entry.UserID), Inline: true})
	}
	created := entry.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return &discordgo.MessageEmbed{
		Title:       strings.ReplaceAll(entry.Event, "_", " "),
		Description: entry.Details,
		Color:       color,
		Fields:      fields,
		Timestamp:   created.Format(time.RFC3339),
	}
}

func formatTopEvents(events []analytics.EventCount) string {
	lines := make([]string, 0, len(events))
	for _, event := range events {
		lines = append(lines, fmt.Sprintf("%s: %d", strings.ReplaceAll(event.Event, "_", " "), event.Count))
	}
	return strings.Join(lines, "\n")
}

func formatLeaderboard(records []progression.Record) string {
	if len(records) == 0 {
		return "Nobody has earned xp yet."
	}
	lines := make([]string, 0, len(records))
	for i, record := range records {
		lines = append(lines, fmt.Sprintf("**%d.** %s level %d (%d xp)", i+1, mention(record.UserID), record.Level(), record.XP))
	}
	return strings.Join(lines, "\n")
}

func formatPartners(partners []storage.Partner) string {
	lines := make([]string, 0, len(partners))
	for _, partner := range partners {
		lines = append(lines, fmt.Sprintf("%s **%s** %s", tierBadge(partner.Tier), partner.Name, partner.InviteURL))
	}
	return strings.Join(lines, "\n")
}

func tierBadge(tier string) string {
	switch tier {
	case storage.TierGold:
		return "[gold]"
	case storage.TierSilver:
		return "[silver]"
	default:
		return "[bronze]"
	}
}

func normalizePartnerInvite(raw string) (string, error) {
	return utils.NormalizeInvite(raw)
}
