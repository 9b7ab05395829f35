package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hearth/internal/config"
	"hearth/internal/giveaway"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

const enterButtonID = "giveaway:enter"

type sendFunc func(channelID string, data *discordgo.MessageSend) (*discordgo.Message, error)

// discordPublisher paces every channel send the bot makes and renders giveaway messages.
type discordPublisher struct {
	send    sendFunc
	limiter *rate.Limiter
	colors  config.EmbedColors
}

func newDiscordPublisher(send sendFunc, perSecond float64, colors config.EmbedColors) *discordPublisher {
	limit := rate.Inf
	burst := 1
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
		burst = int(perSecond) + 1
	}
	return &discordPublisher{
		send:    send,
		limiter: rate.NewLimiter(limit, burst),
		colors:  colors,
	}
}

func (p *discordPublisher) Publish(ctx context.Context, destination string, announcement giveaway.Announcement) (string, error) {
	return p.deliver(ctx, destination, p.render(announcement))
}

func (p *discordPublisher) deliver(ctx context.Context, channelID string, data *discordgo.MessageSend) (string, error) {
	if channelID == "" {
		return "", errors.New("no destination channel")
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}
	msg, err := p.send(channelID, data)
	if err != nil {
		return "", err
	}
	if msg == nil {
		return "", errors.New("discord returned no message")
	}
	return msg.ID, nil
}

func (p *discordPublisher) render(a giveaway.Announcement) *discordgo.MessageSend {
	switch a.Kind {
	case giveaway.AnnounceOpen:
		return &discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{{
				Title:       "Giveaway: " + a.Prize,
				Description: "Press the button below to enter.",
				Color:       p.colors.Info,
				Fields: []*discordgo.MessageEmbedField{
					{Name: "Winners", Value: fmt.Sprintf("%d", a.WinnerCount), Inline: true},
					{Name: "Ends", Value: fmt.Sprintf("<t:%d:R>", a.EndsAt.Unix()), Inline: true},
					{Name: "Hosted by", Value: mention(a.HostID), Inline: true},
				},
				Timestamp: a.EndsAt.Format(time.RFC3339),
			}},
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.Button{Label: "Enter", Style: discordgo.PrimaryButton, CustomID: enterButtonID},
				}},
			},
		}
	case giveaway.AnnounceReroll:
		return &discordgo.MessageSend{
			Content:   winnersLine("New winner", a.Winners, a.Prize),
			Reference: &discordgo.MessageReference{MessageID: a.GiveawayID},
			Embeds: []*discordgo.MessageEmbed{{
				Title:       "Giveaway rerolled: " + a.Prize,
				Description: rerollDescription(a),
				Color:       p.colors.Info,
			}},
		}
	default:
		return &discordgo.MessageSend{
			Content:   winnersLine("Congratulations", a.Winners, a.Prize),
			Reference: &discordgo.MessageReference{MessageID: a.GiveawayID},
			Embeds: []*discordgo.MessageEmbed{{
				Title:       "Giveaway ended: " + a.Prize,
				Description: resultDescription(a),
				Color:       p.colors.Success,
				Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("%d entrants", a.Entrants)},
			}},
		}
	}
}

func winnersLine(prefix string, winners []string, prize string) string {
	if len(winners) == 0 {
		return ""
	}
	mentions := make([]string, len(winners))
	for i, userID := range winners {
		mentions[i] = mention(userID)
	}
	return fmt.Sprintf("%s %s! You won **%s**.", prefix, strings.Join(mentions, ", "), prize)
}

func resultDescription(a giveaway.Announcement) string {
	if len(a.Winners) == 0 {
		return "No valid entries, no winner was drawn."
	}
	lines := make([]string, len(a.Winners))
	for i, userID := range a.Winners {
		lines[i] = fmt.Sprintf("%d. %s", i+1, mention(userID))
	}
	return strings.Join(lines, "\n")
}

func rerollDescription(a giveaway.Announcement) string {
	if len(a.Winners) == 0 {
		return "Every entrant has already been drawn."
	}
	return resultDescription(a)
}
