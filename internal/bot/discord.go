package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"TickerSage/internal/model"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// DiscordGateway adapts a discordgo session to the Gateway and
// scheduled-event interfaces.
type DiscordGateway struct {
	Session *discordgo.Session
}

// History fetches up to limit prior channel messages, oldest first.
func (g *DiscordGateway) History(channelID string, limit int) ([]model.TranscriptEntry, error) {
	msgs, err := g.Session.ChannelMessages(channelID, limit, "", "", "")
	if err != nil {
		return nil, fmt.Errorf("fetch channel history: %w", err)
	}
	// Discord returns newest first.
	entries := make([]model.TranscriptEntry, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.Author == nil || m.Content == "" {
			continue
		}
		entries = append(entries, model.TranscriptEntry{
			Author:    m.Author.Username,
			Content:   m.Content,
			Bot:       m.Author.Bot,
			Timestamp: m.Timestamp,
		})
	}
	return entries, nil
}

// Typing triggers the typing indicator for a channel.
func (g *DiscordGateway) Typing(channelID string) error {
	return g.Session.ChannelTyping(channelID)
}

// CreateEvent creates an external guild scheduled event and returns its id.
func (g *DiscordGateway) CreateEvent(guildID, name, description string, start, end time.Time) (string, error) {
	ev, err := g.Session.GuildScheduledEventCreate(guildID, &discordgo.GuildScheduledEventParams{
		Name:               name,
		Description:        description,
		ScheduledStartTime: &start,
		ScheduledEndTime:   &end,
		EntityType:         discordgo.GuildScheduledEventEntityTypeExternal,
		PrivacyLevel:       discordgo.GuildScheduledEventPrivacyLevelGuildOnly,
		EntityMetadata:     &discordgo.GuildScheduledEventEntityMetadata{Location: "Market"},
	})
	if err != nil {
		return "", err
	}
	return ev.ID, nil
}

// DeleteEvent deletes a guild scheduled event.
func (g *DiscordGateway) DeleteEvent(guildID, eventID string) error {
	return g.Session.GuildScheduledEventDelete(guildID, eventID)
}

// Bot owns the gateway session and feeds inbound messages to the router.
type Bot struct {
	Session   *discordgo.Session
	Router    *Router
	ChannelID string // when set, only this channel is handled
	Touch     func() // idle-watchdog activity ping
}

// NewBot creates a Discord session configured for message handling.
func NewBot(token string) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent
	return &Bot{Session: session, Touch: func() {}}, nil
}

// Start registers handlers and opens the gateway connection.
func (b *Bot) Start() error {
	b.Session.AddHandler(b.onMessageCreate)
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	log.Infof("gateway connected as %s", b.Session.State.User.Username)
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() error {
	return b.Session.Close()
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if b.ChannelID != "" && m.ChannelID != b.ChannelID {
		return
	}
	b.Touch()

	botID := s.State.User.ID
	mentioned := false
	for _, u := range m.Mentions {
		if u.ID == botID {
			mentioned = true
			break
		}
	}

	content := stripMention(m.Content, botID)
	in := Inbound{
		UserID:    m.Author.ID,
		Author:    m.Author.Username,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Content:   content,
		Mentioned: mentioned,
	}

	reply := b.Router.Handle(context.Background(), in)
	if reply == "" {
		return
	}
	if _, err := s.ChannelMessageSendReply(m.ChannelID, reply, m.Reference()); err != nil {
		// Fire-and-forget: log, never retry.
		log.Errorf("send reply: %v", err)
	}
}

// stripMention removes the bot's mention tokens from message content.
func stripMention(content, botID string) string {
	content = strings.ReplaceAll(content, "<@"+botID+">", "")
	content = strings.ReplaceAll(content, "<@!"+botID+">", "")
	return strings.TrimSpace(content)
}
