// Package discord adapts the chat-platform ports to Discord via discordgo.
package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/example/ctfcord/internal/ports/secondary"
)

// threadArchiveMinutes keeps challenge threads open for a week of
// inactivity before Discord auto-archives them.
const threadArchiveMinutes = 10080

// Platform implements the channel, announcement and scheduled-event
// ports on a single Discord session.
type Platform struct {
	session *discordgo.Session
}

// NewPlatform wraps a connected session.
func NewPlatform(session *discordgo.Session) *Platform {
	return &Platform{session: session}
}

// CreateChannel creates a text channel hidden from @everyone. The bot
// keeps access through its own permission overwrite.
func (p *Platform) CreateChannel(ctx context.Context, guildRef, title, topic, parentGroup string) (string, error) {
	overwrites := []*discordgo.PermissionOverwrite{
		{
			// @everyone shares its ID with the guild.
			ID:   guildRef,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
	}
	if p.session.State != nil && p.session.State.User != nil {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    p.session.State.User.ID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel,
		})
	}

	channel, err := p.session.GuildChannelCreateComplex(guildRef, discordgo.GuildChannelCreateData{
		Name:                 channelName(title),
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                topic,
		ParentID:             parentGroup,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to create channel: %w", err)
	}
	return channel.ID, nil
}

// DeleteChannel removes a channel.
func (p *Platform) DeleteChannel(ctx context.Context, channelRef string) error {
	if _, err := p.session.ChannelDelete(channelRef, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete channel %s: %w", channelRef, err)
	}
	return nil
}

// ChannelExists reports whether the channel still resolves. Only a
// definitive unknown-channel answer from the API counts as gone;
// transport failures are returned as errors.
func (p *Platform) ChannelExists(ctx context.Context, channelRef string) (bool, error) {
	_, err := p.session.Channel(channelRef, discordgo.WithContext(ctx))
	if err == nil {
		return true, nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil &&
		restErr.Message.Code == discordgo.ErrCodeUnknownChannel {
		return false, nil
	}
	return false, fmt.Errorf("failed to look up channel %s: %w", channelRef, err)
}

// SetVisibility grants or revokes a member's view permission on a
// channel. Both directions are idempotent: re-granting rewrites the
// same overwrite, revoking without a grant deletes nothing.
func (p *Platform) SetVisibility(ctx context.Context, channelRef, userRef string, visible bool) error {
	if visible {
		err := p.session.ChannelPermissionSet(channelRef, userRef,
			discordgo.PermissionOverwriteTypeMember, discordgo.PermissionViewChannel, 0,
			discordgo.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("failed to grant visibility on %s: %w", channelRef, err)
		}
		return nil
	}
	if err := p.session.ChannelPermissionDelete(channelRef, userRef, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to revoke visibility on %s: %w", channelRef, err)
	}
	return nil
}

// EnsureGroup returns the category with the given name, creating it on
// first use. Matching is case-insensitive, like Discord's own UI.
func (p *Platform) EnsureGroup(ctx context.Context, guildRef, name string) (string, error) {
	channels, err := p.session.GuildChannels(guildRef, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to list channels: %w", err)
	}
	for _, channel := range channels {
		if channel.Type == discordgo.ChannelTypeGuildCategory && strings.EqualFold(channel.Name, name) {
			return channel.ID, nil
		}
	}

	category, err := p.session.GuildChannelCreate(guildRef, name, discordgo.ChannelTypeGuildCategory,
		discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to create category %q: %w", name, err)
	}
	return category.ID, nil
}

// MoveChannel places a channel under a category.
func (p *Platform) MoveChannel(ctx context.Context, channelRef, groupRef string) error {
	_, err := p.session.ChannelEdit(channelRef, &discordgo.ChannelEdit{
		ParentID: groupRef,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to move channel %s: %w", channelRef, err)
	}
	return nil
}

// CreateThread starts a public thread under the channel.
func (p *Platform) CreateThread(ctx context.Context, channelRef, title string) (string, error) {
	thread, err := p.session.ThreadStart(channelRef, title,
		discordgo.ChannelTypeGuildPublicThread, threadArchiveMinutes,
		discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to start thread: %w", err)
	}
	return thread.ID, nil
}

// RenameThread retitles a thread.
func (p *Platform) RenameThread(ctx context.Context, threadRef, title string) error {
	_, err := p.session.ChannelEdit(threadRef, &discordgo.ChannelEdit{
		Name: title,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to rename thread %s: %w", threadRef, err)
	}
	return nil
}

// DeleteThread removes a thread.
func (p *Platform) DeleteThread(ctx context.Context, threadRef string) error {
	if _, err := p.session.ChannelDelete(threadRef, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete thread %s: %w", threadRef, err)
	}
	return nil
}

// PostMessage posts content into a channel and returns the message ID.
func (p *Platform) PostMessage(ctx context.Context, channelRef, content string) (string, error) {
	msg, err := p.session.ChannelMessageSend(channelRef, content, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to post message: %w", err)
	}
	return msg.ID, nil
}

// PinMessage pins a message in its channel.
func (p *Platform) PinMessage(ctx context.Context, channelRef, messageRef string) error {
	if err := p.session.ChannelMessagePin(channelRef, messageRef, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to pin message: %w", err)
	}
	return nil
}

// AddReaction adds a reaction to a message.
func (p *Platform) AddReaction(ctx context.Context, channelRef, messageRef, emoji string) error {
	if err := p.session.MessageReactionAdd(channelRef, messageRef, emoji, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to add reaction: %w", err)
	}
	return nil
}

// CreateScheduledEvent schedules an external event on the guild.
func (p *Platform) CreateScheduledEvent(ctx context.Context, guildRef, name, description string, start, finish time.Time, location string) (string, error) {
	if location == "" {
		location = "online"
	}
	event, err := p.session.GuildScheduledEventCreate(guildRef, &discordgo.GuildScheduledEventParams{
		Name:               name,
		Description:        description,
		ScheduledStartTime: &start,
		ScheduledEndTime:   &finish,
		EntityType:         discordgo.GuildScheduledEventEntityTypeExternal,
		PrivacyLevel:       discordgo.GuildScheduledEventPrivacyLevelGuildOnly,
		EntityMetadata: &discordgo.GuildScheduledEventEntityMetadata{
			Location: location,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to create scheduled event: %w", err)
	}
	return event.ID, nil
}

// DeleteScheduledEvent removes a scheduled event.
func (p *Platform) DeleteScheduledEvent(ctx context.Context, guildRef, eventRef string) error {
	if err := p.session.GuildScheduledEventDelete(guildRef, eventRef, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete scheduled event %s: %w", eventRef, err)
	}
	return nil
}

// channelName turns an event title into a Discord-legal channel name.
func channelName(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "ctf"
	}
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}

// Ensure Platform implements the platform ports
var (
	_ secondary.ChannelService        = (*Platform)(nil)
	_ secondary.AnnouncementService   = (*Platform)(nil)
	_ secondary.ScheduledEventService = (*Platform)(nil)
)
