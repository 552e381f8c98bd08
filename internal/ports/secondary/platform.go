package secondary

import (
	"context"
	"time"
)

// ChannelService is the narrow capability interface over the chat
// platform's channel and ACL operations. The core never holds a concrete
// platform client; adapters implement this.
type ChannelService interface {
	// CreateChannel creates a channel hidden from everyone except the
	// bot. parentGroup optionally places it under an existing group.
	CreateChannel(ctx context.Context, guildRef, title, topic, parentGroup string) (string, error)

	// DeleteChannel removes a channel.
	DeleteChannel(ctx context.Context, channelRef string) error

	// ChannelExists reports whether the channel still resolves. A false
	// return must mean confirmed non-resolution, not a transport failure.
	ChannelExists(ctx context.Context, channelRef string) (bool, error)

	// SetVisibility grants or revokes a user's view access on a channel.
	// Granting or revoking twice has the same effect as once.
	SetVisibility(ctx context.Context, channelRef, userRef string, visible bool) error

	// EnsureGroup returns the ref of the named channel group, creating
	// it on first use.
	EnsureGroup(ctx context.Context, guildRef, name string) (string, error)

	// MoveChannel places a channel under a group.
	MoveChannel(ctx context.Context, channelRef, groupRef string) error

	// CreateThread creates a discussion sub-channel under a channel.
	CreateThread(ctx context.Context, channelRef, title string) (string, error)

	// RenameThread retitles a discussion sub-channel.
	RenameThread(ctx context.Context, threadRef, title string) error

	// DeleteThread removes a discussion sub-channel.
	DeleteThread(ctx context.Context, threadRef string) error
}

// AnnouncementService posts and decorates messages.
type AnnouncementService interface {
	// PostMessage posts content into a channel and returns the message ref.
	PostMessage(ctx context.Context, channelRef, content string) (string, error)

	// PinMessage pins a message in its channel.
	PinMessage(ctx context.Context, channelRef, messageRef string) error

	// AddReaction adds a reaction affordance to a message.
	AddReaction(ctx context.Context, channelRef, messageRef, emoji string) error
}

// ScheduledEventService manages the platform's native scheduled events.
// Optional: a no-op implementation is valid.
type ScheduledEventService interface {
	// CreateScheduledEvent schedules an event and returns its ref.
	CreateScheduledEvent(ctx context.Context, guildRef, name, description string, start, finish time.Time, location string) (string, error)

	// DeleteScheduledEvent removes a scheduled event.
	DeleteScheduledEvent(ctx context.Context, guildRef, eventRef string) error
}
