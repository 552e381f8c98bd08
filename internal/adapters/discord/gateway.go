package discord

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/example/ctfcord/internal/ports/primary"
)

// interactionTimeout bounds the work done for a single command. Discord
// drops interactions that take longer than a few seconds anyway.
const interactionTimeout = 10 * time.Second

// Gateway binds slash commands and reaction events to the services.
type Gateway struct {
	session    *discordgo.Session
	ctfs       primary.CtfService
	challenges primary.ChallengeService
	membership primary.MembershipService

	// allowGuild filters events to the configured guilds. nil allows all.
	allowGuild func(string) bool

	registered []*discordgo.ApplicationCommand
}

// NewGateway creates a gateway over a session. The session must not be
// opened yet; handlers are attached by Start.
func NewGateway(
	session *discordgo.Session,
	ctfs primary.CtfService,
	challenges primary.ChallengeService,
	membership primary.MembershipService,
	allowGuild func(string) bool,
) *Gateway {
	if allowGuild == nil {
		allowGuild = func(string) bool { return true }
	}
	return &Gateway{
		session:    session,
		ctfs:       ctfs,
		challenges: challenges,
		membership: membership,
		allowGuild: allowGuild,
	}
}

var commands = []*discordgo.ApplicationCommand{
	{
		Name:        "register",
		Description: "Register a CTF and create its team channel",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "event", Description: "Event ID or link", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "team", Description: "Team name for the generated credentials", Required: true},
		},
	},
	{
		Name:        "unregister",
		Description: "Delete the CTF registered for this channel",
	},
	{
		Name:        "details",
		Description: "Show details for an event without registering it",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "event", Description: "Event ID or link", Required: true},
		},
	},
	{
		Name:        "workon",
		Description: "Mark a challenge as being worked on",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Challenge name", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "category", Description: "Category (required for a new challenge)"},
		},
	},
	{
		Name:        "solve",
		Description: "Mark a challenge as solved",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "flag", Description: "The flag", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Challenge name (optional inside its thread)"},
			{Type: discordgo.ApplicationCommandOptionString, Name: "category", Description: "Category (required for a new challenge)"},
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "points", Description: "Point value"},
		},
	},
	{
		Name:        "remove",
		Description: "Remove a challenge",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Challenge name", Required: true},
		},
	},
	{
		Name:        "challenges",
		Description: "List this CTF's challenges by category",
	},
}

// Start attaches the handlers, opens the session and registers the
// command set. Commands are registered globally when no guilds are
// configured, per-guild otherwise.
func (g *Gateway) Start(guilds []string) error {
	g.session.AddHandler(g.onInteraction)
	g.session.AddHandler(g.onReactionAdd)
	g.session.AddHandler(g.onReactionRemove)
	g.session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages | discordgo.IntentsGuildMessageReactions

	if err := g.session.Open(); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	appID := g.session.State.User.ID
	targets := guilds
	if len(targets) == 0 {
		targets = []string{""}
	}
	for _, guildID := range targets {
		for _, cmd := range commands {
			created, err := g.session.ApplicationCommandCreate(appID, guildID, cmd)
			if err != nil {
				return fmt.Errorf("failed to register command %q: %w", cmd.Name, err)
			}
			g.registered = append(g.registered, created)
		}
	}
	return nil
}

// Stop closes the session. Registered commands are left in place so a
// restart does not flicker them.
func (g *Gateway) Stop() error {
	return g.session.Close()
}

func (g *Gateway) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand || !g.allowGuild(i.GuildID) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	name := i.ApplicationCommandData().Name
	var reply string
	var err error
	switch name {
	case "register":
		reply, err = g.handleRegister(ctx, i)
	case "unregister":
		reply, err = g.handleUnregister(ctx, i)
	case "details":
		reply, err = g.handleDetails(ctx, i)
	case "workon":
		reply, err = g.handleWorkOn(ctx, i)
	case "solve":
		reply, err = g.handleSolve(ctx, i)
	case "remove":
		reply, err = g.handleRemove(ctx, i)
	case "challenges":
		g.handleChallenges(ctx, i)
		return
	default:
		return
	}

	if err != nil {
		g.respond(i, userMessage(err), true)
		return
	}
	g.respond(i, reply, false)
}

func (g *Gateway) handleRegister(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	opts := optionMap(i)
	channelRef, _ := g.invocationScope(i)

	parentGroup := ""
	if channel, err := g.session.State.Channel(i.ChannelID); err == nil {
		parentGroup = channel.ParentID
	}

	resp, err := g.ctfs.Register(ctx, primary.RegisterRequest{
		GuildRef:           i.GuildID,
		TeamName:           stringOption(opts, "team"),
		Identifier:         stringOption(opts, "event"),
		Actor:              actorID(i),
		AnnounceChannelRef: channelRef,
		ParentGroupRef:     parentGroup,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Registered **%s**. Channel: <#%s>", resp.Ctf.Title, resp.Ctf.ChannelRef), nil
}

func (g *Gateway) handleUnregister(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	channelRef, _ := g.invocationScope(i)
	if err := g.ctfs.Unregister(ctx, channelRef); err != nil {
		return "", err
	}
	return "CTF unregistered.", nil
}

func (g *Gateway) handleDetails(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	details, err := g.ctfs.Details(ctx, stringOption(optionMap(i), "event"))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n", details.Title)
	if details.Description != "" {
		b.WriteString(details.Description + "\n")
	}
	fmt.Fprintf(&b, "Starts: %s\nEnds: %s\n",
		details.Start.Format(time.RFC1123), details.Finish.Format(time.RFC1123))
	if details.Participants > 0 {
		fmt.Fprintf(&b, "Teams interested: %d\n", details.Participants)
	}
	if details.URL != "" {
		b.WriteString(details.URL)
	}
	return b.String(), nil
}

func (g *Gateway) handleWorkOn(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	opts := optionMap(i)
	channelRef, _ := g.invocationScope(i)

	ch, err := g.challenges.WorkOn(ctx, primary.WorkOnRequest{
		ChannelRef: channelRef,
		Name:       stringOption(opts, "name"),
		Category:   stringOption(opts, "category"),
		Actor:      actorID(i),
	})
	if err != nil {
		return "", err
	}
	if ch.ThreadRef != "" {
		return fmt.Sprintf("<@%s> is working on `%s/%s`. Discuss in <#%s>.",
			actorID(i), ch.Category, ch.Name, ch.ThreadRef), nil
	}
	return fmt.Sprintf("<@%s> is working on `%s/%s`.", actorID(i), ch.Category, ch.Name), nil
}

func (g *Gateway) handleSolve(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	opts := optionMap(i)
	channelRef, threadRef := g.invocationScope(i)

	ch, err := g.challenges.Solve(ctx, primary.SolveRequest{
		ChannelRef: channelRef,
		ThreadRef:  threadRef,
		Name:       stringOption(opts, "name"),
		Category:   stringOption(opts, "category"),
		Flag:       stringOption(opts, "flag"),
		Points:     intOption(opts, "points"),
		Actor:      actorID(i),
	})
	if err != nil {
		return "", err
	}

	mentions := make([]string, len(ch.SolvedBy))
	for idx, u := range ch.SolvedBy {
		mentions[idx] = "<@" + u + ">"
	}
	return fmt.Sprintf("`%s/%s` solved by %s", ch.Category, ch.Name, strings.Join(mentions, " + ")), nil
}

func (g *Gateway) handleRemove(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	channelRef, _ := g.invocationScope(i)
	name := stringOption(optionMap(i), "name")
	if err := g.challenges.Remove(ctx, channelRef, name); err != nil {
		return "", err
	}
	return fmt.Sprintf("Removed `%s`.", name), nil
}

// handleChallenges replies with the first page and posts the rest as
// follow-up messages, each page already under the message size limit.
func (g *Gateway) handleChallenges(ctx context.Context, i *discordgo.InteractionCreate) {
	channelRef, _ := g.invocationScope(i)
	pages, err := g.challenges.ListPages(ctx, channelRef)
	if err != nil {
		g.respond(i, userMessage(err), true)
		return
	}

	g.respond(i, pages[0], false)
	for _, page := range pages[1:] {
		_, err := g.session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
			Content: page,
		})
		if err != nil {
			log.Printf("could not post challenge page: %v", err)
			return
		}
	}
}

func (g *Gateway) onReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if !g.allowGuild(r.GuildID) || g.isSelf(r.UserID) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()
	if err := g.membership.HandleJoin(ctx, r.MessageID, r.UserID); err != nil {
		log.Printf("join reaction on %s failed: %v", r.MessageID, err)
	}
}

func (g *Gateway) onReactionRemove(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	if !g.allowGuild(r.GuildID) || g.isSelf(r.UserID) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()
	if err := g.membership.HandleLeave(ctx, r.MessageID, r.UserID); err != nil {
		log.Printf("leave reaction on %s failed: %v", r.MessageID, err)
	}
}

func (g *Gateway) isSelf(userID string) bool {
	return g.session.State != nil && g.session.State.User != nil &&
		g.session.State.User.ID == userID
}

// invocationScope resolves the ledger channel for an interaction. A
// command invoked inside a challenge thread maps to the parent channel,
// with the thread itself returned for thread-scoped resolution.
func (g *Gateway) invocationScope(i *discordgo.InteractionCreate) (channelRef, threadRef string) {
	channel, err := g.session.State.Channel(i.ChannelID)
	if err != nil {
		channel, err = g.session.Channel(i.ChannelID)
	}
	if err == nil && channel.IsThread() {
		return channel.ParentID, channel.ID
	}
	return i.ChannelID, ""
}

func (g *Gateway) respond(i *discordgo.InteractionCreate, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := g.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		log.Printf("could not respond to interaction: %v", err)
	}
}

// userMessage maps the error taxonomy to a reply; anything outside it
// is logged and reported generically.
func userMessage(err error) string {
	for _, known := range []error{
		primary.ErrInvalidEvent,
		primary.ErrEventOver,
		primary.ErrCtfNotFound,
		primary.ErrChallengeNotFound,
		primary.ErrAlreadySolved,
		primary.ErrAlreadyJoined,
		primary.ErrAlreadyCredited,
		primary.ErrCategoryRequired,
	} {
		if errors.Is(err, known) {
			return strings.ToUpper(known.Error()[:1]) + known.Error()[1:] + "."
		}
	}
	log.Printf("command failed: %v", err)
	return "Something went wrong, try again later."
}

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, opt := range opts {
		m[opt.Name] = opt
	}
	return m
}

func stringOption(m map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := m[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func intOption(m map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) int {
	if opt, ok := m[name]; ok {
		return int(opt.IntValue())
	}
	return 0
}

func actorID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
