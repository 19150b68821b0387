package discord

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/commands"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/onboarding"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/platform"
	"github.com/bwmarrin/discordgo"
)

const (
	Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMembers |
		discordgo.IntentGuildPresences |
		discordgo.IntentGuildMessages |
		discordgo.IntentMessageContent

	presenceText = "Welcoming new members"
)

// Lifecycle is the onboarding service as seen by the gateway.
type Lifecycle interface {
	Reset()
	HandleJoin(ctx context.Context, member platform.Member) onboarding.Outcome
	HandleLeave(ctx context.Context, member platform.Member) (removed int)
	HandleInteraction(ctx context.Context, in platform.Interaction) bool
}

// CommandHandler runs text commands.
type CommandHandler interface {
	Handle(ctx context.Context, msg commands.Message) bool
}

// Gateway owns the session and turns gateway events into service calls.
// Every handler runs on its own goroutine and uses the gateway's context.
// The join ledger is reset on the first Ready only; later Ready events come
// from re-identifying and must not disturb joins in flight.
type Gateway struct {
	session   *discordgo.Session
	lifecycle Lifecycle
	commands  CommandHandler
	ctx       context.Context
	cancel    context.CancelFunc
	connected atomic.Bool
	reset     sync.Once
}

// NewSession creates an unopened session with the intents the bot needs.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = Intents
	s.StateEnabled = true
	return s, nil
}

func NewGateway(session *discordgo.Session, lifecycle Lifecycle, cmds CommandHandler) *Gateway {
	ctx, cancel := context.WithCancel(context.Background())
	g := &Gateway{session: session, lifecycle: lifecycle, commands: cmds, ctx: ctx, cancel: cancel}

	session.AddHandler(g.onReady)
	session.AddHandler(g.onConnect)
	session.AddHandler(g.onDisconnect)
	session.AddHandler(g.onMemberAdd)
	session.AddHandler(g.onMemberRemove)
	session.AddHandler(g.onInteraction)
	session.AddHandler(g.onMessage)
	return g
}

// Open connects to the gateway.
func (g *Gateway) Open() error {
	return g.session.Open()
}

// Close cancels in-flight handlers and closes the session.
func (g *Gateway) Close() error {
	g.cancel()
	g.connected.Store(false)
	return g.session.Close()
}

// Connected reports whether the gateway is currently up.
func (g *Gateway) Connected() bool {
	return g.connected.Load()
}

func (g *Gateway) onReady(s *discordgo.Session, r *discordgo.Ready) {
	g.connected.Store(true)
	g.reset.Do(g.lifecycle.Reset)
	if err := s.UpdateCustomStatus(presenceText); err != nil {
		log.Printf("⚠️ [Gateway] Failed to set presence: %v", err)
	}
	log.Printf("✅ [Gateway] Logged in as %s in %d guild(s)", r.User.Username, len(r.Guilds))
}

func (g *Gateway) onConnect(_ *discordgo.Session, _ *discordgo.Connect) {
	g.connected.Store(true)
}

func (g *Gateway) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	g.connected.Store(false)
	log.Println("⚠️ [Gateway] Disconnected, waiting for reconnect")
}

func (g *Gateway) onMemberAdd(s *discordgo.Session, e *discordgo.GuildMemberAdd) {
	if e.Member == nil || e.User == nil {
		return
	}
	g.lifecycle.HandleJoin(g.ctx, toMember(e.GuildID, e.Member, g.presence(s, e.GuildID, e.User.ID)))
}

func (g *Gateway) onMemberRemove(_ *discordgo.Session, e *discordgo.GuildMemberRemove) {
	if e.Member == nil || e.User == nil {
		return
	}
	g.lifecycle.HandleLeave(g.ctx, toMember(e.GuildID, e.Member, discordgo.StatusOffline))
}

func (g *Gateway) onInteraction(_ *discordgo.Session, e *discordgo.InteractionCreate) {
	in, ok := toInteraction(e.Interaction)
	if !ok {
		return
	}
	g.lifecycle.HandleInteraction(g.ctx, in)
}

func (g *Gateway) onMessage(_ *discordgo.Session, e *discordgo.MessageCreate) {
	if g.commands == nil || e.Author == nil {
		return
	}
	g.commands.Handle(g.ctx, commands.Message{
		CommunityID: e.GuildID,
		ChannelID:   e.ChannelID,
		AuthorID:    e.Author.ID,
		AuthorBot:   e.Author.Bot,
		Content:     e.Content,
	})
}

func (g *Gateway) presence(s *discordgo.Session, guildID, userID string) discordgo.Status {
	p, err := s.State.Presence(guildID, userID)
	if err != nil {
		return discordgo.StatusOffline
	}
	return p.Status
}
