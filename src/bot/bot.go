// Package bot wires the Discord front end onto the election engines.
package bot

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/aprp/electionbot/src/components/campaign"
	"github.com/aprp/electionbot/src/components/candidacy"
	"github.com/aprp/electionbot/src/components/cycle"
	"github.com/aprp/electionbot/src/components/poll"
	"github.com/aprp/electionbot/src/components/session"
	"github.com/aprp/electionbot/src/components/tally"
	"github.com/aprp/electionbot/src/discord"
	"github.com/aprp/electionbot/src/ledger"
	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	Token        string
	GuildID      string
	AdminRoleID  string
	Ledger       ledger.Ledger
	Redis        *redis.Client
	TickInterval time.Duration
}

type Bot struct {
	session *discordgo.Session
	config  Config
	store   ledger.Ledger
	rdb     *redis.Client

	clock       *cycle.Service
	ticker      *cycle.Ticker
	candidacies *candidacy.Store
	actions     *campaign.Engine
	tally       *tally.Engine
	polls       *poll.Engine
	sessions    *session.Registry
	cooldowns   *Cooldown

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(config Config) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	b := &Bot{
		session: dg,
		config:  config,
		store:   config.Ledger,
		rdb:     config.Redis,
		ctx:     ctx,
		cancel:  cancel,
	}
	b.initComponents()

	dg.AddHandler(b.handleReady)
	dg.AddHandler(b.handleInteraction)

	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	return b, nil
}

func (b *Bot) initComponents() {
	b.clock = cycle.NewService(b.store)
	b.ticker = cycle.NewTicker(b.clock, b.config.TickInterval)
	b.candidacies = candidacy.NewStore(b.store)
	b.actions = campaign.NewEngine(b.candidacies, b.clock)
	b.tally = tally.NewEngine(b.store, b.candidacies)
	b.polls = poll.NewEngine(b.candidacies)
	b.sessions = session.NewRegistry(session.DefaultTimeout)
	b.cooldowns = NewCooldown(30 * time.Second)
}

// Components exposes the engines for the HTTP API, which shares one set
// of component instances with the bot.
func (b *Bot) Components() (*cycle.Service, *candidacy.Store, *tally.Engine, *poll.Engine) {
	return b.clock, b.candidacies, b.tally, b.polls
}

func (b *Bot) Start() error {
	// Table auto-creation is best effort; a transiently unreachable
	// store must not stop the bot from coming up.
	ctx, cancelBoot := context.WithTimeout(b.ctx, 30*time.Second)
	defer cancelBoot()
	for _, table := range []string{ledger.TableSignups, ledger.TableGeneral, ledger.TableHistory} {
		if err := b.store.EnsureTable(ctx, table); err != nil {
			log.Printf("Ensure table %s: %v", table, err)
		}
	}
	if err := b.clock.Bootstrap(ctx); err != nil {
		log.Printf("Bootstrap cycle config: %v", err)
	}

	return b.session.Open()
}

func (b *Bot) Stop() {
	b.cancel()
	b.wg.Wait()
	b.session.Close()
}

func (b *Bot) handleReady(s *discordgo.Session, event *discordgo.Ready) {
	log.Printf("Discord bot logged in as %s", event.User.Username)

	if err := discord.RegisterSlashCommands(s, b.config.GuildID); err != nil {
		log.Printf("Failed to register slash commands: %v", err)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.ticker.Start(b.ctx)
	}()
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(s, i)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(s, i)
	}
}

// isAdmin reports whether the caller may use admin commands: either the
// Discord administrator permission or the configured admin role.
func (b *Bot) isAdmin(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	if i.Member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	for _, roleID := range i.Member.Roles {
		if b.config.AdminRoleID != "" && roleID == b.config.AdminRoleID {
			return true
		}
	}
	return false
}

func (b *Bot) userID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
