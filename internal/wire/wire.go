// Package wire provides dependency injection for the bot. It creates
// singleton services with lazy initialization.
package wire

import (
	"log"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/example/ctfcord/internal/adapters/ctftime"
	"github.com/example/ctfcord/internal/adapters/discord"
	"github.com/example/ctfcord/internal/adapters/sqlite"
	"github.com/example/ctfcord/internal/app"
	"github.com/example/ctfcord/internal/config"
	"github.com/example/ctfcord/internal/db"
	"github.com/example/ctfcord/internal/ports/primary"
)

var (
	configPath string

	cfg               *config.Config
	ctfService        primary.CtfService
	challengeService  primary.ChallengeService
	membershipService primary.MembershipService
	gateway           *discord.Gateway
	once              sync.Once
)

// SetConfigPath sets the config file location before first use. Calling
// it after initialization has no effect.
func SetConfigPath(path string) {
	configPath = path
}

// Config returns the loaded configuration.
func Config() *config.Config {
	once.Do(initServices)
	return cfg
}

// CtfService returns the singleton CtfService instance.
func CtfService() primary.CtfService {
	once.Do(initServices)
	return ctfService
}

// ChallengeService returns the singleton ChallengeService instance.
func ChallengeService() primary.ChallengeService {
	once.Do(initServices)
	return challengeService
}

// MembershipService returns the singleton MembershipService instance.
func MembershipService() primary.MembershipService {
	once.Do(initServices)
	return membershipService
}

// Gateway returns the singleton Discord gateway. The session is built
// but not opened; callers start it explicitly.
func Gateway() *discord.Gateway {
	once.Do(initServices)
	return gateway
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// Repository adapters (secondary ports) with the injected DB
	ctfRepo := sqlite.NewCtfRepository(database)
	challengeRepo := sqlite.NewChallengeRepository(database)

	directory := ctftime.NewClient(cfg.CTFTimeURL)

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		log.Fatalf("failed to build session: %v", err)
	}
	platform := discord.NewPlatform(session)

	// Services (primary ports implementation) share one lock registry so
	// ledger writes and sweep transitions on a record serialize.
	locks := app.NewRecordLocks()
	ctfService = app.NewCtfService(ctfRepo, challengeRepo, directory, platform,
		platform, platform, locks, app.CtfServiceOptions{
			JoinEmoji:     cfg.JoinEmoji,
			ArchivedGroup: cfg.ArchivedGroup,
			DigestChannel: cfg.DigestChannel,
		})
	challengeService = app.NewChallengeService(ctfRepo, challengeRepo, platform, locks)
	membershipService = app.NewMembershipService(ctfRepo, platform, locks)

	gateway = discord.NewGateway(session, ctfService, challengeService,
		membershipService, cfg.AllowsGuild)
}
