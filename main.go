package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mohsen-hany-dev/ivasms-otp/internal/cli"
	"github.com/mohsen-hany-dev/ivasms-otp/internal/config"
	"github.com/mohsen-hany-dev/ivasms-otp/internal/format"
	"github.com/mohsen-hany-dev/ivasms-otp/internal/ivasms"
	"github.com/mohsen-hany-dev/ivasms-otp/internal/models"
	"github.com/mohsen-hany-dev/ivasms-otp/internal/poller"
	"github.com/mohsen-hany-dev/ivasms-otp/internal/registry"
	"github.com/mohsen-hany-dev/ivasms-otp/internal/session"
	"github.com/mohsen-hany-dev/ivasms-otp/internal/store"
	"github.com/mohsen-hany-dev/ivasms-otp/internal/telegram"
)

func main() {
	once := flag.Bool("once", false, "run one polling cycle then exit")
	flag.Parse()

	cfg := config.Bootstrap()
	cfg.ApplySettings(config.LoadSettings(cfg.SettingsFile()))

	logger := newLogger(cfg.LogLevel)

	pr := cli.NewPrompter(os.Stdin, os.Stdout)
	fmt.Println("=== iVASMS OTP Forwarder ===")
	cfg.APIBaseURL = strings.TrimRight(pr.AskMissing("API domain", cfg.APIBaseURL), "/")
	cfg.TelegramToken = pr.AskMissing("Telegram bot token", cfg.TelegramToken)

	groups, err := registry.LoadGroups(cfg.GroupsFile())
	if err != nil {
		logger.Warn().Err(err).Msg("groups registry unreadable")
	}
	if len(groups) == 0 {
		cfg.DefaultChatID = pr.AskMissing("Telegram group/chat id", cfg.DefaultChatID)
		groups = []models.Group{{Name: "default_group", ChatID: cfg.DefaultChatID, Enabled: true}}
	}

	accounts, err := registry.LoadAccounts(cfg.AccountsFile())
	if err != nil {
		logger.Warn().Err(err).Msg("accounts registry unreadable")
	}
	if cfg.APIToken == "" && len(accounts) == 0 {
		cfg.APIToken = pr.Ask("API session token (missing and no accounts found)", "")
	}

	// The start date stays interactive every run; the rest is persisted.
	defaultStart := cfg.StartDate
	if defaultStart == "" {
		defaultStart = time.Now().Format("2006-01-02")
	}
	rawStart := pr.Ask("Start date YYYY-MM-DD", defaultStart)
	cfg.StartDate = config.NormalizeStartDate(rawStart)
	if cfg.StartDate != rawStart {
		fmt.Printf("Normalized/invalid date input. Using: %s\n", cfg.StartDate)
	}

	cfg.Limit = config.ParseLimit(pr.Ask("Messages limit", strconv.Itoa(cfg.Limit)))

	cfg.DefaultChatID = groups[0].ChatID
	if err := config.SaveSettings(cfg.SettingsFile(), cfg.Snapshot()); err != nil {
		logger.Warn().Err(err).Msg("failed to persist runtime settings")
	}

	if cfg.TelegramToken == "" {
		logger.Fatal().Msg("telegram bot token is required")
	}
	if cfg.APIToken == "" && len(accounts) == 0 {
		logger.Fatal().Msg("no API session token and no enabled accounts configured")
	}

	countries, err := registry.LoadCountries(cfg.CountriesFile())
	if err != nil {
		logger.Warn().Err(err).Msg("country registry unreadable")
	}
	platforms, err := registry.LoadPlatforms(cfg.PlatformsFile())
	if err != nil {
		logger.Warn().Err(err).Msg("platform registry unreadable")
	}

	client := ivasms.NewClient(cfg.APIBaseURL, cfg.LoginTimeout, cfg.FetchTimeout)
	sessions := session.NewManager(client, cfg.TokenCacheFile(), cfg.TokenTTL, cfg.TokenRefreshSkew,
		logger.With().Str("component", "session").Logger())
	sender, err := telegram.NewSender(cfg.TelegramToken, cfg.SendTimeout,
		logger.With().Str("component", "telegram").Logger())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to telegram")
	}
	dayStore := store.Open(cfg.DailyStoreDir(), time.Now().Format("2006-01-02"),
		logger.With().Str("component", "store").Logger())
	renderer := format.NewRenderer(countries, platforms, cfg.UseCustomEmoji)

	p := poller.New(cfg, client, sessions, sender, dayStore, renderer, accounts, groups,
		logger.With().Str("component", "poller").Logger())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		p.Prime(ctx)
		p.RunCycle(ctx)
		return
	}
	p.Run(ctx)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
