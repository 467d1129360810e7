package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"TickerSage/internal/bot"
	"TickerSage/internal/config"
	"TickerSage/internal/conversation"
	"TickerSage/internal/events"
	"TickerSage/internal/llm"
	"TickerSage/internal/marketdata"
	"TickerSage/internal/model"
	"TickerSage/internal/scheduler"
	"TickerSage/internal/watchlist"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, PadLevelText: true})
	if lvl, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}
	log.Info("TickerSage starting...")

	if err := godotenv.Load(); err != nil {
		log.Debugf("no .env file loaded: %v", err)
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	// Init watchlist store (durable; the bot is not useful without it)
	store, err := watchlist.NewStore(cfg.Database.SQLitePath)
	if err != nil {
		log.Fatalf("init watchlist store: %v", err)
	}
	defer store.Close()

	// Init market-data provider
	provider := marketdata.NewHTTPProvider(cfg.MarketData.BaseURL, cfg.MarketData.APIKey, cfg.Proxy)
	log.Infof("market data source: %s", provider.Name())

	// Init language-model client
	completer := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.Model, cfg.Proxy)
	log.Infof("language model: %s at %s", cfg.LLM.Model, cfg.LLM.BaseURL)

	// Init conversation store (ephemeral by design)
	convs := conversation.NewStore(cfg.Conversation.MaxHistory, cfg.ConversationIdleTimeout())
	defer convs.Shutdown()

	// Init gateway session
	b, err := bot.NewBot(cfg.Discord.BotToken)
	if err != nil {
		log.Fatalf("init discord session: %v", err)
	}
	gateway := &bot.DiscordGateway{Session: b.Session}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init earnings-event syncer and router
	syncer := events.NewSyncer(store, provider, gateway, cfg.Discord.GuildID)
	sampling := model.Sampling{Temperature: cfg.LLM.Temperature, MaxTokens: cfg.LLM.MaxTokens}
	router := bot.NewRouter(store, provider, convs, completer, syncer, gateway, sampling)

	// Init scheduler: sweep, idle watchdog, earnings sync
	sched := scheduler.NewScheduler(ctx, convs, syncer, cfg.IdleShutdown(), cancel)
	if err := sched.RegisterAll(cfg.Schedule.EarningsSyncCron); err != nil {
		log.Fatalf("register cron tasks: %v", err)
	}

	b.Router = router
	b.ChannelID = cfg.Discord.ChannelID
	b.Touch = sched.TouchActivity

	if err := b.Start(); err != nil {
		log.Fatalf("start bot: %v", err)
	}
	defer b.Stop()

	sched.Start()
	defer sched.Stop()

	// Optional: sync earnings events immediately on start
	if os.Getenv("SYNC_ON_START") == "true" {
		log.Info("SYNC_ON_START enabled, running earnings sync now")
		go sched.RunSyncNow()
	}

	log.Info("TickerSage is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal or idle timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info("shutdown signal received, stopping...")
	case <-ctx.Done():
		log.Info("idle shutdown triggered, stopping...")
	}
	cancel()
	log.Info("TickerSage stopped")
}
