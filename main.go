// Command aswo is the osu! chat bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres, runs migrations and warms the guild prefix cache.
//   - Wires the osu! API client, the render farm client with its push-channel tracker,
//     and the command router.
//   - Starts the Discord and/or Twitch front-ends and the ops HTTP server with
//     /healthz, /readyz, /status and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/aswo/cache"
	"github.com/onnwee/aswo/chat"
	"github.com/onnwee/aswo/commands"
	"github.com/onnwee/aswo/config"
	"github.com/onnwee/aswo/db"
	"github.com/onnwee/aswo/ordr"
	"github.com/onnwee/aswo/osuapi"
	"github.com/onnwee/aswo/server"
	"github.com/onnwee/aswo/settings"
	"github.com/onnwee/aswo/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	setupLogging()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("config invalid", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing("aswo", "1.0.0", cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB
	database, err := db.Connect(ctx, cfg.DBDsn)
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(database); err != nil {
		slog.Error("failed to migrate db", slog.Any("err", err), slog.String("component", "db_migrate"))
		os.Exit(1)
	}
	store := &db.Store{DB: database}

	prefs := settings.New(store, cfg.DefaultPrefix)
	if err := prefs.Warm(ctx); err != nil {
		slog.Warn("prefix cache warm failed", slog.Any("err", err), slog.String("component", "settings"))
	}

	skinCache := newCache(ctx, cfg.RedisURL)
	defer func() {
		if c, ok := skinCache.(*cache.Redis); ok {
			_ = c.Close()
		}
	}()

	// osu! API
	tokens := &osuapi.TokenCache{
		ClientID:     cfg.OsuClientID,
		ClientSecret: cfg.OsuClientSecret,
		TokenURL:     cfg.OsuTokenURL,
		MaxAge:       cfg.OsuTokenMaxAge,
	}
	osu := osuapi.NewClient(cfg.OsuAPIURL, tokens, cfg.OsuRatePerMin)

	// Render farm
	farm := ordr.NewClient(cfg.OrdrAPIURL, cfg.OrdrVerificationKey)
	farm.Username = cfg.OrdrUsername
	farm.Resolution = cfg.OrdrResolution
	skins := ordr.NewSkinCatalog(farm, skinCache, cfg.SkinCacheTTL)
	tracker := ordr.NewTracker(ordr.SocketIODialer(cfg.OrdrWSURL), cfg.RenderTimeout, cfg.MaxConcurrentRender)

	router := commands.NewRouter(osu, farm, skins, tracker, prefs)

	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				slog.Error("component exited with error", slog.String("component", name), slog.Any("err", err))
				stop()
			}
		}()
	}

	if cfg.DiscordEnabled() {
		discord, err := chat.NewDiscord(cfg.DiscordToken, router)
		if err != nil {
			slog.Error("discord setup failed", slog.Any("err", err))
			os.Exit(1)
		}
		run("discord", discord.Run)
	}
	if cfg.TwitchEnabled() {
		run("twitch", chat.NewTwitch(cfg.TwitchBotUsername, cfg.TwitchOAuthToken, cfg.TwitchChannels, router).Run)
	}

	handlers := &server.Handlers{
		DB:       store,
		Osu:      osu,
		Renders:  tracker,
		Prefixes: prefs,
	}
	if rc, ok := skinCache.(*cache.Redis); ok {
		handlers.Cache = server.PingFunc(rc.Health)
	}
	run("http", func(ctx context.Context) error { return server.Start(ctx, cfg.HTTPAddr, handlers) })

	<-ctx.Done()
	slog.Info("shutting down")
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(15 * time.Second):
		slog.Warn("shutdown timed out waiting for front-ends")
	}
}

func setupLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		format = "text"
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", format))
}

// newCache returns Redis when configured and reachable, otherwise an in-process cache.
func newCache(ctx context.Context, redisURL string) cache.Cache {
	if redisURL == "" {
		return cache.NewMemory()
	}
	rc, err := cache.NewRedis(ctx, redisURL)
	if err != nil {
		slog.Warn("redis unavailable, using in-memory skin cache", slog.Any("err", err), slog.String("component", "cache"))
		return cache.NewMemory()
	}
	return rc
}
