// Package main provides the harmony server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/osa030/harmony/internal/api/httpapi"
	"github.com/osa030/harmony/internal/api/ws"
	"github.com/osa030/harmony/internal/app/catalog"
	"github.com/osa030/harmony/internal/app/filter"
	"github.com/osa030/harmony/internal/app/notification"
	"github.com/osa030/harmony/internal/app/playback"
	"github.com/osa030/harmony/internal/app/queue"
	"github.com/osa030/harmony/internal/app/session"
	"github.com/osa030/harmony/internal/domain/track"
	"github.com/osa030/harmony/internal/infra/config"
	"github.com/osa030/harmony/internal/infra/identity"
	"github.com/osa030/harmony/internal/infra/lastfm"
	"github.com/osa030/harmony/internal/infra/localstore"
	"github.com/osa030/harmony/internal/infra/logger"
	"github.com/osa030/harmony/internal/infra/redisstore"
	"github.com/osa030/harmony/internal/infra/spotify"
	"github.com/osa030/harmony/internal/infra/store"
	"github.com/osa030/harmony/internal/infra/youtube"
)

var (
	app        = kingpin.New("harmony", "harmony music player server")
	configPath = app.Flag("config", "Path to config file").Default("config/harmony.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()

	listFiltersCmd = app.Command("list-filters", "List available filters and exit")

	searchCmd   = app.Command("search", "Search the catalog once and print the results")
	searchQuery = searchCmd.Arg("query", "Search text or Spotify track link").Required().String()
	searchGenre = searchCmd.Flag("genre", "Browse a genre instead of searching").Bool()
)

func init() {
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.Config{Level: cfg.Log.Level, File: cfg.Log.File}
	if *verbose {
		logCfg.Level = "debug"
	}
	if *logfile != "" {
		logCfg.File = *logfile
	}
	closeLog, err := logger.Init(logCfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closeLog()

	switch command {
	case searchCmd.FullCommand():
		err = runSearch(cfg, *searchQuery, *searchGenre)
	default:
		err = run(cfg)
	}
	if err != nil {
		zlog.Error().Msgf("harmony: %v", err)
		closeLog()
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := connectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	kv, err := openStore(cfg, rdb)
	if err != nil {
		return err
	}

	cat, err := buildCatalog(ctx, cfg, rdb)
	if err != nil {
		return err
	}

	notifications := notification.NewManager()
	bridge := ws.NewBridge(ws.Config{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		EventBuffer:    cfg.Player.EventBuffer,
	}, notifications)
	bridge.SetBaseContext(ctx)

	deps := session.Deps{
		Store:         kv,
		Element:       bridge,
		Notifications: notifications,
		Progress:      bridge,
		MediaSession:  bridge,
	}
	if cat != nil {
		deps.Catalog = cat
	}
	sessionMgr := session.NewManager(session.Config{
		Player: playback.Config{
			PollInterval:    cfg.Player.PollInterval,
			SeekSettleDelay: cfg.Player.SeekSettleDelay,
			InitialVolume:   cfg.Player.InitialVolume,
		},
		Queue: queue.Config{EventBuffer: cfg.Player.EventBuffer},
	}, deps)
	bridge.SetActionHandler(sessionMgr.Adapter().HandleMediaAction)

	if err := sessionMgr.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start session")
	}

	apiDeps := httpapi.Deps{Session: sessionMgr, Player: bridge.Handle}
	if cat != nil {
		apiDeps.Catalog = cat
	}
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(httpapi.New(apiDeps).Handler(), &http2.Server{}),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server error")
		}
		return nil
	})
	g.Go(func() error {
		executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

		select {
		case <-gctx.Done():
			zlog.Info().Msg("Received shutdown signal...")
		case <-sessionMgr.Done():
			zlog.Info().Msg("Session ended, shutting down...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Stop the session first so pending state is flushed before connections close.
		if err := sessionMgr.Stop(); err != nil {
			zlog.Error().Msgf("Failed to stop session: %v", err)
		}
		bridge.Close()
		notifications.Close()

		if err := server.Shutdown(shutdownCtx); err != nil {
			zlog.Error().Msgf("Failed to shutdown server: %v", err)
		}
		return nil
	})

	err = g.Wait()
	zlog.Info().Msg("Server stopped")
	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")
	return err
}

// runSearch runs one catalog query and prints the results.
func runSearch(cfg *config.Config, query string, genre bool) error {
	ctx := context.Background()

	rdb, err := connectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	cat, err := buildCatalog(ctx, cfg, rdb)
	if err != nil {
		return err
	}
	if cat == nil {
		return errors.New("no search provider is configured")
	}

	var results []track.Track
	if genre {
		results, err = cat.Browse(ctx, query)
	} else {
		results, err = cat.Search(ctx, query)
	}
	if err != nil {
		return err
	}

	for i, t := range results {
		fmt.Printf("%3d. %s - %s [%s] %s\n", i+1, t.Artist, t.Title, t.Length(), t.ID)
	}
	return nil
}

// connectRedis connects to Redis when the storage driver or a provider needs it.
func connectRedis(ctx context.Context, cfg *config.Config) (*redisstore.Client, error) {
	if cfg.Storage.Driver != "redis" && !cfg.HasProvider("index") {
		return nil, nil
	}
	rdb, err := redisstore.NewClient(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to redis")
	}
	return rdb, nil
}

// openStore picks the document store of the session: the signed-in user's
// remote store when configured, the local directory otherwise.
func openStore(cfg *config.Config, rdb *redisstore.Client) (store.KV, error) {
	local, err := localstore.New(cfg.Storage.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open local storage")
	}
	if cfg.Storage.Driver != "redis" || rdb == nil {
		return local, nil
	}

	var who session.Identity
	switch cfg.Identity.Mode {
	case "jwt":
		j, err := identity.NewJWT(cfg.Identity.Secret, cfg.Identity.Issuer)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create identity provider")
		}
		if cfg.Identity.Token != "" {
			if _, err := j.SignIn(cfg.Identity.Token); err != nil {
				zlog.Warn().Err(err).Msg("identity: sign-in failed, continuing signed out")
			}
		}
		who = j
	default:
		who = identity.Static(cfg.Identity.UserID)
	}

	return session.SelectStore(who, local, func(uid string) (store.KV, error) {
		return rdb.ForUser(uid)
	}), nil
}

// buildCatalog wires providers, filters, enrichment and caches. It returns
// nil when no provider is configured.
func buildCatalog(ctx context.Context, cfg *config.Config, rdb *redisstore.Client) (*catalog.Service, error) {
	if len(cfg.Catalog.Providers) == 0 {
		return nil, nil
	}

	var src catalog.Sources
	var index *redisstore.Index
	if rdb != nil {
		index = rdb.Catalog()
		src.Index = index
	}
	if cfg.HasProvider("youtube") {
		yt, err := youtube.New(ctx, youtube.Config{
			APIKey:            cfg.Catalog.YouTube.APIKey,
			MaxResults:        cfg.Catalog.YouTube.MaxResults,
			RequestsPerSecond: cfg.Catalog.YouTube.RequestsPerSecond,
			Burst:             cfg.Catalog.YouTube.Burst,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create youtube client")
		}
		src.Videos = yt
	}

	providers, err := catalog.NewProviderChainFromConfig(cfg.Catalog.Providers, src)
	if err != nil {
		return nil, errors.Wrap(err, "invalid provider config")
	}
	filters, err := filter.NewChainFromConfig(cfg.EnabledFilters())
	if err != nil {
		return nil, errors.Wrap(err, "invalid filter config")
	}

	deps := catalog.Deps{
		Providers: providers,
		Filters:   filters,
		Genres: lo.Map(cfg.Catalog.Genres, func(g config.GenreConfig, _ int) catalog.Genre {
			return catalog.Genre{Name: g.Name, Query: g.Query}
		}),
	}
	if index != nil {
		deps.Index = index
		deps.Cache = rdb.BrowseCache(cfg.Catalog.BrowseCacheTTL)
	}

	var metadata catalog.MetadataSource
	if cfg.Enrich.Spotify.Enabled() {
		sp, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Enrich.Spotify.ClientID,
			ClientSecret: cfg.Enrich.Spotify.ClientSecret,
			Market:       cfg.Enrich.Spotify.Market,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create spotify client")
		}
		metadata = sp
		deps.Links = sp
	}
	var genres catalog.GenreSource
	if cfg.Enrich.LastFm.Enabled() {
		fm, err := lastfm.New(lastfm.Config{APIKey: cfg.Enrich.LastFm.APIKey})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create last.fm client")
		}
		genres = fm
	}
	deps.Enricher = catalog.NewEnricher(metadata, genres, cfg.Enrich.Concurrency)

	return catalog.New(deps), nil
}

// printFilters prints available filters.
func printFilters() {
	fmt.Println("Available Filters:")
	names := lo.Keys(filter.GetRegistered())
	slices.Sort(names)
	for _, name := range names {
		f := filter.GetRegistered()[name]()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
