// Package core wires the pipeline's typed dependency graph: provider
// registry, store handle, publisher, and config, constructed once at
// startup and injected into every component.
package core

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"github.com/kestrelodds/arbiter/internal/pkg/arbitrage"
	"github.com/kestrelodds/arbiter/internal/pkg/archive"
	appconfig "github.com/kestrelodds/arbiter/internal/pkg/config"
	"github.com/kestrelodds/arbiter/internal/pkg/enums"
	"github.com/kestrelodds/arbiter/internal/pkg/httputil"
	"github.com/kestrelodds/arbiter/internal/pkg/logging"
	"github.com/kestrelodds/arbiter/internal/pkg/persist"
	"github.com/kestrelodds/arbiter/internal/pkg/providers"
	"github.com/kestrelodds/arbiter/internal/pkg/providers/browser"
	"github.com/kestrelodds/arbiter/internal/pkg/providers/compact"
	"github.com/kestrelodds/arbiter/internal/pkg/providers/flatplatform"
	"github.com/kestrelodds/arbiter/internal/pkg/providers/structured"
	"github.com/kestrelodds/arbiter/internal/pkg/publisher"
	"github.com/kestrelodds/arbiter/internal/pkg/resolver"
	"github.com/kestrelodds/arbiter/internal/pkg/scheduler"
	"github.com/kestrelodds/arbiter/internal/pkg/stats"
	"github.com/kestrelodds/arbiter/internal/pkg/telemetry"
)

// Core is the typed value every long-running component receives instead of
// reaching into package-level globals.
type Core struct {
	Config    appconfig.Config
	Logger    *slog.Logger
	DB        *sql.DB
	Store     *persist.Store
	Resolver  *resolver.Resolver
	Engine    *arbitrage.Engine
	Publisher *publisher.Publisher
	Scheduler *scheduler.Scheduler
	Sweeper   *archive.Sweeper
	Stats     *stats.Server
	SinkNames []string
}

// New builds the full dependency graph from cfg. DB is opened with lib/pq;
// tests construct their own Store over modernc.org/sqlite directly rather
// than going through Core.
func New(ctx context.Context, cfg appconfig.Config) (*Core, error) {
	logger := logging.Setup(cfg.Logging, "arbiter")

	db, err := sql.Open("postgres", cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("core: opening store: %w", err)
	}
	if cfg.Store.MaxOpenConn > 0 {
		db.SetMaxOpenConns(cfg.Store.MaxOpenConn)
	}

	store := persist.New(db)
	if err := store.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("core: initializing schema: %w", err)
	}

	res, err := buildResolver(store, cfg.Resolver, logger)
	if err != nil {
		return nil, err
	}
	engine, err := buildEngine(store, cfg.Arbitrage, logger)
	if err != nil {
		return nil, err
	}
	pub := publisher.New(cfg.Publisher.BufferSize, logger)

	sinkNames, wsHub, err := wireSinks(pub, cfg.Publisher, logger)
	if err != nil {
		return nil, err
	}

	handles, err := buildProviders(cfg.Providers, cfg.Scrape, logger)
	if err != nil {
		return nil, err
	}

	rec := telemetry.NewRecorder()
	sched := scheduler.New(handles, res, store, engine, pub, cfg.Scrape, cfg.Arbitrage, logger, rec)

	var exporter *archive.Exporter
	if cfg.Archive.Enabled {
		exporter, err = archive.NewExporter(ctx, cfg.Archive)
		if err != nil {
			return nil, fmt.Errorf("core: wiring archive exporter: %w", err)
		}
	}
	sweeper := archive.NewSweeper(store, exporter, cfg.Retention, logger)

	// avoid handing NewServer a typed-nil handler when the hub is disabled
	var wsHandler http.Handler
	if wsHub != nil {
		wsHandler = wsHub
	}
	statsServer := stats.NewServer(store, pub, rec, sinkNames, wsHandler)

	return &Core{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Store:     store,
		Resolver:  res,
		Engine:    engine,
		Publisher: pub,
		Scheduler: sched,
		Sweeper:   sweeper,
		Stats:     statsServer,
		SinkNames: sinkNames,
	}, nil
}

func (c *Core) Close() error {
	return c.DB.Close()
}

// buildResolver wires the resolver's optional same-cycle candidate cache
// when cfg.Cache is enabled, falling back to the plain
// store-backed resolver otherwise.
func buildResolver(store *persist.Store, cfg appconfig.ResolverConfig, logger *slog.Logger) (*resolver.Resolver, error) {
	if !cfg.Cache.Enabled {
		return resolver.New(store), nil
	}
	cache, err := resolver.NewRedisCandidateCache(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB)
	if err != nil {
		return nil, fmt.Errorf("core: wiring resolver candidate cache: %w", err)
	}
	return resolver.NewWithCache(store, cache, 5*time.Minute), nil
}

// buildEngine wires the arbitrage engine's optional content-hash dedup
// guard when cfg.Dedup is enabled.
func buildEngine(store *persist.Store, cfg appconfig.ArbitrageConfig, logger *slog.Logger) (*arbitrage.Engine, error) {
	if !cfg.Dedup.Enabled {
		return arbitrage.New(store, cfg), nil
	}
	guard, err := arbitrage.NewRedisDedupGuard(cfg.Dedup.Addr, cfg.Dedup.Password, cfg.Dedup.DB)
	if err != nil {
		return nil, fmt.Errorf("core: wiring arbitrage dedup guard: %w", err)
	}
	return arbitrage.NewWithDedup(store, cfg, guard), nil
}

// wireSinks registers every enabled publisher sink and starts its drain
// loop, returning the names /stats reports drop counters for.
func wireSinks(pub *publisher.Publisher, cfg appconfig.PublisherConfig, logger *slog.Logger) ([]string, *publisher.WebSocketHub, error) {
	var names []string

	if cfg.Redis.Enabled {
		sink, err := publisher.NewRedisSink(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Channel)
		if err != nil {
			return nil, nil, fmt.Errorf("core: wiring redis sink: %w", err)
		}
		ch := pub.Subscribe(sink.Name())
		go publisher.RunSink(context.Background(), sink, ch, logger)
		names = append(names, sink.Name())
	}

	if cfg.Telegram.Enabled {
		sink, err := publisher.NewTelegramSink(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			return nil, nil, fmt.Errorf("core: wiring telegram sink: %w", err)
		}
		ch := pub.Subscribe(sink.Name())
		go publisher.RunSink(context.Background(), sink, ch, logger)
		names = append(names, sink.Name())
	}

	if cfg.Kafka.Enabled {
		sink := publisher.NewKafkaSink(cfg.Kafka.Brokers, "arbiter.events")
		ch := pub.Subscribe(sink.Name())
		go publisher.RunSink(context.Background(), sink, ch, logger)
		names = append(names, sink.Name())
	}

	var hub *publisher.WebSocketHub
	if cfg.WebSocket.Enabled {
		hub = publisher.NewWebSocketHub(logger)
		ch := pub.Subscribe(hub.Name())
		go publisher.RunSink(context.Background(), hub, ch, logger)
		names = append(names, hub.Name())
	}

	return names, hub, nil
}

// buildProviders resolves each configured provider's adapter shape into a
// live interfaces.Adapter via the self-registering factory map, validating
// every shape name at startup.
func buildProviders(cfgs []appconfig.ProviderConfig, scrapeCfg appconfig.ScrapeConfig, logger *slog.Logger) ([]scheduler.ProviderHandle, error) {
	var handles []scheduler.ProviderHandle
	for _, pc := range cfgs {
		if !pc.Enabled {
			continue
		}
		factory, ok := providers.FactoryByName(pc.Shape)
		if !ok {
			return nil, fmt.Errorf("core: provider %s: unknown adapter shape %q", pc.Name, pc.Shape)
		}

		httpCfg := httputil.Config{
			Timeout:           scrapeCfg.RequestTimeout(),
			MaxConcurrent:     scrapeCfg.MaxConcurrentRequests,
			MaxAttempts:       scrapeCfg.MaxAttempts,
			RequestsPerSecond: scrapeCfg.RequestsPerSecond,
			UserAgent:         pc.UserAgent,
		}

		adapterCfg, err := adapterConfigFor(pc, httpCfg)
		if err != nil {
			return nil, fmt.Errorf("core: provider %s: %w", pc.Name, err)
		}

		adapter, err := factory(adapterCfg)
		if err != nil {
			return nil, fmt.Errorf("core: building provider %s: %w", pc.Name, err)
		}
		handles = append(handles, scheduler.ProviderHandle{ID: pc.ID, Name: pc.Name, Adapter: adapter})
	}
	return handles, nil
}

func adapterConfigFor(pc appconfig.ProviderConfig, httpCfg httputil.Config) (any, error) {
	switch pc.Shape {
	case "flatplatform":
		return flatplatform.Config{ProviderID: pc.ID, BaseURL: pc.BaseURL, Lang: pc.Lang, Version: pc.Version, HTTP: httpCfg}, nil
	case "structured":
		return structured.Config{ProviderID: pc.ID, BaseURL: pc.BaseURL, APIKey: pc.APIKey, HTTP: httpCfg, Sports: sportMap(pc.Sports)}, nil
	case "compact":
		return compact.Config{ProviderID: pc.ID, BaseURL: pc.BaseURL, SportCodes: sportMap(pc.Sports), HTTP: httpCfg}, nil
	case "browser":
		return browser.Config{ProviderID: pc.ID, MirrorURL: pc.BaseURL, SportPaths: sportPathMap(pc.SportPaths), UserAgent: pc.UserAgent}, nil
	default:
		return nil, fmt.Errorf("unknown adapter shape %q", pc.Shape)
	}
}

func sportMap(aliases map[string]int) map[enums.SportID]int {
	out := make(map[enums.SportID]int, len(aliases))
	for alias, id := range aliases {
		if sport, ok := enums.ParseSportAlias(alias); ok {
			out[sport] = id
		}
	}
	return out
}

func sportPathMap(aliases map[string]string) map[enums.SportID]string {
	out := make(map[enums.SportID]string, len(aliases))
	for alias, path := range aliases {
		if sport, ok := enums.ParseSportAlias(alias); ok {
			out[sport] = path
		}
	}
	return out
}
