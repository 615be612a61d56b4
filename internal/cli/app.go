package cli

import (
	"context"
	"fmt"

	"github.com/dyike/ivy/config"
	"github.com/dyike/ivy/internal/auth"
	"github.com/dyike/ivy/internal/discovery"
	"github.com/dyike/ivy/internal/events"
	"github.com/dyike/ivy/internal/kv"
	"github.com/dyike/ivy/internal/logger"
	"github.com/dyike/ivy/internal/search"
	"github.com/dyike/ivy/internal/service"
	"github.com/dyike/ivy/internal/storage/sqlite"
)

var log = logger.New("cli")

type eventPublisher interface {
	service.Publisher
	Close() error
}

// App is the set of services one command runs against. Every service is
// constructed once here and injected where it is needed.
type App struct {
	Config    *config.Config
	Discovery *service.DiscoveryService
	Profile   *service.ProfileService
	Auth      *auth.Service

	store     *sqlite.Store
	prefs     *kv.Store
	publisher eventPublisher
}

// NewApp opens the stores, connects the publisher when brokers are set and
// loads the candidate pool.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open candidate store: %w", err)
	}
	prefs, err := kv.Open(cfg.PrefsPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open preferences: %w", err)
	}

	a := &App{Config: cfg, store: store, prefs: prefs, publisher: events.NopPublisher{}}

	if cfg.KafkaEnabled() {
		pub, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaSwipeTopic, cfg.KafkaRecommendationTopic)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect event publisher: %w", err)
		}
		a.publisher = pub
		log.Debug().Strs("brokers", cfg.KafkaBrokers).Msg("publishing discovery events")
	}

	gen := discovery.NewGenerator(
		discovery.WithBatchSize(cfg.BatchSize),
		discovery.WithJitter(cfg.JitterMin, cfg.JitterMax),
	)
	a.Discovery = service.NewDiscoveryService(store, gen,
		service.WithPublisher(a.publisher),
		service.WithRecommendLimit(cfg.RecommendLimit),
	)

	a.Profile, err = service.NewProfileService(prefs)
	if err != nil {
		a.Close()
		return nil, err
	}

	var provider auth.Provider
	if cfg.AuthConfigured() {
		provider = auth.NewFirebaseProvider(cfg.AuthBaseURL, cfg.AuthAPIKey)
	}
	a.Auth, err = auth.NewService(provider, prefs, a.Profile)
	if err != nil {
		a.Close()
		return nil, err
	}

	if err := a.Discovery.Load(ctx); err != nil && !service.PublishOnly(err) {
		a.Close()
		return nil, err
	}
	return a, nil
}

// ApplyConfig pushes the discovery settings of c into the running services.
// Store paths and brokers need a restart.
func (a *App) ApplyConfig(c config.Config) {
	a.Discovery.SetLimits(c.BatchSize, c.RecommendLimit)
	a.Discovery.SetJitter(c.JitterMin, c.JitterMax)
	log.Debug().Float64("jitter_min", c.JitterMin).Float64("jitter_max", c.JitterMax).Msg("config applied")
}

// SearchIndex builds a fresh index over the whole candidate pool.
func (a *App) SearchIndex(ctx context.Context) (*search.Index, error) {
	all, err := a.Discovery.Candidates(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := search.NewIndex()
	if err != nil {
		return nil, err
	}
	if err := idx.Index(all...); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return idx, nil
}

func (a *App) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("close publisher")
		}
	}
	if a.prefs != nil {
		if err := a.prefs.Close(); err != nil {
			log.Warn().Err(err).Msg("close preferences")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Warn().Err(err).Msg("close candidate store")
		}
	}
}
